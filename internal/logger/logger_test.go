package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and restores the
// previous writer, level and format on cleanup.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	origOut, origColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	origLevel := Level(currentLevel.Load())
	origFormat, _ := currentFormat.Load().(string)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = origOut, origColor
		mu.Unlock()
		currentLevel.Store(int32(origLevel))
		currentFormat.Store(origFormat)
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level    string
		want     []string
		filtered []string
	}{
		{"DEBUG", []string{"d-msg", "i-msg", "w-msg", "e-msg"}, nil},
		{"INFO", []string{"i-msg", "w-msg", "e-msg"}, []string{"d-msg"}},
		{"WARN", []string{"w-msg", "e-msg"}, []string{"d-msg", "i-msg"}},
		{"ERROR", []string{"e-msg"}, []string{"d-msg", "i-msg", "w-msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("d-msg")
			Info("i-msg")
			Warn("w-msg")
			Error("e-msg")

			out := buf.String()
			for _, s := range tt.want {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.filtered {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	captureOutput(t)
	SetLevel("WARN")
	SetLevel("chatty")
	assert.Equal(t, LevelWarn, Level(currentLevel.Load()))
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, LevelWarn, l)

	_, ok = ParseLevel("nope")
	assert.False(t, ok)

	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")
	SetLevel("DEBUG")

	Debug("page fetched", KeyPage, int64(3), KeyKey, "data.h5", KeyCacheHit, false)

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] page fetched")
	assert.Contains(t, out, "page=3")
	assert.Contains(t, out, "key=data.h5")
	assert.Contains(t, out, "cache_hit=false")
	assert.NotContains(t, out, "\033[")
}

func TestTextFormat_QuotesAndGroups(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")

	Info("flush failed",
		Err(errors.New("server said no")),
		slog.Group("retry", slog.Int("attempt", 2)),
	)

	out := buf.String()
	assert.Contains(t, out, `error="server said no"`)
	assert.Contains(t, out, "retry.attempt=2")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")
	SetLevel("INFO")

	Info("opened", KeyURI, "s3://bucket/data.h5", KeyPageSize, int64(4096))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "opened", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "s3://bucket/data.h5", rec[KeyURI])
	assert.EqualValues(t, 4096, rec[KeyPageSize])
}

func TestContextLogging(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")

	lc := NewLogContext("s3://b/k").WithOperation("flush").WithHandle("h1").WithTrace("abc", "def")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "flushed", KeyDirty, 2)

	out := buf.String()
	assert.Contains(t, out, "trace_id=abc")
	assert.Contains(t, out, "span_id=def")
	assert.Contains(t, out, "operation=flush")
	assert.Contains(t, out, "uri=s3://b/k")
	assert.Contains(t, out, "handle=h1")
	assert.Contains(t, out, "dirty=2")
	assert.Less(t, strings.Index(out, "trace_id"), strings.Index(out, "dirty"))
}

func TestContextLogging_NoContext(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")

	WarnCtx(context.Background(), "plain")
	assert.Contains(t, buf.String(), "[WARN] plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestLogContext_Clone(t *testing.T) {
	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Nil(t, nilLC.WithOperation("read"))
	assert.Zero(t, nilLC.DurationMs())

	lc := NewLogContext("file:///tmp/x")
	op := lc.WithOperation("read")
	assert.Empty(t, lc.Operation)
	assert.Equal(t, "read", op.Operation)
	assert.Equal(t, lc.URI, op.URI)
	assert.GreaterOrEqual(t, op.DurationMs(), 0.0)

	assert.Nil(t, FromContext(context.Background()))
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, slog.Int64(KeyOffset, 10), Offset(10))
	assert.Equal(t, slog.Int64(KeyPage, 2), Page(2))
	assert.Equal(t, slog.String(KeyBucket, "b"), Bucket("b"))
	assert.Equal(t, slog.Attr{}, Err(nil))
	assert.Equal(t, "boom", Err(errors.New("boom")).Value.String())
}

func TestCredentialsStyleLogValuer(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")

	Info("open", "credentials", redactingValue{})
	assert.Contains(t, buf.String(), "credentials.secret_key=[REDACTED]")
}

type redactingValue struct{}

func (redactingValue) LogValue() slog.Value {
	return slog.GroupValue(slog.String("secret_key", "[REDACTED]"))
}

func TestInit(t *testing.T) {
	captureOutput(t)

	require.NoError(t, Init(Config{Level: "debug", Format: "JSON"}))
	assert.Equal(t, LevelDebug, Level(currentLevel.Load()))
	assert.Equal(t, "json", currentFormat.Load())

	assert.Error(t, Init(Config{Level: "loud"}))
	assert.Error(t, Init(Config{Format: "xml"}))
}

func TestInit_FileOutput(t *testing.T) {
	captureOutput(t)
	path := t.TempDir() + "/h5s3.log"

	require.NoError(t, Init(Config{Output: path, Format: "text", Level: "INFO"}))
	Info("to file")
	// restore a buffer so the file handle is closed before TempDir cleanup
	require.NoError(t, Init(Config{Output: "stderr"}))

	InitWithWriter(new(bytes.Buffer), "", "", false)
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("text")

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Info("concurrent", "n", n)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, strings.Count(buf.String(), "concurrent"))
}
