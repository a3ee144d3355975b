package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	URI string `json:"uri" yaml:"uri"`
	EOF int64  `json:"eof" yaml:"eof"`
}

func (s sample) Headers() []string { return []string{"uri", "eof"} }
func (s sample) Rows() [][]string  { return [][]string{{s.URI, "42"}} }

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":       FormatTable,
		"table":  FormatTable,
		" JSON ": FormatJSON,
		"yml":    FormatYAML,
		"yaml":   FormatYAML,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestPrinter_Print(t *testing.T) {
	data := sample{URI: "s3://b/k", EOF: 42}

	var buf bytes.Buffer
	require.NoError(t, NewPrinter(&buf, FormatJSON).Print(data))
	assert.JSONEq(t, `{"uri":"s3://b/k","eof":42}`, buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatYAML).Print(data))
	assert.Equal(t, "uri: s3://b/k\neof: 42\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatTable).Print(data))
	assert.Contains(t, buf.String(), "URI")
	assert.Contains(t, buf.String(), "s3://b/k")

	buf.Reset()
	require.NoError(t, NewPrinter(&buf, FormatTable).Print(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, buf.String(), "non-table data falls back to JSON")

	assert.Error(t, NewPrinter(&buf, Format("csv")).Print(data))
}

func TestTable(t *testing.T) {
	tbl := NewTable("Page", "State")
	tbl.AddRow("0", "dirty")
	tbl.AddRow("1", "clean")
	assert.Len(t, tbl.Rows(), 2)

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, tbl))
	out := buf.String()
	assert.Contains(t, out, "PAGE")
	assert.Contains(t, out, "dirty")
	assert.Contains(t, out, "clean")
}

func TestKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValues(&buf, [][2]string{{"Page size", "2Mi"}, {"EOF", "100"}}))
	out := buf.String()
	assert.Contains(t, out, "Page size")
	assert.Contains(t, out, "2Mi")
	assert.Contains(t, out, ":")
}
