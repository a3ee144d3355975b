package bytesize

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"0", 0},
		{"4096", 4096},
		{"4096B", 4096},
		{"64b", 64},
		{"2Mi", 2 * MiB},
		{"2MiB", 2 * MiB},
		{"2mib", 2 * MiB},
		{"4Gi", 4 * GiB},
		{" 1 Ti ", TiB},
		{"512Ki", 512 * KiB},
		{"100MB", 100 * MB},
		{"1K", KB},
		{"3G", 3 * GB},
		{"1.5Mi", MiB + 512*KiB},
		{"0.5Gi", 512 * MiB},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseByteSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "Mi", "-1Mi", "1Xi", "1.2.3", "abc", "99999999999Ti"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseByteSize(in)
			assert.Error(t, err)
		})
	}
}

func TestByteSize_String(t *testing.T) {
	assert.Equal(t, "0", ByteSize(0).String())
	assert.Equal(t, "100", ByteSize(100).String())
	assert.Equal(t, "4Ki", (4 * KiB).String())
	assert.Equal(t, "2Mi", (2 * MiB).String())
	assert.Equal(t, "1536Ki", (MiB + 512*KiB).String())
	assert.Equal(t, "4Gi", (4 * GiB).String())
	assert.Equal(t, "1000", KB.String(), "decimal units print as bytes")
}

func TestByteSize_StringRoundTrips(t *testing.T) {
	for _, v := range []ByteSize{0, 1, 64, 4 * KiB, 2 * MiB, 3*GiB + 7, 5 * TiB, 100 * MB} {
		got, err := ParseByteSize(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestByteSize_Human(t *testing.T) {
	assert.Equal(t, "512B", ByteSize(512).Human())
	assert.Equal(t, "1.50MiB", (MiB + 512*KiB).Human())
	assert.Equal(t, "4.00GiB", (4 * GiB).Human())
}

func TestByteSize_TextEncodings(t *testing.T) {
	type doc struct {
		Size ByteSize `json:"size" yaml:"size"`
	}

	out, err := yaml.Marshal(doc{Size: 2 * MiB})
	require.NoError(t, err)
	assert.Equal(t, "size: 2Mi\n", string(out))

	var d doc
	require.NoError(t, yaml.Unmarshal([]byte("size: 8Ki\n"), &d))
	assert.Equal(t, 8*KiB, d.Size)

	js, err := json.Marshal(doc{Size: GiB})
	require.NoError(t, err)
	assert.JSONEq(t, `{"size":"1Gi"}`, string(js))

	var b ByteSize
	assert.Error(t, b.UnmarshalText([]byte("lots")))
}

func TestByteSize_Int64Saturates(t *testing.T) {
	assert.EqualValues(t, 2*MiB, (2 * MiB).Int64())
	assert.Equal(t, int64(math.MaxInt64), ByteSize(math.MaxUint64).Int64())
}
