package dataset

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name        string
		format      Format
		compression string
	}{
		{"up.json", FormatJSON, ""},
		{"data/UP_AE.CSV", FormatCSV, ""},
		{"up.csv.gz", FormatCSV, ".gz"},
		{"up.json.zst", FormatJSON, ".zst"},
		{"tcpd.sqlite", FormatSQLite, ""},
		{"tcpd.db", FormatSQLite, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			format, compression, err := Detect(tc.name)
			require.NoError(t, err)
			assert.Equal(t, tc.format, format)
			assert.Equal(t, tc.compression, compression)
		})
	}

	_, _, err := Detect("up.parquet")
	assert.Error(t, err)
	_, _, err = Detect("tcpd.sqlite.gz")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	d, err := Decode(FormatJSON, []byte(`[
		{"Party": "BJP", "N_Cand": 12, "Turnout_Percentage": 61.5, "Sex": null},
		{"Party": "INC", "N_Cand": "7"}
	]`))
	require.NoError(t, err)
	require.Len(t, d, 2)

	assert.Equal(t, "BJP", d[0]["Party"])
	assert.Equal(t, 12.0, d[0]["N_Cand"])
	assert.Equal(t, 61.5, d[0]["Turnout_Percentage"])
	assert.Nil(t, d[0]["Sex"])
	assert.Equal(t, "7", d[1]["N_Cand"])

	_, err = Decode(FormatJSON, []byte(`{"Party": "BJP"}`))
	assert.Error(t, err)
}

func TestDecodeCSV(t *testing.T) {
	input := "\ufeffConstituency_No,Party,N_Cand,Margin_Percentage\n" +
		"1,BJP,12,4.5\n" +
		"2,INC,,\n" +
		"3,IND\n"
	d, err := Decode(FormatCSV, []byte(input))
	require.NoError(t, err)
	require.Len(t, d, 3)

	assert.Equal(t, 1.0, d[0]["Constituency_No"])
	assert.Equal(t, "BJP", d[0]["Party"])
	assert.Equal(t, 4.5, d[0]["Margin_Percentage"])
	assert.Nil(t, d[1]["N_Cand"])
	assert.Contains(t, d[2], "Margin_Percentage")
	assert.Nil(t, d[2]["Margin_Percentage"])
}

func TestDecodeCSVNonFiniteCellsStayText(t *testing.T) {
	input := `Party,N_Cand
NaN,3
inf,4
Infinity,-Inf
`
	d, err := Decode(FormatCSV, []byte(input))
	require.NoError(t, err)
	require.Len(t, d, 3)

	assert.Equal(t, "NaN", d[0]["Party"])
	assert.Equal(t, "inf", d[1]["Party"])
	assert.Equal(t, "Infinity", d[2]["Party"])
	assert.Equal(t, "-Inf", d[2]["N_Cand"])
	assert.Equal(t, 3.0, d[0]["N_Cand"])
}

func TestDecompress(t *testing.T) {
	plain := []byte(`[{"Party": "BJP"}]`)

	t.Run("gzip", func(t *testing.T) {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(plain)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		got, err := Decompress(".gz", buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})

	t.Run("zstd", func(t *testing.T) {
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		compressed := enc.EncodeAll(plain, nil)
		require.NoError(t, enc.Close())

		got, err := Decompress(".zst", compressed)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})

	t.Run("plain", func(t *testing.T) {
		got, err := Decompress("", plain)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	})

	t.Run("corrupt", func(t *testing.T) {
		_, err := Decompress(".gz", plain)
		assert.Error(t, err)
	})
}
