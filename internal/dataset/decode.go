package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is the record encoding of a dataset file.
type Format string

const (
	FormatJSON   Format = "json"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// maxDecompressedBytes bounds a single decompressed dataset file.
const maxDecompressedBytes = 256 << 20

// Detect returns the record format and compression suffix of name, for
// example "up_ae.csv.gz" is (FormatCSV, ".gz").
func Detect(name string) (Format, string, error) {
	base := strings.ToLower(filepath.Base(name))
	compression := ""
	for _, ext := range []string{".gz", ".zst"} {
		if strings.HasSuffix(base, ext) {
			compression = ext
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	switch filepath.Ext(base) {
	case ".json":
		return FormatJSON, compression, nil
	case ".csv":
		return FormatCSV, compression, nil
	case ".sqlite", ".sqlite3", ".db":
		if compression != "" {
			return "", "", fmt.Errorf("compressed sqlite dataset %q is not supported", name)
		}
		return FormatSQLite, "", nil
	}
	return "", "", fmt.Errorf("unsupported dataset file %q", name)
}

// Decompress returns the plain bytes of data for the given suffix.
func Decompress(compression string, data []byte) ([]byte, error) {
	var r io.Reader
	switch compression {
	case "":
		return data, nil
	case ".gz":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxDecompressedBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if len(out) > maxDecompressedBytes {
		return nil, errors.New("decompressed dataset too large")
	}
	return out, nil
}

// Decode parses plain bytes in the given format.
func Decode(format Format, data []byte) (Dataset, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatCSV:
		return decodeCSV(data)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// decodeJSON reads an array of objects. Numbers become float64.
func decodeJSON(data []byte) (Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode JSON dataset: %w", err)
	}

	d := make(Dataset, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			if n, ok := v.(json.Number); ok {
				if f, err := n.Float64(); err == nil {
					rec[k] = f
					continue
				}
			}
			rec[k] = v
		}
		d[i] = rec
	}
	return d, nil
}

// decodeCSV reads a header row followed by records. Empty cells are nil and
// cells that parse as numbers become float64.
func decodeCSV(data []byte) (Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var d Dataset
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		rec := make(Record, len(headers))
		for i, h := range headers {
			if i >= len(row) {
				rec[h] = nil
				continue
			}
			rec[h] = parseCell(row[i])
		}
		d = append(d, rec)
	}
	return d, nil
}

func parseCell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// ParseFloat also accepts "NaN" and "Inf"; those stay text.
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}
