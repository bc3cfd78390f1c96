// Package value implements the single coercion policy applied to record
// fields: how raw JSON/CSV values are read as numbers, strings or "falsy".
package value

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number reads v as a float64.
//
// Numbers are returned as-is and strings are trimmed and parsed with
// strconv.ParseFloat. Booleans, nil, unparsable strings and NaN report
// ok=false and must be treated as "no data" by callers.
func Number(v any) (f float64, ok bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Falsy reports whether v is nil, false, zero, the empty string or NaN.
func Falsy(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case bool:
		return !n
	case string:
		return n == ""
	case json.Number:
		f, err := n.Float64()
		return err == nil && (f == 0 || math.IsNaN(f))
	}
	f, ok := Number(v)
	if !ok {
		// NaN is the only falsy value left at this point.
		return isNaN(v)
	}
	return f == 0
}

func isNaN(v any) bool {
	switch n := v.(type) {
	case float64:
		return math.IsNaN(n)
	case float32:
		return math.IsNaN(float64(n))
	}
	return false
}

// String returns the bucket-key form of v. Integral floats print without a
// fractional part so that 1.0 read from JSON matches the key "1".
func String(v any) (string, bool) {
	switch n := v.(type) {
	case nil:
		return "", false
	case string:
		return n, true
	case bool:
		return strconv.FormatBool(n), true
	case json.Number:
		return n.String(), true
	}
	f, ok := Number(v)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
