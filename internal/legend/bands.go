package legend

import (
	"math"

	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/value"
)

// Bound is one end of a band.
type Bound struct {
	Value     float64
	Inclusive bool
	Unbounded bool
}

// Open returns a bound that excludes v.
func Open(v float64) Bound { return Bound{Value: v} }

// Closed returns a bound that includes v.
func Closed(v float64) Bound { return Bound{Value: v, Inclusive: true} }

// Unbounded returns a bound at infinity.
func Unbounded() Bound { return Bound{Unbounded: true} }

// Band is a named numeric interval with its swatch color.
type Band struct {
	Key   string
	Color colormap.Hex
	Lower Bound
	Upper Bound
}

// Contains reports whether v lies in the band.
func (b Band) Contains(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if !b.Lower.Unbounded {
		if v < b.Lower.Value || (v == b.Lower.Value && !b.Lower.Inclusive) {
			return false
		}
	}
	if !b.Upper.Unbounded {
		if v > b.Upper.Value || (v == b.Upper.Value && !b.Upper.Inclusive) {
			return false
		}
	}
	return true
}

// BandSet is a fixed sequence of non-overlapping bands. The order of Bands
// is the canonical legend order.
type BandSet struct {
	Bands []Band
}

// Classify returns the band holding v. Missing and non-numeric values, and
// values between bands, are unclassified.
func (s BandSet) Classify(v any) (Band, bool) {
	f, ok := value.Number(v)
	if !ok {
		return Band{}, false
	}
	for _, b := range s.Bands {
		if b.Contains(f) {
			return b, true
		}
	}
	return Band{}, false
}

// Keys returns the band keys in canonical order.
func (s BandSet) Keys() []string {
	keys := make([]string, len(s.Bands))
	for i, b := range s.Bands {
		keys[i] = b.Key
	}
	return keys
}

// Count bins field over data. Only enabled bands are counted and the
// legend lists them in canonical order, skipping empty ones.
func (s BandSet) Count(data dataset.Dataset, field string, filter Filter) Legend {
	counts := make(map[string]int, len(s.Bands))
	for _, r := range data {
		b, ok := s.Classify(r.Get(field))
		if !ok || !filter.Has(b.Key) {
			continue
		}
		counts[b.Key]++
	}

	l := make(Legend, 0, len(s.Bands))
	for _, b := range s.Bands {
		if n := counts[b.Key]; n > 0 {
			l = append(l, Entry{Key: b.Key, Count: n})
		}
	}
	return l
}

// Color is the map color of v: its band's color when that band is
// enabled, otherwise colormap.Transparent.
func (s BandSet) Color(v any, filter Filter) colormap.Hex {
	b, ok := s.Classify(v)
	if !ok || !filter.Has(b.Key) {
		return colormap.Transparent
	}
	return b.Color
}

// LegendColor is the swatch color of key.
func (s BandSet) LegendColor(key string) colormap.Hex {
	for _, b := range s.Bands {
		if b.Key == key {
			return b.Color
		}
	}
	return colormap.Transparent
}

// Candidates bands the number of candidates contesting a seat.
var Candidates = BandSet{Bands: []Band{
	{Key: "<5", Color: "#deebf7", Lower: Unbounded(), Upper: Open(5)},
	{Key: "5-15", Color: "#08306b", Lower: Closed(5), Upper: Closed(15)},
	{Key: ">15", Color: "#6baed6", Lower: Open(15), Upper: Unbounded()},
}}

// Positions bands the finishing position of a party's candidate.
var Positions = BandSet{Bands: []Band{
	{Key: "1", Color: "#0570b0", Lower: Closed(1), Upper: Closed(1)},
	{Key: "2", Color: "#74a9cf", Lower: Closed(2), Upper: Closed(2)},
	{Key: "3", Color: "#bdc9e1", Lower: Closed(3), Upper: Closed(3)},
	{Key: ">3", Color: "#f1eef6", Lower: Open(3), Upper: Unbounded()},
}}

// Nota bands the NOTA vote share percentage.
var Nota = BandSet{Bands: []Band{
	{Key: "<1%", Color: "#f1eef6", Lower: Unbounded(), Upper: Open(1)},
	{Key: "1%-3%", Color: "#bdc9e1", Lower: Closed(1), Upper: Open(3)},
	{Key: "3%-5%", Color: "#74a9cf", Lower: Closed(3), Upper: Closed(5)},
	{Key: ">5%", Color: "#0570b0", Lower: Open(5), Upper: Unbounded()},
}}
