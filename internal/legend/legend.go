// Package legend bins dataset values into toggleable legend buckets.
package legend

import (
	"sort"

	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/pkg/value"
)

// Filter is the set of bucket keys the viewer has switched on. A nil
// Filter enables nothing.
type Filter map[string]struct{}

// NewFilter builds a Filter from keys.
func NewFilter(keys ...string) Filter {
	f := make(Filter, len(keys))
	for _, k := range keys {
		f[k] = struct{}{}
	}
	return f
}

// Has reports whether key is enabled.
func (f Filter) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Keys returns the enabled keys sorted.
func (f Filter) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Entry is a legend bucket and the number of records in it.
type Entry struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Legend is an ordered list of buckets.
type Legend []Entry

// Keys returns the bucket keys in legend order.
func (l Legend) Keys() []string {
	keys := make([]string, len(l))
	for i, e := range l {
		keys[i] = e.Key
	}
	return keys
}

// Count returns the count of key, or 0.
func (l Legend) Count(key string) int {
	for _, e := range l {
		if e.Key == key {
			return e.Count
		}
	}
	return 0
}

// Total sums the counts of all buckets.
func (l Legend) Total() int {
	n := 0
	for _, e := range l {
		n += e.Count
	}
	return n
}

// CountCategories counts the string form of field over data, keeping only
// enabled values. Buckets are sorted by descending count; equal counts keep
// the order in which the values first appear in data. Records without the
// field are skipped.
func CountCategories(data dataset.Dataset, field string, filter Filter) Legend {
	counts := make(map[string]int)
	var order []string
	for _, r := range data {
		key, ok := value.String(r.Get(field))
		if !ok || !filter.Has(key) {
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	l := make(Legend, len(order))
	for i, k := range order {
		l[i] = Entry{Key: k, Count: counts[k]}
	}
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Count > l[j].Count
	})
	return l
}

// Categories lists the distinct values of field in first-appearance order.
func Categories(data dataset.Dataset, field string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range data {
		key, ok := value.String(r.Get(field))
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
