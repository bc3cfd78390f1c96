// Package dataset defines election-result records and loads them from disk.
package dataset

// Record is one row of election-result data keyed by field name. Values are
// float64, string, bool or nil; any field may be absent.
type Record map[string]any

// Get returns the raw value of field, or nil when absent.
func (r Record) Get(field string) any {
	if r == nil {
		return nil
	}
	return r[field]
}

// Dataset is an ordered sequence of records for one map or chart.
type Dataset []Record

// Filter returns the records for which keep reports true, in order.
func (d Dataset) Filter(keep func(Record) bool) Dataset {
	out := make(Dataset, 0, len(d))
	for _, r := range d {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
