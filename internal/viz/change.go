package viz

import (
	"fmt"
	"math"

	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/value"
)

// ScanRange returns the min and max of field over data. Values that are
// absent, infinite or do not parse as numbers are skipped, so they never affect the
// extremes. ok is false when no record has a usable value.
func ScanRange(data dataset.Dataset, field string) (d Domain, ok bool) {
	for _, r := range data {
		f, valid := value.Number(r.Get(field))
		if !valid || math.IsInf(f, 0) {
			continue
		}
		if !ok {
			d = Domain{Min: f, Max: f}
			ok = true
			continue
		}
		if f < d.Min {
			d.Min = f
		}
		if f > d.Max {
			d.Max = f
		}
	}
	return d, ok
}

// changeMap re-derives base for the delta field of k. The legend is kept;
// title, field, domain and value colors are replaced.
func (s *Selector) changeMap(base MapBundle, k mapKind, req MapRequest) MapBundle {
	d, _ := ScanRange(req.Data, k.changeField)
	scale := colormap.Diverging{
		Min:  d.Min,
		Max:  d.Max,
		Low:  s.colors.ChangeMin,
		High: s.colors.ChangeMax,
	}

	out := base
	out.Title = fmt.Sprintf(k.changeTitle, req.Display.ElectionTypeName(), req.Display.AssemblyNo)
	out.Field = k.changeField
	out.Domain = &d
	out.Change = true
	out.valueColor = scale.Value
	out.Scale = scale
	return out
}
