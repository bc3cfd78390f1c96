package viz

import (
	"fmt"

	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/internal/legend"
	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/palette"
)

// MapRequest is the input of one map render.
type MapRequest struct {
	Visualization string
	Data          dataset.Dataset
	Filter        legend.Filter
	Display       Display
	ShowChangeMap bool
}

// MapBundle is what the map renderer consumes. It is built per request and
// never cached.
type MapBundle struct {
	Title      string
	Field      string
	LegendType LegendType
	Legend     legend.Legend
	// Domain is set for continuous scales only.
	Domain *Domain
	// Change is true when the bundle shows a delta field.
	Change bool
	// Scale is the gradient of continuous bundles, nil otherwise.
	Scale colormap.Colormap

	valueColor  func(v any) colormap.Hex
	legendColor func(key string) colormap.Hex
}

// Color returns the map color of r.
func (b MapBundle) Color(r dataset.Record) colormap.Hex {
	return b.ValueColor(r.Get(b.Field))
}

// ValueColor returns the map color of a raw field value.
func (b MapBundle) ValueColor(v any) colormap.Hex {
	if b.valueColor == nil {
		return colormap.Transparent
	}
	return b.valueColor(v)
}

// LegendColor returns the swatch color of a legend bucket.
func (b MapBundle) LegendColor(key string) colormap.Hex {
	if b.legendColor == nil {
		return colormap.Transparent
	}
	return b.legendColor(key)
}

type colorKind int

const (
	continuousColor colorKind = iota
	paletteColor
	bandColor
)

// mapKind is one row of the map table. Titles take the election type name
// and the assembly number.
type mapKind struct {
	title       string
	changeTitle string
	field       string
	changeField string
	legend      LegendType
	color       colorKind
	palette     func(palette.Set) palette.Palette
	bands       legend.BandSet
}

func partyPalette(s palette.Set) palette.Palette            { return s.Party }
func genderPalette(s palette.Set) palette.Palette           { return s.Gender }
func constituencyTypePalette(s palette.Set) palette.Palette { return s.ConstituencyType }

var mapOrder = []string{
	"winnerMap",
	"winnerCasteMap",
	"winnerGenderMap",
	"numCandidatesMap",
	"voterTurnoutMap",
	"winnerMarginMap",
	"winnerVoteShareMap",
	"partyVoteShareMap",
	"partyPositionsMap",
	"notaTurnoutMap",
}

var mapKinds = map[string]mapKind{
	"winnerMap": {
		title:   "Constituency wise winning parties for %s in Assembly #%d",
		field:   "Party",
		legend:  Discrete,
		color:   paletteColor,
		palette: partyPalette,
	},
	"winnerCasteMap": {
		title:   "Constituency types for %s in Assembly #%d",
		field:   "Constituency_Type",
		legend:  Discrete,
		color:   paletteColor,
		palette: constituencyTypePalette,
	},
	"winnerGenderMap": {
		title:   "Constituency wise gender of winners for %s in Assembly #%d",
		field:   "Sex",
		legend:  Discrete,
		color:   paletteColor,
		palette: genderPalette,
	},
	"numCandidatesMap": {
		title:  "Constituency wise number of candidates contested for %s in Assembly #%d",
		field:  "N_Cand",
		legend: Discrete,
		color:  bandColor,
		bands:  legend.Candidates,
	},
	"voterTurnoutMap": {
		title:       "Constituency wise turnout percentages for %s in Assembly #%d",
		changeTitle: "Constituency wise change in turnout percentages for %s in Assembly #%d",
		field:       "Turnout_Percentage",
		changeField: "Turnout_Change_pct",
		legend:      Continuous,
		color:       continuousColor,
	},
	"winnerMarginMap": {
		title:       "Constituency wise victory margin percentages for %s in Assembly #%d",
		changeTitle: "Constituency wise change in victory margin percentages for %s in Assembly #%d",
		field:       "Margin_Percentage",
		changeField: "Margin_Change_pct",
		legend:      Continuous,
		color:       continuousColor,
	},
	"winnerVoteShareMap": {
		title:       "Constituency wise vote share percentages of winners for %s in Assembly #%d",
		changeTitle: "Constituency wise change in vote share percentages of winners for %s in Assembly #%d",
		field:       "Vote_Share_Percentage",
		changeField: "Vote_Share_Change_pct",
		legend:      Continuous,
		color:       continuousColor,
	},
	"partyVoteShareMap": {
		title:  "Constituency wise vote share percentages of the party for %s in Assembly #%d",
		field:  "Vote_Share_Percentage",
		legend: Continuous,
		color:  continuousColor,
	},
	"partyPositionsMap": {
		title:  "Constituency wise positions of the party for %s in Assembly #%d",
		field:  "Position",
		legend: Discrete,
		color:  bandColor,
		bands:  legend.Positions,
	},
	"notaTurnoutMap": {
		title:  "Constituency wise NOTA vote share percentages for %s in Assembly #%d",
		field:  "Nota_Percentage",
		legend: Discrete,
		color:  bandColor,
		bands:  legend.Nota,
	},
}

// MapKinds lists the map identifiers in menu order.
func MapKinds() []Info {
	out := make([]Info, 0, len(mapOrder))
	for _, id := range mapOrder {
		k := mapKinds[id]
		out = append(out, Info{ID: id, Field: k.field, ChangeField: k.changeField, LegendType: k.legend})
	}
	return out
}

// IsMap reports whether id names a map.
func IsMap(id string) bool {
	_, ok := mapKinds[id]
	return ok
}

// Map builds the bundle for a map request.
func (s *Selector) Map(req MapRequest) MapBundle {
	k, ok := mapKinds[req.Visualization]
	if !ok {
		return MapBundle{}
	}

	b := MapBundle{
		Title:      fmt.Sprintf(k.title, req.Display.ElectionTypeName(), req.Display.AssemblyNo),
		Field:      k.field,
		LegendType: k.legend,
	}

	switch k.color {
	case continuousColor:
		scale := colormap.Linear{Low: s.colors.NormalMin, High: s.colors.NormalMax}
		b.valueColor = scale.Value
		b.Domain = &Domain{Min: 0, Max: 100}
		b.Scale = scale
	case paletteColor:
		p := k.palette(s.palettes)
		field := k.field
		b.valueColor = func(v any) colormap.Hex { return p.Lookup(field, v) }
		b.legendColor = func(key string) colormap.Hex { return p.Lookup(field, key) }
		b.Legend = legend.CountCategories(req.Data, k.field, req.Filter)
	case bandColor:
		bands, filter := k.bands, req.Filter
		b.valueColor = func(v any) colormap.Hex { return bands.Color(v, filter) }
		b.legendColor = bands.LegendColor
		b.Legend = bands.Count(req.Data, k.field, filter)
	}

	if req.ShowChangeMap && k.changeField != "" {
		return s.changeMap(b, k, req)
	}
	return b
}

// Buckets returns every bucket key a viewer could enable for the map: the
// canonical bands, or the palette values followed by any other values
// present in data. Continuous maps have none.
func (s *Selector) Buckets(id string, data dataset.Dataset) []string {
	k, ok := mapKinds[id]
	if !ok {
		return nil
	}
	switch k.color {
	case bandColor:
		return k.bands.Keys()
	case paletteColor:
		keys := k.palette(s.palettes).Values(k.field)
		seen := make(map[string]struct{}, len(keys))
		for _, key := range keys {
			seen[key] = struct{}{}
		}
		for _, key := range legend.Categories(data, k.field) {
			if _, dup := seen[key]; !dup {
				keys = append(keys, key)
			}
		}
		return keys
	}
	return nil
}
