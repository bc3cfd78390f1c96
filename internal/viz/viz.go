// Package viz selects the render configuration for a dashboard map or
// chart: title, field, legend and color functions.
//
// Every visualization identifier is an entry in a static table. Map and
// chart identifiers are separate namespaces. Unknown identifiers produce an
// empty bundle instead of an error.
package viz

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/palette"
)

// LegendType tags how a map legend is drawn.
type LegendType string

const (
	Continuous LegendType = "Continuous"
	Discrete   LegendType = "Discrete"
)

// Domain is the numeric range of a continuous scale.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Display carries the metadata interpolated into titles.
type Display struct {
	ElectionType string // "GE" for Lok Sabha, anything else for Vidhan Sabha
	AssemblyNo   int
	StateName    string // "Lok_Sabha" for the national view
}

// ElectionTypeName is the human name of the election type.
func (d Display) ElectionTypeName() string {
	if d.ElectionType == "GE" {
		return "Lok Sabha"
	}
	return "Vidhan Sabha"
}

// StateDisplayName is the state name with underscores replaced, or "" for
// the national view.
func (d Display) StateDisplayName() string {
	if d.StateName == "Lok_Sabha" {
		return ""
	}
	return strings.ReplaceAll(d.StateName, "_", " ")
}

// Colors are the endpoint pairs of the continuous and change scales.
type Colors struct {
	NormalMin colormap.Hex
	NormalMax colormap.Hex
	ChangeMin colormap.Hex
	ChangeMax colormap.Hex
}

// DefaultColors returns the dashboard's stock scale endpoints.
func DefaultColors() Colors {
	return Colors{
		NormalMin: "ffffff",
		NormalMax: "0570b0",
		ChangeMin: "ca0020",
		ChangeMax: "0571b0",
	}
}

// Selector builds bundles. It is immutable and safe for concurrent use.
type Selector struct {
	palettes    palette.Set
	colors      Colors
	fingerprint string
}

// NewSelector returns a Selector bound to palettes and colors.
func NewSelector(palettes palette.Set, colors Colors) *Selector {
	return &Selector{
		palettes:    palettes,
		colors:      colors,
		fingerprint: fingerprint(palettes, colors),
	}
}

// Fingerprint identifies the palettes and scale colors of s. Two selectors
// with the same fingerprint color every bundle identically.
func (s *Selector) Fingerprint() string {
	return s.fingerprint
}

func fingerprint(palettes palette.Set, colors Colors) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s\n", colors.NormalMin, colors.NormalMax, colors.ChangeMin, colors.ChangeMax)
	for _, p := range []palette.Palette{palettes.Party, palettes.Gender, palettes.ConstituencyType} {
		for _, e := range p {
			fields := make([]string, 0, len(e.Fields))
			for k, v := range e.Fields {
				fields = append(fields, k+"="+v)
			}
			sort.Strings(fields)
			fmt.Fprintf(h, "%s:%s;", strings.Join(fields, ","), e.Color)
		}
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Info describes one visualization identifier.
type Info struct {
	ID          string     `json:"id"`
	Field       string     `json:"field,omitempty"`
	ChangeField string     `json:"change_field,omitempty"`
	LegendType  LegendType `json:"legend_type,omitempty"`
	ChartKind   ChartKind  `json:"chart_kind,omitempty"`
}
