// Package palette holds the categorical color tables used by party, gender
// and constituency-type maps.
package palette

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/value"
)

//go:embed data/*.json
var assets embed.FS

// colorKey is the JSON member holding an entry's color.
const colorKey = "Color"

// Entry is one row of a palette: the field values it matches and its color.
type Entry struct {
	Fields map[string]string
	Color  colormap.Hex
}

// Palette is an ordered list of entries. Lookups are first-match.
type Palette []Entry

// Lookup returns the color of the first entry whose field equals the
// string form of v, or colormap.Transparent when none does.
func (p Palette) Lookup(field string, v any) colormap.Hex {
	s, ok := value.String(v)
	if !ok {
		return colormap.Transparent
	}
	for _, e := range p {
		if fv, ok := e.Fields[field]; ok && fv == s {
			return e.Color
		}
	}
	return colormap.Transparent
}

// Values lists the distinct values of field in palette order.
func (p Palette) Values(field string) []string {
	seen := make(map[string]struct{}, len(p))
	out := make([]string, 0, len(p))
	for _, e := range p {
		fv, ok := e.Fields[field]
		if !ok {
			continue
		}
		if _, dup := seen[fv]; dup {
			continue
		}
		seen[fv] = struct{}{}
		out = append(out, fv)
	}
	return out
}

// Parse decodes a JSON array of objects such as
// [{"Party": "BJP", "Color": "#f97d09"}].
func Parse(data []byte) (Palette, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode palette: %w", err)
	}

	p := make(Palette, 0, len(raw))
	for i, obj := range raw {
		c, ok := obj[colorKey].(string)
		if !ok {
			return nil, fmt.Errorf("palette entry %d: missing %s", i, colorKey)
		}
		if _, err := colormap.Parse(colormap.Hex(c)); err != nil {
			return nil, fmt.Errorf("palette entry %d: %w", i, err)
		}

		e := Entry{Fields: make(map[string]string, len(obj)-1), Color: colormap.Hex(c)}
		for k, v := range obj {
			if k == colorKey {
				continue
			}
			if s, ok := value.String(v); ok {
				e.Fields[k] = s
			}
		}
		p = append(p, e)
	}
	return p, nil
}

// Load reads a palette file from disk.
func Load(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Set groups the three palettes a dashboard needs.
type Set struct {
	Party            Palette
	Gender           Palette
	ConstituencyType Palette
}

// Default returns the palettes compiled into the binary. They are decoded
// once per process and must be treated as read-only.
var Default = sync.OnceValues(func() (Set, error) {
	var s Set
	for _, item := range []struct {
		name string
		dst  *Palette
	}{
		{"data/party.json", &s.Party},
		{"data/gender.json", &s.Gender},
		{"data/constituency_type.json", &s.ConstituencyType},
	} {
		data, err := assets.ReadFile(item.name)
		if err != nil {
			return Set{}, fmt.Errorf("failed to read embedded palette %s: %w", item.name, err)
		}
		p, err := Parse(data)
		if err != nil {
			return Set{}, fmt.Errorf("%s: %w", item.name, err)
		}
		*item.dst = p
	}
	return s, nil
})

// MustDefault is like Default but panics on a corrupt embedded asset.
func MustDefault() Set {
	s, err := Default()
	if err != nil {
		panic(err)
	}
	return s
}
