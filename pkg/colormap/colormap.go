// Package colormap provides the color scales used by election maps.
package colormap

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/lokdhaba/dataviz/pkg/value"
)

// Hex is an RGB color written as "rrggbb" or "#rrggbb".
type Hex string

const (
	// Transparent is returned whenever a value has no color.
	Transparent Hex = "#FFFFFF00"
	// NoData marks missing values on change maps.
	NoData Hex = "#33ccff"
	// White is the neutral midpoint of diverging scales.
	White Hex = "ffffff"
)

// Colormap maps normalized values [0, 1] to colors. AtIndex(i) is the
// control color drawn at domain value Stops()[i].
type Colormap interface {
	At(t float64) color.Color
	AtIndex(i int) color.Color
	Stops() []float64
}

var transparentRGBA = color.RGBA{R: 255, G: 255, B: 255, A: 0}

// Parse decodes h into an opaque RGBA color.
func Parse(h Hex) (color.RGBA, error) {
	s := strings.TrimSpace(string(h))
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 7 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", string(h))
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", string(h), err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// FromColor encodes c as "#rrggbb". A fully transparent color is
// Transparent.
func FromColor(c color.Color) Hex {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	if rgba.A == 0 {
		return Transparent
	}
	return FromRGBA(rgba)
}

// Sample returns n colors of cm evenly spaced over [0, 1]. n below 2 is
// treated as 2.
func Sample(cm Colormap, n int) []Hex {
	if n < 2 {
		n = 2
	}
	out := make([]Hex, n)
	for i := range out {
		out[i] = FromColor(cm.At(float64(i) / float64(n-1)))
	}
	return out
}

// FromRGBA encodes c as "#rrggbb", ignoring alpha.
func FromRGBA(c color.RGBA) Hex {
	return Hex(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// Interpolate blends low (ratio 0) and high (ratio 1).
//
// Each channel is ceil(high*ratio + low*(1-ratio)). A channel that rounds
// up to 256 is written as "ff" rather than overflowing. Unparsable
// endpoints yield Transparent.
func Interpolate(ratio float64, low, high Hex) Hex {
	lo, err := Parse(low)
	if err != nil {
		return Transparent
	}
	hi, err := Parse(high)
	if err != nil {
		return Transparent
	}
	return FromRGBA(blend(lo, hi, ratio))
}

func blend(lo, hi color.RGBA, ratio float64) color.RGBA {
	return color.RGBA{
		R: channel(lo.R, hi.R, ratio),
		G: channel(lo.G, hi.G, ratio),
		B: channel(lo.B, hi.B, ratio),
		A: 255,
	}
}

func channel(lo, hi uint8, ratio float64) uint8 {
	v := math.Ceil(float64(hi)*ratio + float64(lo)*(1-ratio))
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func clamp01(t float64) float64 {
	switch {
	case math.IsNaN(t) || t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

// ForContinuous colors a percentage in [0, 100] between minColor and
// maxColor. Falsy and non-numeric values are Transparent.
func ForContinuous(minColor, maxColor Hex, v any) Hex {
	if value.Falsy(v) {
		return Transparent
	}
	f, ok := value.Number(v)
	if !ok {
		return Transparent
	}
	return Interpolate(clamp01(f/100), minColor, maxColor)
}

// ForContinuousNormalized colors v on a diverging scale that is White at
// zero. Positive values shade toward high relative to max, negative values
// toward low relative to min. Missing and non-numeric values are NoData;
// a numeric zero is a real "no change" reading and stays White.
//
// The two halves are normalized independently, so the scale is only
// symmetric when min == -max.
func ForContinuousNormalized(min, max float64, low, high Hex, v any) Hex {
	f, ok := value.Number(v)
	if !ok {
		return NoData
	}
	if f == 0 {
		return Interpolate(0, White, high)
	}
	if f > 0 {
		ratio := 1.0
		if max > 0 {
			ratio = clamp01(f / max)
		}
		return Interpolate(ratio, White, high)
	}
	ratio := 0.0
	if min < 0 {
		ratio = clamp01((f - min) / -min)
	}
	return Interpolate(ratio, low, White)
}

// Linear is a two stop colormap for percentage fields.
type Linear struct {
	Low  Hex
	High Hex
}

// At returns the color at position t (0-1).
func (c Linear) At(t float64) color.Color {
	lo, err := Parse(c.Low)
	if err != nil {
		return transparentRGBA
	}
	hi, err := Parse(c.High)
	if err != nil {
		return transparentRGBA
	}
	return blend(lo, hi, clamp01(t))
}

// AtIndex returns the endpoint at index i (wraps around).
func (c Linear) AtIndex(i int) color.Color {
	if i%2 == 0 {
		return c.At(0)
	}
	return c.At(1)
}

// Stops returns the percentages drawn with the low and high colors.
func (c Linear) Stops() []float64 {
	return []float64{0, 100}
}

// Value colors a raw percentage value.
func (c Linear) Value(v any) Hex {
	return ForContinuous(c.Low, c.High, v)
}

// Diverging is a zero-centred scale over the observed [Min, Max] of a
// delta field.
type Diverging struct {
	Min  float64
	Max  float64
	Low  Hex
	High Hex
}

// At returns the color of Min + t*(Max-Min).
func (c Diverging) At(t float64) color.Color {
	rgba, err := Parse(c.Value(c.Min + clamp01(t)*(c.Max-c.Min)))
	if err != nil {
		return transparentRGBA
	}
	return rgba
}

// AtIndex returns low, white and high in turn.
func (c Diverging) AtIndex(i int) color.Color {
	stops := [3]Hex{c.Low, White, c.High}
	rgba, err := Parse(stops[((i%3)+3)%3])
	if err != nil {
		return transparentRGBA
	}
	return rgba
}

// Stops returns Min, zero and Max, the values drawn with low, white and
// high.
func (c Diverging) Stops() []float64 {
	return []float64{c.Min, 0, c.Max}
}

// Value colors a raw delta value.
func (c Diverging) Value(v any) Hex {
	return ForContinuousNormalized(c.Min, c.Max, c.Low, c.High, v)
}
