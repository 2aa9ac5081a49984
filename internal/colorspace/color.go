// internal/colorspace/color.go
//
// Pure color math for the hue-hunt game.
// Responsibilities:
//   - Color value type (hue/saturation at fixed lightness 50).
//   - HSL → RGB conversion (standard formula).
//   - Canvas-coordinate ↔ color mapping shared by the heatmap renderer
//     and the scoring path, so a click scores exactly what it shows.
//   - Circular hue distance and the combined perceptual distance used
//     for scoring.
//   - Textual hsl(...) form used by the leaderboard persistence format.
//
// Everything here is deterministic arithmetic with no side effects.

package colorspace

import (
	"fmt"
	"math"
	"strings"
)

// Lightness is fixed for the whole game: the heatmap is a 2D slice of
// HSL space at L=50%.
const Lightness = 50.0

// Color is an immutable hue/saturation pair at fixed lightness.
// Hue is degrees in [0,360), saturation a percentage in [0,100].
type Color struct {
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
}

// Placeholder is the neutral gray substituted for malformed or missing
// persisted colors.
var Placeholder = Color{Hue: 0, Saturation: 0}

// New normalizes hue into [0,360) and clamps saturation into [0,100].
func New(hue, saturation float64) Color {
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	if saturation < 0 {
		saturation = 0
	} else if saturation > 100 {
		saturation = 100
	}
	return Color{Hue: hue, Saturation: saturation}
}

// FromPosition maps a canvas position to a color: hue scales with x,
// saturation with y. Callers clamp (px,py) to [0,w]×[0,h] first; this
// function performs no clamping of its own. The boundary px=w maps to
// hue=360, which is equivalent to 0 for distance purposes.
func FromPosition(px, py, w, h float64) Color {
	return Color{
		Hue:        360 * px / w,
		Saturation: 100 * py / h,
	}
}

// RGB converts the color to 8-bit RGB channels at the fixed lightness.
func (c Color) RGB() (r, g, b uint8) {
	return HSLToRGB(c.Hue, c.Saturation, Lightness)
}

// HSLToRGB converts HSL (h in degrees, s and l in percent) to 8-bit RGB
// using the standard formula: a = s·min(l,1-l), channel value at offset n
// is l - a·max(-1, min(k-3, 9-k, 1)) with k = (n+h/30) mod 12, sampled at
// offsets 0, 8 and 4 for R, G and B.
func HSLToRGB(h, s, l float64) (r, g, b uint8) {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s /= 100
	l /= 100
	a := s * math.Min(l, 1-l)
	f := func(n float64) uint8 {
		k := math.Mod(n+h/30, 12)
		v := l - a*math.Max(-1, math.Min(math.Min(k-3, 9-k), 1))
		return uint8(math.Round(v * 255))
	}
	return f(0), f(8), f(4)
}

// HueDistance returns the circular distance between two hues in degrees,
// always in [0,180].
func HueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Distance combines hue and saturation distance into one Euclidean
// measure on a 0–100 scale. The hue component is rescaled from its
// 0–360 range so both axes weigh as percentages.
func Distance(guess, target Color) float64 {
	hd := HueDistance(guess.Hue, target.Hue) / 360 * 100
	sd := math.Abs(guess.Saturation - target.Saturation)
	return math.Sqrt(hd*hd + sd*sd)
}

// String renders the CSS textual form, e.g. "hsl(210, 64%, 50%)".
// Hue and saturation are rounded to whole units for display/persistence.
func (c Color) String() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)",
		int(math.Round(c.Hue)), int(math.Round(c.Saturation)), int(Lightness))
}

// Parse reads an "hsl(h, s%, l%)" string back into a Color.
// Tolerates missing '%' signs and extra whitespace. Returns Placeholder
// and false on anything it cannot read; persisted junk must never fail
// the caller.
func Parse(s string) (Color, bool) {
	s = strings.TrimSpace(s)
	low := strings.ToLower(s)
	if !strings.HasPrefix(low, "hsl(") || !strings.HasSuffix(low, ")") {
		return Placeholder, false
	}
	inner := s[4 : len(s)-1]
	parts := strings.Split(inner, ",")
	if len(parts) < 2 {
		return Placeholder, false
	}
	num := func(p string) (float64, bool) {
		p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "%"))
		var v float64
		if _, err := fmt.Sscanf(p, "%f", &v); err != nil {
			return 0, false
		}
		return v, true
	}
	h, ok := num(parts[0])
	if !ok {
		return Placeholder, false
	}
	sat, ok := num(parts[1])
	if !ok {
		return Placeholder, false
	}
	return New(h, sat), true
}
