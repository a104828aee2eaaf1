package shading

import (
	"math"

	"sdfterm/raymarch/internal/scene"
	"sdfterm/raymarch/internal/vecmath"
)

// Ramp orders two character glyphs from darkest to brightest.
// Glyphs are two cells wide because terminal cells are roughly twice as tall as they are wide.
var Ramp = [10]string{
	"  ", " .",
	"..", ".;",
	";;", ";|",
	"||", "|*",
	"**", "00",
}

// Transparent is painted where a ray missed.
const Transparent = "  "

// Boost brightens lit colours before they are mapped onto the ramp.
const Boost = 1.5

const (
	maxLuminance = 0.9999
	rampScale    = 10.0
)

// Luminance collapses a colour to a scalar brightness.
// The blue channel alone is divided by three; keep it that way, output depends on it.
func Luminance(c vecmath.Vec3) float64 {
	return math.Min(c.X+c.Y+c.Z/3.0, maxLuminance)
}

// RampIndex maps a luminance onto an index into Ramp.
func RampIndex(luminance float64) int {
	idx := int(math.Floor(luminance * rampScale))
	if idx < 0 {
		return 0
	}
	if idx > len(Ramp)-1 {
		return len(Ramp) - 1
	}
	return idx
}

// Result is the outcome of shading one pixel: a ramp index or a miss.
type Result struct {
	index int
	hit   bool
}

// Miss is the transparent outcome of a ray that never reached a surface.
var Miss = Result{}

// Hit wraps a ramp index.
func Hit(index int) Result {
	index = max(0, min(index, len(Ramp)-1))
	return Result{index: index, hit: true}
}

// IsHit reports whether the ray reached a surface.
func (r Result) IsHit() bool { return r.hit }

// Index returns the ramp index, or -1 for a miss.
func (r Result) Index() int {
	if !r.hit {
		return -1
	}
	return r.index
}

// Glyph returns the characters to paint for this result.
func (r Result) Glyph() string {
	if !r.hit {
		return Transparent
	}
	return Ramp[r.index]
}

// ResultFromIndex reverses Index; negative values are misses.
func ResultFromIndex(index int) Result {
	if index < 0 {
		return Miss
	}
	return Hit(index)
}

// Shade lights the surface point p as seen from eye and maps it onto the ramp.
func Shade(field scene.SignedDistanceField, mat Material, p, eye vecmath.Vec3, time float64) Result {
	color := PhongIllumination(field, mat, p, eye, time).Scale(Boost)
	return Hit(RampIndex(Luminance(color)))
}
