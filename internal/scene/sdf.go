package scene

import (
	"math"

	"sdfterm/raymarch/internal/vecmath"
)

// SignedDistanceField exposes the sampling contract used by the marcher and the shader.
// Negative distances are inside the surface; the magnitude is a lower bound on the
// distance to the closest surface point.
type SignedDistanceField interface {
	Sample(point vecmath.Vec3) float64
}

// SampleFunc adapts a function into a SignedDistanceField.
type SampleFunc func(vecmath.Vec3) float64

// Sample invokes the wrapped sampling function.
func (s SampleFunc) Sample(point vecmath.Vec3) float64 {
	return s(point)
}

// SphereSDF is the distance to a unit sphere centred at the origin.
func SphereSDF(p vecmath.Vec3) float64 {
	return p.Length() - 1.0
}

// BoxSDF is the exact distance to an axis aligned box centred at the origin with half extents b.
func BoxSDF(p, b vecmath.Vec3) float64 {
	//1.- Fold the point into the positive octant and measure against the corner.
	d := p.Abs().Sub(b)
	//2.- Outside distance comes from the clamped offset, inside distance from the largest axis.
	outside := d.MaxScalar(0).Length()
	inside := math.Min(math.Max(d.X, math.Max(d.Y, d.Z)), 0)
	return outside + inside
}
