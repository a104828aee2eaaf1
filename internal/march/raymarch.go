// Package march implements sphere tracing against a signed distance field.
package march

import (
	"sdfterm/raymarch/internal/scene"
	"sdfterm/raymarch/internal/vecmath"
)

const (
	// MaxSteps bounds the number of field evaluations per ray.
	MaxSteps = 256
	// Epsilon is the surface tolerance; samples below it count as a hit.
	Epsilon = 1e-4
	// MinDist is where marching starts along the ray.
	MinDist = 0.0
	// MaxDist is the distance budget; reaching it is a miss.
	MaxDist = 100.0
)

// Marcher carries the iteration and tolerance budget for sphere tracing.
type Marcher struct {
	MaxSteps int
	Epsilon  float64
}

// Default returns the marcher used by the renderer.
func Default() Marcher {
	return Marcher{MaxSteps: MaxSteps, Epsilon: Epsilon}
}

// ShortestDistance marches from eye along dir and returns the depth at which the
// field drops below epsilon. If no surface is found between start and end it returns end.
func (m Marcher) ShortestDistance(field scene.SignedDistanceField, eye, dir vecmath.Vec3, start, end float64) float64 {
	depth := start
	for step := 0; step < m.MaxSteps; step++ {
		dist := field.Sample(eye.Add(dir.Scale(depth)))
		if dist < m.Epsilon {
			//1.- Converged onto the surface; report the depth unadjusted.
			return depth
		}
		//2.- The sample is a lower bound on free space so this step cannot overshoot.
		depth += dist
		if depth >= end {
			return end
		}
	}
	//3.- Iteration exhaustion is treated as a miss.
	return end
}

// Missed reports whether a depth returned by ShortestDistance is the miss sentinel.
func (m Marcher) Missed(depth, end float64) bool {
	return depth > end-m.Epsilon
}
