package scene

import (
	"math"

	"sdfterm/raymarch/internal/vecmath"
)

// RotationCache memoises Y axis rotation matrices per whole degree.
// Every angle inside the same degree reuses the first matrix computed for it.
type RotationCache struct {
	matrices [360]vecmath.Mat3
	filled   [360]bool
	misses   int
}

// NewRotationCache returns an empty cache.
func NewRotationCache() *RotationCache {
	return &RotationCache{}
}

// RotationKey maps an angle in radians onto floor(degrees) normalised into [0, 360).
func RotationKey(theta float64) int {
	key := int(math.Mod(math.Floor(vecmath.Degrees(theta)), 360))
	if key < 0 {
		key += 360
	}
	return key
}

// RotateY builds the rotation matrix around the Y axis without caching.
func RotateY(theta float64) vecmath.Mat3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return vecmath.NewMat3(
		vecmath.Vec3{X: c, Y: 0, Z: s},
		vecmath.Vec3{X: 0, Y: 1, Z: 0},
		vecmath.Vec3{X: -s, Y: 0, Z: c},
	)
}

// RotateY returns the cached rotation for theta, computing it on first use.
func (c *RotationCache) RotateY(theta float64) vecmath.Mat3 {
	if c == nil {
		return RotateY(theta)
	}
	key := RotationKey(theta)
	if !c.filled[key] {
		c.matrices[key] = RotateY(theta)
		c.filled[key] = true
		c.misses++
	}
	return c.matrices[key]
}

// Len reports how many degree buckets have been populated.
func (c *RotationCache) Len() int {
	if c == nil {
		return 0
	}
	return c.misses
}
