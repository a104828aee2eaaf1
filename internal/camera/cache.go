package camera

import "sdfterm/raymarch/internal/vecmath"

// DirectionCache stores one world direction per pixel. It is only valid while the
// camera and the screen geometry stay fixed.
type DirectionCache struct {
	width  int
	height int
	dirs   []vecmath.Vec3
	filled []bool
}

// NewDirectionCache allocates a table for a width×height pixel grid.
func NewDirectionCache(width, height int) *DirectionCache {
	width, height = max(width, 0), max(height, 0)
	return &DirectionCache{
		width:  width,
		height: height,
		dirs:   make([]vecmath.Vec3, width*height),
		filled: make([]bool, width*height),
	}
}

// Lookup returns the cached direction for (x, y), calling compute on first use.
// Coordinates outside the table are computed every time.
func (c *DirectionCache) Lookup(x, y int, compute func() vecmath.Vec3) vecmath.Vec3 {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return compute()
	}
	idx := y*c.width + x
	if !c.filled[idx] {
		c.dirs[idx] = compute()
		c.filled[idx] = true
	}
	return c.dirs[idx]
}

// Reset forgets every cached direction.
func (c *DirectionCache) Reset() {
	clear(c.filled)
}
