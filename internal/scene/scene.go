package scene

import (
	"fmt"
	"strings"

	"sdfterm/raymarch/internal/vecmath"
)

// Kind selects which primitive the scene renders.
type Kind int

const (
	KindSphere Kind = iota
	KindBox
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	default:
		return "sphere"
	}
}

// ParseKind accepts "sphere" or "box".
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sphere", "":
		return KindSphere, nil
	case "box":
		return KindBox, nil
	default:
		return KindSphere, fmt.Errorf("unknown scene %q", raw)
	}
}

// RotationRate divides the fixed tick to obtain the rotation angle in radians.
const RotationRate = 30.0

// Scene is the procedural field rendered by the driver.
type Scene struct {
	kind      Kind
	zoom      float64
	rotate    bool
	fixedTick int64
	rotations *RotationCache
}

// New builds a scene. Angled views use a unit box, side views a half size one.
func New(kind Kind, angled, rotate bool) *Scene {
	zoom := 0.5
	if angled {
		zoom = 1.0
	}
	return &Scene{
		kind:      kind,
		zoom:      zoom,
		rotate:    rotate,
		rotations: NewRotationCache(),
	}
}

// Kind reports the configured primitive.
func (s *Scene) Kind() Kind { return s.kind }

// Rotations exposes the rotation cache for diagnostics.
func (s *Scene) Rotations() *RotationCache { return s.rotations }

// SetTick advances the animation clock that drives rotation.
func (s *Scene) SetTick(fixedTick int64) {
	s.fixedTick = fixedTick
}

// Sample evaluates the signed distance at p.
func (s *Scene) Sample(p vecmath.Vec3) float64 {
	if s.rotate {
		//1.- Rotate the sample point so the object appears to spin the other way.
		p = s.rotations.RotateY(float64(s.fixedTick) / RotationRate).MulVec(p)
	}
	if s.kind == KindBox {
		return BoxSDF(p, vecmath.Vec3{X: s.zoom, Y: s.zoom, Z: s.zoom})
	}
	return SphereSDF(p)
}

var _ SignedDistanceField = (*Scene)(nil)
