package camera

import (
	"errors"
	"math"

	"sdfterm/raymarch/internal/vecmath"
)

// ErrDegenerateView is returned when the look-at basis cannot be built.
var ErrDegenerateView = errors.New("camera: eye equals target or up is parallel to the view direction")

// FieldOfView is the vertical field of view in degrees.
const FieldOfView = 45.0

var (
	// AngledEye looks down at the origin from an off-axis corner.
	AngledEye = vecmath.Vec3{X: 8, Y: 5, Z: 7}
	// SideEye looks straight down the negative Z axis.
	SideEye = vecmath.Vec3{Z: 5}
	// Up is the world up vector used for the look-at basis.
	Up = vecmath.Vec3{Y: 1}
)

// RayDirection returns the camera space direction through a pixel.
// fov is the vertical field of view in degrees, size the image resolution and
// coord the pixel coordinate inside it.
func RayDirection(fov float64, size, coord vecmath.Vec2) vecmath.Vec3 {
	xy := coord.Sub(size.Div(2.0))
	z := size.Y / math.Tan(vecmath.Radians(fov)/2.0)
	return vecmath.Vec3{X: xy.X, Y: xy.Y, Z: -z}.Normalize()
}

// ViewMatrix returns the transform from view space to world space for a camera at
// eye looking at target. Only directions are transformed, so no translation is stored.
func ViewMatrix(eye, target, up vecmath.Vec3) (vecmath.Mat4, error) {
	f, err := target.Sub(eye).TryNormalize()
	if err != nil {
		return vecmath.Mat4{}, ErrDegenerateView
	}
	s, err := f.Cross(up).TryNormalize()
	if err != nil {
		return vecmath.Mat4{}, ErrDegenerateView
	}
	u := s.Cross(f)
	return vecmath.NewMat4(
		vecmath.Extend(s, 0),
		vecmath.Extend(u, 0),
		vecmath.Extend(f.Neg(), 0),
		vecmath.Vec4{W: 1},
	), nil
}

// Camera generates world space rays for a fixed eye looking at the origin.
type Camera struct {
	Eye    vecmath.Vec3
	Target vecmath.Vec3
	FOV    float64
	Angled bool
	view   vecmath.Mat4
}

// New builds the camera for the requested view mode.
func New(angled bool) (*Camera, error) {
	eye := SideEye
	if angled {
		eye = AngledEye
	}
	return NewAt(eye, angled)
}

// NewAt builds a camera at an explicit eye position.
func NewAt(eye vecmath.Vec3, angled bool) (*Camera, error) {
	c := &Camera{Eye: eye, FOV: FieldOfView, Angled: angled, view: vecmath.Mat4Identity()}
	if angled {
		view, err := ViewMatrix(eye, c.Target, Up)
		if err != nil {
			return nil, err
		}
		c.view = view
	}
	return c, nil
}

// WorldDirection returns the world space ray for a pixel.
func (c *Camera) WorldDirection(size, coord vecmath.Vec2) vecmath.Vec3 {
	dir := RayDirection(c.FOV, size, coord)
	if !c.Angled {
		return dir
	}
	return c.view.MulVec(vecmath.Extend(dir, 0)).XYZ()
}

// Orbit swings eye around the world Y axis by theta radians.
func Orbit(eye vecmath.Vec3, theta float64) vecmath.Vec3 {
	c, s := math.Cos(theta), math.Sin(theta)
	return vecmath.Vec3{X: c*eye.X + s*eye.Z, Y: eye.Y, Z: -s*eye.X + c*eye.Z}
}
