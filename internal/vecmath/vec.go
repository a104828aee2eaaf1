package vecmath

import (
	"errors"
	"math"
)

// ErrZeroLength is raised when a zero vector is normalised.
var ErrZeroLength = errors.New("invalid argument: zero-length vector")

// Vec2 is a 2D vector, used for screen sizes and pixel coordinates.
type Vec2 struct {
	X float64
	Y float64
}

// Sub returns the component wise difference of two vectors.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Div divides both components by a scalar.
func (v Vec2) Div(scalar float64) Vec2 {
	return Vec2{X: v.X / scalar, Y: v.Y / scalar}
}

// Vec3 represents a point or direction in world space.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Add returns the component wise sum of two vectors.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns the difference between two vectors.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul multiplies two vectors component by component.
func (v Vec3) Mul(other Vec3) Vec3 {
	return Vec3{X: v.X * other.X, Y: v.Y * other.Y, Z: v.Z * other.Z}
}

// Scale multiplies the vector by a scalar.
func (v Vec3) Scale(scalar float64) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Div divides the vector by a scalar.
func (v Vec3) Div(scalar float64) Vec3 {
	return Vec3{X: v.X / scalar, Y: v.Y / scalar, Z: v.Z / scalar}
}

// Neg flips the direction of the vector.
func (v Vec3) Neg() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Dot returns the scalar dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the right handed cross product v × other.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Length computes the Euclidean norm of the vector.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize produces a unit length vector, panicking with ErrZeroLength if the magnitude is zero.
func (v Vec3) Normalize() Vec3 {
	unit, err := v.TryNormalize()
	if err != nil {
		panic(err)
	}
	return unit
}

// TryNormalize is Normalize for callers that validate external input.
func (v Vec3) TryNormalize() (Vec3, error) {
	length := v.Length()
	if length == 0 || math.IsNaN(length) {
		return Vec3{}, ErrZeroLength
	}
	return v.Div(length), nil
}

// MaxScalar clamps every component from below.
func (v Vec3) MaxScalar(s float64) Vec3 {
	return Vec3{X: math.Max(v.X, s), Y: math.Max(v.Y, s), Z: math.Max(v.Z, s)}
}

// Abs returns the component wise absolute value.
func (v Vec3) Abs() Vec3 {
	return Vec3{X: math.Abs(v.X), Y: math.Abs(v.Y), Z: math.Abs(v.Z)}
}

// Vec4 extends Vec3 with a homogeneous W component.
type Vec4 struct {
	X float64
	Y float64
	Z float64
	W float64
}

// XYZ drops the W component.
func (v Vec4) XYZ() Vec3 {
	return Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// Extend lifts a Vec3 into homogeneous space. Directions use w=0.
func Extend(v Vec3, w float64) Vec4 {
	return Vec4{X: v.X, Y: v.Y, Z: v.Z, W: w}
}

// Dot is the free function form of Vec3.Dot.
func Dot(a, b Vec3) float64 {
	return a.Dot(b)
}

// Cross is the free function form of Vec3.Cross.
func Cross(a, b Vec3) Vec3 {
	return a.Cross(b)
}

// Reflect mirrors incident around normal: i - n*(2*dot(n, i)).
func Reflect(incident, normal Vec3) Vec3 {
	return incident.Sub(normal.Scale(2.0 * Dot(normal, incident)))
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees / 180 * math.Pi
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180 / math.Pi
}
