package vecmath

// Mat3 is a 3×3 matrix stored as three column vectors.
type Mat3 struct {
	Cols [3]Vec3
}

// NewMat3 builds a matrix from its columns.
func NewMat3(c0, c1, c2 Vec3) Mat3 {
	return Mat3{Cols: [3]Vec3{c0, c1, c2}}
}

// Mat3Identity returns the 3×3 identity.
func Mat3Identity() Mat3 {
	return NewMat3(Vec3{X: 1}, Vec3{Y: 1}, Vec3{Z: 1})
}

// MulVec returns M × v with v treated as a column.
func (m Mat3) MulVec(v Vec3) Vec3 {
	c := m.Cols
	return Vec3{
		X: c[0].X*v.X + c[1].X*v.Y + c[2].X*v.Z,
		Y: c[0].Y*v.X + c[1].Y*v.Y + c[2].Y*v.Z,
		Z: c[0].Z*v.X + c[1].Z*v.Y + c[2].Z*v.Z,
	}
}

// Mat4 is a 4×4 matrix stored as four column vectors.
type Mat4 struct {
	Cols [4]Vec4
}

// NewMat4 builds a matrix from its columns.
func NewMat4(c0, c1, c2, c3 Vec4) Mat4 {
	return Mat4{Cols: [4]Vec4{c0, c1, c2, c3}}
}

// Mat4Identity returns the 4×4 identity.
func Mat4Identity() Mat4 {
	return NewMat4(Vec4{X: 1}, Vec4{Y: 1}, Vec4{Z: 1}, Vec4{W: 1})
}

// MulVec returns M × v with v treated as a column.
func (m Mat4) MulVec(v Vec4) Vec4 {
	c := m.Cols
	return Vec4{
		X: c[0].X*v.X + c[1].X*v.Y + c[2].X*v.Z + c[3].X*v.W,
		Y: c[0].Y*v.X + c[1].Y*v.Y + c[2].Y*v.Z + c[3].Y*v.W,
		Z: c[0].Z*v.X + c[1].Z*v.Y + c[2].Z*v.Z + c[3].Z*v.W,
		W: c[0].W*v.X + c[1].W*v.Y + c[2].W*v.Z + c[3].W*v.W,
	}
}
