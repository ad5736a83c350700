package math3d

import "math"

// Mat3 is a 3x3 matrix stored in column-major order, like Mat4.
//
// Memory layout (indices):
// | 0  3  6 |
// | 1  4  7 |
// | 2  5  8 |
//
// A camera orientation keeps its basis vectors in the columns.
type Mat3 [9]float64

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3FromColumns builds a matrix whose columns are a, b and c.
func Mat3FromColumns(a, b, c Vec3) Mat3 {
	return Mat3{
		a.X, a.Y, a.Z,
		b.X, b.Y, b.Z,
		c.X, c.Y, c.Z,
	}
}

// Col returns column i (0, 1 or 2).
func (m Mat3) Col(i int) Vec3 {
	return Vec3{m[i*3], m[i*3+1], m[i*3+2]}
}

// MulVec3 returns m * v with v as a column vector.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[3]*v.Y + m[6]*v.Z,
		m[1]*v.X + m[4]*v.Y + m[7]*v.Z,
		m[2]*v.X + m[5]*v.Y + m[8]*v.Z,
	}
}

// VecMul returns v * m with v as a row vector, i.e. the dot product of v
// with each column. With an orthonormal basis in the columns this expresses
// v in that basis.
func (m Mat3) VecMul(v Vec3) Vec3 {
	return Vec3{v.Dot(m.Col(0)), v.Dot(m.Col(1)), v.Dot(m.Col(2))}
}

// Mul multiplies two matrices: a * b.
func (a Mat3) Mul(b Mat3) Mat3 {
	var m Mat3
	for col := range 3 {
		for row := range 3 {
			var sum float64
			for k := range 3 {
				sum += a[row+k*3] * b[k+col*3]
			}
			m[row+col*3] = sum
		}
	}
	return m
}

// Transpose returns the transposed matrix.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// Determinant returns the determinant of the matrix.
func (m Mat3) Determinant() float64 {
	return m.Col(0).Dot(m.Col(1).Cross(m.Col(2)))
}

// Inverse returns the inverse of m. ok is false when |det| < eps, in which
// case the returned matrix is the zero matrix.
func (m Mat3) Inverse(eps float64) (inv Mat3, ok bool) {
	c0, c1, c2 := m.Col(0), m.Col(1), m.Col(2)
	r0 := c1.Cross(c2)
	det := c0.Dot(r0)
	if math.Abs(det) < eps {
		return Mat3{}, false
	}
	r1 := c2.Cross(c0)
	r2 := c0.Cross(c1)

	// The rows of the inverse are the cross products divided by det.
	inv = Mat3FromColumns(r0, r1, r2).Transpose()
	for i := range inv {
		inv[i] /= det
	}
	return inv, true
}

// Rotation3 returns the rotation by angle radians about axis (right-hand rule).
func Rotation3(axis Vec3, angle float64) Mat3 {
	axis = axis.Normalize()
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z

	return Mat3{
		t*x*x + c, t*x*y + s*z, t*x*z - s*y,
		t*x*y - s*z, t*y*y + c, t*y*z + s*x,
		t*x*z + s*y, t*y*z - s*x, t*z*z + c,
	}
}

// Orthonormalize re-derives an orthonormal basis from the columns with
// Gram-Schmidt, anchored on the third column. Handedness is preserved.
func (m Mat3) Orthonormalize() Mat3 {
	f := m.Col(2).Normalize()
	r := m.Col(0)
	r = r.Sub(f.Scale(r.Dot(f))).Normalize()
	u := m.Col(1)
	u = u.Sub(f.Scale(u.Dot(f))).Sub(r.Scale(u.Dot(r))).Normalize()
	return Mat3FromColumns(r, u, f)
}
