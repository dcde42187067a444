package types

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// A 4x4 matrix stored in column-major order.
type Mat4 mgl32.Mat4

// Create an identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Create a translation matrix.
func Translate4(v Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Create a scale matrix.
func Scale4(v Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(v[0], v[1], v[2]))
}

// Create a rotation matrix from a set of Euler angles expressed in degrees.
// The result is equivalent to Rx * Ry * Rz.
func RotateEuler4(degrees Vec3) Mat4 {
	return Mat4(mgl32.HomogRotate3DX(mgl32.DegToRad(degrees[0])).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(degrees[1]))).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(degrees[2]))))
}

// Multiply with another matrix.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Invert matrix. A singular matrix yields the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Transpose matrix.
func (m Mat4) Transpose() Mat4 {
	return Mat4(mgl32.Mat4(m).Transpose())
}

// Check that all elements of two matrices are within epsilon of each other.
func (m Mat4) ApproxEqual(m2 Mat4, epsilon float32) bool {
	for i := range m {
		if math32.Abs(m[i]-m2[i]) > epsilon {
			return false
		}
	}
	return true
}
