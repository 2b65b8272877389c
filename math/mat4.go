package math

import "github.com/chewxy/math32"

// Mat4 is a row-major matrix applied to row vectors: p' = p * M.
// a.Mul(b) therefore applies a first, then b.
type Mat4 [4][4]float32

func Mat4Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func (m Mat4) Mul(other Mat4) Mat4 {
	var result Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				result[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return result
}

// MulPoint transforms p as a point (w = 1) without perspective division.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return Vec3{
		X: p.X*m[0][0] + p.Y*m[1][0] + p.Z*m[2][0] + m[3][0],
		Y: p.X*m[0][1] + p.Y*m[1][1] + p.Z*m[2][1] + m[3][1],
		Z: p.X*m[0][2] + p.Y*m[1][2] + p.Z*m[2][2] + m[3][2],
	}
}

func Mat4Translation(translation Vec3) Mat4 {
	m := Mat4Identity()
	m[3][0] = translation.X
	m[3][1] = translation.Y
	m[3][2] = translation.Z
	return m
}

func Mat4Scale(scale Vec3) Mat4 {
	m := Mat4Identity()
	m[0][0] = scale.X
	m[1][1] = scale.Y
	m[2][2] = scale.Z
	return m
}

// Mat4OrthoForward is an orthographic projection for a camera looking down
// its local +Z axis. x and y map [-halfWidth, halfWidth] and
// [-halfHeight, halfHeight] to [-1, 1]; z maps [near, far] to [-1, 1].
func Mat4OrthoForward(halfWidth, halfHeight, near, far float32) Mat4 {
	m := Mat4Identity()
	m[0][0] = 1 / halfWidth
	m[1][1] = 1 / halfHeight
	m[2][2] = 2 / (far - near)
	m[3][2] = -(far + near) / (far - near)
	return m
}

// ApproxEqual reports whether every element of m is within eps of other.
func (m Mat4) ApproxEqual(other Mat4, eps float32) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math32.Abs(m[i][j]-other[i][j]) > eps {
				return false
			}
		}
	}
	return true
}
