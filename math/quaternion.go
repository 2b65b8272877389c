package math

import "github.com/chewxy/math32"

type Quaternion struct {
	X, Y, Z, W float32
}

func QuaternionIdentity() Quaternion {
	return Quaternion{X: 0, Y: 0, Z: 0, W: 1}
}

func QuaternionFromAxisAngle(axis Vec3, angle float32) Quaternion {
	s, c := math32.Sincos(angle / 2)
	axis = axis.Normalize()
	return Quaternion{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: c,
	}
}

// QuaternionLookRotation returns the rotation that maps the local +Z axis
// onto forward while keeping local +Y as close to up as possible. When
// forward is parallel to up the world Z axis is used as the up hint instead.
func QuaternionLookRotation(forward, up Vec3) Quaternion {
	forward = forward.Normalize()
	if forward.LengthSqr() == 0 {
		return QuaternionIdentity()
	}
	if math32.Abs(forward.Dot(up.Normalize())) > 0.999 {
		up = Vec3Front
	}
	right := up.Cross(forward).Normalize()
	upNew := forward.Cross(right)

	// Rows are the images of the local basis vectors (row-vector convention).
	m := [3][3]float32{
		{right.X, right.Y, right.Z},
		{upNew.X, upNew.Y, upNew.Z},
		{forward.X, forward.Y, forward.Z},
	}

	var q Quaternion
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := 2 * math32.Sqrt(trace+1)
		q.W = 0.25 * s
		q.X = (m[1][2] - m[2][1]) / s
		q.Y = (m[2][0] - m[0][2]) / s
		q.Z = (m[0][1] - m[1][0]) / s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math32.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q.W = (m[1][2] - m[2][1]) / s
		q.X = 0.25 * s
		q.Y = (m[1][0] + m[0][1]) / s
		q.Z = (m[2][0] + m[0][2]) / s
	case m[1][1] > m[2][2]:
		s := 2 * math32.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q.W = (m[2][0] - m[0][2]) / s
		q.X = (m[0][1] + m[1][0]) / s
		q.Y = 0.25 * s
		q.Z = (m[2][1] + m[1][2]) / s
	default:
		s := 2 * math32.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q.W = (m[0][1] - m[1][0]) / s
		q.X = (m[2][0] + m[0][2]) / s
		q.Y = (m[2][1] + m[1][2]) / s
		q.Z = 0.25 * s
	}
	return q.Normalize()
}

func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
	}
}

func (q Quaternion) Normalize() Quaternion {
	length := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if length > 0 {
		inv := 1 / length
		return Quaternion{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
	}
	return q
}

// Conjugate is the inverse rotation for unit quaternions.
func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: q.W}
}

func (q Quaternion) RotateVector(v Vec3) Vec3 {
	qVec := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := qVec.Cross(v).Mul(2)
	return v.Add(t.Mul(q.W)).Add(qVec.Cross(t))
}

// Forward is the image of the local +Z axis.
func (q Quaternion) Forward() Vec3 {
	return q.RotateVector(Vec3Front)
}

func (q Quaternion) ToMat4() Mat4 {
	xx := q.X * q.X
	yy := q.Y * q.Y
	zz := q.Z * q.Z
	xy := q.X * q.Y
	xz := q.X * q.Z
	yz := q.Y * q.Z
	wx := q.W * q.X
	wy := q.W * q.Y
	wz := q.W * q.Z

	return Mat4{
		{1 - 2*(yy+zz), 2 * (xy + wz), 2 * (xz - wy), 0},
		{2 * (xy - wz), 1 - 2*(xx+zz), 2 * (yz + wx), 0},
		{2 * (xz + wy), 2 * (yz - wx), 1 - 2*(xx+yy), 0},
		{0, 0, 0, 1},
	}
}
