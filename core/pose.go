package core

import (
	"vsm-engine/math"
)

// Pose is a rigid placement in world space.
type Pose struct {
	Position math.Vec3
	Rotation math.Quaternion
}

func NewPose(position math.Vec3, rotation math.Quaternion) Pose {
	return Pose{Position: position, Rotation: rotation}
}

func IdentityPose() Pose {
	return Pose{Position: math.Vec3Zero, Rotation: math.QuaternionIdentity()}
}

// LocalToWorld returns rotation followed by translation.
func (p Pose) LocalToWorld() math.Mat4 {
	return p.Rotation.ToMat4().Mul(math.Mat4Translation(p.Position))
}

// WorldToLocal is the inverse of LocalToWorld for a unit rotation.
func (p Pose) WorldToLocal() math.Mat4 {
	translation := math.Mat4Translation(p.Position.Negate())
	rotation := p.Rotation.Normalize().Conjugate().ToMat4()
	return translation.Mul(rotation)
}

func (p Pose) Forward() math.Vec3 {
	return p.Rotation.RotateVector(math.Vec3Front)
}

// Transform places a mesh in the world: scale, then rotation, then translation.
type Transform struct {
	Position math.Vec3
	Rotation math.Quaternion
	Scale    math.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: math.Vec3Zero,
		Rotation: math.QuaternionIdentity(),
		Scale:    math.Vec3One,
	}
}

func (t Transform) GetMatrix() math.Mat4 {
	scale := math.Mat4Scale(t.Scale)
	rotation := t.Rotation.ToMat4()
	translation := math.Mat4Translation(t.Position)
	return scale.Mul(rotation).Mul(translation)
}
