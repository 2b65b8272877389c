package scene

import (
	"github.com/chewxy/math32"

	"vsm-engine/core"
	"vsm-engine/math"
)

// Camera is the main viewer. Shadow cascades are centred on its position.
type Camera struct {
	Position math.Vec3
	Rotation math.Quaternion
}

func NewCamera() *Camera {
	return &Camera{Rotation: math.QuaternionIdentity()}
}

func (c *Camera) SetPosition(pos math.Vec3) {
	c.Position = pos
}

// LookAt turns the camera so its forward axis points at target.
func (c *Camera) LookAt(target, up math.Vec3) {
	c.Rotation = math.QuaternionLookRotation(target.Sub(c.Position), up)
}

func (c *Camera) Pose() core.Pose {
	return core.NewPose(c.Position, c.Rotation)
}

func (c *Camera) GetForward() math.Vec3 {
	return c.Rotation.Forward()
}

// OrbitCamera is a specialized camera for orbiting around a target
type OrbitCamera struct {
	Camera
	Target   math.Vec3
	Distance float32
	Yaw      float32
	Pitch    float32
}

func NewOrbitCamera(target math.Vec3, distance float32) *OrbitCamera {
	c := &OrbitCamera{
		Target:   target,
		Distance: distance,
		Yaw:      0,
		Pitch:    0.3,
	}
	c.Camera = *NewCamera()
	c.UpdatePosition()
	return c
}

func (c *OrbitCamera) UpdatePosition() {
	// Clamp pitch
	if c.Pitch > 1.5 {
		c.Pitch = 1.5
	}
	if c.Pitch < -1.5 {
		c.Pitch = -1.5
	}

	sinPitch, cosPitch := math32.Sincos(c.Pitch)
	sinYaw, cosYaw := math32.Sincos(c.Yaw)

	offset := math.Vec3{
		X: c.Distance * cosPitch * sinYaw,
		Y: c.Distance * sinPitch,
		Z: c.Distance * cosPitch * cosYaw,
	}

	c.Position = c.Target.Add(offset)
	c.LookAt(c.Target, math.Vec3Up)
}

func (c *OrbitCamera) Orbit(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	c.UpdatePosition()
}

func (c *OrbitCamera) Zoom(delta float32) {
	c.Distance += delta
	if c.Distance < 0.1 {
		c.Distance = 0.1
	}
	c.UpdatePosition()
}
