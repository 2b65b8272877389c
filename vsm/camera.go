package vsm

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"vsm-engine/gfx"
	"vsm-engine/math"
)

// CameraController owns the shadow camera, places it for each run and
// issues one depth capture per cascade.
type CameraController struct {
	dev      gfx.Device
	renderer DepthRenderer
	shader   DepthShader

	camera *ShadowCamera
	pose   *poseOverride
	scale  float32
}

type poseOverride struct {
	position math.Vec3
	rotation math.Quaternion
}

func NewCameraController(dev gfx.Device, renderer DepthRenderer, shader DepthShader) *CameraController {
	return &CameraController{
		dev:      dev,
		renderer: renderer,
		shader:   shader,
		scale:    1,
	}
}

// Camera returns the shadow camera, creating it on first use.
func (c *CameraController) Camera() *ShadowCamera {
	if c.camera == nil {
		c.camera = newShadowCamera()
		if c.pose != nil {
			c.camera.Pose.Position = c.pose.position
			c.camera.Pose.Rotation = c.pose.rotation
		}
	}
	return c.camera
}

// Release drops the camera. The next Camera call creates a fresh one at the
// last manually set pose, if any.
func (c *CameraController) Release() {
	c.camera = nil
}

// Scale is the world scale applied to extents and depth range.
func (c *CameraController) Scale() float32 { return c.scale }

// SetPose places the camera manually. It is used when the camera does not
// follow the main camera.
func (c *CameraController) SetPose(position math.Vec3, rotation math.Quaternion, scale float32) {
	if !(scale > 0) {
		scale = 1
	}
	c.pose = &poseOverride{position: position, rotation: rotation}
	c.scale = scale
	cam := c.Camera()
	cam.Pose.Position = position
	cam.Pose.Rotation = rotation
}

// PositionForFrame moves the camera to the main camera position, oriented
// like the primary light. When either pose is missing it logs a warning,
// keeps the previous pose and returns an error wrapping ErrPoseUnresolved.
// The error is informational; the run goes on.
func (c *CameraController) PositionForFrame(src PoseSource) error {
	cam := c.Camera()
	if src == nil {
		return c.unresolved("no pose source")
	}
	main, ok := src.MainCameraPose()
	if !ok {
		return c.unresolved("main camera missing")
	}
	rotation, ok := src.PrimaryLightRotation()
	if !ok {
		return c.unresolved("no directional light")
	}
	cam.Pose.Position = main.Position
	cam.Pose.Rotation = rotation
	return nil
}

func (c *CameraController) unresolved(reason string) error {
	err := fmt.Errorf("%w: %s", ErrPoseUnresolved, reason)
	Logger().Warn("vsm: keeping previous shadow camera pose", "err", err)
	return err
}

// RenderCascade frames cascade level and renders the depth capture into
// target. A transient render fault is logged and swallowed; the capture
// then holds whatever the renderer managed to draw.
func (c *CameraController) RenderCascade(level int, cd ComputeData, target gfx.Texture) error {
	cam := c.Camera()
	cam.OrthoSize = cd.FirstCascadeLevelSize * c.scale * math32.Pow(2, float32(level))
	cam.Near = -cd.DepthOfShadowRange * c.scale
	cam.Far = cd.DepthOfShadowRange * c.scale
	cam.CullingMask = cd.CullingMask

	if err := c.dev.Clear(target, cam.ClearColor); err != nil {
		return fmt.Errorf("failed to clear capture for cascade %d: %w", level, err)
	}

	err := c.renderer.RenderDepth(CaptureRequest{
		Level:             level,
		Camera:            *cam,
		Target:            target,
		Shader:            c.shader,
		ReplacementTag:    cd.MaterialFilterTag,
		DitherTransparent: cd.DitherTransparent,
		DepthScale:        depthScale(cd, c.scale),
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrTransientRenderFault):
		Logger().Debug("vsm: ignoring transient render fault", "level", level, "err", err)
	default:
		return fmt.Errorf("failed to render cascade %d: %w", level, err)
	}
	return nil
}

// depthScale maps the camera depth range onto [-64, 64].
func depthScale(cd ComputeData, scale float32) float32 {
	return 128 / (2 * cd.DepthOfShadowRange * scale)
}
