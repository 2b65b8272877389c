package vsm

import (
	"vsm-engine/core"
	"vsm-engine/gfx"
	"vsm-engine/math"
)

// DepthShader names the replacement shader used for captures and the
// material tag values it has passes for.
type DepthShader struct {
	Name      string
	TagValues []string
}

// DefaultDepthShader draws opaque and alpha-tested casters.
var DefaultDepthShader = DepthShader{
	Name:      "vsm/depth",
	TagValues: []string{"Opaque", "TransparentCutout"},
}

// ShadowCamera is the orthographic capture camera. It looks down its local
// +Z axis; OrthoSize is the vertical half-extent.
type ShadowCamera struct {
	Pose        core.Pose
	OrthoSize   float32
	Near, Far   float32
	Aspect      float32
	ClearColor  [4]float32
	CullingMask uint32
}

func newShadowCamera() *ShadowCamera {
	return &ShadowCamera{
		Pose:        core.IdentityPose(),
		Aspect:      1,
		CullingMask: AllLayers,
	}
}

func (c *ShadowCamera) View() math.Mat4 {
	return c.Pose.WorldToLocal()
}

func (c *ShadowCamera) Projection() math.Mat4 {
	return math.Mat4OrthoForward(c.OrthoSize*c.Aspect, c.OrthoSize, c.Near, c.Far)
}

func (c *ShadowCamera) ViewProjection() math.Mat4 {
	return c.View().Mul(c.Projection())
}

// CaptureRequest is one depth-only draw of the scene into Target.
//
// For every caster fragment the renderer writes (d, d², 1, 0), where d is
// the light-space depth (local Z) multiplied by DepthScale, keeping the
// nearest fragment. Target has already been cleared to the camera's clear
// colour.
type CaptureRequest struct {
	Level             int
	Camera            ShadowCamera
	Target            gfx.Texture
	Shader            DepthShader
	ReplacementTag    string
	DitherTransparent bool
	DepthScale        float32
}

// Accepts reports whether a caster on layer with the given material tags
// is drawn by this request.
func (r CaptureRequest) Accepts(layer uint8, tags map[string]string) bool {
	if layer > 31 || r.Camera.CullingMask&(1<<layer) == 0 {
		return false
	}
	if r.ReplacementTag == "" {
		return true
	}
	value, ok := tags[r.ReplacementTag]
	if !ok {
		return false
	}
	for _, v := range r.Shader.TagValues {
		if v == value {
			return true
		}
	}
	return false
}

// DepthRenderer draws the shadow casters for one capture. It may return an
// error wrapping ErrTransientRenderFault for a glitch that only spoils the
// current capture.
type DepthRenderer interface {
	RenderDepth(req CaptureRequest) error
}

// PoseSource resolves the poses the shadow camera follows.
type PoseSource interface {
	MainCameraPose() (core.Pose, bool)
	PrimaryLightRotation() (math.Quaternion, bool)
}

// ParameterSink receives published shader parameters, for example one
// material.
type ParameterSink interface {
	SetTexture(name string, tex gfx.Texture)
	SetFloat(name string, v float32)
	SetMatrix(name string, m math.Mat4)
}
