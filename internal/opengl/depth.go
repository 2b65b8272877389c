package opengl

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"vsm-engine/math"
	"vsm-engine/scene"
	"vsm-engine/vsm"
)

// depthVertSrc writes the scaled light-space depth alongside the clip
// position.
const depthVertSrc = `
#version 410 core
layout(location = 0) in vec3 inPosition;
uniform mat4 model;
uniform mat4 view;
uniform mat4 viewProj;
uniform float depthScale;
out float lightDepth;
void main() {
    vec4 world = model * vec4(inPosition, 1.0);
    lightDepth = (view * world).z * depthScale;
    gl_Position = viewProj * world;
}
` + "\x00"

// depthFragSrc writes (d, d², 1, 0); dithered casters drop every other
// pixel in a checkerboard.
const depthFragSrc = `
#version 410 core
in  float lightDepth;
out vec4  outMoments;
uniform bool dither;
void main() {
    if (dither && mod(floor(gl_FragCoord.x) + floor(gl_FragCoord.y), 2.0) == 1.0) {
        discard;
    }
    outMoments = vec4(lightDepth, lightDepth * lightDepth, 1.0, 0.0);
}
` + "\x00"

// gpuMesh is a position-only mesh upload.
type gpuMesh struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
}

// CasterRenderer draws the visible meshes of Scene into capture targets.
// It implements vsm.DepthRenderer.
type CasterRenderer struct {
	Scene     *scene.Scene
	DitherTag string

	prog          uint32
	modelLoc      int32
	viewLoc       int32
	viewProjLoc   int32
	depthScaleLoc int32
	ditherLoc     int32

	meshes map[*scene.Mesh]*gpuMesh
}

func NewCasterRenderer(s *scene.Scene) (*CasterRenderer, error) {
	prog, err := newProgram(depthVertSrc, depthFragSrc)
	if err != nil {
		return nil, fmt.Errorf("depth shader compile: %w", err)
	}
	return &CasterRenderer{
		Scene:         s,
		DitherTag:     "TransparentCutout",
		prog:          prog,
		modelLoc:      gl.GetUniformLocation(prog, gl.Str("model\x00")),
		viewLoc:       gl.GetUniformLocation(prog, gl.Str("view\x00")),
		viewProjLoc:   gl.GetUniformLocation(prog, gl.Str("viewProj\x00")),
		depthScaleLoc: gl.GetUniformLocation(prog, gl.Str("depthScale\x00")),
		ditherLoc:     gl.GetUniformLocation(prog, gl.Str("dither\x00")),
		meshes:        make(map[*scene.Mesh]*gpuMesh),
	}, nil
}

var clipBox = scene.AABB{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)}

// RenderDepth implements vsm.DepthRenderer. A GL error raised while drawing
// is reported as a transient fault.
func (r *CasterRenderer) RenderDepth(req vsm.CaptureRequest) error {
	target, ok := req.Target.(*Texture)
	if !ok || target.DepthRB == 0 {
		return fmt.Errorf("opengl: capture target %T has no depth buffer", req.Target)
	}
	if r.Scene == nil {
		return nil
	}
	for gl.GetError() != gl.NO_ERROR {
	}

	cam := req.Camera
	view := cam.View()
	viewProj := cam.ViewProjection()

	gl.BindFramebuffer(gl.FRAMEBUFFER, target.FBO)
	gl.Viewport(0, 0, int32(target.desc.Width), int32(target.desc.Height))
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.DepthMask(true)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
	gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)

	gl.UseProgram(r.prog)
	setMatrix(r.viewLoc, view)
	setMatrix(r.viewProjLoc, viewProj)
	gl.Uniform1f(r.depthScaleLoc, req.DepthScale)

	for _, node := range r.Scene.GetVisibleNodes() {
		if !req.Accepts(node.Layer, node.Tags) {
			continue
		}
		model := node.GetWorldMatrix()
		if !node.Mesh.LocalAABB.Transform(model.Mul(viewProj)).Overlaps(clipBox) {
			continue
		}
		gpu := r.ensureUploaded(node.Mesh)
		if gpu == nil {
			continue
		}
		dither := req.DitherTransparent && r.DitherTag != "" && node.Tags[req.ReplacementTag] == r.DitherTag
		setMatrix(r.modelLoc, model)
		if dither {
			gl.Uniform1i(r.ditherLoc, 1)
		} else {
			gl.Uniform1i(r.ditherLoc, 0)
		}
		gl.BindVertexArray(gpu.VAO)
		gl.DrawElements(gl.TRIANGLES, gpu.IndexCount, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: GL error 0x%X during cascade %d", vsm.ErrTransientRenderFault, code, req.Level)
	}
	return nil
}

func setMatrix(loc int32, m math.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, (*float32)(unsafe.Pointer(&m[0][0])))
}

func (r *CasterRenderer) ensureUploaded(mesh *scene.Mesh) *gpuMesh {
	if gpu, ok := r.meshes[mesh]; ok {
		return gpu
	}
	if len(mesh.Positions) == 0 || len(mesh.Indices) == 0 {
		return nil
	}

	gpu := &gpuMesh{IndexCount: int32(len(mesh.Indices))}
	gl.GenVertexArrays(1, &gpu.VAO)
	gl.GenBuffers(1, &gpu.VBO)
	gl.BindVertexArray(gpu.VAO)

	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Positions)*int(unsafe.Sizeof(math.Vec3{})),
		gl.Ptr(mesh.Positions), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, int32(unsafe.Sizeof(math.Vec3{})), gl.PtrOffset(0))

	gl.GenBuffers(1, &gpu.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)

	gl.BindVertexArray(0)
	r.meshes[mesh] = gpu
	return gpu
}

// ReleaseMesh frees the upload of mesh, if any.
func (r *CasterRenderer) ReleaseMesh(mesh *scene.Mesh) {
	if gpu, ok := r.meshes[mesh]; ok {
		gl.DeleteVertexArrays(1, &gpu.VAO)
		gl.DeleteBuffers(1, &gpu.VBO)
		gl.DeleteBuffers(1, &gpu.EBO)
		delete(r.meshes, mesh)
	}
}

// Destroy releases all GPU resources.
func (r *CasterRenderer) Destroy() {
	for mesh := range r.meshes {
		r.ReleaseMesh(mesh)
	}
	if r.prog != 0 {
		gl.DeleteProgram(r.prog)
		r.prog = 0
	}
}
