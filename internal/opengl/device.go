// Package opengl is the OpenGL 4.1 backend: a gfx.Device whose textures
// are framebuffer-backed GL textures, and a depth renderer that draws
// scene casters into capture targets.
//
// Everything here must run on the goroutine that owns the current GL
// context.
package opengl

import (
	"errors"
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"

	"vsm-engine/gfx"
)

var errForeignTexture = errors.New("opengl: texture not created by this device")

// Device implements gfx.Device on the current GL context.
type Device struct {
	progs      map[gfx.Program]*blitProgram
	vao        uint32 // empty VAO for the band quad
	scratchFBO uint32 // MRT framebuffer for blits
	probed     map[gputypes.TextureFormat]bool
	live       map[*Texture]struct{}
	preview    *previewProgram
}

// NewDevice loads GL function pointers and compiles the pass programs.
// Call it after the window context is made current.
func NewDevice() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	progs, err := compileBlitPrograms()
	if err != nil {
		return nil, err
	}
	d := &Device{
		progs:  progs,
		probed: make(map[gputypes.TextureFormat]bool),
		live:   make(map[*Texture]struct{}),
	}
	gl.GenVertexArrays(1, &d.vao)
	gl.GenFramebuffers(1, &d.scratchFBO)
	return d, nil
}

// Version returns the GL version string of the current context.
func Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// SupportsFormat probes format once by building a small render target.
func (d *Device) SupportsFormat(format gputypes.TextureFormat) bool {
	if ok, seen := d.probed[format]; seen {
		return ok
	}
	ok := false
	if _, mapped := glFormats[format]; mapped {
		if t, err := newTexture(gfx.TextureDesc{Width: 4, Height: 4, Format: format, Filter: gfx.FilterNearest}); err == nil {
			t.destroy()
			ok = true
		}
	}
	d.probed[format] = ok
	return ok
}

func (d *Device) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	t, err := newTexture(desc)
	if err != nil {
		return nil, err
	}
	d.live[t] = struct{}{}
	return t, nil
}

func (d *Device) DestroyTexture(tex gfx.Texture) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return
	}
	if _, alive := d.live[t]; !alive {
		return
	}
	delete(d.live, t)
	t.destroy()
}

func (d *Device) Clear(tex gfx.Texture, color [4]float32) error {
	t, err := d.lookup(tex)
	if err != nil {
		return err
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBO)
	gl.ClearColor(color[0], color[1], color[2], color[3])
	mask := uint32(gl.COLOR_BUFFER_BIT)
	if t.DepthRB != 0 {
		gl.DepthMask(true)
		gl.ClearDepth(1)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(mask)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

// Blit draws pass into its targets through the scratch framebuffer, one
// colour attachment per target.
func (d *Device) Blit(pass gfx.BlitPass) error {
	if len(pass.Targets) == 0 || len(pass.Targets) > 2 {
		return fmt.Errorf("opengl: blit needs one or two targets, got %d", len(pass.Targets))
	}
	prog, ok := d.progs[pass.Program]
	if !ok {
		return fmt.Errorf("opengl: unknown program %d", pass.Program)
	}
	if len(pass.Weights) > maxTaps {
		return fmt.Errorf("opengl: %d weights exceed %d taps", len(pass.Weights), maxTaps)
	}

	targets := make([]*Texture, len(pass.Targets))
	for i, tex := range pass.Targets {
		t, err := d.lookup(tex)
		if err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		targets[i] = t
	}
	var src *Texture
	if pass.Program != gfx.ProgramFill {
		var err error
		if src, err = d.lookup(pass.Source); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, d.scratchFBO)
	drawBuffers := []uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
	for i := range drawBuffers {
		var id uint32
		if i < len(targets) {
			id = targets[i].ID
		}
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, drawBuffers[i], gl.TEXTURE_2D, id, 0)
	}
	gl.DrawBuffers(int32(len(targets)), &drawBuffers[0])
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return fmt.Errorf("opengl: %s blit FBO incomplete: status=0x%X", pass.Program, status)
	}

	desc := targets[0].desc
	gl.Viewport(0, 0, int32(desc.Width), int32(desc.Height))
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)

	gl.UseProgram(prog.id)
	gl.Uniform2f(prog.bandLoc, pass.Y1, pass.Y2)
	gl.Uniform2f(prog.texelLoc, pass.TexelSize[0], pass.TexelSize[1])
	gl.Uniform4f(prog.colorLoc, pass.Color[0], pass.Color[1], pass.Color[2], pass.Color[3])
	gl.Uniform1i(prog.planesLoc, int32(len(targets)))
	gl.Uniform1i(prog.tapsLoc, int32(len(pass.Weights)))
	if len(pass.Weights) > 0 {
		gl.Uniform1fv(prog.weightLoc, int32(len(pass.Weights)), &pass.Weights[0])
	}
	if src != nil {
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, src.ID)
	}

	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	return nil
}

func (d *Device) lookup(tex gfx.Texture) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, errForeignTexture
	}
	if _, alive := d.live[t]; !alive {
		return nil, errors.New("opengl: texture used after destroy")
	}
	return t, nil
}

// Live returns the number of textures created and not yet destroyed.
func (d *Device) Live() int { return len(d.live) }

// Destroy releases the programs and any textures still alive.
func (d *Device) Destroy() {
	for t := range d.live {
		t.destroy()
		delete(d.live, t)
	}
	for _, p := range d.progs {
		gl.DeleteProgram(p.id)
	}
	d.progs = nil
	if d.preview != nil {
		gl.DeleteProgram(d.preview.id)
		d.preview = nil
	}
	gl.DeleteVertexArrays(1, &d.vao)
	gl.DeleteFramebuffers(1, &d.scratchFBO)
}
