package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"vsm-engine/gfx"
)

// Texture is a colour texture with its own framebuffer and, for capture
// targets, a depth renderbuffer.
type Texture struct {
	desc    gfx.TextureDesc
	ID      uint32
	FBO     uint32
	DepthRB uint32
}

func (t *Texture) Desc() gfx.TextureDesc { return t.desc }

// newTexture creates the texture and its framebuffer. An incomplete
// framebuffer frees everything and fails.
func newTexture(desc gfx.TextureDesc) (*Texture, error) {
	f, ok := glFormats[desc.Format]
	if !ok {
		return nil, fmt.Errorf("opengl: no GL mapping for %s", desc.Format)
	}
	if desc.Width < 1 || desc.Height < 1 {
		return nil, fmt.Errorf("opengl: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	t := &Texture{desc: desc}
	w, h := int32(desc.Width), int32(desc.Height)

	gl.GenTextures(1, &t.ID)
	gl.BindTexture(gl.TEXTURE_2D, t.ID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, f.internal, w, h, 0, f.format, f.xtype, nil)
	filter := int32(gl.LINEAR)
	if desc.Filter == gfx.FilterNearest {
		filter = gl.NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	gl.GenFramebuffers(1, &t.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.FBO)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.ID, 0)
	if desc.Depth {
		gl.GenRenderbuffers(1, &t.DepthRB)
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.DepthRB)
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT32F, w, h)
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.DepthRB)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		t.destroy()
		return nil, fmt.Errorf("%s FBO incomplete: status=0x%X", desc.Format, status)
	}
	return t, nil
}

// destroy frees GPU resources.
func (t *Texture) destroy() {
	if t.FBO != 0 {
		gl.DeleteFramebuffers(1, &t.FBO)
		t.FBO = 0
	}
	if t.DepthRB != 0 {
		gl.DeleteRenderbuffers(1, &t.DepthRB)
		t.DepthRB = 0
	}
	if t.ID != 0 {
		gl.DeleteTextures(1, &t.ID)
		t.ID = 0
	}
}
