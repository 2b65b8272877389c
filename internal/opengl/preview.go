package opengl

import (
	"fmt"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"vsm-engine/gfx"
)

// previewFragSrc shows the mean depth of a moments texture as grey,
// mapping [-range, range] to [0, 1].
const previewFragSrc = `
#version 410 core
in  vec2 fragUV;
out vec4 outColor;
uniform sampler2D source;
uniform float     range;
void main() {
    float mean = texture(source, fragUV).r;
    float g = clamp(mean / (2.0 * range) + 0.5, 0.0, 1.0);
    outColor = vec4(g, g, g, 1.0);
}
` + "\x00"

type previewProgram struct {
	id       uint32
	bandLoc  int32
	rangeLoc int32
}

// DrawPreview draws the mean plane of an atlas into the viewport rectangle
// of the default framebuffer. depthRange is the largest |mean| expected.
func (d *Device) DrawPreview(mean gfx.Texture, x, y, width, height int, depthRange float32) error {
	t, err := d.lookup(mean)
	if err != nil {
		return err
	}
	if d.preview == nil {
		id, err := newProgram(bandVertSrc, previewFragSrc)
		if err != nil {
			return fmt.Errorf("preview shader: %w", err)
		}
		d.preview = &previewProgram{
			id:       id,
			bandLoc:  gl.GetUniformLocation(id, gl.Str("band\x00")),
			rangeLoc: gl.GetUniformLocation(id, gl.Str("range\x00")),
		}
		gl.UseProgram(id)
		gl.Uniform1i(gl.GetUniformLocation(id, gl.Str("source\x00")), 0)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
	gl.Disable(gl.DEPTH_TEST)
	gl.UseProgram(d.preview.id)
	gl.Uniform2f(d.preview.bandLoc, 0, 1)
	gl.Uniform1f(d.preview.rangeLoc, depthRange)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, t.ID)
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}
