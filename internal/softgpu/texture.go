package softgpu

import (
	"github.com/chewxy/math32"
	"github.com/x448/float16"

	"vsm-engine/gfx"
)

// Texture is a CPU texture. Row 0 is the bottom row, matching GL.
type Texture struct {
	desc      gfx.TextureDesc
	channels  int
	half      bool
	pix       []float32
	depth     []float32
	destroyed bool
}

func newTexture(desc gfx.TextureDesc) *Texture {
	channels := gfx.Channels(desc.Format)
	t := &Texture{
		desc:     desc,
		channels: channels,
		half:     gfx.IsHalf(desc.Format),
		pix:      make([]float32, desc.Width*desc.Height*channels),
	}
	if desc.Depth {
		t.depth = make([]float32, desc.Width*desc.Height)
		t.clearDepth()
	}
	return t
}

func (t *Texture) Desc() gfx.TextureDesc { return t.desc }

func (t *Texture) Width() int  { return t.desc.Width }
func (t *Texture) Height() int { return t.desc.Height }

// Destroyed reports whether the owning device has released the texture.
func (t *Texture) Destroyed() bool { return t.destroyed }

// At returns the texel at (x, y) with coordinates clamped to the edges.
// Channels the format does not store read as zero.
func (t *Texture) At(x, y int) [4]float32 {
	x = clamp(x, 0, t.desc.Width-1)
	y = clamp(y, 0, t.desc.Height-1)
	var out [4]float32
	base := (y*t.desc.Width + x) * t.channels
	copy(out[:t.channels], t.pix[base:base+t.channels])
	return out
}

// Set stores v at (x, y), rounding to half precision for 16-bit formats.
func (t *Texture) Set(x, y int, v [4]float32) {
	if x < 0 || y < 0 || x >= t.desc.Width || y >= t.desc.Height {
		return
	}
	base := (y*t.desc.Width + x) * t.channels
	for c := 0; c < t.channels; c++ {
		t.pix[base+c] = t.quantize(v[c])
	}
}

// Pixels returns a copy of the raw texel data, channels interleaved.
func (t *Texture) Pixels() []float32 {
	out := make([]float32, len(t.pix))
	copy(out, t.pix)
	return out
}

// DepthTest stores z at (x, y) and returns true when z is nearer than the
// current depth. Textures without a depth buffer always pass.
func (t *Texture) DepthTest(x, y int, z float32) bool {
	if t.depth == nil {
		return true
	}
	i := y*t.desc.Width + x
	if z >= t.depth[i] {
		return false
	}
	t.depth[i] = z
	return true
}

func (t *Texture) fill(color [4]float32) {
	for i := 0; i < len(t.pix); i += t.channels {
		for c := 0; c < t.channels; c++ {
			t.pix[i+c] = t.quantize(color[c])
		}
	}
	if t.depth != nil {
		t.clearDepth()
	}
}

func (t *Texture) clearDepth() {
	inf := math32.Inf(1)
	for i := range t.depth {
		t.depth[i] = inf
	}
}

func (t *Texture) quantize(v float32) float32 {
	if !t.half {
		return v
	}
	return float16.Fromfloat32(v).Float32()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
