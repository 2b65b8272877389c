// Package gfx is the small device contract the shadow pipeline renders
// through. A backend provides textures that can be cleared, sampled and
// rendered into, plus a handful of fullscreen blit programs.
package gfx

import (
	"github.com/gogpu/gputypes"
)

// FilterMode is the sampling filter of a texture.
type FilterMode int

const (
	FilterNearest FilterMode = iota
	FilterBilinear
)

func (f FilterMode) String() string {
	switch f {
	case FilterNearest:
		return "Nearest"
	case FilterBilinear:
		return "Bilinear"
	default:
		return "Unknown"
	}
}

// GPU returns the equivalent gputypes filter.
func (f FilterMode) GPU() gputypes.FilterMode {
	if f == FilterNearest {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}

// TextureDesc describes a 2D render texture.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
	Format gputypes.TextureFormat
	Filter FilterMode
	// Depth attaches a depth buffer so the texture can receive mesh draws.
	Depth bool
}

// Texture is a backend texture handle.
type Texture interface {
	Desc() TextureDesc
}

// Program selects the fragment program of a BlitPass.
type Program int

const (
	// ProgramBlurVertical filters all four channels along Y with Weights.
	ProgramBlurVertical Program = iota
	// ProgramBlurMoments filters along X, divides the first two channels by
	// the filtered third one and writes the resulting (mean, mean²) pair. A
	// zero weight sum writes Color instead.
	ProgramBlurMoments
	// ProgramFill writes Color.
	ProgramFill
)

func (p Program) String() string {
	switch p {
	case ProgramBlurVertical:
		return "blur-vertical"
	case ProgramBlurMoments:
		return "blur-moments"
	case ProgramFill:
		return "fill"
	default:
		return "unknown"
	}
}

// BlitPass draws a full-width quad covering the rows [Y1, Y2] of every
// target, in normalized coordinates with 0 at the bottom. Source is sampled
// with texture coordinates spanning [0, 1] over the quad.
//
// With two targets ProgramBlurMoments writes the mean into the first and
// the squared mean into the second; with one target both go to its first
// two channels.
type BlitPass struct {
	Program   Program
	Source    Texture
	Targets   []Texture
	Y1, Y2    float32
	TexelSize [2]float32
	Weights   []float32
	Color     [4]float32
}

// Device creates textures and executes passes on them.
type Device interface {
	// SupportsFormat reports whether format can be used as a render target.
	SupportsFormat(format gputypes.TextureFormat) bool
	CreateTexture(desc TextureDesc) (Texture, error)
	DestroyTexture(tex Texture)
	// Clear sets every texel (and the depth buffer, when present).
	Clear(tex Texture, color [4]float32) error
	Blit(pass BlitPass) error
}
