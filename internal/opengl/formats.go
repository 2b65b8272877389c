package opengl

import (
	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/gogpu/gputypes"
)

// glFormat is the TexImage2D triple for a texture format.
type glFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

var glFormats = map[gputypes.TextureFormat]glFormat{
	gputypes.TextureFormatR16Float:    {gl.R16F, gl.RED, gl.HALF_FLOAT},
	gputypes.TextureFormatRG16Float:   {gl.RG16F, gl.RG, gl.HALF_FLOAT},
	gputypes.TextureFormatRGBA16Float: {gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT},
	gputypes.TextureFormatR32Float:    {gl.R32F, gl.RED, gl.FLOAT},
	gputypes.TextureFormatRG32Float:   {gl.RG32F, gl.RG, gl.FLOAT},
	gputypes.TextureFormatRGBA32Float: {gl.RGBA32F, gl.RGBA, gl.FLOAT},
	gputypes.TextureFormatRGBA8Unorm:  {gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE},
}
