package gfx

import (
	"github.com/gogpu/gputypes"
)

// Channels returns the number of colour channels of the float formats used
// for shadow targets, or 0 for anything else.
func Channels(format gputypes.TextureFormat) int {
	switch format {
	case gputypes.TextureFormatR16Float, gputypes.TextureFormatR32Float:
		return 1
	case gputypes.TextureFormatRG16Float, gputypes.TextureFormatRG32Float:
		return 2
	case gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA32Float:
		return 4
	default:
		return 0
	}
}

// IsHalf reports whether format stores 16-bit floats.
func IsHalf(format gputypes.TextureFormat) bool {
	switch format {
	case gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA16Float:
		return true
	}
	return false
}

// IsFloat reports whether format is one of the float colour formats above.
func IsFloat(format gputypes.TextureFormat) bool {
	return Channels(format) > 0
}
