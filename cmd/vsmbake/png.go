package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"vsm-engine/internal/softgpu"
)

// momentRange is the largest |mean| the capture encoding produces.
const momentRange = 64

// bandImage maps the mean channel of rows [y0, y1) to grey, near casters
// dark. Image row 0 is the top of the band.
func bandImage(tex *softgpu.Texture, y0, y1 int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, tex.Width(), y1-y0))
	for y := y0; y < y1; y++ {
		for x := 0; x < tex.Width(); x++ {
			v := tex.At(x, y)[0]/(2*momentRange) + 0.5
			v = min(max(v, 0), 1)
			img.SetGray(x, y1-1-y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return img
}

func writeBandPNG(path string, tex *softgpu.Texture, y0, y1 int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, bandImage(tex, y0, y1)); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
