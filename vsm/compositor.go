package vsm

import (
	"fmt"

	"vsm-engine/gfx"
)

// blurWeights is the 5-tap binomial kernel used by both blur passes.
var blurWeights = []float32{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}

// clearMoments is what texels without any caster hold.
var clearMoments = [4]float32{0, 0, 0, 0}

// Compositor blurs a capture and writes it into its cascade band.
type Compositor struct {
	dev     gfx.Device
	targets *TargetManager
}

func NewCompositor(dev gfx.Device, targets *TargetManager) *Compositor {
	return &Compositor{dev: dev, targets: targets}
}

// CascadeBand returns the normalized vertical range of level in an atlas
// of numCascades bands.
func CascadeBand(level, numCascades int) (y1, y2 float32) {
	n := float32(numCascades)
	return float32(level) / n, float32(level+1) / n
}

// Blur runs the vertical pass over capture into a pooled intermediate. The
// capture content is not needed afterwards.
func (c *Compositor) Blur(capture gfx.Texture) (gfx.Texture, error) {
	desc := capture.Desc()
	tmp, err := c.targets.AcquireTemporary(gfx.TextureDesc{
		Label:  "vsm blur",
		Width:  desc.Width,
		Height: desc.Height,
		Format: desc.Format,
		Filter: gfx.FilterNearest,
	})
	if err != nil {
		return nil, err
	}
	err = c.dev.Blit(gfx.BlitPass{
		Program:   gfx.ProgramBlurVertical,
		Source:    capture,
		Targets:   []gfx.Texture{tmp},
		Y1:        0,
		Y2:        1,
		TexelSize: texelSize(desc),
		Weights:   blurWeights,
	})
	if err != nil {
		c.targets.ReleaseTemporary(tmp)
		return nil, fmt.Errorf("vertical blur: %w", err)
	}
	return tmp, nil
}

// Composite runs the horizontal pass from intermediate into the band of
// level, producing (mean, mean²) normalized by the caster coverage. The
// intermediate goes back to the pool.
func (c *Compositor) Composite(intermediate gfx.Texture, atlas *Atlas, level, numCascades int) error {
	defer c.targets.ReleaseTemporary(intermediate)

	y1, y2 := CascadeBand(level, numCascades)
	err := c.dev.Blit(gfx.BlitPass{
		Program:   gfx.ProgramBlurMoments,
		Source:    intermediate,
		Targets:   atlas.Planes,
		Y1:        y1,
		Y2:        y2,
		TexelSize: texelSize(intermediate.Desc()),
		Weights:   blurWeights,
		Color:     clearMoments,
	})
	if err != nil {
		return fmt.Errorf("composite cascade %d: %w", level, err)
	}
	return nil
}

// Finalize overwrites the top texel row of every plane with clear moments.
func (c *Compositor) Finalize(atlas *Atlas) error {
	h := float32(atlas.Height())
	err := c.dev.Blit(gfx.BlitPass{
		Program: gfx.ProgramFill,
		Targets: atlas.Planes,
		Y1:      1 - 1/h,
		Y2:      1,
		Color:   clearMoments,
	})
	if err != nil {
		return fmt.Errorf("finalize atlas: %w", err)
	}
	return nil
}

func texelSize(desc gfx.TextureDesc) [2]float32 {
	return [2]float32{1 / float32(desc.Width), 1 / float32(desc.Height)}
}
