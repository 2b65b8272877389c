// Package softgpu is a deterministic CPU implementation of gfx.Device. It
// runs every pass the shadow pipeline needs without a GPU, which keeps the
// pipeline testable headless and lets the bake tool run anywhere.
package softgpu

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gogpu/gputypes"

	"vsm-engine/gfx"
)

var errForeignTexture = errors.New("softgpu: texture not created by this device")

// Device executes passes on CPU textures.
type Device struct {
	unsupported map[gputypes.TextureFormat]bool
	live        map[*Texture]struct{}
	created     int
	destroyed   int
	blits       int
}

type Option func(*Device)

// WithUnsupported makes SupportsFormat reject the given formats, which
// simulates hardware with fewer render target formats.
func WithUnsupported(formats ...gputypes.TextureFormat) Option {
	return func(d *Device) {
		for _, f := range formats {
			d.unsupported[f] = true
		}
	}
}

func New(opts ...Option) *Device {
	d := &Device{
		unsupported: make(map[gputypes.TextureFormat]bool),
		live:        make(map[*Texture]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) SupportsFormat(format gputypes.TextureFormat) bool {
	return gfx.IsFloat(format) && !d.unsupported[format]
}

func (d *Device) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("softgpu: invalid texture size %dx%d", desc.Width, desc.Height)
	}
	if !d.SupportsFormat(desc.Format) {
		return nil, fmt.Errorf("softgpu: format %s is not renderable", desc.Format)
	}
	t := newTexture(desc)
	d.live[t] = struct{}{}
	d.created++
	return t, nil
}

// DestroyTexture releases tex. Releasing nil or an already released
// texture does nothing.
func (d *Device) DestroyTexture(tex gfx.Texture) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return
	}
	if _, alive := d.live[t]; !alive {
		return
	}
	delete(d.live, t)
	t.destroyed = true
	t.pix = nil
	t.depth = nil
	d.destroyed++
}

func (d *Device) Clear(tex gfx.Texture, color [4]float32) error {
	t, err := d.lookup(tex)
	if err != nil {
		return err
	}
	t.fill(color)
	return nil
}

func (d *Device) Blit(pass gfx.BlitPass) error {
	if len(pass.Targets) == 0 {
		return errors.New("softgpu: blit without targets")
	}
	targets := make([]*Texture, len(pass.Targets))
	for i, tex := range pass.Targets {
		t, err := d.lookup(tex)
		if err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		if i > 0 && (t.desc.Width != targets[0].desc.Width || t.desc.Height != targets[0].desc.Height) {
			return fmt.Errorf("softgpu: target %d size differs from target 0", i)
		}
		targets[i] = t
	}

	var src *Texture
	if pass.Program != gfx.ProgramFill {
		var err error
		if src, err = d.lookup(pass.Source); err != nil {
			return fmt.Errorf("source: %w", err)
		}
		if len(pass.Weights) == 0 {
			return fmt.Errorf("softgpu: %s pass without weights", pass.Program)
		}
	}

	width := targets[0].desc.Width
	height := targets[0].desc.Height
	y0 := rowOf(pass.Y1, height)
	y1 := rowOf(pass.Y2, height)
	if y1 <= y0 {
		return nil
	}
	d.blits++

	switch pass.Program {
	case gfx.ProgramFill:
		for _, t := range targets {
			for y := y0; y < y1; y++ {
				for x := 0; x < width; x++ {
					t.Set(x, y, pass.Color)
				}
			}
		}
	case gfx.ProgramBlurVertical:
		step := texelStep(pass.TexelSize[1], src.desc.Height)
		half := len(pass.Weights) / 2
		for y := y0; y < y1; y++ {
			sy := sourceCoord(y-y0, y1-y0, src.desc.Height)
			for x := 0; x < width; x++ {
				sx := sourceCoord(x, width, src.desc.Width)
				var acc [4]float32
				for i, w := range pass.Weights {
					texel := src.At(sx, sy+(i-half)*step)
					for c := range acc {
						acc[c] += w * texel[c]
					}
				}
				targets[0].Set(x, y, acc)
			}
		}
	case gfx.ProgramBlurMoments:
		step := texelStep(pass.TexelSize[0], src.desc.Width)
		half := len(pass.Weights) / 2
		for y := y0; y < y1; y++ {
			sy := sourceCoord(y-y0, y1-y0, src.desc.Height)
			for x := 0; x < width; x++ {
				sx := sourceCoord(x, width, src.desc.Width)
				var depth, depthSq, mask float32
				for i, w := range pass.Weights {
					texel := src.At(sx+(i-half)*step, sy)
					depth += w * texel[0]
					depthSq += w * texel[1]
					mask += w * texel[2]
				}
				mean, meanSq := pass.Color[0], pass.Color[1]
				if mask > 0 {
					mean, meanSq = depth/mask, depthSq/mask
				}
				if len(targets) == 1 {
					targets[0].Set(x, y, [4]float32{mean, meanSq, 0, 0})
				} else {
					targets[0].Set(x, y, [4]float32{mean, 0, 0, 0})
					targets[1].Set(x, y, [4]float32{meanSq, 0, 0, 0})
				}
			}
		}
	default:
		return fmt.Errorf("softgpu: unknown program %d", pass.Program)
	}
	return nil
}

// Live returns the number of textures created and not yet destroyed.
func (d *Device) Live() int { return len(d.live) }

func (d *Device) Created() int   { return d.created }
func (d *Device) Destroyed() int { return d.destroyed }

// Blits counts executed passes that wrote at least one row.
func (d *Device) Blits() int { return d.blits }

func (d *Device) lookup(tex gfx.Texture) (*Texture, error) {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, errForeignTexture
	}
	if _, alive := d.live[t]; !alive {
		return nil, errors.New("softgpu: texture used after destroy")
	}
	return t, nil
}

func rowOf(v float32, height int) int {
	return clamp(int(math32.Round(v*float32(height))), 0, height)
}

func texelStep(size float32, extent int) int {
	step := int(math32.Round(size * float32(extent)))
	if step < 1 {
		step = 1
	}
	return step
}

// sourceCoord maps texel i of an n texel span onto a source of size extent,
// sampling at texel centres.
func sourceCoord(i, n, extent int) int {
	if n == extent {
		return i
	}
	return int((float32(i) + 0.5) * float32(extent) / float32(n))
}
