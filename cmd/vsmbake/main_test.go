package main

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsm-engine/config"
	"vsm-engine/gfx"
	"vsm-engine/internal/softgpu"
)

func smallConfig(t *testing.T) string {
	t.Helper()
	f := config.Default()
	f.Shadow.Resolution = 16
	f.Shadow.Cascades = 3
	path := filepath.Join(t.TempDir(), "vsm.toml")
	require.NoError(t, config.Save(path, f))
	return path
}

func TestBakeWritesBands(t *testing.T) {
	for _, stepwise := range []bool{false, true} {
		out := filepath.Join(t.TempDir(), "out")
		written, err := bake(options{configPath: smallConfig(t), outDir: out, stepwise: stepwise})
		require.NoError(t, err)
		require.Len(t, written, 4)

		for i, path := range written {
			f, err := os.Open(path)
			require.NoError(t, err)
			img, err := png.Decode(f)
			f.Close()
			require.NoError(t, err)
			wantH := 16
			if i == 3 {
				wantH = 48
			}
			assert.Equal(t, 16, img.Bounds().Dx())
			assert.Equal(t, wantH, img.Bounds().Dy())
		}
	}
}

func TestBakeRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vsm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shadow:\n  precision: double\n"), 0644))
	_, err := bake(options{configPath: path, outDir: t.TempDir()})
	assert.Error(t, err)
}

func TestBandImageFlipsAndScales(t *testing.T) {
	dev := softgpu.New()
	tex, err := dev.CreateTexture(gfx.TextureDesc{Width: 2, Height: 4, Format: gputypes.TextureFormatRG32Float})
	require.NoError(t, err)
	st := tex.(*softgpu.Texture)
	st.Set(0, 2, [4]float32{-momentRange, 0, 0, 0})
	st.Set(1, 3, [4]float32{momentRange * 4, 0, 0, 0})

	img := bandImage(st, 2, 4)
	assert.Equal(t, uint8(0), img.GrayAt(0, 1).Y, "bottom row of the band is the last image row")
	assert.Equal(t, uint8(255), img.GrayAt(1, 0).Y, "clamped")
	assert.Equal(t, uint8(128), img.GrayAt(1, 1).Y)
}
