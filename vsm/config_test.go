package vsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsm-engine/gfx"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, ModeAutomaticFull, s.Mode)
	assert.True(t, s.CameraFollowsMain)
	assert.Equal(t, 512, s.Resolution)
	assert.Equal(t, 6, s.NumCascades)
	assert.Equal(t, float32(8), s.FirstCascadeLevelSize)
	assert.Equal(t, float32(1000), s.DepthOfShadowRange)
	assert.Equal(t, gfx.FilterBilinear, s.Filter)
	assert.Equal(t, PrecisionHalf, s.Precision)
	assert.Equal(t, AllLayers, s.CullingMask)
	assert.Equal(t, "RenderType", s.MaterialFilterTag)
	assert.NoError(t, s.Validate())
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := DefaultSettings()
	cd := s.Snapshot()
	s.Resolution = 16
	s.NumCascades = 2
	assert.Equal(t, 512, cd.Resolution)
	assert.Equal(t, 512*6, cd.AtlasHeight())
	assert.Equal(t, float32(1.0/6), cd.InvNumCascades())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Settings){
		"no cascades":   func(s *Settings) { s.NumCascades = 0 },
		"no resolution": func(s *Settings) { s.Resolution = -4 },
		"no extent":     func(s *Settings) { s.FirstCascadeLevelSize = 0 },
		"no range":      func(s *Settings) { s.DepthOfShadowRange = -1 },
	}
	for name, mutate := range cases {
		s := DefaultSettings()
		mutate(&s)
		assert.ErrorIs(t, s.Validate(), ErrConfigInvalid, name)
	}
}

func TestParseEnums(t *testing.T) {
	mode, err := ParseComputationMode("Automatic-Incremental")
	require.NoError(t, err)
	assert.Equal(t, ModeAutomaticIncremental, mode)

	mode, err = ParseComputationMode(ModeManual.String())
	require.NoError(t, err)
	assert.Equal(t, ModeManual, mode)

	_, err = ParseComputationMode("sometimes")
	assert.Error(t, err)

	precision, err := ParsePrecisionMode(" FULL ")
	require.NoError(t, err)
	assert.Equal(t, PrecisionFull, precision)

	filter, err := ParseFilterMode("point")
	require.NoError(t, err)
	assert.Equal(t, gfx.FilterNearest, filter)

	_, err = ParseFilterMode("trilinear")
	assert.Error(t, err)
}
