package vsm

import (
	"fmt"
	"strings"

	"vsm-engine/gfx"
)

// ComputationMode selects how OnTick advances the pipeline.
type ComputationMode int

const (
	// ModeManual never computes from OnTick; the host calls RunFull or Step.
	ModeManual ComputationMode = iota
	// ModeAutomaticFull computes every cascade on every tick.
	ModeAutomaticFull
	// ModeAutomaticIncremental computes one cascade per tick.
	ModeAutomaticIncremental
)

func (m ComputationMode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeAutomaticFull:
		return "automatic-full"
	case ModeAutomaticIncremental:
		return "automatic-incremental"
	default:
		return fmt.Sprintf("ComputationMode(%d)", int(m))
	}
}

func ParseComputationMode(s string) (ComputationMode, error) {
	switch normalizeName(s) {
	case "manual":
		return ModeManual, nil
	case "automaticfull", "full":
		return ModeAutomaticFull, nil
	case "automaticincremental", "incremental":
		return ModeAutomaticIncremental, nil
	}
	return 0, fmt.Errorf("unknown computation mode %q", s)
}

// PrecisionMode chooses between 16 and 32 bit moment storage.
type PrecisionMode int

const (
	PrecisionHalf PrecisionMode = iota
	PrecisionFull
)

func (p PrecisionMode) String() string {
	if p == PrecisionFull {
		return "full"
	}
	return "half"
}

func ParsePrecisionMode(s string) (PrecisionMode, error) {
	switch normalizeName(s) {
	case "half":
		return PrecisionHalf, nil
	case "full":
		return PrecisionFull, nil
	}
	return 0, fmt.Errorf("unknown precision mode %q", s)
}

func ParseFilterMode(s string) (gfx.FilterMode, error) {
	switch normalizeName(s) {
	case "nearest", "point":
		return gfx.FilterNearest, nil
	case "bilinear", "linear":
		return gfx.FilterBilinear, nil
	}
	return 0, fmt.Errorf("unknown filter mode %q", s)
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// AllLayers is the culling mask that accepts every layer.
const AllLayers uint32 = 0xFFFFFFFF

// Settings are the live, externally editable options. They are read once
// per run through Snapshot.
type Settings struct {
	Mode              ComputationMode
	CameraFollowsMain bool

	Resolution            int
	NumCascades           int
	FirstCascadeLevelSize float32
	DepthOfShadowRange    float32
	Filter                gfx.FilterMode
	DitherTransparent     bool
	Precision             PrecisionMode

	// CullingMask selects caster layers, one bit per layer.
	CullingMask uint32
	// MaterialFilterTag is the material tag the depth shader's replacement
	// table is keyed by. Empty renders every caster, transparent ones too.
	MaterialFilterTag string
}

func DefaultSettings() Settings {
	return Settings{
		Mode:                  ModeAutomaticFull,
		CameraFollowsMain:     true,
		Resolution:            512,
		NumCascades:           6,
		FirstCascadeLevelSize: 8,
		DepthOfShadowRange:    1000,
		Filter:                gfx.FilterBilinear,
		DitherTransparent:     false,
		Precision:             PrecisionHalf,
		CullingMask:           AllLayers,
		MaterialFilterTag:     "RenderType",
	}
}

// Validate reports settings that could never produce an atlas.
func (s Settings) Validate() error {
	return s.Snapshot().Validate()
}

// ComputeData is the immutable snapshot a run works from. An incremental
// sequence keeps the snapshot it started with.
type ComputeData struct {
	NumCascades           int
	Resolution            int
	FirstCascadeLevelSize float32
	DepthOfShadowRange    float32
	Filter                gfx.FilterMode
	Precision             PrecisionMode
	DitherTransparent     bool
	CullingMask           uint32
	MaterialFilterTag     string
}

func (s Settings) Snapshot() ComputeData {
	return ComputeData{
		NumCascades:           s.NumCascades,
		Resolution:            s.Resolution,
		FirstCascadeLevelSize: s.FirstCascadeLevelSize,
		DepthOfShadowRange:    s.DepthOfShadowRange,
		Filter:                s.Filter,
		Precision:             s.Precision,
		DitherTransparent:     s.DitherTransparent,
		CullingMask:           s.CullingMask,
		MaterialFilterTag:     s.MaterialFilterTag,
	}
}

func (cd ComputeData) Validate() error {
	switch {
	case cd.NumCascades < 1:
		return fmt.Errorf("%w: numCascades %d < 1", ErrConfigInvalid, cd.NumCascades)
	case cd.Resolution < 1:
		return fmt.Errorf("%w: resolution %d < 1", ErrConfigInvalid, cd.Resolution)
	case !(cd.FirstCascadeLevelSize > 0):
		return fmt.Errorf("%w: firstCascadeLevelSize %g <= 0", ErrConfigInvalid, cd.FirstCascadeLevelSize)
	case !(cd.DepthOfShadowRange > 0):
		return fmt.Errorf("%w: depthOfShadowRange %g <= 0", ErrConfigInvalid, cd.DepthOfShadowRange)
	}
	return nil
}

// AtlasHeight is resolution times the cascade count.
func (cd ComputeData) AtlasHeight() int {
	return cd.Resolution * cd.NumCascades
}

func (cd ComputeData) InvNumCascades() float32 {
	return 1 / float32(cd.NumCascades)
}
