package vsm

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsm-engine/gfx"
	"vsm-engine/internal/softgpu"
	"vsm-engine/math"
)

func TestRunFullMatchesSteps(t *testing.T) {
	cases := []struct {
		name        string
		resolution  int
		cascades    int
		precision   PrecisionMode
		unsupported []gputypes.TextureFormat
	}{
		{"half packed", 8, 3, PrecisionHalf, nil},
		{"full packed", 16, 6, PrecisionFull, nil},
		{"half split", 8, 4, PrecisionHalf, []gputypes.TextureFormat{gputypes.TextureFormatRG16Float}},
		{"single cascade", 4, 1, PrecisionHalf, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := testSettings()
			s.Resolution = tc.resolution
			s.NumCascades = tc.cascades
			s.Precision = tc.precision

			full := newFixture(t, softgpu.New(softgpu.WithUnsupported(tc.unsupported...)), s)
			require.NoError(t, full.p.RunFull())

			incr := newFixture(t, softgpu.New(softgpu.WithUnsupported(tc.unsupported...)), s)
			for i := 0; i < tc.cascades; i++ {
				done, err := incr.p.Step()
				require.NoError(t, err)
				assert.Equal(t, i == tc.cascades-1, done, "step %d", i)
			}

			assert.Equal(t, atlasPixels(t, full.p.FrontAtlas()), atlasPixels(t, incr.p.FrontAtlas()))
		})
	}
}

func TestCascadesRunCoarseToFine(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	require.NoError(t, f.p.RunFull())
	assert.Equal(t, []int{2, 1, 0}, f.renderer.levels())

	for i := 0; i < 3; i++ {
		_, err := f.p.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, []int{2, 1, 0, 2, 1, 0}, f.renderer.levels())
}

func TestAtlasHeightInvariant(t *testing.T) {
	s := testSettings()
	f := newFixture(t, nil, s)
	require.NoError(t, f.p.RunFull())
	assert.Equal(t, s.Resolution*s.NumCascades, f.p.FrontAtlas().Height())

	s.Resolution = 4
	s.NumCascades = 5
	f.p.SetSettings(s)
	for {
		done, err := f.p.Step()
		require.NoError(t, err)
		if done {
			break
		}
	}
	assert.Equal(t, 20, f.p.FrontAtlas().Height())
	assert.Equal(t, 4, f.p.FrontAtlas().Width())
}

func TestResolutionChangeReallocatesOnce(t *testing.T) {
	s := testSettings()
	f := newFixture(t, nil, s)
	require.NoError(t, f.p.RunFull())
	first := f.dev.Created()

	s.Resolution = 16
	f.p.SetSettings(s)
	require.NoError(t, f.p.RunFull())

	assert.Equal(t, 1, f.p.Targets().Reallocations())
	assert.Equal(t, 2*first, f.dev.Created())
	assert.Equal(t, first, f.dev.Destroyed())
	assert.Equal(t, f.p.Targets().Allocations(), f.dev.Live())

	require.NoError(t, f.p.RunFull())
	assert.Equal(t, 1, f.p.Targets().Reallocations())

	f.p.Destroy()
	assert.Equal(t, 0, f.dev.Live())
}

func TestFilterChangeReallocates(t *testing.T) {
	s := testSettings()
	f := newFixture(t, nil, s)
	require.NoError(t, f.p.RunFull())

	s.Filter = gfx.FilterNearest
	f.p.SetSettings(s)
	require.NoError(t, f.p.RunFull())
	assert.Equal(t, 1, f.p.Targets().Reallocations())
	assert.Equal(t, s.Filter, f.p.FrontAtlas().Mean().Desc().Filter)
}

func TestOnTickGuard(t *testing.T) {
	s := testSettings()
	s.Mode = ModeAutomaticFull
	f := newFixture(t, nil, s)

	require.NoError(t, f.p.OnTick(7))
	require.NoError(t, f.p.OnTick(7))
	assert.Len(t, f.renderer.requests, s.NumCascades)
	assert.Equal(t, 1, f.p.Stats().Runs)

	require.NoError(t, f.p.OnTick(8))
	assert.Equal(t, 2, f.p.Stats().Runs)
}

func TestOnTickModes(t *testing.T) {
	s := testSettings()
	f := newFixture(t, nil, s)
	require.NoError(t, f.p.OnTick(1))
	assert.Empty(t, f.renderer.requests, "manual mode never computes on tick")

	s.Mode = ModeAutomaticIncremental
	f.p.SetSettings(s)
	for tick := uint64(2); tick < 5; tick++ {
		require.NoError(t, f.p.OnTick(tick))
		require.NoError(t, f.p.OnTick(tick))
	}
	assert.Equal(t, []int{2, 1, 0}, f.renderer.levels())
	assert.Equal(t, 1, f.p.Stats().Runs)
	assert.False(t, f.p.State().Running())
}

func TestRunFullDiscardsSequence(t *testing.T) {
	s := testSettings()
	s.NumCascades = 6
	f := newFixture(t, nil, s)

	for i := 0; i < 3; i++ {
		_, err := f.p.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, []int{2, 1, 0}, f.p.State().Remaining)

	require.NoError(t, f.p.RunFull())
	assert.False(t, f.p.State().Running())

	f.renderer.requests = nil
	_, err := f.p.Step()
	require.NoError(t, err)
	assert.Equal(t, []int{5}, f.renderer.levels())
	assert.Equal(t, []int{4, 3, 2, 1, 0}, f.p.State().Remaining)
}

func TestRestartBeginsAtCoarsestLevel(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	_, err := f.p.Step()
	require.NoError(t, err)
	_, err = f.p.Step()
	require.NoError(t, err)

	require.NoError(t, f.p.Restart())
	assert.Equal(t, []int{2, 1, 2}, f.renderer.levels())
	assert.Equal(t, []int{1, 0}, f.p.State().Remaining)
}

func TestStepsInvisibleUntilComplete(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	require.NoError(t, f.p.RunFull())
	before := atlasPixels(t, f.p.FrontAtlas())
	published, ok := f.scope.Texture(ParamShadowTex1)
	require.True(t, ok)
	version := f.scope.Version()

	f.renderer.offset = 3
	for i := 0; i < 2; i++ {
		done, err := f.p.Step()
		require.NoError(t, err)
		require.False(t, done)

		assert.Equal(t, before, atlasPixels(t, f.p.FrontAtlas()))
		tex, _ := f.scope.Texture(ParamShadowTex1)
		assert.Same(t, published, tex)
	}
	assert.Equal(t, version, f.scope.Version())

	done, err := f.p.Step()
	require.NoError(t, err)
	require.True(t, done)
	assert.NotEqual(t, before, atlasPixels(t, f.p.FrontAtlas()))
	tex, _ := f.scope.Texture(ParamShadowTex1)
	assert.Same(t, f.p.FrontAtlas().Mean(), tex)
	assert.NotSame(t, published, tex)
	assert.Equal(t, version+1, f.scope.Version())
}

func TestDitherKeywordWaitsForSwap(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	require.NoError(t, f.p.RunFull())
	require.False(t, f.scope.Keyword(KeywordDrawTransparentShadows))
	published, _ := f.scope.Texture(ParamShadowTex1)

	s := testSettings()
	s.DitherTransparent = true
	f.p.SetSettings(s)

	done, err := f.p.Step()
	require.NoError(t, err)
	require.False(t, done)
	assert.False(t, f.scope.Keyword(KeywordDrawTransparentShadows), "keyword stays with the published atlas")
	assert.True(t, f.renderer.requests[len(f.renderer.requests)-1].DitherTransparent, "capture already dithers")

	for !done {
		done, err = f.p.Step()
		require.NoError(t, err)
	}
	assert.True(t, f.scope.Keyword(KeywordDrawTransparentShadows))
	tex, _ := f.scope.Texture(ParamShadowTex1)
	assert.NotSame(t, published, tex)
}

func TestDebugTargets(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	require.NoError(t, f.p.RunFull())
	d := f.p.Debug()
	assert.NotNil(t, d.Capture)
	assert.NotNil(t, d.Front)
	assert.Nil(t, d.Render)

	_, err := f.p.Step()
	require.NoError(t, err)
	d = f.p.Debug()
	require.NotNil(t, d.Render)
	assert.NotSame(t, d.Front, d.Render)
}

func TestInvalidConfigLeavesStateUntouched(t *testing.T) {
	s := testSettings()
	f := newFixture(t, nil, s)
	_, err := f.p.Step()
	require.NoError(t, err)
	allocated := f.dev.Created()

	bad := s
	bad.NumCascades = 0
	f.p.SetSettings(bad)
	err = f.p.RunFull()
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Equal(t, []int{1, 0}, f.p.State().Remaining)
	assert.Equal(t, allocated, f.dev.Created())
	assert.False(t, f.p.Published())

	// The running sequence keeps its own snapshot.
	done, err := f.p.Step()
	require.NoError(t, err)
	assert.False(t, done)
	done, err = f.p.Step()
	require.NoError(t, err)
	assert.True(t, done)
}

func TestInvalidConfigAllocatesNothing(t *testing.T) {
	s := testSettings()
	s.Resolution = 0
	f := newFixture(t, nil, s)

	assert.ErrorIs(t, f.p.RunFull(), ErrConfigInvalid)
	_, err := f.p.Step()
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Equal(t, 0, f.dev.Created())
	assert.Nil(t, f.p.FrontAtlas())
	assert.Nil(t, f.p.Fatal())
}

func TestUnsupportedFormatIsFatal(t *testing.T) {
	dev := softgpu.New(softgpu.WithUnsupported(
		gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG32Float,
		gputypes.TextureFormatR32Float,
	))
	logs := captureLogs(t, slog.LevelError)
	f := newFixture(t, dev, testSettings())

	err := f.p.RunFull()
	require.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, f.p.Fatal(), ErrUnsupportedFormat)
	assert.Contains(t, logs.String(), "no moment texture format")

	_, err = f.p.Step()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, f.p.OnTick(1), ErrUnsupportedFormat)
	assert.Equal(t, 0, dev.Created())
	assert.Empty(t, f.renderer.requests)
}

func TestTransientFaultIsSwallowed(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	f.renderer.fail = map[int]error{1: fmt.Errorf("caret glitch: %w", ErrTransientRenderFault)}

	require.NoError(t, f.p.RunFull())
	assert.Equal(t, 1, f.p.Stats().Runs)
	assert.Equal(t, 3, f.p.Stats().Cascades)
	assert.True(t, f.p.Published())
}

func TestRenderErrorAbortsRun(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	lost := errors.New("device lost")
	f.renderer.fail = map[int]error{1: lost}

	_, err := f.p.Step()
	require.NoError(t, err)
	_, err = f.p.Step()
	assert.ErrorIs(t, err, lost)
	assert.False(t, f.p.State().Running())
	assert.Equal(t, 1, f.p.Stats().Aborted)
	assert.False(t, f.p.Published())
	assert.Nil(t, f.p.Fatal())

	// The next call starts over.
	f.renderer.fail = nil
	f.renderer.requests = nil
	_, err = f.p.Step()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, f.renderer.levels())
}

func TestDestroyIsIdempotent(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	_, err := f.p.Step()
	require.NoError(t, err)
	require.NotZero(t, f.dev.Live())

	f.p.Destroy()
	f.p.Destroy()
	assert.Equal(t, 0, f.dev.Live())
	assert.Equal(t, 0, f.p.Targets().Allocations())
	assert.False(t, f.p.State().Running())
	assert.Nil(t, f.p.FrontAtlas())

	require.NoError(t, f.p.RunFull())
	assert.NotNil(t, f.p.FrontAtlas())
}

func TestFrontAtlasHiddenUntilComplete(t *testing.T) {
	s := testSettings()
	f := newFixture(t, nil, s)

	_, err := f.p.Step()
	require.NoError(t, err)
	assert.Nil(t, f.p.FrontAtlas(), "allocated but never written")
	assert.NotNil(t, f.p.Debug().Front)

	for done := false; !done; {
		done, err = f.p.Step()
		require.NoError(t, err)
	}
	require.NotNil(t, f.p.FrontAtlas())

	s.Resolution = 4
	f.p.SetSettings(s)
	_, err = f.p.Step()
	require.NoError(t, err)
	assert.Nil(t, f.p.FrontAtlas(), "recreated targets hold no result yet")

	require.NoError(t, f.p.RunFull())
	require.NotNil(t, f.p.FrontAtlas())
	assert.Equal(t, 4, f.p.FrontAtlas().Width())
}

func TestCameraFollowsMain(t *testing.T) {
	s := testSettings()
	s.CameraFollowsMain = true
	f := newFixture(t, nil, s)

	rotation := math.QuaternionFromAxisAngle(math.Vec3Right, 1)
	f.poses.main.Position = math.NewVec3(4, 5, 6)
	f.poses.main.Rotation = math.QuaternionIdentity()
	f.poses.hasMain = true
	f.poses.light = rotation
	f.poses.hasLight = true

	require.NoError(t, f.p.RunFull())
	cam := f.p.Camera()
	assert.Equal(t, math.NewVec3(4, 5, 6), cam.Pose.Position)
	assert.Equal(t, rotation, cam.Pose.Rotation)
}

func TestPoseUnresolvedKeepsPose(t *testing.T) {
	s := testSettings()
	s.CameraFollowsMain = true
	logs := captureLogs(t, slog.LevelWarn)
	f := newFixture(t, nil, s)

	position := math.NewVec3(1, 2, 3)
	rotation := math.QuaternionFromAxisAngle(math.Vec3Up, 0.5)
	f.p.SetShadowCameraPosition(position, rotation, 1)

	f.poses.hasMain = true
	f.poses.main.Position = math.NewVec3(9, 9, 9)
	require.NoError(t, f.p.RunFull())

	assert.Equal(t, position, f.p.Camera().Pose.Position)
	assert.Equal(t, rotation, f.p.Camera().Pose.Rotation)
	assert.Contains(t, logs.String(), "no directional light")
	assert.Equal(t, 1, f.p.Stats().Runs)
}
