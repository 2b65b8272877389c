package vsm

import (
	"sync"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsm-engine/core"
	"vsm-engine/internal/softgpu"
	"vsm-engine/math"
)

var allParams = []string{
	ParamShadowTex1, ParamShadowTex2, ParamPackedMoments,
	ParamInvNumCascades, ParamLightMatrix, ParamLightMatrixNormal,
}

func TestComputeLightTransformRegression(t *testing.T) {
	cd := DefaultSettings().Snapshot()
	cd.FirstCascadeLevelSize = 8
	cd.DepthOfShadowRange = 1000

	light, normal := ComputeLightTransform(cd, math.Mat4Identity(), 1, 1)
	assert.Equal(t, float32(1.0/16), light[1][1])
	assert.Equal(t, float32(1.0/16), light[0][0])
	assert.InDelta(t, 0.064, light[2][2], 1e-7)
	assert.InDelta(t, 1.2/512, normal[0][0], 1e-9)
	assert.Equal(t, normal[0][0], normal[2][2])

	light, _ = ComputeLightTransform(cd, math.Mat4Identity(), 2, 0.5)
	assert.Equal(t, float32(1.0/16), light[0][0], "aspect and scale cancel on x")
	assert.Equal(t, float32(1.0/8), light[1][1])
	assert.InDelta(t, 0.128, light[2][2], 1e-7)
}

func TestComputeLightTransformUsesCameraPose(t *testing.T) {
	cd := DefaultSettings().Snapshot()
	pose := core.NewPose(
		math.NewVec3(10, 20, 30),
		math.QuaternionLookRotation(math.NewVec3(0, -1, 0), math.Vec3Up),
	)
	light, normal := ComputeLightTransform(cd, pose.WorldToLocal(), 1, 1)

	origin := light.MulPoint(pose.Position)
	assert.True(t, origin.ApproxEqual(math.Vec3Zero, 1e-4), "camera position maps to %v", origin)

	// A point 100 units below the camera lies along +Z in light space.
	below := light.MulPoint(math.NewVec3(10, -80, 30))
	assert.InDelta(t, 100*0.064, below.Z, 1e-3)
	assert.InDelta(t, 0, below.X, 1e-4)

	n := normal.MulPoint(math.NewVec3(10, 20, 31))
	assert.InDelta(t, 1.2/512, n.Length(), 1e-6)
}

func TestPublishGlobalScope(t *testing.T) {
	f := newFixture(t, nil, testSettings())
	require.NoError(t, f.p.RunFull())

	for _, name := range []string{ParamShadowTex1, ParamShadowTex2} {
		tex, ok := f.scope.Texture(name)
		require.True(t, ok, name)
		assert.Same(t, f.p.FrontAtlas().Mean(), tex, "packed atlas binds one plane to both")
	}
	inv, ok := f.scope.Float(ParamInvNumCascades)
	require.True(t, ok)
	assert.Equal(t, float32(1.0/3), inv)
	packed, _ := f.scope.Float(ParamPackedMoments)
	assert.Equal(t, float32(1), packed)
	_, ok = f.scope.Matrix(ParamLightMatrix)
	assert.True(t, ok)
	_, ok = f.scope.Matrix(ParamLightMatrixNormal)
	assert.True(t, ok)
}

func TestPublishSplitPlanes(t *testing.T) {
	dev := softgpu.New(softgpu.WithUnsupported(gputypes.TextureFormatRG16Float))
	f := newFixture(t, dev, testSettings())
	require.NoError(t, f.p.RunFull())

	tex1, _ := f.scope.Texture(ParamShadowTex1)
	tex2, _ := f.scope.Texture(ParamShadowTex2)
	assert.Same(t, f.p.FrontAtlas().Planes[0], tex1)
	assert.Same(t, f.p.FrontAtlas().Planes[1], tex2)
	packed, _ := f.scope.Float(ParamPackedMoments)
	assert.Equal(t, float32(0), packed)
}

func TestPublishToSinksOnly(t *testing.T) {
	a, b := newRecordingSink(), newRecordingSink()
	f := newFixture(t, nil, testSettings(), WithSinks(a, b))
	version := f.scope.Version()

	require.NoError(t, f.p.RunFull())
	for _, sink := range []*recordingSink{a, b} {
		assert.Len(t, sink.textures, 2)
		assert.Len(t, sink.floats, 2)
		assert.Len(t, sink.matrices, 2)
		assert.Same(t, f.p.FrontAtlas().Mean(), sink.textures[ParamShadowTex1])
	}
	for _, name := range allParams {
		_, texOK := f.scope.Texture(name)
		_, floatOK := f.scope.Float(name)
		_, matOK := f.scope.Matrix(name)
		assert.False(t, texOK || floatOK || matOK, "%s leaked into the scope", name)
	}
	// Keywords stay global.
	assert.Equal(t, version+1, f.scope.Version())

	f.p.SetSinks()
	require.NoError(t, f.p.RunFull())
	_, ok := f.scope.Texture(ParamShadowTex1)
	assert.True(t, ok)
}

func TestScopesAsMaterialSinks(t *testing.T) {
	terrain, water := NewScope(), NewScope()
	f := newFixture(t, nil, testSettings(), WithSinks(terrain, water))
	require.NoError(t, f.p.RunFull())

	for _, material := range []*Scope{terrain, water} {
		tex, ok := material.Texture(ParamShadowTex1)
		require.True(t, ok)
		assert.Same(t, f.p.FrontAtlas().Mean(), tex)
		inv, _ := material.Float(ParamInvNumCascades)
		assert.Equal(t, float32(1.0/3), inv)
		_, ok = material.Matrix(ParamLightMatrix)
		assert.True(t, ok)
		assert.False(t, material.Keyword(KeywordDrawTransparentShadows))
	}
	_, ok := f.scope.Texture(ParamShadowTex1)
	assert.False(t, ok)
}

func TestSetShadowCameraPositionPublishesTransform(t *testing.T) {
	sink := newRecordingSink()
	f := newFixture(t, nil, testSettings(), WithSinks(sink))

	position := math.NewVec3(0, 50, 0)
	rotation := math.QuaternionLookRotation(math.NewVec3(0, -1, 0), math.Vec3Up)
	f.p.SetShadowCameraPosition(position, rotation, 2)

	assert.Len(t, sink.matrices, 2)
	assert.Empty(t, sink.textures)
	light := sink.matrices[ParamLightMatrix]
	assert.InDelta(t, 1.0/32, light.MulPoint(math.NewVec3(1, 50, 0)).X, 1e-6)
	assert.Equal(t, float32(2), f.p.camera.Scale())
	assert.False(t, f.p.Published())
}

func TestDitherKeyword(t *testing.T) {
	s := testSettings()
	s.DitherTransparent = true
	f := newFixture(t, nil, s)
	require.NoError(t, f.p.RunFull())
	assert.True(t, f.scope.Keyword(KeywordDrawTransparentShadows))

	s.DitherTransparent = false
	f.p.SetSettings(s)
	require.NoError(t, f.p.RunFull())
	assert.False(t, f.scope.Keyword(KeywordDrawTransparentShadows))
}

func TestScopeUpdateIsAtomic(t *testing.T) {
	scope := NewScope()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := float32(i)
			scope.Update(func(w ParameterSink) {
				w.SetFloat("a", v)
				w.SetFloat("b", v)
			})
		}
	}()

	for i := 0; i < 1000; i++ {
		scope.mu.RLock()
		a, b := scope.floats["a"], scope.floats["b"]
		scope.mu.RUnlock()
		require.Equal(t, a, b)
	}
	close(stop)
	wg.Wait()
}
