package vsm

import (
	"sync"

	"vsm-engine/gfx"
	"vsm-engine/math"
)

// Shader parameter names.
const (
	ParamShadowTex1        = "VSM_ShadowTex1"
	ParamShadowTex2        = "VSM_ShadowTex2"
	ParamPackedMoments     = "VSM_PackedMoments"
	ParamInvNumCascades    = "VSM_InvNumCascades"
	ParamLightMatrix       = "VSM_LightMatrix"
	ParamLightMatrixNormal = "VSM_LightMatrixNormal"

	// KeywordDrawTransparentShadows is enabled while dithered transparent
	// casters are requested.
	KeywordDrawTransparentShadows = "VSM_DRAW_TRANSPARENT_SHADOWS"
)

// Scope is a set of shader parameters and keywords shared by every
// consumer, safe for concurrent readers.
type Scope struct {
	mu       sync.RWMutex
	textures map[string]gfx.Texture
	floats   map[string]float32
	matrices map[string]math.Mat4
	keywords map[string]bool
	version  uint64
}

func NewScope() *Scope {
	return &Scope{
		textures: make(map[string]gfx.Texture),
		floats:   make(map[string]float32),
		matrices: make(map[string]math.Mat4),
		keywords: make(map[string]bool),
	}
}

var globalScope = NewScope()

// GlobalScope is the process-wide scope used when no sinks are given.
func GlobalScope() *Scope { return globalScope }

// Update runs fn with the write lock held. Readers see all of its writes
// or none of them.
func (s *Scope) Update(fn func(ParameterSink)) {
	s.update(fn, nil)
}

func (s *Scope) update(fn func(ParameterSink), keywords map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		fn(scopeWriter{s})
	}
	for name, on := range keywords {
		s.keywords[name] = on
	}
	s.version++
}

func (s *Scope) SetTexture(name string, tex gfx.Texture) {
	s.Update(func(w ParameterSink) { w.SetTexture(name, tex) })
}

func (s *Scope) SetFloat(name string, v float32) {
	s.Update(func(w ParameterSink) { w.SetFloat(name, v) })
}

func (s *Scope) SetMatrix(name string, m math.Mat4) {
	s.Update(func(w ParameterSink) { w.SetMatrix(name, m) })
}

func (s *Scope) Texture(name string) (gfx.Texture, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tex, ok := s.textures[name]
	return tex, ok
}

func (s *Scope) Float(name string) (float32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.floats[name]
	return v, ok
}

func (s *Scope) Matrix(name string) (math.Mat4, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matrices[name]
	return m, ok
}

func (s *Scope) Keyword(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keywords[name]
}

// Version increases with every update.
func (s *Scope) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// scopeWriter writes into a scope whose lock is already held.
type scopeWriter struct{ s *Scope }

func (w scopeWriter) SetTexture(name string, tex gfx.Texture) { w.s.textures[name] = tex }
func (w scopeWriter) SetFloat(name string, v float32)         { w.s.floats[name] = v }
func (w scopeWriter) SetMatrix(name string, m math.Mat4)      { w.s.matrices[name] = m }

// ComputeLightTransform derives the published matrices from the shadow
// camera's world-to-local transform. The light matrix maps a cascade-0
// frustum onto [-0.5, 0.5] in x and y and the depth range onto [-64, 64];
// the normal matrix scales by 1.2 texels for normal-offset bias.
func ComputeLightTransform(cd ComputeData, worldToLocal math.Mat4, aspect, scale float32) (light, normal math.Mat4) {
	sizeY := cd.FirstCascadeLevelSize * scale * 2
	sizeX := aspect * sizeY
	sizeZ := cd.DepthOfShadowRange * scale * 2

	light = worldToLocal.Mul(math.Mat4Scale(math.NewVec3(1/sizeX, 1/sizeY, 128/sizeZ)))

	s := 1.2 / float32(cd.Resolution)
	normal = worldToLocal.Mul(math.Mat4Scale(math.NewVec3(s, s, s)))
	return light, normal
}

// Publisher hands completed atlases and transforms to consumers, either
// the scope or an explicit list of sinks, never both in one call.
type Publisher struct {
	scope     *Scope
	publishes int
}

func NewPublisher(scope *Scope) *Publisher {
	if scope == nil {
		scope = GlobalScope()
	}
	return &Publisher{scope: scope}
}

func (p *Publisher) Scope() *Scope { return p.scope }

// Publish binds the atlas planes, cascade count and both matrices, and sets
// the dither keyword on the scope. Without sinks the keyword lands in the
// same scope update as the atlas.
func (p *Publisher) Publish(atlas *Atlas, invNumCascades float32, light, normal math.Mat4, dither bool, sinks []ParameterSink) {
	packed := float32(0)
	if atlas.Packed() {
		packed = 1
	}
	keywords := map[string]bool{KeywordDrawTransparentShadows: dither}
	p.emitWith(sinks, keywords, func(w ParameterSink) {
		w.SetTexture(ParamShadowTex1, atlas.Mean())
		w.SetTexture(ParamShadowTex2, atlas.SquaredMean())
		w.SetFloat(ParamPackedMoments, packed)
		w.SetFloat(ParamInvNumCascades, invNumCascades)
		w.SetMatrix(ParamLightMatrix, light)
		w.SetMatrix(ParamLightMatrixNormal, normal)
	})
	p.publishes++
	Logger().Info("vsm: published shadow atlas",
		"layout", atlas.Layout.String(), "height", atlas.Height(), "sinks", len(sinks))
}

// PublishTransform binds only the two matrices.
func (p *Publisher) PublishTransform(light, normal math.Mat4, sinks []ParameterSink) {
	p.emit(sinks, func(w ParameterSink) {
		w.SetMatrix(ParamLightMatrix, light)
		w.SetMatrix(ParamLightMatrixNormal, normal)
	})
}

// Publishes counts completed atlas publishes.
func (p *Publisher) Publishes() int { return p.publishes }

func (p *Publisher) emit(sinks []ParameterSink, write func(ParameterSink)) {
	p.emitWith(sinks, nil, write)
}

// emitWith writes to the sinks, or to the scope when there are none.
// Keywords are never per sink: they always go to the scope.
func (p *Publisher) emitWith(sinks []ParameterSink, keywords map[string]bool, write func(ParameterSink)) {
	if len(sinks) == 0 {
		p.scope.update(write, keywords)
		return
	}
	for _, sink := range sinks {
		write(sink)
	}
	if len(keywords) > 0 {
		p.scope.update(nil, keywords)
	}
}
