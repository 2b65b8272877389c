// Package vsm computes cascaded variance shadow maps for one directional
// light.
//
// Each cascade is a depth capture from an orthographic camera whose extent
// doubles per level. The capture is blurred into (mean depth, mean depth²)
// and written into its band of a vertically packed atlas. A run computes
// every cascade at once, or one cascade per call with a double-buffered
// atlas so consumers only ever see complete results.
//
// The pipeline is single-threaded: every call does its work synchronously
// and nothing runs in the background.
package vsm

import (
	"vsm-engine/gfx"
	"vsm-engine/math"
)

// Pipeline wires the target manager, shadow camera, compositor, scheduler
// and publisher together. It is not safe for concurrent use.
type Pipeline struct {
	*Scheduler
}

type options struct {
	settings Settings
	shader   DepthShader
	scope    *Scope
	sinks    []ParameterSink
}

type Option func(*options)

func WithSettings(s Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithDepthShader replaces DefaultDepthShader.
func WithDepthShader(shader DepthShader) Option {
	return func(o *options) { o.shader = shader }
}

// WithScope publishes into scope instead of GlobalScope.
func WithScope(scope *Scope) Option {
	return func(o *options) { o.scope = scope }
}

// WithSinks publishes to the given sinks instead of the scope.
func WithSinks(sinks ...ParameterSink) Option {
	return func(o *options) { o.sinks = sinks }
}

// New creates an idle pipeline. Nothing is allocated until the first run.
func New(dev gfx.Device, renderer DepthRenderer, poses PoseSource, opts ...Option) *Pipeline {
	o := options{
		settings: DefaultSettings(),
		shader:   DefaultDepthShader,
	}
	for _, opt := range opts {
		opt(&o)
	}

	camera := NewCameraController(dev, renderer, o.shader)
	targets := NewTargetManager(dev, camera)
	return &Pipeline{
		Scheduler: &Scheduler{
			settings:   o.settings,
			poses:      poses,
			sinks:      o.sinks,
			targets:    targets,
			camera:     camera,
			compositor: NewCompositor(dev, targets),
			publisher:  NewPublisher(o.scope),
		},
	}
}

func (p *Pipeline) Settings() Settings { return p.settings }

// SetSettings replaces the live settings. A running incremental sequence
// finishes with the snapshot it started with.
func (p *Pipeline) SetSettings(s Settings) {
	p.settings = s
}

// SetSinks selects per-sink publishing; no sinks means the scope.
func (p *Pipeline) SetSinks(sinks ...ParameterSink) {
	p.sinks = sinks
}

// SetShadowCameraPosition places the shadow camera manually and republishes
// the light matrices for it. Use it with CameraFollowsMain disabled.
func (p *Pipeline) SetShadowCameraPosition(position math.Vec3, rotation math.Quaternion, scale float32) {
	p.camera.SetPose(position, rotation, scale)
	cd := p.settings.Snapshot()
	if err := cd.Validate(); err != nil {
		Logger().Debug("vsm: light matrices not republished", "err", err)
		return
	}
	light, normal := p.lightTransform(cd)
	p.publisher.PublishTransform(light, normal, p.sinks)
}

// Camera returns the shadow camera.
func (p *Pipeline) Camera() *ShadowCamera { return p.camera.Camera() }

// FrontAtlas is the last completed atlas. It is nil until a run completes,
// and again after the targets were released or recreated.
func (p *Pipeline) FrontAtlas() *Atlas {
	if front := p.targets.Front(); front != nil && front == p.completed {
		return front
	}
	return nil
}

// Published reports whether at least one atlas was published.
func (p *Pipeline) Published() bool { return p.publisher.Publishes() > 0 }

func (p *Pipeline) Scope() *Scope { return p.publisher.Scope() }

func (p *Pipeline) Targets() *TargetManager { return p.targets }

// Destroy releases every texture and the camera and abandons a running
// sequence. Calling it again does nothing; a later run allocates afresh.
func (p *Pipeline) Destroy() {
	p.discard()
	if n := p.targets.Allocations(); n > 0 {
		Logger().Info("vsm: releasing shadow targets", "textures", n)
	}
	p.targets.DestroyAll()
	p.completed = nil
}
