package vsm

import (
	"errors"
	"fmt"
	"strings"

	"vsm-engine/gfx"
	"vsm-engine/math"
)

// State is Idle when Remaining is empty, otherwise Running with the cascade
// levels still to compute, highest first.
type State struct {
	Remaining []int
}

func (s State) Running() bool { return len(s.Remaining) > 0 }

func (s State) String() string {
	if !s.Running() {
		return "Idle"
	}
	levels := make([]string, len(s.Remaining))
	for i, l := range s.Remaining {
		levels[i] = fmt.Sprint(l)
	}
	return "Running{" + strings.Join(levels, ",") + "}"
}

// Stats counts scheduler work.
type Stats struct {
	Runs     int // completed runs, each ending in a publish
	Cascades int // cascades captured and composited
	Aborted  int // runs abandoned after an error
}

// DebugTargets exposes the textures for inspection. Render is nil unless
// an incremental sequence renders into an atlas distinct from Front.
type DebugTargets struct {
	Capture gfx.Texture
	Front   *Atlas
	Render  *Atlas
}

// Scheduler runs cascades either all at once or one per call, and publishes
// once the finest cascade is done.
type Scheduler struct {
	settings Settings
	poses    PoseSource
	sinks    []ParameterSink

	targets    *TargetManager
	camera     *CameraController
	compositor *Compositor
	publisher  *Publisher

	state State
	seq   ComputeData
	fatal error

	// completed is the atlas the last run swapped in; a front atlas that
	// differs from it was never written.
	completed *Atlas

	lastTick uint64
	ticked   bool

	stats Stats
}

// RunFull computes every cascade from the coarsest to the finest, then
// swaps and publishes. A running incremental sequence is discarded once the
// targets are known to be usable.
func (s *Scheduler) RunFull() error {
	if s.fatal != nil {
		return s.fatal
	}
	cd := s.settings.Snapshot()
	if err := s.prepare(cd, false); err != nil {
		return err
	}
	s.discard()
	s.begin()

	for level := cd.NumCascades - 1; level >= 0; level-- {
		if err := s.computeCascade(level, cd, false); err != nil {
			return s.abort(err)
		}
	}
	return s.complete(cd, false)
}

// Step computes the next cascade of the incremental sequence, starting a
// new sequence when idle. It returns true when the call finished the
// sequence and published its atlas. Earlier calls only touch the spare
// atlas.
func (s *Scheduler) Step() (bool, error) {
	if s.fatal != nil {
		return false, s.fatal
	}
	if !s.state.Running() {
		cd := s.settings.Snapshot()
		if err := s.prepare(cd, true); err != nil {
			return false, err
		}
		s.seq = cd
		s.state.Remaining = make([]int, 0, cd.NumCascades)
		for level := cd.NumCascades - 1; level >= 0; level-- {
			s.state.Remaining = append(s.state.Remaining, level)
		}
		s.begin()
		Logger().Debug("vsm: incremental sequence started", "cascades", cd.NumCascades)
	}

	level := s.state.Remaining[0]
	if err := s.computeCascade(level, s.seq, true); err != nil {
		return false, s.abort(err)
	}
	s.state.Remaining = s.state.Remaining[1:]
	if s.state.Running() {
		return false, nil
	}
	if err := s.complete(s.seq, true); err != nil {
		return false, err
	}
	return true, nil
}

// Restart discards a running sequence and computes the first cascade of a
// new one.
func (s *Scheduler) Restart() error {
	s.discard()
	_, err := s.Step()
	return err
}

// OnTick advances the pipeline according to the computation mode, at most
// once per tick id.
func (s *Scheduler) OnTick(tick uint64) error {
	if s.fatal != nil {
		return s.fatal
	}
	if s.ticked && tick == s.lastTick {
		return nil
	}
	s.ticked = true
	s.lastTick = tick

	switch s.settings.Mode {
	case ModeAutomaticFull:
		return s.RunFull()
	case ModeAutomaticIncremental:
		_, err := s.Step()
		return err
	}
	return nil
}

// State returns a copy of the current state.
func (s *Scheduler) State() State {
	return State{Remaining: append([]int(nil), s.state.Remaining...)}
}

// Fatal returns the unrecoverable error that stopped the pipeline, if any.
func (s *Scheduler) Fatal() error { return s.fatal }

func (s *Scheduler) Stats() Stats { return s.stats }

func (s *Scheduler) Debug() DebugTargets {
	d := DebugTargets{
		Capture: s.targets.Capture(),
		Front:   s.targets.Front(),
	}
	if s.state.Running() {
		if render := s.targets.RenderAtlas(true); render != d.Front {
			d.Render = render
		}
	}
	return d
}

// prepare validates cd and ensures the targets. It never changes the state.
func (s *Scheduler) prepare(cd ComputeData, incremental bool) error {
	if err := cd.Validate(); err != nil {
		Logger().Debug("vsm: run skipped", "err", err)
		return err
	}
	ok, err := s.targets.EnsureTargets(cd, incremental)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			s.fatal = err
		}
		return err
	}
	if !ok {
		return fmt.Errorf("%w: no targets for %dx%d", ErrConfigInvalid, cd.Resolution, cd.AtlasHeight())
	}
	return nil
}

func (s *Scheduler) begin() {
	if s.settings.CameraFollowsMain {
		// Unresolved poses are logged and leave the camera where it was.
		_ = s.camera.PositionForFrame(s.poses)
	}
}

func (s *Scheduler) computeCascade(level int, cd ComputeData, incremental bool) error {
	capture := s.targets.Capture()
	if err := s.camera.RenderCascade(level, cd, capture); err != nil {
		return err
	}
	intermediate, err := s.compositor.Blur(capture)
	if err != nil {
		return err
	}
	if err := s.compositor.Composite(intermediate, s.targets.RenderAtlas(incremental), level, cd.NumCascades); err != nil {
		return err
	}
	s.stats.Cascades++
	Logger().Debug("vsm: cascade computed", "level", level, "incremental", incremental)
	return nil
}

func (s *Scheduler) complete(cd ComputeData, incremental bool) error {
	render := s.targets.RenderAtlas(incremental)
	if err := s.compositor.Finalize(render); err != nil {
		return s.abort(err)
	}
	s.targets.Swap(render)
	s.completed = s.targets.Front()
	s.state = State{}

	light, normal := s.lightTransform(cd)
	s.publisher.Publish(s.targets.Front(), cd.InvNumCascades(), light, normal, cd.DitherTransparent, s.sinks)
	s.stats.Runs++
	return nil
}

func (s *Scheduler) lightTransform(cd ComputeData) (math.Mat4, math.Mat4) {
	cam := s.camera.Camera()
	return ComputeLightTransform(cd, cam.View(), cam.Aspect, s.camera.Scale())
}

func (s *Scheduler) abort(err error) error {
	if errors.Is(err, ErrUnsupportedFormat) {
		s.fatal = err
	}
	Logger().Warn("vsm: shadow run aborted", "state", s.state.String(), "err", err)
	s.state = State{}
	s.stats.Aborted++
	return err
}

func (s *Scheduler) discard() {
	if s.state.Running() {
		Logger().Debug("vsm: discarding incremental sequence", "state", s.state.String())
	}
	s.state = State{}
}
