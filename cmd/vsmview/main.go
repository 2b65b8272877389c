// Command vsmview renders the cascaded variance shadow atlas of a scene
// live with OpenGL and reloads the settings file whenever it changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"vsm-engine/config"
	"vsm-engine/internal/opengl"
	"vsm-engine/scene"
	"vsm-engine/vsm"
)

// previewRange is the largest |mean| the depth shader produces.
const previewRange = 64

var modes = []vsm.ComputationMode{vsm.ModeAutomaticFull, vsm.ModeAutomaticIncremental, vsm.ModeManual}

func main() {
	configPath := flag.String("config", "", "settings file (.toml, .yaml); watched for changes")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	vsm.SetLogger(logger)
	config.SetLogger(logger)
	scene.SetLogger(logger)

	if err := run(*configPath); err != nil {
		logger.Error("vsmview failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	file := config.Default()
	baseDir := "."
	if configPath != "" {
		var err error
		if file, err = config.Load(configPath); err != nil {
			return err
		}
		baseDir = filepath.Dir(configPath)
	}
	settings, err := file.Settings()
	if err != nil {
		return err
	}
	s, orbit, err := file.Scene.Build(baseDir)
	if err != nil {
		return fmt.Errorf("failed to build scene: %w", err)
	}

	window, err := NewWindow(DefaultWindowConfig())
	if err != nil {
		return err
	}
	defer window.Destroy()

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}
	defer dev.Destroy()
	slog.Info("OpenGL context ready", "version", opengl.Version())

	casters, err := opengl.NewCasterRenderer(s)
	if err != nil {
		return err
	}
	defer casters.Destroy()

	pipeline := vsm.New(dev, casters, s, vsm.WithSettings(settings))
	defer pipeline.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var updates <-chan config.Update
	if configPath != "" {
		if updates, err = config.Watch(ctx, configPath); err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		}
	}

	window.SetScrollCallback(func(_, yoff float64) {
		orbit.Zoom(float32(-yoff))
	})

	sun := NewSunCycle()
	keys := newKeyState(window)
	lastTime := glfw.GetTime()
	var tick uint64

	for !window.ShouldClose() {
		window.PollEvents()
		now := glfw.GetTime()
		dt := float32(now - lastTime)
		lastTime = now
		tick++

		if window.IsKeyPressed(glfw.KeyEscape) {
			break
		}
		select {
		case u, ok := <-updates:
			if ok {
				applyUpdate(pipeline, u)
			}
		default:
		}
		handleInput(window, keys, pipeline, orbit, sun, dt)

		sun.Update(dt)
		sun.Apply(s.DominantLight())

		if err := pipeline.OnTick(tick); err != nil {
			if errors.Is(err, vsm.ErrUnsupportedFormat) {
				return err
			}
			slog.Warn("shadow update failed", "err", err)
		}

		width, height := window.GetFramebufferSize()
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.08, 0.08, 0.1, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		if atlas := pipeline.FrontAtlas(); atlas != nil && pipeline.Published() {
			// keep each cascade band square
			h := height
			w := h * atlas.Width() / atlas.Height()
			if err := dev.DrawPreview(atlas.Mean(), (width-w)/2, 0, w, h, previewRange); err != nil {
				slog.Warn("preview failed", "err", err)
			}
		}
		window.SwapBuffers()

		if tick%30 == 0 {
			st := pipeline.Stats()
			window.SetTitle(fmt.Sprintf("VSM Viewer | %s | sun %s | %s | runs %d",
				pipeline.Settings().Mode, sun.TimeOfDayStr(), pipeline.State(), st.Runs))
		}
	}
	return nil
}

func applyUpdate(p *vsm.Pipeline, u config.Update) {
	if u.Err != nil {
		slog.Warn("config reload rejected", "err", u.Err)
		return
	}
	settings, err := u.File.Settings()
	if err != nil {
		slog.Warn("config reload rejected", "err", err)
		return
	}
	p.SetSettings(settings)
	slog.Info("config reloaded", "mode", settings.Mode, "resolution", settings.Resolution,
		"cascades", settings.NumCascades)
}

// keyState debounces key toggles to one action per press.
type keyState struct {
	window *Window
	down   map[glfw.Key]bool
}

func newKeyState(w *Window) *keyState {
	return &keyState{window: w, down: make(map[glfw.Key]bool)}
}

func (k *keyState) pressed(key glfw.Key) bool {
	now := k.window.IsKeyPressed(key)
	was := k.down[key]
	k.down[key] = now
	return now && !was
}

func handleInput(w *Window, keys *keyState, p *vsm.Pipeline, orbit *scene.OrbitCamera, sun *SunCycle, dt float32) {
	const orbitSpeed = 1.5
	if w.IsKeyPressed(glfw.KeyLeft) {
		orbit.Orbit(-orbitSpeed*dt, 0)
	}
	if w.IsKeyPressed(glfw.KeyRight) {
		orbit.Orbit(orbitSpeed*dt, 0)
	}
	if w.IsKeyPressed(glfw.KeyUp) {
		orbit.Orbit(0, orbitSpeed*dt)
	}
	if w.IsKeyPressed(glfw.KeyDown) {
		orbit.Orbit(0, -orbitSpeed*dt)
	}

	if keys.pressed(glfw.KeySpace) {
		sun.Active = !sun.Active
		slog.Info("sun cycle toggled", "active", sun.Active)
	}
	if keys.pressed(glfw.KeyM) {
		settings := p.Settings()
		for i, m := range modes {
			if m == settings.Mode {
				settings.Mode = modes[(i+1)%len(modes)]
				break
			}
		}
		p.SetSettings(settings)
		slog.Info("computation mode", "mode", settings.Mode)
	}
	if keys.pressed(glfw.KeyP) {
		settings := p.Settings()
		if settings.Precision == vsm.PrecisionFull {
			settings.Precision = vsm.PrecisionHalf
		} else {
			settings.Precision = vsm.PrecisionFull
		}
		p.SetSettings(settings)
		slog.Info("precision", "mode", settings.Precision)
	}
	// manual mode: R restarts a sequence, N steps it, F runs it in full
	if keys.pressed(glfw.KeyR) {
		logStep(p.Restart())
	}
	if keys.pressed(glfw.KeyN) {
		_, err := p.Step()
		logStep(err)
	}
	if keys.pressed(glfw.KeyF) {
		logStep(p.RunFull())
	}
	if keys.pressed(glfw.KeyEqual) {
		orbit.Zoom(-2)
	}
	if keys.pressed(glfw.KeyMinus) {
		orbit.Zoom(2)
	}
}

func logStep(err error) {
	if err != nil {
		slog.Warn("shadow step failed", "err", err)
	}
}
