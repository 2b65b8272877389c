package vsm

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"vsm-engine/core"
	"vsm-engine/gfx"
	"vsm-engine/internal/softgpu"
	"vsm-engine/math"
)

// stubRenderer draws a deterministic depth pattern that depends on the
// camera and the cascade level.
type stubRenderer struct {
	requests []CaptureRequest
	fail     map[int]error
	offset   float32
}

func (r *stubRenderer) RenderDepth(req CaptureRequest) error {
	r.requests = append(r.requests, req)
	if err := r.fail[req.Level]; err != nil {
		return err
	}
	tex := req.Target.(*softgpu.Texture)
	for y := 0; y < tex.Height(); y++ {
		for x := 0; x < tex.Width(); x++ {
			if (x+y+req.Level)%3 == 0 {
				continue
			}
			z := req.Camera.Pose.Position.X + float32(x) - 0.5*float32(y) + r.offset
			d := z * req.DepthScale / req.Camera.OrthoSize
			tex.Set(x, y, [4]float32{d, d * d, 1, 0})
		}
	}
	return nil
}

func (r *stubRenderer) levels() []int {
	out := make([]int, len(r.requests))
	for i, req := range r.requests {
		out[i] = req.Level
	}
	return out
}

type stubPoses struct {
	main     core.Pose
	hasMain  bool
	light    math.Quaternion
	hasLight bool
}

func (p *stubPoses) MainCameraPose() (core.Pose, bool)             { return p.main, p.hasMain }
func (p *stubPoses) PrimaryLightRotation() (math.Quaternion, bool) { return p.light, p.hasLight }

type recordingSink struct {
	textures map[string]gfx.Texture
	floats   map[string]float32
	matrices map[string]math.Mat4
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		textures: make(map[string]gfx.Texture),
		floats:   make(map[string]float32),
		matrices: make(map[string]math.Mat4),
	}
}

func (s *recordingSink) SetTexture(name string, tex gfx.Texture) { s.textures[name] = tex }
func (s *recordingSink) SetFloat(name string, v float32)         { s.floats[name] = v }
func (s *recordingSink) SetMatrix(name string, m math.Mat4)      { s.matrices[name] = m }

func testSettings() Settings {
	s := DefaultSettings()
	s.Mode = ModeManual
	s.CameraFollowsMain = false
	s.Resolution = 8
	s.NumCascades = 3
	return s
}

type fixture struct {
	dev      *softgpu.Device
	renderer *stubRenderer
	poses    *stubPoses
	scope    *Scope
	p        *Pipeline
}

func newFixture(t *testing.T, dev *softgpu.Device, s Settings, opts ...Option) *fixture {
	t.Helper()
	if dev == nil {
		dev = softgpu.New()
	}
	f := &fixture{
		dev:      dev,
		renderer: &stubRenderer{},
		poses:    &stubPoses{},
		scope:    NewScope(),
	}
	opts = append([]Option{WithSettings(s), WithScope(f.scope)}, opts...)
	f.p = New(dev, f.renderer, f.poses, opts...)
	t.Cleanup(f.p.Destroy)
	return f
}

// atlasPixels copies every plane of the front atlas.
func atlasPixels(t *testing.T, a *Atlas) [][]float32 {
	t.Helper()
	require.NotNil(t, a)
	out := make([][]float32, len(a.Planes))
	for i, p := range a.Planes {
		out[i] = p.(*softgpu.Texture).Pixels()
	}
	return out
}

// captureLogs routes the package logger into a buffer for the test.
func captureLogs(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := Logger()
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { SetLogger(orig) })
	return &buf
}
