// Package softraster draws scene casters into softgpu capture targets. It
// is the depth renderer used by headless runs and tests.
package softraster

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"vsm-engine/internal/softgpu"
	"vsm-engine/math"
	"vsm-engine/scene"
	"vsm-engine/vsm"
)

var errNoScene = errors.New("softraster: no scene attached")

// clipBox is the orthographic view volume in clip space.
var clipBox = scene.AABB{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)}

// Stats counts work done by the last RenderDepth call.
type Stats struct {
	Casters   int
	Culled    int
	Triangles int
}

// Renderer rasterises the casters of Scene. Casters tagged with DitherTag
// are drawn in a checkerboard when a request asks for dithered transparent
// shadows.
type Renderer struct {
	Scene     *scene.Scene
	DitherTag string

	last Stats
}

func New(s *scene.Scene) *Renderer {
	return &Renderer{Scene: s, DitherTag: "TransparentCutout"}
}

func (r *Renderer) LastStats() Stats { return r.last }

type vertex struct {
	x, y float32 // pixels, row 0 at the bottom
	z    float32 // clip depth
	d    float32 // scaled light-space depth
}

// RenderDepth implements vsm.DepthRenderer.
func (r *Renderer) RenderDepth(req vsm.CaptureRequest) error {
	r.last = Stats{}
	if r.Scene == nil {
		return fmt.Errorf("%w: %w", vsm.ErrTransientRenderFault, errNoScene)
	}
	target, ok := req.Target.(*softgpu.Texture)
	if !ok {
		return fmt.Errorf("softraster: target %T is not a softgpu texture", req.Target)
	}

	cam := req.Camera
	view := cam.View()
	vp := cam.ViewProjection()
	w, h := float32(target.Width()), float32(target.Height())

	for _, c := range r.Scene.Casters() {
		if !req.Accepts(c.Layer, c.Tags) {
			continue
		}
		if !c.Bounds.Transform(vp).Overlaps(clipBox) {
			r.last.Culled++
			continue
		}
		r.last.Casters++
		dither := req.DitherTransparent && r.DitherTag != "" && c.Tags[req.ReplacementTag] == r.DitherTag

		verts := make([]vertex, len(c.Positions))
		for i, p := range c.Positions {
			clip := vp.MulPoint(p)
			verts[i] = vertex{
				x: (clip.X*0.5 + 0.5) * w,
				y: (clip.Y*0.5 + 0.5) * h,
				z: clip.Z,
				d: view.MulPoint(p).Z * req.DepthScale,
			}
		}
		for i := 0; i+2 < len(c.Indices); i += 3 {
			a, b, cc := c.Indices[i], c.Indices[i+1], c.Indices[i+2]
			if int(a) >= len(verts) || int(b) >= len(verts) || int(cc) >= len(verts) {
				return fmt.Errorf("softraster: caster %q index out of range", c.Name)
			}
			if drawTriangle(target, verts[a], verts[b], verts[cc], dither) {
				r.last.Triangles++
			}
		}
	}
	return nil
}

func edge(a, b vertex, x, y float32) float32 {
	return (b.x-a.x)*(y-a.y) - (b.y-a.y)*(x-a.x)
}

// drawTriangle fills the pixels whose centres lie inside the triangle,
// keeping the nearest depth. Both windings are drawn. It reports whether
// the triangle was non-degenerate.
func drawTriangle(t *softgpu.Texture, a, b, c vertex, dither bool) bool {
	area := edge(a, b, c.x, c.y)
	if area == 0 {
		return false
	}
	sign := float32(1)
	if area < 0 {
		sign, area = -1, -area
	}

	minX := max(0, int(math32.Floor(min(a.x, b.x, c.x))))
	maxX := min(t.Width()-1, int(math32.Ceil(max(a.x, b.x, c.x))))
	minY := max(0, int(math32.Floor(min(a.y, b.y, c.y))))
	maxY := min(t.Height()-1, int(math32.Ceil(max(a.y, b.y, c.y))))

	for py := minY; py <= maxY; py++ {
		cy := float32(py) + 0.5
		for px := minX; px <= maxX; px++ {
			if dither && (px+py)%2 == 1 {
				continue
			}
			cx := float32(px) + 0.5
			w0 := sign * edge(b, c, cx, cy)
			w1 := sign * edge(c, a, cx, cy)
			w2 := sign * edge(a, b, cx, cy)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			l0, l1, l2 := w0/area, w1/area, w2/area
			z := l0*a.z + l1*b.z + l2*c.z
			if z < -1 || z > 1 {
				continue
			}
			d := l0*a.d + l1*b.d + l2*c.d
			if !t.DepthTest(px, py, d) {
				continue
			}
			t.Set(px, py, [4]float32{d, d * d, 1, 0})
		}
	}
	return true
}
