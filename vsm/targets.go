package vsm

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"vsm-engine/gfx"
)

// AtlasLayout is how moments are stored: one two-channel plane (packed) or
// a pair of one-channel planes for hardware without two-channel float
// targets.
type AtlasLayout struct {
	Format gputypes.TextureFormat
	Planes int
}

func (l AtlasLayout) Packed() bool { return l.Planes == 1 }

func (l AtlasLayout) String() string {
	if l.Packed() {
		return l.Format.String() + " packed"
	}
	return l.Format.String() + " split"
}

// Formats is the outcome of format negotiation.
type Formats struct {
	Atlas   AtlasLayout
	Capture gputypes.TextureFormat
}

var (
	halfAtlasTiers = []AtlasLayout{
		{Format: gputypes.TextureFormatRG16Float, Planes: 1},
		{Format: gputypes.TextureFormatR16Float, Planes: 2},
		{Format: gputypes.TextureFormatRG32Float, Planes: 1},
		{Format: gputypes.TextureFormatR32Float, Planes: 2},
	}
	fullAtlasTiers = []AtlasLayout{
		{Format: gputypes.TextureFormatRG32Float, Planes: 1},
		{Format: gputypes.TextureFormatR32Float, Planes: 2},
		{Format: gputypes.TextureFormatRG16Float, Planes: 1},
		{Format: gputypes.TextureFormatR16Float, Planes: 2},
	}
	halfCaptureTiers = []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatRGBA32Float,
	}
	fullCaptureTiers = []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA32Float,
		gputypes.TextureFormatRGBA16Float,
	}
)

// NegotiateFormats picks the first supported atlas layout and capture
// format in preference order for precision. It fails with
// ErrUnsupportedFormat rather than fall back to an unsupported format.
func NegotiateFormats(dev gfx.Device, precision PrecisionMode) (Formats, error) {
	atlasTiers, captureTiers := halfAtlasTiers, halfCaptureTiers
	if precision == PrecisionFull {
		atlasTiers, captureTiers = fullAtlasTiers, fullCaptureTiers
	}

	var f Formats
	found := false
	for i, tier := range atlasTiers {
		if !dev.SupportsFormat(tier.Format) {
			continue
		}
		if i > 0 {
			Logger().Warn("vsm: moment format fallback",
				"precision", precision, "preferred", atlasTiers[0].String(), "using", tier.String())
		}
		f.Atlas = tier
		found = true
		break
	}
	if !found {
		Logger().Error("vsm: no moment texture format", "precision", precision)
		return Formats{}, fmt.Errorf("%w: moments (%s precision)", ErrUnsupportedFormat, precision)
	}

	found = false
	for i, format := range captureTiers {
		if !dev.SupportsFormat(format) {
			continue
		}
		if i > 0 {
			Logger().Warn("vsm: capture format fallback",
				"precision", precision, "preferred", captureTiers[0], "using", format)
		}
		f.Capture = format
		found = true
		break
	}
	if !found {
		Logger().Error("vsm: no capture texture format", "precision", precision)
		return Formats{}, fmt.Errorf("%w: capture (%s precision)", ErrUnsupportedFormat, precision)
	}
	return f, nil
}

// Atlas is a cascade atlas: Resolution wide, Resolution*NumCascades tall,
// cascade level i in the band [i/n, (i+1)/n] from the bottom.
type Atlas struct {
	Layout AtlasLayout
	Planes []gfx.Texture
}

func (a *Atlas) Packed() bool { return a.Layout.Packed() }

func (a *Atlas) Width() int  { return a.Planes[0].Desc().Width }
func (a *Atlas) Height() int { return a.Planes[0].Desc().Height }

// Mean is the plane holding the mean depth.
func (a *Atlas) Mean() gfx.Texture { return a.Planes[0] }

// SquaredMean is the plane holding the mean squared depth; the same plane
// as Mean when packed.
func (a *Atlas) SquaredMean() gfx.Texture { return a.Planes[len(a.Planes)-1] }

// TargetManager owns every texture of the pipeline: the capture target,
// the front and spare atlases and pooled blur intermediates.
type TargetManager struct {
	dev    gfx.Device
	camera *CameraController

	formats map[PrecisionMode]Formats

	capture gfx.Texture
	front   *Atlas
	spare   *Atlas

	free   map[gfx.TextureDesc][]gfx.Texture
	leased map[gfx.Texture]struct{}

	reallocations int
}

func NewTargetManager(dev gfx.Device, camera *CameraController) *TargetManager {
	return &TargetManager{
		dev:     dev,
		camera:  camera,
		formats: make(map[PrecisionMode]Formats),
		free:    make(map[gfx.TextureDesc][]gfx.Texture),
		leased:  make(map[gfx.Texture]struct{}),
	}
}

// Formats negotiates once per precision mode and caches the answer.
func (m *TargetManager) Formats(precision PrecisionMode) (Formats, error) {
	if f, ok := m.formats[precision]; ok {
		return f, nil
	}
	f, err := NegotiateFormats(m.dev, precision)
	if err != nil {
		return Formats{}, err
	}
	m.formats[precision] = f
	return f, nil
}

// EnsureTargets makes the capture target and the front atlas (plus the
// spare atlas when incremental) match cd. It returns false without touching
// anything when cd has no cascades or no resolution. Any stale target
// causes every target to be recreated.
func (m *TargetManager) EnsureTargets(cd ComputeData, incremental bool) (bool, error) {
	if cd.NumCascades < 1 || cd.Resolution < 1 {
		return false, nil
	}
	formats, err := m.Formats(cd.Precision)
	if err != nil {
		return false, err
	}

	if m.stale(cd, formats) {
		Logger().Info("vsm: reallocating shadow targets",
			"resolution", cd.Resolution, "cascades", cd.NumCascades, "moments", formats.Atlas.String())
		m.destroyTargets()
		m.reallocations++
	}

	created := m.capture == nil || m.front == nil || (incremental && m.spare == nil)
	if m.capture == nil {
		m.capture, err = m.dev.CreateTexture(gfx.TextureDesc{
			Label:  "vsm capture",
			Width:  cd.Resolution,
			Height: cd.Resolution,
			Format: formats.Capture,
			Filter: gfx.FilterNearest,
			Depth:  true,
		})
		if err != nil {
			return false, fmt.Errorf("failed to create capture target: %w", err)
		}
	}
	if m.front == nil {
		if m.front, err = m.createAtlas("vsm atlas front", cd, formats.Atlas); err != nil {
			return false, err
		}
	}
	if incremental && m.spare == nil {
		if m.spare, err = m.createAtlas("vsm atlas back", cd, formats.Atlas); err != nil {
			return false, err
		}
	}
	if created {
		Logger().Info("vsm: allocated shadow targets",
			"resolution", cd.Resolution, "height", cd.AtlasHeight(), "incremental", incremental,
			"capture", formats.Capture, "moments", formats.Atlas.String())
	}
	return true, nil
}

func (m *TargetManager) stale(cd ComputeData, formats Formats) bool {
	if m.capture != nil {
		desc := m.capture.Desc()
		if desc.Width != cd.Resolution || desc.Height != cd.Resolution || desc.Format != formats.Capture {
			return true
		}
	}
	for _, a := range []*Atlas{m.front, m.spare} {
		if a == nil {
			continue
		}
		desc := a.Planes[0].Desc()
		if desc.Width != cd.Resolution || desc.Height != cd.AtlasHeight() ||
			desc.Filter != cd.Filter || a.Layout != formats.Atlas {
			return true
		}
	}
	return false
}

func (m *TargetManager) createAtlas(label string, cd ComputeData, layout AtlasLayout) (*Atlas, error) {
	a := &Atlas{Layout: layout}
	for i := 0; i < layout.Planes; i++ {
		tex, err := m.dev.CreateTexture(gfx.TextureDesc{
			Label:  fmt.Sprintf("%s %d", label, i+1),
			Width:  cd.Resolution,
			Height: cd.AtlasHeight(),
			Format: layout.Format,
			Filter: cd.Filter,
		})
		if err != nil {
			for _, p := range a.Planes {
				m.dev.DestroyTexture(p)
			}
			return nil, fmt.Errorf("failed to create %s: %w", label, err)
		}
		a.Planes = append(a.Planes, tex)
	}
	return a, nil
}

func (m *TargetManager) Capture() gfx.Texture { return m.capture }

// Front is the published atlas, nil before the first allocation.
func (m *TargetManager) Front() *Atlas { return m.front }

// RenderAtlas is the atlas cascades are composited into: the spare during
// an incremental sequence, the front itself otherwise.
func (m *TargetManager) RenderAtlas(incremental bool) *Atlas {
	if incremental && m.spare != nil {
		return m.spare
	}
	return m.front
}

// Swap makes render the front atlas. Swapping the front with itself does
// nothing.
func (m *TargetManager) Swap(render *Atlas) {
	if render == nil || render == m.front {
		return
	}
	m.front, m.spare = render, m.front
}

// AcquireTemporary returns a pooled texture matching desc, creating one
// when the pool is empty.
func (m *TargetManager) AcquireTemporary(desc gfx.TextureDesc) (gfx.Texture, error) {
	var tex gfx.Texture
	if pool := m.free[desc]; len(pool) > 0 {
		tex = pool[len(pool)-1]
		m.free[desc] = pool[:len(pool)-1]
	} else {
		var err error
		if tex, err = m.dev.CreateTexture(desc); err != nil {
			return nil, fmt.Errorf("failed to create temporary %q: %w", desc.Label, err)
		}
	}
	m.leased[tex] = struct{}{}
	return tex, nil
}

func (m *TargetManager) ReleaseTemporary(tex gfx.Texture) {
	if _, ok := m.leased[tex]; !ok {
		return
	}
	delete(m.leased, tex)
	desc := tex.Desc()
	m.free[desc] = append(m.free[desc], tex)
}

// Allocations counts textures currently owned by the manager.
func (m *TargetManager) Allocations() int {
	n := len(m.leased)
	for _, pool := range m.free {
		n += len(pool)
	}
	if m.capture != nil {
		n++
	}
	for _, a := range []*Atlas{m.front, m.spare} {
		if a != nil {
			n += len(a.Planes)
		}
	}
	return n
}

// Reallocations counts how often stale targets were torn down.
func (m *TargetManager) Reallocations() int { return m.reallocations }

func (m *TargetManager) destroyTargets() {
	if m.capture != nil {
		m.dev.DestroyTexture(m.capture)
		m.capture = nil
	}
	for _, a := range []*Atlas{m.front, m.spare} {
		if a == nil {
			continue
		}
		for _, p := range a.Planes {
			m.dev.DestroyTexture(p)
		}
	}
	m.front, m.spare = nil, nil
	for desc, pool := range m.free {
		for _, tex := range pool {
			m.dev.DestroyTexture(tex)
		}
		delete(m.free, desc)
	}
}

// DestroyAll releases every texture, leased temporaries included, and the
// shadow camera. Calling it again does nothing.
func (m *TargetManager) DestroyAll() {
	m.destroyTargets()
	for tex := range m.leased {
		m.dev.DestroyTexture(tex)
		delete(m.leased, tex)
	}
	if m.camera != nil {
		m.camera.Release()
	}
}
