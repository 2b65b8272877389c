package scene

import (
	"vsm-engine/core"
	"vsm-engine/math"
)

// Scene manages a collection of nodes, the active camera and the lights.
type Scene struct {
	Root   *Node
	Camera *Camera
	Lights []*Light

	// sun overrides dominant light selection when set.
	sun *Light

	dominant      *Light
	dominantValid bool
}

// Light types
const (
	LightTypeDirectional = iota
	LightTypePoint
	LightTypeSpot
)

// Light represents a light source. A directional light shines along the
// forward axis of Rotation.
type Light struct {
	Type      int
	Position  math.Vec3
	Rotation  math.Quaternion
	Intensity float32
	Range     float32
}

// NewDirectionalLight creates a light shining along direction.
func NewDirectionalLight(direction math.Vec3, intensity float32) *Light {
	return &Light{
		Type:      LightTypeDirectional,
		Rotation:  math.QuaternionLookRotation(direction, math.Vec3Up),
		Intensity: intensity,
	}
}

func (l *Light) Direction() math.Vec3 {
	return l.Rotation.Forward()
}

func NewScene() *Scene {
	return &Scene{
		Root:   NewNode("Root"),
		Lights: make([]*Light, 0),
	}
}

func (s *Scene) SetCamera(camera *Camera) {
	s.Camera = camera
}

func (s *Scene) AddNode(node *Node) {
	s.Root.AddChild(node)
}

func (s *Scene) AddLight(light *Light) {
	s.Lights = append(s.Lights, light)
	s.Invalidate()
}

func (s *Scene) RemoveLight(light *Light) {
	for i, l := range s.Lights {
		if l == light {
			s.Lights = append(s.Lights[:i], s.Lights[i+1:]...)
			break
		}
	}
	if s.sun == light {
		s.sun = nil
	}
	s.Invalidate()
}

// SetSun pins the light shadows are cast from; nil returns to picking the
// brightest directional light.
func (s *Scene) SetSun(light *Light) {
	s.sun = light
	s.Invalidate()
}

func (s *Scene) Sun() *Light { return s.sun }

// Invalidate drops the cached dominant light. Call it after changing a
// light's type or intensity in place.
func (s *Scene) Invalidate() {
	s.dominant = nil
	s.dominantValid = false
}

// DominantLight returns the sun if set, otherwise the directional light
// with the highest intensity (first wins on ties). The answer is cached
// until the light set changes.
func (s *Scene) DominantLight() *Light {
	if s.dominantValid {
		return s.dominant
	}
	var best *Light
	if s.sun != nil {
		best = s.sun
	} else {
		for _, l := range s.Lights {
			if l.Type != LightTypeDirectional {
				continue
			}
			if best == nil || l.Intensity > best.Intensity {
				best = l
			}
		}
	}
	s.dominant = best
	s.dominantValid = true
	return best
}

// MainCameraPose reports the pose of the active camera.
func (s *Scene) MainCameraPose() (core.Pose, bool) {
	if s.Camera == nil {
		return core.Pose{}, false
	}
	return s.Camera.Pose(), true
}

// PrimaryLightRotation reports the rotation of the dominant light.
func (s *Scene) PrimaryLightRotation() (math.Quaternion, bool) {
	l := s.DominantLight()
	if l == nil {
		return math.Quaternion{}, false
	}
	return l.Rotation, true
}

// GetVisibleNodes returns all nodes with meshes that are visible
func (s *Scene) GetVisibleNodes() []*Node {
	var visible []*Node

	s.Root.Traverse(func(node *Node) {
		if node.Visible && node.Mesh != nil {
			visible = append(visible, node)
		}
	})

	return visible
}
