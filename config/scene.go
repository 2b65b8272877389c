package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"vsm-engine/math"
	"vsm-engine/scene"
)

// SceneData describes the demo scene the commands shadow.
type SceneData struct {
	// GLTF is loaded in addition to Objects; relative paths are resolved
	// against the config file's directory.
	GLTF    string       `toml:"gltf,omitempty" yaml:"gltf,omitempty"`
	Camera  CameraData   `toml:"camera" yaml:"camera"`
	Lights  []LightData  `toml:"lights" yaml:"lights"`
	Objects []ObjectData `toml:"objects" yaml:"objects"`
}

// CameraData stores the orbit camera state
type CameraData struct {
	Target   [3]float32 `toml:"target" yaml:"target"`
	Distance float32    `toml:"distance" yaml:"distance"`
	Yaw      float32    `toml:"yaw" yaml:"yaw"`
	Pitch    float32    `toml:"pitch" yaml:"pitch"`
}

// LightData stores light state
type LightData struct {
	Type      string     `toml:"type" yaml:"type"` // "directional", "point", "spot"
	Position  [3]float32 `toml:"position" yaml:"position"`
	Direction [3]float32 `toml:"direction" yaml:"direction"`
	Intensity float32    `toml:"intensity" yaml:"intensity"`
	Sun       bool       `toml:"sun,omitempty" yaml:"sun,omitempty"`
}

// ObjectData stores a primitive caster
type ObjectData struct {
	Name       string     `toml:"name" yaml:"name"`
	Mesh       string     `toml:"mesh" yaml:"mesh"` // "cube", "plane", "sphere", "obj"
	Path       string     `toml:"path,omitempty" yaml:"path,omitempty"` // .obj file for mesh "obj"
	Size       float32    `toml:"size" yaml:"size"`
	Position   [3]float32 `toml:"position" yaml:"position"`
	Rotation   [4]float32 `toml:"rotation,omitempty" yaml:"rotation,omitempty"` // Quaternion (x,y,z,w)
	Scale      [3]float32 `toml:"scale,omitempty" yaml:"scale,omitempty"`
	Layer      uint8      `toml:"layer,omitempty" yaml:"layer,omitempty"`
	RenderType string     `toml:"render_type,omitempty" yaml:"render_type,omitempty"`
}

// DefaultScene is a ground plane with a few blocks under a slanted sun.
func DefaultScene() SceneData {
	return SceneData{
		Camera: CameraData{Distance: 20, Pitch: 0.5},
		Lights: []LightData{{
			Type:      "directional",
			Direction: [3]float32{0.5, -1, -0.3},
			Intensity: 1,
			Sun:       true,
		}},
		Objects: []ObjectData{
			{Name: "ground", Mesh: "plane", Size: 200},
			{Name: "block", Mesh: "cube", Size: 2, Position: [3]float32{0, 1, 0}},
			{Name: "tower", Mesh: "cube", Size: 3, Position: [3]float32{6, 4.5, -4}, Scale: [3]float32{1, 3, 1}},
			{Name: "ball", Mesh: "sphere", Size: 1.5, Position: [3]float32{-5, 1.5, 3}},
		},
	}
}

// Build creates the scene. baseDir resolves a relative GLTF path.
func (d SceneData) Build(baseDir string) (*scene.Scene, *scene.OrbitCamera, error) {
	s := scene.NewScene()

	cam := scene.NewOrbitCamera(arrayToVec3(d.Camera.Target), d.Camera.Distance)
	cam.Yaw, cam.Pitch = d.Camera.Yaw, d.Camera.Pitch
	cam.UpdatePosition()
	s.SetCamera(&cam.Camera)

	for i, ld := range d.Lights {
		l, err := buildLight(ld)
		if err != nil {
			return nil, nil, fmt.Errorf("scene.lights[%d]: %w", i, err)
		}
		s.AddLight(l)
		if ld.Sun {
			s.SetSun(l)
		}
	}

	for i, od := range d.Objects {
		n, err := buildObject(od, baseDir)
		if err != nil {
			return nil, nil, fmt.Errorf("scene.objects[%d]: %w", i, err)
		}
		s.AddNode(n)
	}

	if d.GLTF != "" {
		res, err := scene.LoadGLTF(resolve(baseDir, d.GLTF))
		if err != nil {
			return nil, nil, err
		}
		for _, root := range res.Roots {
			s.AddNode(root)
		}
	}
	return s, cam, nil
}

func buildLight(ld LightData) (*scene.Light, error) {
	switch strings.ToLower(ld.Type) {
	case "", "directional":
		return scene.NewDirectionalLight(arrayToVec3(ld.Direction), ld.Intensity), nil
	case "point":
		return &scene.Light{
			Type:      scene.LightTypePoint,
			Position:  arrayToVec3(ld.Position),
			Rotation:  math.QuaternionIdentity(),
			Intensity: ld.Intensity,
		}, nil
	case "spot":
		l := scene.NewDirectionalLight(arrayToVec3(ld.Direction), ld.Intensity)
		l.Type = scene.LightTypeSpot
		l.Position = arrayToVec3(ld.Position)
		return l, nil
	}
	return nil, fmt.Errorf("unknown light type %q", ld.Type)
}

func buildObject(od ObjectData, baseDir string) (*scene.Node, error) {
	if od.Layer > 31 {
		return nil, fmt.Errorf("layer %d out of range", od.Layer)
	}
	size := od.Size
	if size <= 0 {
		size = 1
	}
	var n *scene.Node
	switch strings.ToLower(od.Mesh) {
	case "cube":
		n = meshNode(od.Name, scene.CreateCube(size))
	case "plane":
		n = meshNode(od.Name, scene.CreatePlane(size, size, 1))
	case "sphere":
		n = meshNode(od.Name, scene.CreateSphere(size, 24, 12))
	case "obj":
		if od.Path == "" {
			return nil, fmt.Errorf("mesh obj needs a path")
		}
		var err error
		if n, err = scene.LoadOBJ(resolve(baseDir, od.Path)); err != nil {
			return nil, err
		}
		if od.Name != "" {
			n.Name = od.Name
		}
	default:
		return nil, fmt.Errorf("unknown mesh %q", od.Mesh)
	}

	n.Traverse(func(c *scene.Node) {
		c.Layer = od.Layer
	})
	if od.RenderType != "" {
		n.SetTag("RenderType", od.RenderType)
	}
	n.SetPosition(arrayToVec3(od.Position))
	if od.Rotation != ([4]float32{}) {
		n.SetRotation(arrayToQuat(od.Rotation).Normalize())
	}
	if od.Scale != ([3]float32{}) {
		n.SetScale(arrayToVec3(od.Scale))
	}
	return n, nil
}

func meshNode(name string, mesh *scene.Mesh) *scene.Node {
	if name == "" {
		name = mesh.Name
	}
	n := scene.NewNode(name)
	n.Mesh = mesh
	return n
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// arrayToVec3 converts a [3]float32 to Vec3
func arrayToVec3(a [3]float32) math.Vec3 {
	return math.Vec3{X: a[0], Y: a[1], Z: a[2]}
}

// arrayToQuat converts [4]float32 to Quaternion
func arrayToQuat(a [4]float32) math.Quaternion {
	return math.Quaternion{X: a[0], Y: a[1], Z: a[2], W: a[3]}
}
