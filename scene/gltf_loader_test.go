package scene

import (
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsm-engine/math"
)

func writeTestGLTF(t *testing.T) string {
	t.Helper()
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint32{0, 1, 2})
	doc.Materials = []*gltf.Material{{Name: "leaves", AlphaMode: gltf.AlphaMask}}
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos},
			Material:   gltf.Index(0),
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "group", Translation: [3]float64{0, 2, 0}, Children: []int{1}},
		{Name: "leaf", Mesh: gltf.Index(0), Translation: [3]float64{1, 0, 0}},
	}
	doc.Scenes[0].Nodes = []int{0}

	path := filepath.Join(t.TempDir(), "casters.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))
	return path
}

func TestLoadGLTF(t *testing.T) {
	res, err := LoadGLTF(writeTestGLTF(t))
	require.NoError(t, err)
	require.Len(t, res.Roots, 1)
	assert.Zero(t, res.Skipped)

	s := NewScene()
	for _, root := range res.Roots {
		s.AddNode(root)
	}
	casters := s.Casters()
	require.Len(t, casters, 1)
	c := casters[0]
	assert.Equal(t, "leaf", c.Name)
	assert.Equal(t, "TransparentCutout", c.Tags["RenderType"])
	assert.Equal(t, []uint32{0, 1, 2}, c.Indices)
	assert.True(t, c.Positions[2].ApproxEqual(math.NewVec3(1, 3, 0), 1e-6))
}

func TestLoadGLTFMissingFile(t *testing.T) {
	_, err := LoadGLTF(filepath.Join(t.TempDir(), "nope.glb"))
	assert.Error(t, err)
}
