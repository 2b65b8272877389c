package scene

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsm-engine/math"
)

const testOBJ = `# two groups
mtllib glass.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
o quad
f 1/1/1 2/2/1 3/3/1 4/4/1
o pane
usemtl glass
f -4 -3 -2
`

const testMTL = `newmtl glass
d 0.3
newmtl stone
Tr 0
`

func writeOBJ(t *testing.T, obj string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "glass.mtl"), []byte(testMTL), 0644))
	path := filepath.Join(dir, "walls.obj")
	require.NoError(t, os.WriteFile(path, []byte(obj), 0644))
	return path
}

func TestLoadOBJ(t *testing.T) {
	root, err := LoadOBJ(writeOBJ(t, testOBJ))
	require.NoError(t, err)
	assert.Equal(t, "walls", root.Name)
	require.Len(t, root.Children, 2)

	quad := root.Find("quad")
	require.NotNil(t, quad)
	assert.Len(t, quad.Mesh.Positions, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, quad.Mesh.Indices, "fan triangulation")
	assert.Equal(t, "Opaque", quad.Tags["RenderType"])
	assert.Equal(t, math.NewVec3(1, 1, 0), quad.Mesh.LocalAABB.Max)

	pane := root.Find("pane")
	require.NotNil(t, pane)
	assert.Equal(t, 1, pane.Mesh.TriangleCount())
	assert.Equal(t, "Transparent", pane.Tags["RenderType"])
}

func TestLoadOBJErrors(t *testing.T) {
	_, err := LoadOBJ(filepath.Join(t.TempDir(), "missing.obj"))
	assert.Error(t, err)

	_, err = LoadOBJ(writeOBJ(t, "v 0 0 0\n"))
	assert.Error(t, err, "no faces")

	_, err = LoadOBJ(writeOBJ(t, "v 0 0 0\nf 1 2 3\n"))
	assert.Error(t, err, "index out of range")

	_, err = LoadOBJ(writeOBJ(t, "v 0 zero 0\n"))
	assert.Error(t, err)
}

func TestLoadOBJLogsMissingMaterialLibrary(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	root, err := LoadOBJ(writeOBJ(t, "mtllib missing.mtl\nv 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	assert.NoError(t, err)
	assert.NotNil(t, root)
	assert.Contains(t, buf.String(), "failed to load MTL file")
}
