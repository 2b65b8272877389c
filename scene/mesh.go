package scene

import (
	"vsm-engine/math"
)

// Mesh is indexed triangle geometry. Shadow casting only needs positions.
type Mesh struct {
	Name      string
	Positions []math.Vec3
	Indices   []uint32
	LocalAABB AABB
}

// CreateMeshFromData builds a mesh. Nil indices mean an unindexed
// triangle list.
func CreateMeshFromData(name string, positions []math.Vec3, indices []uint32) *Mesh {
	if indices == nil {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	m := &Mesh{
		Name:      name,
		Positions: positions,
		Indices:   indices,
	}
	if len(positions) > 0 {
		m.LocalAABB = computeLocalAABB(positions)
	}
	return m
}

func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// computeLocalAABB returns the tight AABB of the given vertex positions.
func computeLocalAABB(positions []math.Vec3) AABB {
	box := AABB{Min: positions[0], Max: positions[0]}
	for _, p := range positions[1:] {
		box = box.Extend(p)
	}
	return box
}
