package scene

import (
	"vsm-engine/math"
)

// Caster is a visible mesh flattened into world space, ready for a depth
// pass.
type Caster struct {
	Name      string
	Positions []math.Vec3
	Indices   []uint32
	Bounds    AABB
	Layer     uint8
	Tags      map[string]string
}

// Casters returns every visible mesh node in world space.
func (s *Scene) Casters() []Caster {
	nodes := s.GetVisibleNodes()
	casters := make([]Caster, 0, len(nodes))
	for _, node := range nodes {
		world := node.GetWorldMatrix()
		positions := make([]math.Vec3, len(node.Mesh.Positions))
		for i, p := range node.Mesh.Positions {
			positions[i] = world.MulPoint(p)
		}
		c := Caster{
			Name:      node.Name,
			Positions: positions,
			Indices:   node.Mesh.Indices,
			Layer:     node.Layer,
			Tags:      node.Tags,
		}
		if len(positions) > 0 {
			c.Bounds = computeLocalAABB(positions)
		}
		casters = append(casters, c)
	}
	return casters
}
