package scene

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"vsm-engine/math"
)

// GLTFResult holds the caster nodes loaded from a .glb / .gltf file.
type GLTFResult struct {
	Roots []*Node // top-level nodes; add each with scene.AddNode(n)
	// Skipped counts primitives that were not triangle lists or failed to
	// decode.
	Skipped int
}

// materialTag maps a glTF alpha mode onto the RenderType tag used to pick
// depth shaders.
func materialTag(m *gltf.Material) string {
	if m == nil {
		return "Opaque"
	}
	switch m.AlphaMode {
	case gltf.AlphaMask:
		return "TransparentCutout"
	case gltf.AlphaBlend:
		return "Transparent"
	default:
		return "Opaque"
	}
}

// LoadGLTF opens a .glb or .gltf file and returns its node hierarchy with
// position-only meshes. Each node is tagged with the RenderType of its
// first primitive's material.
func LoadGLTF(path string) (*GLTFResult, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %w", path, err)
	}
	result := &GLTFResult{}

	// meshPrims[meshIdx] = one mesh and tag per primitive
	type primitive struct {
		mesh *Mesh
		tag  string
	}
	meshPrims := make([][]primitive, len(doc.Meshes))
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			if prim.Mode != gltf.PrimitiveTriangles {
				result.Skipped++
				continue
			}
			m, err := loadGLTFPrimitive(doc, gm.Name, pi, prim)
			if err != nil {
				Logger().Warn("gltf: skipping primitive", "mesh", mi, "primitive", pi, "err", err)
				result.Skipped++
				continue
			}
			var mat *gltf.Material
			if prim.Material != nil && *prim.Material < len(doc.Materials) {
				mat = doc.Materials[*prim.Material]
			}
			meshPrims[mi] = append(meshPrims[mi], primitive{mesh: m, tag: materialTag(mat)})
		}
	}

	nodes := make([]*Node, len(doc.Nodes))
	for i, gn := range doc.Nodes {
		name := gn.Name
		if name == "" {
			name = fmt.Sprintf("node_%d", i)
		}
		n := NewNode(name)

		t := gn.TranslationOrDefault()
		n.SetPosition(math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])})

		sc := gn.ScaleOrDefault()
		n.SetScale(math.Vec3{X: float32(sc[0]), Y: float32(sc[1]), Z: float32(sc[2])})

		r := gn.RotationOrDefault() // [x, y, z, w]
		n.SetRotation(math.Quaternion{
			X: float32(r[0]), Y: float32(r[1]),
			Z: float32(r[2]), W: float32(r[3]),
		})

		if gn.Mesh != nil && *gn.Mesh < len(meshPrims) {
			prims := meshPrims[*gn.Mesh]
			switch len(prims) {
			case 0:
				// no geometry
			case 1:
				n.Mesh = prims[0].mesh
				n.Tags["RenderType"] = prims[0].tag
			default:
				// Multiple primitives → one child node per primitive
				for pi, p := range prims {
					child := NewNode(fmt.Sprintf("%s_prim%d", name, pi))
					child.Mesh = p.mesh
					child.Tags["RenderType"] = p.tag
					n.AddChild(child)
				}
			}
		}
		nodes[i] = n
	}

	// Wire up parent-child relationships
	for i, gn := range doc.Nodes {
		for _, childIdx := range gn.Children {
			if childIdx < len(nodes) {
				nodes[i].AddChild(nodes[childIdx])
			}
		}
	}

	if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
		for _, rootIdx := range doc.Scenes[*doc.Scene].Nodes {
			if rootIdx < len(nodes) {
				result.Roots = append(result.Roots, nodes[rootIdx])
			}
		}
	} else {
		// No default scene: collect all parentless nodes
		for _, n := range nodes {
			if n.Parent == nil {
				result.Roots = append(result.Roots, n)
			}
		}
	}

	return result, nil
}

// loadGLTFPrimitive converts one glTF mesh primitive into a scene.Mesh.
func loadGLTFPrimitive(doc *gltf.Document, meshName string, primIdx int, prim *gltf.Primitive) (*Mesh, error) {
	name := fmt.Sprintf("%s_p%d", meshName, primIdx)
	if meshName == "" {
		name = fmt.Sprintf("prim_%d", primIdx)
	}

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, fmt.Errorf("no POSITION attribute")
	}
	raw, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions := make([]math.Vec3, len(raw))
	for i, p := range raw {
		positions[i] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
	}

	return CreateMeshFromData(name, positions, indices), nil
}
