package scene

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vsm-engine/math"
)

// objGroup is a single mesh group from an OBJ file
type objGroup struct {
	name     string
	material string
	mesh     *Mesh
	vertices map[int]uint32 // position index -> mesh vertex
}

func newOBJGroup(name, material string) *objGroup {
	return &objGroup{
		name:     name,
		material: material,
		mesh:     &Mesh{Name: name},
		vertices: make(map[int]uint32),
	}
}

// LoadOBJ parses a Wavefront .obj file into a node with one child per
// group. Only positions are read. Groups whose material is not fully
// opaque are tagged Transparent.
func LoadOBJ(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer f.Close()

	var positions []math.Vec3
	opacity := make(map[string]float32)
	var groups []*objGroup
	current := newOBJGroup("default", "")

	flush := func() {
		if len(current.mesh.Indices) > 0 {
			groups = append(groups, current)
		}
	}

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Fields(text)

		switch parts[0] {
		case "v":
			if len(parts) < 4 {
				return nil, fmt.Errorf("%s:%d: vertex needs three coordinates", path, line)
			}
			var xyz [3]float32
			for i := range xyz {
				v, err := strconv.ParseFloat(parts[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, line, err)
				}
				xyz[i] = float32(v)
			}
			positions = append(positions, math.NewVec3(xyz[0], xyz[1], xyz[2]))
		case "f":
			face := make([]uint32, 0, len(parts)-1)
			for _, spec := range parts[1:] {
				idx, err := positionIndex(spec, len(positions))
				if err != nil {
					return nil, fmt.Errorf("%s:%d: %w", path, line, err)
				}
				v, ok := current.vertices[idx]
				if !ok {
					v = uint32(len(current.mesh.Positions))
					current.mesh.Positions = append(current.mesh.Positions, positions[idx])
					current.vertices[idx] = v
				}
				face = append(face, v)
			}
			// Fan triangulation
			for i := 2; i < len(face); i++ {
				current.mesh.Indices = append(current.mesh.Indices, face[0], face[i-1], face[i])
			}
		case "o", "g":
			flush()
			name := "unnamed"
			if len(parts) > 1 {
				name = parts[1]
			}
			current = newOBJGroup(name, current.material)
		case "usemtl":
			if len(parts) > 1 {
				if len(current.mesh.Indices) > 0 {
					flush()
					current = newOBJGroup(current.name+"_"+parts[1], parts[1])
				}
				current.material = parts[1]
			}
		case "mtllib":
			if len(parts) > 1 {
				mtlPath := filepath.Join(filepath.Dir(path), parts[1])
				if err := loadMTLOpacity(mtlPath, opacity); err != nil {
					Logger().Warn("obj: failed to load MTL file", "path", mtlPath, "err", err)
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(groups) == 0 {
		return nil, fmt.Errorf("no mesh data found in OBJ file %s", path)
	}

	root := NewNode(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, g := range groups {
		child := NewNode(g.name)
		child.Mesh = CreateMeshFromData(g.name, g.mesh.Positions, g.mesh.Indices)
		if o, ok := opacity[g.material]; ok && o < 1 {
			child.Tags["RenderType"] = "Transparent"
		}
		root.AddChild(child)
	}
	return root, nil
}

// positionIndex resolves the position of a face vertex spec like "v/vt/vn"
// to a zero-based index. Negative indices count back from the last vertex.
func positionIndex(spec string, count int) (int, error) {
	head, _, _ := strings.Cut(spec, "/")
	idx, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("bad face vertex %q", spec)
	}
	if idx < 0 {
		idx = count + idx + 1
	}
	if idx < 1 || idx > count {
		return 0, fmt.Errorf("face vertex %q out of range", spec)
	}
	return idx - 1, nil
}

// loadMTLOpacity reads the dissolve of each material in a .mtl file.
func loadMTLOpacity(path string, out map[string]float32) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	current := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		switch parts[0] {
		case "newmtl":
			current = parts[1]
			out[current] = 1
		case "d", "Tr":
			d, err := strconv.ParseFloat(parts[1], 32)
			if err != nil || current == "" {
				continue
			}
			if parts[0] == "Tr" {
				d = 1 - d // Tr is inverse of d
			}
			out[current] = float32(d)
		}
	}
	return scanner.Err()
}
