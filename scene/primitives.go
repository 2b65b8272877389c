package scene

import (
	"github.com/chewxy/math32"

	"vsm-engine/math"
)

// CreateCube generates an axis-aligned cube centred on the origin.
func CreateCube(size float32) *Mesh {
	s := size / 2
	positions := []math.Vec3{
		{X: -s, Y: -s, Z: -s}, {X: s, Y: -s, Z: -s}, {X: s, Y: s, Z: -s}, {X: -s, Y: s, Z: -s},
		{X: -s, Y: -s, Z: s}, {X: s, Y: -s, Z: s}, {X: s, Y: s, Z: s}, {X: -s, Y: s, Z: s},
	}
	indices := []uint32{
		4, 5, 6, 6, 7, 4, // front
		1, 0, 3, 3, 2, 1, // back
		3, 7, 6, 6, 2, 3, // top
		0, 1, 5, 5, 4, 0, // bottom
		1, 2, 6, 6, 5, 1, // right
		0, 4, 7, 7, 3, 0, // left
	}
	return CreateMeshFromData("Cube", positions, indices)
}

// CreatePlane generates a flat XZ plane at y=0
func CreatePlane(width, depth float32, subdivisions int) *Mesh {
	if subdivisions < 1 {
		subdivisions = 1
	}

	var positions []math.Vec3
	var indices []uint32

	for row := 0; row <= subdivisions; row++ {
		for col := 0; col <= subdivisions; col++ {
			u := float32(col) / float32(subdivisions)
			v := float32(row) / float32(subdivisions)
			positions = append(positions, math.Vec3{X: (u - 0.5) * width, Y: 0, Z: (v - 0.5) * depth})
		}
	}

	stride := uint32(subdivisions + 1)
	for row := uint32(0); row < uint32(subdivisions); row++ {
		for col := uint32(0); col < uint32(subdivisions); col++ {
			i := row*stride + col
			indices = append(indices, i, i+stride, i+1, i+1, i+stride, i+stride+1)
		}
	}

	return CreateMeshFromData("Plane", positions, indices)
}

// CreateSphere generates a UV-sphere mesh
func CreateSphere(radius float32, segments, rings int) *Mesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var positions []math.Vec3
	var indices []uint32

	for ring := 0; ring <= rings; ring++ {
		sinPhi, cosPhi := math32.Sincos(float32(ring) * math32.Pi / float32(rings))
		for seg := 0; seg <= segments; seg++ {
			sinTheta, cosTheta := math32.Sincos(float32(seg) * 2 * math32.Pi / float32(segments))
			normal := math.Vec3{X: sinPhi * cosTheta, Y: cosPhi, Z: sinPhi * sinTheta}
			positions = append(positions, normal.Mul(radius))
		}
	}

	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			current := uint32(ring*(segments+1) + seg)
			next := current + uint32(segments+1)
			indices = append(indices, current, next, current+1, current+1, next, next+1)
		}
	}

	return CreateMeshFromData("Sphere", positions, indices)
}
