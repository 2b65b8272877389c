package scene

import "vsm-engine/math"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math.Vec3
	Max math.Vec3
}

// Extend grows the box to contain p.
func (b AABB) Extend(p math.Vec3) AABB {
	if p.X < b.Min.X { b.Min.X = p.X }
	if p.Y < b.Min.Y { b.Min.Y = p.Y }
	if p.Z < b.Min.Z { b.Min.Z = p.Z }
	if p.X > b.Max.X { b.Max.X = p.X }
	if p.Y > b.Max.Y { b.Max.Y = p.Y }
	if p.Z > b.Max.Z { b.Max.Z = p.Z }
	return b
}

func (b AABB) Center() math.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Transform returns the box enclosing the eight transformed corners.
func (b AABB) Transform(m math.Mat4) AABB {
	out := AABB{Min: m.MulPoint(b.Min), Max: m.MulPoint(b.Min)}
	for i := 1; i < 8; i++ {
		corner := b.Min
		if i&1 != 0 { corner.X = b.Max.X }
		if i&2 != 0 { corner.Y = b.Max.Y }
		if i&4 != 0 { corner.Z = b.Max.Z }
		out = out.Extend(m.MulPoint(corner))
	}
	return out
}

// Overlaps reports whether the boxes intersect (touching counts).
func (b AABB) Overlaps(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}
