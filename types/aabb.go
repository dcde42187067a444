package types

import "math"

// An axis-aligned bounding box.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Create an empty bounding box. Expanding an empty box by a point yields a
// degenerate box containing only that point.
func EmptyAABB() AABB {
	return AABB{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Returns true if the box does not contain any point.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Expand the box so that it contains point p.
func (b AABB) Expand(p Vec3) AABB {
	return AABB{
		Min: MinVec3(b.Min, p),
		Max: MaxVec3(b.Max, p),
	}
}

// Expand the box so that it contains box b2.
func (b AABB) Union(b2 AABB) AABB {
	return AABB{
		Min: MinVec3(b.Min, b2.Min),
		Max: MaxVec3(b.Max, b2.Max),
	}
}

// Get the box center.
func (b AABB) Centroid() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Get the index of the axis with the largest extent. Ties resolve to the
// lowest axis index.
func (b AABB) MaxExtent() int {
	side := b.Max.Sub(b.Min)
	axis := 0
	if side[1] > side[axis] {
		axis = 1
	}
	if side[2] > side[axis] {
		axis = 2
	}
	return axis
}
