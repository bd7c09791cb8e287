package spawn

import "github.com/velmoren/towerd/internal/core"

// PointSet is an ordered set of spawn transforms with a rotating cursor.
// Successive calls to Next cycle through the points in a fixed rotation,
// which keeps spawn placement deterministic and reproducible.
type PointSet struct {
	points []core.Transform
	cursor int
}

// NewPointSet creates a point set over the given transforms. The slice is
// copied; the set never mutates caller data.
func NewPointSet(points []core.Transform) *PointSet {
	cp := make([]core.Transform, len(points))
	copy(cp, points)
	return &PointSet{points: cp}
}

// Next returns the next transform in rotation. An empty set yields the zero
// transform so a misconfigured level still spawns at the origin instead of
// failing.
func (ps *PointSet) Next() core.Transform {
	if len(ps.points) == 0 {
		return core.Transform{}
	}
	p := ps.points[ps.cursor]
	ps.cursor = (ps.cursor + 1) % len(ps.points)
	return p
}

// Len returns the number of points in the set.
func (ps *PointSet) Len() int {
	return len(ps.points)
}

// Reset rewinds the rotation to the first point.
func (ps *PointSet) Reset() {
	ps.cursor = 0
}
