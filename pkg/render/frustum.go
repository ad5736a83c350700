package render

import (
	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

// Plane represents a plane in 3D space using the equation: Ax + By + Cz + D = 0
// where (A, B, C) is the normal and D is the distance from origin.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// PlaneFromPoint builds the plane through point with the given normal.
func PlaneFromPoint(normal, point math3d.Vec3) Plane {
	p := Plane{Normal: normal, D: -normal.Dot(point)}
	p.Normalize()
	return p
}

// Normalize normalizes the plane equation so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum is the visible volume of a pinhole camera: four side planes
// through the camera position and the screen edges, plus the near plane.
// A pinhole camera has no far plane. Each normal points inward.
type Frustum struct {
	Planes [5]Plane
}

// FrustumPlane indices for clarity.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
)

// NewFrustum builds the frustum seen by a projector. The side planes
// contain the rays through adjacent screen corners.
func NewFrustum(p Projector) Frustum {
	var f Frustum
	w, h := float64(p.Width), float64(p.Height)
	pos := p.Camera.Position
	forward := p.Camera.Forward()

	topLeft := p.RayDirection(0, 0)
	topRight := p.RayDirection(w, 0)
	bottomLeft := p.RayDirection(0, h)
	bottomRight := p.RayDirection(w, h)
	if !p.YDown {
		topLeft, bottomLeft = bottomLeft, topLeft
		topRight, bottomRight = bottomRight, topRight
	}

	side := func(a, b math3d.Vec3) Plane {
		n := a.Cross(b)
		if n.Dot(forward) < 0 {
			n = n.Negate()
		}
		return PlaneFromPoint(n, pos)
	}
	f.Planes[FrustumLeft] = side(topLeft, bottomLeft)
	f.Planes[FrustumRight] = side(bottomRight, topRight)
	f.Planes[FrustumBottom] = side(bottomLeft, bottomRight)
	f.Planes[FrustumTop] = side(topRight, topLeft)
	f.Planes[FrustumNear] = PlaneFromPoint(forward, pos.Add(forward.Scale(p.near())))

	return f
}

// AABB represents an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// NewAABB creates an AABB from min and max points.
func NewAABB(min, max math3d.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// ObjectBounds returns the bounding box of an object's vertices. ok is
// false for an object without triangles.
func ObjectBounds(o *scene.Object) (AABB, bool) {
	lo, hi, ok := o.Bounds()
	return AABB{Min: lo, Max: hi}, ok
}

// Center returns the center of the AABB.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the dimensions of the AABB.
func (b AABB) Size() math3d.Vec3 {
	return b.Max.Sub(b.Min)
}

// ContainsPoint returns true if the point is inside the AABB.
func (b AABB) ContainsPoint(p math3d.Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// IntersectAABB tests if the AABB intersects or is inside the frustum.
// Returns true if any part of the AABB may be visible; boxes near a
// corner of the frustum can pass without being visible.
// Uses the "positive vertex" optimization for faster rejection.
func (f Frustum) IntersectAABB(box AABB) bool {
	for i := range f.Planes {
		plane := f.Planes[i]

		// Find the "positive vertex" - the corner of the AABB furthest in the direction of the plane normal.
		// This is the corner that would be outside if the entire box is outside.
		pVertex := math3d.V3(
			selectComponent(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			selectComponent(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			selectComponent(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)

		// If the positive vertex is outside this plane, the entire box is outside the frustum
		if plane.DistanceToPoint(pVertex) < 0 {
			return false
		}
	}

	// The box is at least partially inside all planes
	return true
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for i := range f.Planes {
		if f.Planes[i].DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

// selectComponent is a branchless conditional selection helper.
func selectComponent(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// CullingStats tracks frustum culling per frame.
type CullingStats struct {
	ObjectsTested int // Objects tested against the frustum
	ObjectsCulled int // Objects skipped entirely
	ObjectsDrawn  int // Objects that passed culling
}

// Visible tests an object against the frustum and records the outcome.
// Objects without triangles are culled.
func (s *CullingStats) Visible(f Frustum, o *scene.Object) bool {
	s.ObjectsTested++
	box, ok := ObjectBounds(o)
	if !ok || !f.IntersectAABB(box) {
		s.ObjectsCulled++
		return false
	}
	s.ObjectsDrawn++
	return true
}
