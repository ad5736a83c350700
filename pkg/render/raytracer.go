package render

import (
	"math"

	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

// Shading defaults.
const (
	DefaultAmbient       = 0.2
	DefaultIncidenceBias = 0.3
)

const (
	// singularEpsilon is the smallest |det| for which a ray is not
	// considered parallel to a triangle.
	singularEpsilon = 1e-9

	// shadowEpsilon keeps a shadow ray from hitting the surface it was
	// cast toward, measured along the light-to-point segment in [0, 1].
	shadowEpsilon = 1e-4
)

// Hit describes the closest intersection of a ray with the scene.
type Hit struct {
	// T is the ray parameter: Point = origin + T*dir.
	T float64
	// U and V weight vertices 1 and 2; vertex 0 gets 1-U-V.
	U, V float64
	// Index identifies the triangle within the tracer's flattened list.
	Index    int
	Triangle *scene.Triangle
	Point    math3d.Vec3
	// Distance is the Euclidean distance from the ray origin.
	Distance float64
}

// RayTracer casts primary and shadow rays against a flattened copy of a
// scene's triangles. Build a new one whenever the scene changes.
type RayTracer struct {
	Light         *Light
	Ambient       float64
	IncidenceBias float64
	Background    Color

	tris []*scene.Triangle
}

// NewRayTracer flattens every object's triangles into one indexed list.
func NewRayTracer(s *scene.Scene, light *Light) *RayTracer {
	rt := &RayTracer{
		Light:         light,
		Ambient:       DefaultAmbient,
		IncidenceBias: DefaultIncidenceBias,
		Background:    ColorBlack,
	}
	if s != nil {
		rt.tris = make([]*scene.Triangle, 0, s.TriangleCount())
		for _, o := range s.Objects {
			for i := range o.Triangles {
				rt.tris = append(rt.tris, &o.Triangles[i])
			}
		}
	}
	return rt
}

// Triangles returns the number of triangles being traced.
func (rt *RayTracer) Triangles() int { return len(rt.tris) }

// IntersectTriangle solves origin + t*dir = v0 + u*e0 + v*e1 for (t, u, v).
// ok is false when the ray is parallel to the triangle, misses it, or the
// hit lies behind the origin.
func IntersectTriangle(origin, dir math3d.Vec3, tri *scene.Triangle) (t, u, v float64, ok bool) {
	v0 := tri.Vertices[0]
	e0 := tri.Vertices[1].Sub(v0)
	e1 := tri.Vertices[2].Sub(v0)

	inv, ok := math3d.Mat3FromColumns(dir.Negate(), e0, e1).Inverse(singularEpsilon)
	if !ok {
		return 0, 0, 0, false
	}
	sol := inv.MulVec3(origin.Sub(v0))
	t, u, v = sol.X, sol.Y, sol.Z

	if u < 0 || u > 1 || v < 0 || v > 1 || u+v > 1 || t < 0 {
		return t, u, v, false
	}
	return t, u, v, true
}

// Intersect returns the closest hit along the ray.
func (rt *RayTracer) Intersect(origin, dir math3d.Vec3) (Hit, bool) {
	best := Hit{T: math.Inf(1), Index: -1}
	for i, tri := range rt.tris {
		t, u, v, ok := IntersectTriangle(origin, dir, tri)
		if !ok || t >= best.T {
			continue
		}
		best.T, best.U, best.V = t, u, v
		best.Index = i
		best.Triangle = tri
	}
	if best.Index < 0 {
		return Hit{}, false
	}
	best.Point = origin.Add(dir.Scale(best.T))
	best.Distance = best.T * dir.Len()
	return best, true
}

// InShadow reports whether any triangle other than self lies strictly
// between the light and point.
func (rt *RayTracer) InShadow(point math3d.Vec3, self int) bool {
	if rt.Light == nil {
		return false
	}
	dir := point.Sub(rt.Light.Position)
	for i, tri := range rt.tris {
		if i == self {
			continue
		}
		t, _, _, ok := IntersectTriangle(rt.Light.Position, dir, tri)
		if ok && t > shadowEpsilon && t < 1-shadowEpsilon {
			return true
		}
	}
	return false
}

// SurfaceColour returns the unlit colour at a hit: the texel at the
// interpolated texture coordinate for textured triangles, otherwise the
// triangle's colour.
func SurfaceColour(h Hit) Color {
	tri := h.Triangle
	if tri.Textured() {
		tt := tri.Texture
		uv := math3d.Barycentric(tt.Points[0], tt.Points[1], tt.Points[2], h.U, h.V)
		return tt.Texture.At(uv.X, uv.Y)
	}
	return tri.Colour.ToRGBA()
}

// Shade lights a hit. Shadowed points get the ambient term only; lit
// points are scaled by the light's intensity and the angle of incidence,
// never dropping below ambient.
func (rt *RayTracer) Shade(h Hit) Color {
	base := SurfaceColour(h)
	if rt.Light == nil || rt.InShadow(h.Point, h.Index) {
		return scaleColour(base, rt.Ambient, rt.Ambient)
	}

	n := h.Triangle.Normal()
	toPoint := h.Point.Sub(rt.Light.Position).Normalize()
	aoi := math.Min(1, math.Abs(n.Dot(toPoint)))

	factor := math.Min(1, rt.Light.IntensityAt(h.Point)*math.Min(1, aoi+rt.IncidenceBias))
	return scaleColour(base, factor, rt.Ambient)
}

// scaleColour multiplies each channel by factor but keeps it at least
// ambient times the original.
func scaleColour(c Color, factor, ambient float64) Color {
	ch := func(v uint8) uint8 {
		x := float64(v)
		return uint8(math.Round(math.Min(255, math.Max(x*ambient, x*factor))))
	}
	return Color{R: ch(c.R), G: ch(c.G), B: ch(c.B), A: 255}
}

// Trace shades the closest hit along a ray, or returns the background.
func (rt *RayTracer) Trace(origin, dir math3d.Vec3) (Color, Hit, bool) {
	h, ok := rt.Intersect(origin, dir)
	if !ok {
		return rt.Background, Hit{}, false
	}
	return rt.Shade(h), h, true
}

// TracePixel box-filters one ray per sample offset through pixel (x, y).
// It also returns the distance of the nearest hit among the samples.
func (rt *RayTracer) TracePixel(proj Projector, x, y int, offsets []math3d.Vec2) (Color, float64, bool) {
	if len(offsets) == 0 {
		offsets = centreSample
	}
	origin := proj.Camera.Position
	var r, g, b float64
	nearest := math.Inf(1)
	anyHit := false

	for _, o := range offsets {
		dir := proj.RayDirection(float64(x)+0.5+o.X, float64(y)+0.5+o.Y)
		c, h, ok := rt.Trace(origin, dir)
		if ok {
			anyHit = true
			nearest = math.Min(nearest, h.Distance)
		}
		r += float64(c.R)
		g += float64(c.G)
		b += float64(c.B)
	}

	n := float64(len(offsets))
	avg := Color{
		R: uint8(math.Round(r / n)),
		G: uint8(math.Round(g / n)),
		B: uint8(math.Round(b / n)),
		A: 255,
	}
	return avg, nearest, anyHit
}

var centreSample = []math3d.Vec2{{}}

// SampleOffsets returns sub-pixel offsets from the pixel centre for a
// sample count: the centre for 1, a diagonal pair for 2, a rotated grid
// for 4 and a stratified square grid otherwise.
func SampleOffsets(n int) []math3d.Vec2 {
	switch {
	case n <= 1:
		return centreSample
	case n == 2:
		return []math3d.Vec2{{X: -0.25, Y: -0.25}, {X: 0.25, Y: 0.25}}
	case n == 4:
		return []math3d.Vec2{
			{X: -0.125, Y: -0.375},
			{X: 0.375, Y: -0.125},
			{X: 0.125, Y: 0.375},
			{X: -0.375, Y: 0.125},
		}
	}

	k := int(math.Ceil(math.Sqrt(float64(n))))
	offsets := make([]math3d.Vec2, 0, k*k)
	for j := range k {
		for i := range k {
			offsets = append(offsets, math3d.V2(
				(float64(i)+0.5)/float64(k)-0.5,
				(float64(j)+0.5)/float64(k)-0.5,
			))
		}
	}
	return offsets
}
