package render

import (
	"math"

	"github.com/taigrr/rednoise/pkg/scene"
)

// degenerateArea is the twice-signed-area below which a screen triangle
// is treated as a line.
const degenerateArea = 1e-9

// Rasterizer fills and strokes screen-space triangles into a framebuffer,
// testing every pixel against a depth buffer.
//
// Pixel (i, j) covers [i, i+1) x [j, j+1) and is sampled at its centre. A
// pixel belongs to a triangle when its centre is inside it; centres on a
// left or top edge are inside and on a right or bottom edge are outside,
// so triangles sharing an edge never overlap or leave gaps.
type Rasterizer struct {
	fb    *Framebuffer
	depth *DepthBuffer
}

// NewRasterizer creates a rasterizer drawing into fb and depth, which must
// have the same size.
func NewRasterizer(fb *Framebuffer, depth *DepthBuffer) *Rasterizer {
	return &Rasterizer{fb: fb, depth: depth}
}

// rasterVertex is a screen vertex with the attributes interpolated across
// a triangle: inverse depth and texture coordinate.
type rasterVertex struct {
	x, y float64
	inv  float64
	u, v float64
}

func toRasterVertex(p ScreenPoint) rasterVertex {
	inv := 0.0
	if p.Depth > 0 {
		inv = 1 / p.Depth
	}
	return rasterVertex{x: p.X, y: p.Y, inv: inv, u: p.UV.X, v: p.UV.Y}
}

func lerpVertex(a, b rasterVertex, t float64) rasterVertex {
	return rasterVertex{
		x:   a.x + (b.x-a.x)*t,
		y:   a.y + (b.y-a.y)*t,
		inv: a.inv + (b.inv-a.inv)*t,
		u:   a.u + (b.u-a.u)*t,
		v:   a.v + (b.v-a.v)*t,
	}
}

// edge is a triangle edge stored top to bottom. Both triangles sharing an
// edge build the same edge value, so they compute identical crossings.
type edge struct {
	a, b rasterVertex
}

func makeEdge(p, q rasterVertex) edge {
	if q.y < p.y || (q.y == p.y && q.x < p.x) {
		p, q = q, p
	}
	return edge{a: p, b: q}
}

// at returns the point of the edge on scan line y.
func (e edge) at(y float64) rasterVertex {
	h := e.b.y - e.a.y
	if h == 0 {
		return e.a
	}
	return lerpVertex(e.a, e.b, (y-e.a.y)/h)
}

// FillTriangle fills a flat-coloured triangle.
func (r *Rasterizer) FillTriangle(pts [3]ScreenPoint, c Color) {
	r.fill(pts, c, nil)
}

// FillTexturedTriangle fills a triangle whose colour comes from tex at the
// interpolated texture coordinates. The mapping is affine in screen space.
func (r *Rasterizer) FillTexturedTriangle(pts [3]ScreenPoint, tex *scene.Texture) {
	r.fill(pts, Color{}, tex)
}

// StrokeTriangle draws the three edges of a triangle.
func (r *Rasterizer) StrokeTriangle(pts [3]ScreenPoint, c Color) {
	r.stroke(pts, c, nil)
}

// DrawLine draws a depth-tested line between two screen points.
func (r *Rasterizer) DrawLine(a, b ScreenPoint, c Color) {
	r.line(toRasterVertex(a), toRasterVertex(b), c, nil)
}

func (r *Rasterizer) stroke(pts [3]ScreenPoint, c Color, tex *scene.Texture) {
	v0, v1, v2 := toRasterVertex(pts[0]), toRasterVertex(pts[1]), toRasterVertex(pts[2])
	r.line(v0, v1, c, tex)
	r.line(v1, v2, c, tex)
	r.line(v2, v0, c, tex)
}

// fill splits the triangle at its middle vertex into a flat-bottomed and a
// flat-topped half and scans each. A triangle with no area has no pixel
// centres inside it, so it is stroked instead to stay visible.
func (r *Rasterizer) fill(pts [3]ScreenPoint, c Color, tex *scene.Texture) {
	p0, p1, p2 := toRasterVertex(pts[0]), toRasterVertex(pts[1]), toRasterVertex(pts[2])

	area := (p1.x-p0.x)*(p2.y-p0.y) - (p2.x-p0.x)*(p1.y-p0.y)
	if math.Abs(area) < degenerateArea || math.IsNaN(area) {
		r.stroke(pts, c, tex)
		return
	}

	if p1.y < p0.y {
		p0, p1 = p1, p0
	}
	if p2.y < p1.y {
		p1, p2 = p2, p1
	}
	if p1.y < p0.y {
		p0, p1 = p1, p0
	}

	// The long edge p0-p2 is shared by both halves; crossing it at p1.y
	// gives the fourth vertex of the split.
	long := makeEdge(p0, p2)
	r.scan(p0.y, p1.y, makeEdge(p0, p1), long, c, tex)
	r.scan(p1.y, p2.y, makeEdge(p1, p2), long, c, tex)
}

// scan fills the rows whose centres lie in [yTop, yBottom) between two
// edges.
func (r *Rasterizer) scan(yTop, yBottom float64, e0, e1 edge, c Color, tex *scene.Texture) {
	if yBottom <= yTop {
		return
	}
	rowStart := max(int(math.Ceil(yTop-0.5)), 0)
	rowEnd := min(int(math.Ceil(yBottom-0.5)), r.fb.Height)

	for y := rowStart; y < rowEnd; y++ {
		yc := float64(y) + 0.5
		left, right := e0.at(yc), e1.at(yc)
		if right.x < left.x {
			left, right = right, left
		}

		colStart := max(int(math.Ceil(left.x-0.5)), 0)
		colEnd := min(int(math.Ceil(right.x-0.5)), r.fb.Width)
		width := right.x - left.x

		for x := colStart; x < colEnd; x++ {
			p := left
			if width > 0 {
				p = lerpVertex(left, right, (float64(x)+0.5-left.x)/width)
			}
			r.plot(x, y, p, c, tex)
		}
	}
}

// line walks the segment with a DDA, one step per pixel along the major
// axis, both endpoints included.
func (r *Rasterizer) line(a, b rasterVertex, c Color, tex *scene.Texture) {
	a, b, ok := r.clipLine(a, b)
	if !ok {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		r.plot(int(math.Floor(a.x)), int(math.Floor(a.y)), a, c, tex)
		return
	}

	for i := 0; i <= steps; i++ {
		p := lerpVertex(a, b, float64(i)/float64(steps))
		r.plot(int(math.Floor(p.x)), int(math.Floor(p.y)), p, c, tex)
	}
}

func (r *Rasterizer) plot(x, y int, p rasterVertex, c Color, tex *scene.Texture) {
	if !r.depth.TestAndUpdateInverse(x, y, p.inv) {
		return
	}
	if tex != nil {
		c = tex.At(p.u, p.v)
	}
	r.fb.SetPixel(x, y, c)
}

// clipLine trims a segment to a one-pixel margin around the framebuffer
// (Liang-Barsky) so lines running far off screen stay cheap to walk.
func (r *Rasterizer) clipLine(a, b rasterVertex) (rasterVertex, rasterVertex, bool) {
	if math.IsNaN(a.x + a.y + b.x + b.y) {
		return a, b, false
	}
	x0, y0 := -1.0, -1.0
	x1, y1 := float64(r.fb.Width+1), float64(r.fb.Height+1)
	dx, dy := b.x-a.x, b.y-a.y

	t0, t1 := 0.0, 1.0
	for _, c := range [4][2]float64{
		{-dx, a.x - x0},
		{dx, x1 - a.x},
		{-dy, a.y - y0},
		{dy, y1 - a.y},
	} {
		p, q := c[0], c[1]
		if p == 0 {
			if q < 0 {
				return a, b, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
		if t0 > t1 {
			return a, b, false
		}
	}
	return lerpVertex(a, b, t0), lerpVertex(a, b, t1), true
}
