package render

import (
	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

// DefaultNear is the closest camera-space forward distance a projected
// point may have.
const DefaultNear = 1e-3

// ScreenPoint is a projected vertex: continuous pixel coordinates, the
// Euclidean distance to the camera and the texture coordinate it carries.
type ScreenPoint struct {
	X, Y  float64
	Depth float64
	UV    math3d.Vec2
}

// Projector maps between world space and pixel coordinates for one camera
// and canvas size.
type Projector struct {
	Camera *Camera
	Width  int
	Height int

	// YDown puts screen y = 0 at the top row, matching image memory.
	YDown bool

	// Near rejects points whose forward distance is smaller. Zero means
	// DefaultNear.
	Near float64
}

// NewProjector creates a y-down projector for a camera and canvas.
func NewProjector(cam *Camera, width, height int) Projector {
	return Projector{Camera: cam, Width: width, Height: height, YDown: true, Near: DefaultNear}
}

func (p Projector) near() float64 {
	if p.Near <= 0 {
		return DefaultNear
	}
	return p.Near
}

// Project maps a world point onto the canvas. It reports false for points
// at or behind the near plane.
func (p Projector) Project(world math3d.Vec3) (ScreenPoint, bool) {
	return p.projectCamera(p.Camera.ToCamera(world))
}

func (p Projector) projectCamera(c math3d.Vec3) (ScreenPoint, bool) {
	if c.Z < p.near() {
		return ScreenPoint{}, false
	}
	f := p.Camera.FocalLength
	sx := c.X*f/c.Z + float64(p.Width)/2
	dy := c.Y * f / c.Z
	sy := float64(p.Height)/2 + dy
	if p.YDown {
		sy = float64(p.Height)/2 - dy
	}
	return ScreenPoint{X: sx, Y: sy, Depth: c.Len()}, true
}

// RayDirection returns the world-space direction through the continuous
// pixel position (sx, sy). The result is not normalized; its forward
// component equals the focal length.
func (p Projector) RayDirection(sx, sy float64) math3d.Vec3 {
	return p.Camera.Orientation.MulVec3(p.cameraDirection(sx, sy))
}

func (p Projector) cameraDirection(sx, sy float64) math3d.Vec3 {
	dx := sx - float64(p.Width)/2
	dy := sy - float64(p.Height)/2
	if p.YDown {
		dy = -dy
	}
	return math3d.V3(dx, dy, p.Camera.FocalLength)
}

// Unproject returns the world point at Euclidean distance depth from the
// camera along the ray through (sx, sy).
func (p Projector) Unproject(sx, sy, depth float64) math3d.Vec3 {
	d := p.RayDirection(sx, sy).Normalize()
	return p.Camera.Position.Add(d.Scale(depth))
}

// clipVertex is a camera-space vertex with its texture coordinate.
type clipVertex struct {
	pos math3d.Vec3
	uv  math3d.Vec2
}

// ProjectTriangle clips a triangle against the near plane and projects
// the result. A triangle fully in front gives one screen triangle, a
// partially clipped one gives one or two, and one fully behind gives none.
func (p Projector) ProjectTriangle(tri *scene.Triangle) (out [2][3]ScreenPoint, n int) {
	var in [3]clipVertex
	front := 0
	near := p.near()
	for i, v := range tri.Vertices {
		in[i].pos = p.Camera.ToCamera(v)
		if tri.Texture != nil {
			in[i].uv = tri.Texture.Points[i]
		}
		if in[i].pos.Z >= near {
			front++
		}
	}

	switch front {
	case 0:
		return out, 0
	case 3:
		for i := range in {
			out[0][i] = p.screenVertex(in[i])
		}
		return out, 1
	}

	// Sutherland-Hodgman against z = near; a triangle clips to a triangle
	// or a quad.
	var poly [4]clipVertex
	m := 0
	for i := range in {
		a, b := in[i], in[(i+1)%3]
		aIn, bIn := a.pos.Z >= near, b.pos.Z >= near
		if aIn {
			poly[m] = a
			m++
		}
		if aIn != bIn {
			t := (near - a.pos.Z) / (b.pos.Z - a.pos.Z)
			v := clipVertex{pos: a.pos.Lerp(b.pos, t), uv: a.uv.Lerp(b.uv, t)}
			v.pos.Z = near
			poly[m] = v
			m++
		}
	}

	for i := 1; i+1 < m; i++ {
		out[n] = [3]ScreenPoint{p.screenVertex(poly[0]), p.screenVertex(poly[i]), p.screenVertex(poly[i+1])}
		n++
	}
	return out, n
}

func (p Projector) screenVertex(v clipVertex) ScreenPoint {
	sp, _ := p.projectCamera(v.pos)
	sp.UV = v.uv
	return sp
}

// ClipSegment clips a world-space segment to the near plane and projects
// it. It reports false when the whole segment is behind the camera.
func (p Projector) ClipSegment(a, b math3d.Vec3) (ScreenPoint, ScreenPoint, bool) {
	ca, cb := p.Camera.ToCamera(a), p.Camera.ToCamera(b)
	near := p.near()
	if ca.Z < near && cb.Z < near {
		return ScreenPoint{}, ScreenPoint{}, false
	}
	if ca.Z < near {
		ca = ca.Lerp(cb, (near-ca.Z)/(cb.Z-ca.Z))
		ca.Z = near
	} else if cb.Z < near {
		cb = cb.Lerp(ca, (near-cb.Z)/(ca.Z-cb.Z))
		cb.Z = near
	}
	sa, _ := p.projectCamera(ca)
	sb, _ := p.projectCamera(cb)
	return sa, sb, true
}
