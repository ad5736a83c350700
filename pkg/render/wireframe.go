package render

import (
	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

// Wireframe draws projected triangle outlines and 3D guide lines.
type Wireframe struct {
	proj   Projector
	raster *Rasterizer
}

// NewWireframe creates a wireframe renderer drawing through raster.
func NewWireframe(proj Projector, raster *Rasterizer) *Wireframe {
	return &Wireframe{proj: proj, raster: raster}
}

// DrawLine3D draws a world-space line, clipped at the near plane.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, color Color) {
	a, b, ok := w.proj.ClipSegment(p1, p2)
	if !ok {
		return
	}
	w.raster.DrawLine(a, b, color)
}

// DrawTriangle outlines one scene triangle in its own colour.
func (w *Wireframe) DrawTriangle(tri *scene.Triangle) {
	pts, n := w.proj.ProjectTriangle(tri)
	c := tri.Colour.ToRGBA()
	for i := range n {
		w.raster.StrokeTriangle(pts[i], c)
	}
}

// DrawObject outlines every triangle of an object.
func (w *Wireframe) DrawObject(o *scene.Object) {
	for i := range o.Triangles {
		w.DrawTriangle(&o.Triangles[i])
	}
}

// DrawAxes draws the coordinate axes at the origin.
func (w *Wireframe) DrawAxes(length float64) {
	origin := math3d.Zero3()
	w.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)   // X axis
	w.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen) // Y axis
	w.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)  // Z axis
}
