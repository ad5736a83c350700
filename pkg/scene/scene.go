// Package scene holds the geometry the renderer draws: named objects made
// of coloured, optionally textured triangles, and the loaders that build
// them from OBJ/MTL and glTF files.
package scene

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strings"

	"github.com/taigrr/rednoise/pkg/math3d"
)

// ErrObjectNotFound is returned when a named object is not in the scene.
var ErrObjectNotFound = errors.New("scene: object not found")

// Colour is a named solid colour with 8-bit channels.
type Colour struct {
	Name    string
	R, G, B uint8
}

// ToRGBA returns the colour as an opaque color.RGBA.
func (c Colour) ToRGBA() color.RGBA {
	return color.RGBA{c.R, c.G, c.B, 255}
}

// White is the colour given to faces without a material.
var White = Colour{Name: "white", R: 255, G: 255, B: 255}

// TextureTriangle maps the three vertices of a Triangle onto a texture.
// Points are normalized image coordinates: (0,0) is the top-left texel,
// (1,1) the bottom-right one.
type TextureTriangle struct {
	Points  [3]math3d.Vec2
	Texture *Texture
}

// Triangle is a flat-coloured triangle. When Texture is set, its points
// follow the same winding as Vertices.
type Triangle struct {
	Vertices [3]math3d.Vec3
	Colour   Colour
	Texture  *TextureTriangle
}

// Textured reports whether the triangle samples a texture.
func (t *Triangle) Textured() bool {
	return t.Texture != nil && t.Texture.Texture != nil
}

// Normal returns the unit normal of the triangle (v1-v0) × (v2-v0).
// Degenerate triangles return the zero vector.
func (t *Triangle) Normal() math3d.Vec3 {
	e0 := t.Vertices[1].Sub(t.Vertices[0])
	e1 := t.Vertices[2].Sub(t.Vertices[0])
	return e0.Cross(e1).Normalize()
}

// Centroid returns the average of the three vertices.
func (t *Triangle) Centroid() math3d.Vec3 {
	return t.Vertices[0].Add(t.Vertices[1]).Add(t.Vertices[2]).Scale(1.0 / 3)
}

// Object is a named list of triangles.
type Object struct {
	Name      string
	Triangles []Triangle
}

// NewObject creates an object with the given triangles.
func NewObject(name string, tris ...Triangle) *Object {
	return &Object{Name: name, Triangles: tris}
}

// Centroid returns the mean of every vertex of the object.
// An empty object has its centroid at the origin.
func (o *Object) Centroid() math3d.Vec3 {
	var sum math3d.Vec3
	n := 0
	for i := range o.Triangles {
		for _, v := range o.Triangles[i].Vertices {
			sum = sum.Add(v)
			n++
		}
	}
	if n == 0 {
		return sum
	}
	return sum.Scale(1 / float64(n))
}

// Bounds returns the axis-aligned bounding box of the object.
// ok is false for an object without triangles.
func (o *Object) Bounds() (lo, hi math3d.Vec3, ok bool) {
	if len(o.Triangles) == 0 {
		return lo, hi, false
	}
	lo = o.Triangles[0].Vertices[0]
	hi = lo
	for i := range o.Triangles {
		for _, v := range o.Triangles[i].Vertices {
			lo = lo.Min(v)
			hi = hi.Max(v)
		}
	}
	return lo, hi, true
}

// Scene is the ordered list of objects to render.
type Scene struct {
	Objects []*Object
}

// New creates a scene from objects, in order.
func New(objects ...*Object) *Scene {
	return &Scene{Objects: objects}
}

// Add appends an object.
func (s *Scene) Add(o *Object) {
	s.Objects = append(s.Objects, o)
}

// Find returns the first object called name.
func (s *Scene) Find(name string) (*Object, bool) {
	for _, o := range s.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Centroid returns the centroid of the named object.
func (s *Scene) Centroid(name string) (math3d.Vec3, error) {
	o, ok := s.Find(name)
	if !ok {
		return math3d.Vec3{}, fmt.Errorf("%w: %q", ErrObjectNotFound, name)
	}
	return o.Centroid(), nil
}

// TriangleCount returns the number of triangles across all objects.
func (s *Scene) TriangleCount() int {
	n := 0
	for _, o := range s.Objects {
		n += len(o.Triangles)
	}
	return n
}

// Bounds returns the bounding box of all objects.
func (s *Scene) Bounds() (lo, hi math3d.Vec3, ok bool) {
	for _, o := range s.Objects {
		olo, ohi, ook := o.Bounds()
		if !ook {
			continue
		}
		if !ok {
			lo, hi, ok = olo, ohi, true
			continue
		}
		lo = lo.Min(olo)
		hi = hi.Max(ohi)
	}
	return lo, hi, ok
}

// Center returns the middle of the scene's bounding box.
func (s *Scene) Center() math3d.Vec3 {
	lo, hi, _ := s.Bounds()
	return lo.Add(hi).Scale(0.5)
}

// Transform applies m to every vertex in the scene.
func (s *Scene) Transform(m math3d.Mat4) {
	for _, o := range s.Objects {
		for i := range o.Triangles {
			tri := &o.Triangles[i]
			for k := range tri.Vertices {
				tri.Vertices[k] = m.MulVec3(tri.Vertices[k])
			}
		}
	}
}

// Fit centres the scene on the origin and scales it uniformly so its
// largest extent equals size. Empty or flat-to-a-point scenes are left
// untouched.
func (s *Scene) Fit(size float64) {
	lo, hi, ok := s.Bounds()
	if !ok {
		return
	}
	maxDim := hi.Sub(lo).MaxComponent()
	if maxDim <= 0 || size <= 0 {
		return
	}
	center := lo.Add(hi).Scale(0.5)
	scale := size / maxDim
	s.Transform(math3d.ScaleUniform(scale).Mul(math3d.Translate(center.Negate())))
}

// Textures returns every distinct texture referenced by the scene.
func (s *Scene) Textures() []*Texture {
	seen := make(map[*Texture]bool)
	var out []*Texture
	for _, o := range s.Objects {
		for i := range o.Triangles {
			if !o.Triangles[i].Textured() {
				continue
			}
			tex := o.Triangles[i].Texture.Texture
			if !seen[tex] {
				seen[tex] = true
				out = append(out, tex)
			}
		}
	}
	return out
}

// LoadFile loads a scene, choosing the loader by file extension.
func LoadFile(path string) (*Scene, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		return LoadOBJ(path)
	case ".glb", ".gltf":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("unsupported scene format %q (use .obj, .glb or .gltf)", ext)
	}
}

func clampUnit(x float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
}
