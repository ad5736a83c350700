package render

import (
	"errors"
	"math"
	"testing"

	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

func makeTriangle(a, b, c math3d.Vec3, col scene.Colour) scene.Triangle {
	return scene.Triangle{Vertices: [3]math3d.Vec3{a, b, c}, Colour: col}
}

// unitTriangle is the triangle (-1,-1,0), (1,-1,0), (0,1,0).
func unitTriangle(col scene.Colour) scene.Triangle {
	return makeTriangle(math3d.V3(-1, -1, 0), math3d.V3(1, -1, 0), math3d.V3(0, 1, 0), col)
}

func TestIntersectTriangle(t *testing.T) {
	tri := unitTriangle(scene.White)
	origin := math3d.V3(0, 0, -5)

	t.Run("centroid", func(t *testing.T) {
		dir := tri.Centroid().Sub(origin)
		tt, u, v, ok := IntersectTriangle(origin, dir, &tri)
		if !ok {
			t.Fatal("ray through the centroid missed")
		}
		if math.Abs(tt-1) > 1e-9 || math.Abs(u-1.0/3) > 1e-9 || math.Abs(v-1.0/3) > 1e-9 {
			t.Errorf("(t, u, v) = (%v, %v, %v), want (1, 1/3, 1/3)", tt, u, v)
		}
	})

	tests := []struct {
		name string
		dir  math3d.Vec3
		hit  bool
	}{
		{"parallel", math3d.V3(1, 0, 0), false},
		{"away", math3d.V3(0, 0, -1), false},
		{"outside", math3d.V3(2, 0, 5), false},
		{"near apex", math3d.V3(0, 0.99, 5), true},
		{"near base", math3d.V3(0, -0.99, 5), true},
		{"just below base", math3d.V3(0, -1.01, 5), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, _, ok := IntersectTriangle(origin, tc.dir, &tri); ok != tc.hit {
				t.Errorf("hit = %v, want %v", ok, tc.hit)
			}
		})
	}

	t.Run("degenerate triangle", func(t *testing.T) {
		line := makeTriangle(math3d.V3(0, 0, 0), math3d.V3(1, 0, 0), math3d.V3(2, 0, 0), scene.White)
		if _, _, _, ok := IntersectTriangle(origin, math3d.V3(0, 0, 1), &line); ok {
			t.Error("degenerate triangle reported a hit")
		}
	})
}

func TestRayTracerClosestHit(t *testing.T) {
	red := scene.Colour{Name: "red", R: 255}
	green := scene.Colour{Name: "green", G: 255}
	far := unitTriangle(red)
	near := unitTriangle(green)
	for i := range near.Vertices {
		near.Vertices[i].Z = -1
	}
	s := scene.New(scene.NewObject("far", far), scene.NewObject("near", near))
	rt := NewRayTracer(s, DefaultLight())

	h, ok := rt.Intersect(math3d.V3(0, 0, -5), math3d.V3(0, 0, 1))
	if !ok {
		t.Fatal("no hit")
	}
	if h.Triangle.Colour != green || h.Index != 1 {
		t.Errorf("hit %+v, want the nearer green triangle", h.Triangle.Colour)
	}
	if math.Abs(h.Distance-4) > 1e-9 {
		t.Errorf("distance = %v, want 4", h.Distance)
	}
	if !h.Point.ApproxEqual(math3d.V3(0, 0, -1), 1e-9) {
		t.Errorf("point = %v", h.Point)
	}
}

// shadowScene has a large floor at y=0, a small occluder at y=1 over the
// origin and a light straight above.
func shadowScene() (*scene.Scene, *Light) {
	floor := scene.NewObject("floor",
		makeTriangle(math3d.V3(-10, 0, -10), math3d.V3(10, 0, -10), math3d.V3(0, 0, 10), scene.White),
	)
	occluder := scene.NewObject("occluder",
		makeTriangle(math3d.V3(-1, 1, -1), math3d.V3(1, 1, -1), math3d.V3(0, 1, 1), scene.White),
	)
	light := &Light{Position: math3d.V3(0, 10, 0), Intensity: 1e6, Spread: 1}
	return scene.New(floor, occluder), light
}

func TestInShadow(t *testing.T) {
	s, light := shadowScene()
	rt := NewRayTracer(s, light)

	tests := []struct {
		name   string
		point  math3d.Vec3
		self   int
		shadow bool
	}{
		{"under occluder", math3d.V3(0, 0, 0), 0, true},
		{"open floor", math3d.V3(5, 0, -5), 0, false},
		{"on the occluder", math3d.V3(0, 1, 0), 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := rt.InShadow(tc.point, tc.self); got != tc.shadow {
				t.Errorf("InShadow = %v, want %v", got, tc.shadow)
			}
		})
	}
}

func TestShade(t *testing.T) {
	s, light := shadowScene()
	rt := NewRayTracer(s, light)
	col := Color{R: 200, G: 100, B: 50, A: 255}
	for _, o := range s.Objects {
		for i := range o.Triangles {
			o.Triangles[i].Colour = scene.Colour{R: col.R, G: col.G, B: col.B}
		}
	}

	down := math3d.V3(0, -1, 0)
	shadowed, ok := rt.Intersect(math3d.V3(0.1, 0.5, 0.1), down)
	if !ok {
		t.Fatal("missed the floor")
	}
	if got := rt.Shade(shadowed); got != (Color{R: 40, G: 20, B: 10, A: 255}) {
		t.Errorf("shadowed colour = %v, want ambient (40,20,10)", got)
	}

	lit, ok := rt.Intersect(math3d.V3(5, 5, -5), down)
	if !ok {
		t.Fatal("missed the floor")
	}
	if got := rt.Shade(lit); got != col {
		t.Errorf("brightly lit colour = %v, want %v", got, col)
	}

	// A weak light never darkens below ambient.
	rt.Light = &Light{Position: math3d.V3(0, 1000, 0), Intensity: 1e-3, Spread: 4}
	if got := rt.Shade(lit); got != (Color{R: 40, G: 20, B: 10, A: 255}) {
		t.Errorf("dim colour = %v, want ambient floor", got)
	}
}

func TestSurfaceColourTextured(t *testing.T) {
	tex := scene.NewTexture(2, 1)
	tex.SetPixel(0, 0, ColorRed)
	tex.SetPixel(1, 0, ColorGreen)

	tri := unitTriangle(scene.White)
	tri.Texture = &scene.TextureTriangle{
		Points:  [3]math3d.Vec2{math3d.V2(0, 0), math3d.V2(1, 0), math3d.V2(1, 0)},
		Texture: tex,
	}

	tests := []struct {
		name string
		u, v float64
		want Color
	}{
		{"vertex 0", 0, 0, ColorRed},
		{"vertex 1", 1, 0, ColorGreen},
		{"near vertex 0", 0.1, 0.1, ColorRed},
		{"near vertex 2", 0.1, 0.8, ColorGreen},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SurfaceColour(Hit{Triangle: &tri, U: tc.u, V: tc.v})
			if got != tc.want {
				t.Errorf("colour = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSampleOffsets(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{4, 4},
		{5, 9},
		{9, 9},
		{16, 16},
	}

	for _, tc := range tests {
		offsets := SampleOffsets(tc.n)
		if len(offsets) != tc.want {
			t.Errorf("SampleOffsets(%d) has %d samples, want %d", tc.n, len(offsets), tc.want)
		}
		var sum math3d.Vec2
		for _, o := range offsets {
			if math.Abs(o.X) >= 0.5 || math.Abs(o.Y) >= 0.5 {
				t.Errorf("SampleOffsets(%d): offset %v leaves the pixel", tc.n, o)
			}
			sum = sum.Add(o)
		}
		// Every pattern is centred on the pixel.
		if math.Abs(sum.X) > 1e-9 || math.Abs(sum.Y) > 1e-9 {
			t.Errorf("SampleOffsets(%d) is off centre by %v", tc.n, sum)
		}
	}
}

func TestLight(t *testing.T) {
	l := DefaultLight()
	if l.Position != math3d.V3(250, 470, 120) || l.Intensity != 2000 || l.Spread != 4 {
		t.Errorf("default light = %+v", l)
	}

	l = &Light{Position: math3d.Zero3(), Intensity: 100, Spread: 2}
	if got, want := l.IntensityAt(math3d.V3(0, 0, 5)), 100/(2*math.Pi*5); math.Abs(got-want) > 1e-12 {
		t.Errorf("IntensityAt = %v, want %v", got, want)
	}
	if got := l.IntensityAt(math3d.Zero3()); math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("intensity at the light = %v, want finite", got)
	}

	s, _ := shadowScene()
	if err := l.MoveToObject(s, "occluder"); err != nil {
		t.Fatalf("MoveToObject: %v", err)
	}
	if want := math3d.V3(0, 1, -1.0/3); !l.Position.ApproxEqual(want, 1e-9) {
		t.Errorf("light at %v, want occluder centroid %v", l.Position, want)
	}

	err := l.MoveToObject(s, "missing")
	if !errors.Is(err, scene.ErrObjectNotFound) {
		t.Errorf("err = %v, want ErrObjectNotFound", err)
	}
}
