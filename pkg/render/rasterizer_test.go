package render

import (
	"math"
	"testing"

	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

// createTestRasterizer creates a rasterizer with fresh buffers.
func createTestRasterizer(width, height int) (*Rasterizer, *Framebuffer, *DepthBuffer) {
	fb := NewFramebuffer(width, height)
	fb.Clear(ColorBlack)
	depth := NewDepthBuffer(width, height)
	return NewRasterizer(fb, depth), fb, depth
}

func pt(x, y, depth float64) ScreenPoint {
	return ScreenPoint{X: x, Y: y, Depth: depth}
}

// insideStrict reports whether (px, py) is strictly inside the triangle.
func insideStrict(tri [3]ScreenPoint, px, py float64) bool {
	edge := func(a, b ScreenPoint) float64 {
		return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
	}
	e0, e1, e2 := edge(tri[0], tri[1]), edge(tri[1], tri[2]), edge(tri[2], tri[0])
	return (e0 > 0 && e1 > 0 && e2 > 0) || (e0 < 0 && e1 < 0 && e2 < 0)
}

func TestFillTriangleCoversPixelCentres(t *testing.T) {
	tests := []struct {
		name string
		tri  [3]ScreenPoint
	}{
		{"general", [3]ScreenPoint{pt(2.3, 1.7, 1), pt(13.9, 4.2, 1), pt(6.1, 12.8, 1)}},
		{"flat top", [3]ScreenPoint{pt(1.2, 2.1, 1), pt(14.7, 2.1, 1), pt(8.3, 13.9, 1)}},
		{"flat bottom", [3]ScreenPoint{pt(7.7, 0.4, 1), pt(1.1, 11.3, 1), pt(15.2, 11.3, 1)}},
		{"clockwise", [3]ScreenPoint{pt(6.1, 12.8, 1), pt(13.9, 4.2, 1), pt(2.3, 1.7, 1)}},
		{"thin sliver", [3]ScreenPoint{pt(0.2, 0.3, 1), pt(15.8, 7.1, 1), pt(15.6, 7.9, 1)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, _ := createTestRasterizer(16, 16)
			r.FillTriangle(tc.tri, ColorWhite)

			for y := range 16 {
				for x := range 16 {
					want := insideStrict(tc.tri, float64(x)+0.5, float64(y)+0.5)
					got := fb.GetPixel(x, y) == ColorWhite
					if got != want {
						t.Errorf("pixel (%d,%d) drawn = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	// The diagonal passes through every pixel centre (i+0.5, i+0.5).
	quads := []struct {
		name string
		a, b [3]ScreenPoint
	}{
		{
			"diagonal",
			[3]ScreenPoint{pt(0, 0, 1), pt(10, 0, 1), pt(10, 10, 1)},
			[3]ScreenPoint{pt(0, 0, 1), pt(10, 10, 1), pt(0, 10, 1)},
		},
		{
			"off-grid",
			[3]ScreenPoint{pt(0.3, 0.7, 1), pt(9.4, 1.2, 1), pt(8.8, 9.6, 1)},
			[3]ScreenPoint{pt(0.3, 0.7, 1), pt(8.8, 9.6, 1), pt(1.1, 9.9, 1)},
		},
	}

	for _, q := range quads {
		t.Run(q.name, func(t *testing.T) {
			ra, fbA, _ := createTestRasterizer(10, 10)
			rb, fbB, _ := createTestRasterizer(10, 10)
			ra.FillTriangle(q.a, ColorRed)
			rb.FillTriangle(q.b, ColorGreen)

			for y := range 10 {
				for x := range 10 {
					inA := fbA.GetPixel(x, y) == ColorRed
					inB := fbB.GetPixel(x, y) == ColorGreen
					if inA && inB {
						t.Errorf("pixel (%d,%d) drawn by both triangles", x, y)
					}
					inQuad := insideStrict(q.a, float64(x)+0.5, float64(y)+0.5) ||
						insideStrict(q.b, float64(x)+0.5, float64(y)+0.5)
					if inQuad && !inA && !inB {
						t.Errorf("pixel (%d,%d) inside the quad left empty", x, y)
					}
				}
			}
		})
	}
}

func TestDegenerateTriangleIsStroked(t *testing.T) {
	r, fb, _ := createTestRasterizer(12, 4)
	r.FillTriangle([3]ScreenPoint{pt(1.5, 1.5, 1), pt(5.5, 1.5, 1), pt(9.5, 1.5, 1)}, ColorWhite)

	for x := range 12 {
		want := x >= 1 && x <= 9
		if got := fb.GetPixel(x, 1) == ColorWhite; got != want {
			t.Errorf("pixel (%d,1) drawn = %v, want %v", x, got, want)
		}
	}
	if fb.GetPixel(5, 0) != ColorBlack || fb.GetPixel(5, 2) != ColorBlack {
		t.Error("line spilled into neighbouring rows")
	}
}

func TestDepthTestNearestWins(t *testing.T) {
	near := [3]ScreenPoint{pt(0, 0, 2), pt(8, 0, 2), pt(0, 8, 2)}
	far := [3]ScreenPoint{pt(0, 0, 5), pt(8, 0, 5), pt(0, 8, 5)}

	for _, order := range []string{"near first", "far first"} {
		t.Run(order, func(t *testing.T) {
			r, fb, depth := createTestRasterizer(8, 8)
			if order == "near first" {
				r.FillTriangle(near, ColorRed)
				r.FillTriangle(far, ColorGreen)
			} else {
				r.FillTriangle(far, ColorGreen)
				r.FillTriangle(near, ColorRed)
			}
			if c := fb.GetPixel(1, 1); c != ColorRed {
				t.Errorf("pixel = %v, want the nearer red", c)
			}
			if d := depth.Depth(1, 1); math.Abs(d-2) > 1e-9 {
				t.Errorf("depth = %v, want 2", d)
			}
		})
	}
}

func TestRedrawIsNoop(t *testing.T) {
	tri := [3]ScreenPoint{pt(1.2, 0.5, 3), pt(7.9, 2.2, 4), pt(3.3, 7.6, 5)}
	r, fb, _ := createTestRasterizer(8, 8)

	r.FillTriangle(tri, ColorRed)
	first := append([]Color(nil), fb.Pixels...)
	r.FillTriangle(tri, ColorGreen)

	for i := range first {
		if fb.Pixels[i] != first[i] {
			t.Fatalf("pixel %d changed from %v to %v on redraw", i, first[i], fb.Pixels[i])
		}
	}
}

func TestFillClipsToFramebuffer(t *testing.T) {
	r, fb, _ := createTestRasterizer(6, 5)
	r.FillTriangle([3]ScreenPoint{pt(-100, -100, 1), pt(500, -50, 1), pt(-20, 900, 1)}, ColorWhite)

	for i, c := range fb.Pixels {
		if c != ColorWhite {
			t.Fatalf("pixel %d not covered by an enclosing triangle", i)
		}
	}

	// Fully off screen.
	r2, fb2, _ := createTestRasterizer(6, 5)
	r2.FillTriangle([3]ScreenPoint{pt(-10, -10, 1), pt(-2, -10, 1), pt(-5, -3, 1)}, ColorWhite)
	r2.DrawLine(pt(-50, 2, 1), pt(-1, 2, 1), ColorWhite)
	for i, c := range fb2.Pixels {
		if c != ColorBlack {
			t.Fatalf("pixel %d drawn by an off-screen primitive", i)
		}
	}
}

func TestDrawLine(t *testing.T) {
	tests := []struct {
		name string
		a, b ScreenPoint
		want [][2]int
	}{
		{"horizontal", pt(1.5, 2.5, 1), pt(4.5, 2.5, 1), [][2]int{{1, 2}, {2, 2}, {3, 2}, {4, 2}}},
		{"vertical", pt(3.5, 0.5, 1), pt(3.5, 3.5, 1), [][2]int{{3, 0}, {3, 1}, {3, 2}, {3, 3}}},
		{"diagonal", pt(0.5, 0.5, 1), pt(3.5, 3.5, 1), [][2]int{{0, 0}, {1, 1}, {2, 2}, {3, 3}}},
		{"single point", pt(2.2, 2.7, 1), pt(2.2, 2.7, 1), [][2]int{{2, 2}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, fb, _ := createTestRasterizer(6, 6)
			r.DrawLine(tc.a, tc.b, ColorWhite)

			drawn := 0
			for _, c := range fb.Pixels {
				if c == ColorWhite {
					drawn++
				}
			}
			if drawn != len(tc.want) {
				t.Errorf("drew %d pixels, want %d", drawn, len(tc.want))
			}
			for _, p := range tc.want {
				if fb.GetPixel(p[0], p[1]) != ColorWhite {
					t.Errorf("pixel %v not drawn", p)
				}
			}
		})
	}
}

func TestFillTexturedTriangle(t *testing.T) {
	// Left half red, right half green.
	tex := scene.NewTexture(2, 1)
	tex.SetPixel(0, 0, ColorRed)
	tex.SetPixel(1, 0, ColorGreen)

	r, fb, _ := createTestRasterizer(20, 20)
	quad := [2][3]ScreenPoint{
		{
			{X: 0, Y: 0, Depth: 1, UV: math3d.V2(0, 0)},
			{X: 20, Y: 0, Depth: 1, UV: math3d.V2(1, 0)},
			{X: 20, Y: 20, Depth: 1, UV: math3d.V2(1, 1)},
		},
		{
			{X: 0, Y: 0, Depth: 1, UV: math3d.V2(0, 0)},
			{X: 20, Y: 20, Depth: 1, UV: math3d.V2(1, 1)},
			{X: 0, Y: 20, Depth: 1, UV: math3d.V2(0, 1)},
		},
	}
	for _, tri := range quad {
		r.FillTexturedTriangle(tri, tex)
	}

	if c := fb.GetPixel(2, 10); c != ColorRed {
		t.Errorf("left pixel = %v, want red", c)
	}
	if c := fb.GetPixel(17, 10); c != ColorGreen {
		t.Errorf("right pixel = %v, want green", c)
	}
}

func TestDepthBuffer(t *testing.T) {
	d := NewDepthBuffer(4, 3)

	if got := d.At(1, 1); !math.IsInf(got, -1) {
		t.Errorf("cleared value = %v, want -Inf", got)
	}
	if !math.IsInf(d.Depth(1, 1), 1) {
		t.Error("cleared depth should be +Inf")
	}

	tests := []struct {
		name  string
		x, y  int
		depth float64
		want  bool
	}{
		{"first write", 1, 1, 5, true},
		{"farther", 1, 1, 6, false},
		{"tie", 1, 1, 5, false},
		{"closer", 1, 1, 4, true},
		{"zero depth", 2, 2, 0, false},
		{"negative depth", 2, 2, -1, false},
		{"NaN depth", 2, 2, math.NaN(), false},
		{"left of buffer", -1, 0, 1, false},
		{"below buffer", 0, 3, 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := d.TestAndUpdate(tc.x, tc.y, tc.depth); got != tc.want {
				t.Errorf("TestAndUpdate = %v, want %v", got, tc.want)
			}
		})
	}

	if got := d.Depth(1, 1); got != 4 {
		t.Errorf("depth = %v, want 4", got)
	}
	if got := d.At(9, 9); !math.IsInf(got, -1) {
		t.Errorf("out-of-bounds At = %v, want -Inf", got)
	}

	d.Clear()
	if !d.TestAndUpdate(1, 1, 100) {
		t.Error("write after Clear rejected")
	}
}
