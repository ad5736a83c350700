package render

import "math"

// DepthBuffer stores one inverse depth per pixel. Larger values are
// closer; a cleared pixel holds -Inf so any visible surface wins.
type DepthBuffer struct {
	Width  int
	Height int
	inv    []float64
}

// NewDepthBuffer creates a cleared depth buffer.
func NewDepthBuffer(width, height int) *DepthBuffer {
	d := &DepthBuffer{Width: width, Height: height, inv: make([]float64, width*height)}
	d.Clear()
	return d
}

// Clear resets every pixel to "nothing drawn".
func (d *DepthBuffer) Clear() {
	n := len(d.inv)
	if n == 0 {
		return
	}
	d.inv[0] = math.Inf(-1)
	for i := 1; i < n; i *= 2 {
		copy(d.inv[i:], d.inv[:i])
	}
}

// TestAndUpdate records depth at (x, y) if it is strictly closer than
// what is stored. Non-positive depths and pixels outside the buffer are
// rejected.
func (d *DepthBuffer) TestAndUpdate(x, y int, depth float64) bool {
	if !(depth > 0) {
		return false
	}
	return d.TestAndUpdateInverse(x, y, 1/depth)
}

// TestAndUpdateInverse is TestAndUpdate for a precomputed inverse depth.
// Ties keep the stored value, so redrawing a frame is a no-op.
func (d *DepthBuffer) TestAndUpdateInverse(x, y int, inv float64) bool {
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return false
	}
	i := y*d.Width + x
	if inv > d.inv[i] {
		d.inv[i] = inv
		return true
	}
	return false
}

// At returns the stored inverse depth, or -Inf when nothing was drawn or
// (x, y) is outside the buffer.
func (d *DepthBuffer) At(x, y int) float64 {
	if x < 0 || x >= d.Width || y < 0 || y >= d.Height {
		return math.Inf(-1)
	}
	return d.inv[y*d.Width+x]
}

// Depth returns the stored distance at (x, y), +Inf when empty.
func (d *DepthBuffer) Depth(x, y int) float64 {
	inv := d.At(x, y)
	if inv <= 0 {
		return math.Inf(1)
	}
	return 1 / inv
}
