package render

import (
	"math"

	"github.com/taigrr/rednoise/pkg/math3d"
)

// Camera is a pinhole camera: a position, an orthonormal basis and a focal
// length measured in pixels.
type Camera struct {
	// Position in world space
	Position math3d.Vec3

	// Orientation holds the right, up and forward axes as columns.
	Orientation math3d.Mat3

	// FocalLength is the distance from the pinhole to the image plane in
	// pixels; larger values narrow the field of view.
	FocalLength float64

	// WorldUp keeps look-at and yaw level. Defaults to +Y.
	WorldUp math3d.Vec3
}

// NewCamera creates a camera at position looking at target.
func NewCamera(position, target math3d.Vec3, focalLength float64) *Camera {
	c := &Camera{
		Position:    position,
		Orientation: math3d.Mat3FromColumns(math3d.V3(1, 0, 0), math3d.V3(0, 1, 0), math3d.V3(0, 0, -1)),
		FocalLength: focalLength,
		WorldUp:     math3d.Up(),
	}
	c.LookAt(target)
	return c
}

// Right returns the camera's right axis.
func (c *Camera) Right() math3d.Vec3 { return c.Orientation.Col(0) }

// Up returns the camera's up axis.
func (c *Camera) Up() math3d.Vec3 { return c.Orientation.Col(1) }

// Forward returns the viewing direction.
func (c *Camera) Forward() math3d.Vec3 { return c.Orientation.Col(2) }

// ToCamera expresses a world point in camera space: (p - position) * orientation,
// giving (right, up, forward) coordinates.
func (c *Camera) ToCamera(p math3d.Vec3) math3d.Vec3 {
	return c.Orientation.VecMul(p.Sub(c.Position))
}

// ToWorld is the inverse of ToCamera.
func (c *Camera) ToWorld(v math3d.Vec3) math3d.Vec3 {
	return c.Position.Add(c.Orientation.MulVec3(v))
}

// Translate moves the camera by a world-space delta.
func (c *Camera) Translate(delta math3d.Vec3) {
	c.Position = c.Position.Add(delta)
}

// Move moves the camera along its own axes.
func (c *Camera) Move(right, up, forward float64) {
	c.Translate(c.Orientation.MulVec3(math3d.V3(right, up, forward)))
}

// Rotate turns the camera about a world-space axis through its position by
// degrees (right-hand rule), then re-orthonormalizes the basis.
func (c *Camera) Rotate(axis math3d.Vec3, degrees float64) {
	if axis.LenSq() == 0 {
		return
	}
	r := math3d.Rotation3(axis, degrees*math.Pi/180)
	c.Orientation = r.Mul(c.Orientation).Orthonormalize()
}

// Pitch tilts the view up (positive) or down about the camera's right axis.
func (c *Camera) Pitch(degrees float64) { c.Rotate(c.Right(), degrees) }

// Yaw turns the view about the world up axis, positive turning left.
func (c *Camera) Yaw(degrees float64) { c.Rotate(c.worldUp(), degrees) }

// LookAt points the camera at target while keeping it level with WorldUp.
// Looking straight along WorldUp keeps the current right axis.
func (c *Camera) LookAt(target math3d.Vec3) {
	forward := target.Sub(c.Position).Normalize()
	if forward.LenSq() == 0 {
		return
	}

	right := forward.Cross(c.worldUp()).Normalize()
	if right.LenSq() == 0 {
		// Forward is parallel to up; project the old right axis instead.
		old := c.Right()
		right = old.Sub(forward.Scale(old.Dot(forward))).Normalize()
		if right.LenSq() == 0 {
			right = forward.Cross(math3d.V3(1, 0, 0)).Normalize()
		}
	}
	up := right.Cross(forward)

	c.Orientation = math3d.Mat3FromColumns(right, up, forward)
}

func (c *Camera) worldUp() math3d.Vec3 {
	if c.WorldUp.LenSq() == 0 {
		return math3d.Up()
	}
	return c.WorldUp.Normalize()
}
