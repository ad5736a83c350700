package render

import (
	"fmt"
	"math"

	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/scene"
)

// Default light parameters.
const (
	DefaultLightIntensity = 2000
	DefaultLightSpread    = 4
)

// Light is an omnidirectional point light whose strength falls off
// linearly with distance.
type Light struct {
	Position  math3d.Vec3
	Intensity float64
	Spread    float64
}

// DefaultLight returns a light above and in front of a typical scene.
func DefaultLight() *Light {
	return &Light{
		Position:  math3d.V3(250, 470, 120),
		Intensity: DefaultLightIntensity,
		Spread:    DefaultLightSpread,
	}
}

// IntensityAt returns intensity / (spread * pi * distance), with the
// distance floored to keep points on the light finite.
func (l *Light) IntensityAt(p math3d.Vec3) float64 {
	dist := math.Max(l.Position.Distance(p), 1e-6)
	spread := l.Spread
	if spread <= 0 {
		spread = DefaultLightSpread
	}
	return l.Intensity / (spread * math.Pi * dist)
}

// MoveToObject places the light at the centroid of the named object.
func (l *Light) MoveToObject(s *scene.Scene, name string) error {
	c, err := s.Centroid(name)
	if err != nil {
		return fmt.Errorf("move light: %w", err)
	}
	l.Position = c
	return nil
}
