package main

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/taigrr/rednoise/internal/config"
	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/render"
	"github.com/taigrr/rednoise/pkg/scene"
)

// frameFill is the share of the shorter canvas side the scene's bounding
// sphere covers when the camera is placed automatically.
const frameFill = 0.4

// session is a loaded scene plus the camera, light and context that draw it.
type session struct {
	cfg     config.Config
	scene   *scene.Scene
	rc      *render.RenderContext
	mode    render.Mode
	samples int
	target  math3d.Vec3
}

func newSession(cfg config.Config, width, height int) (*session, error) {
	if cfg.Scene.Path == "" {
		return nil, errors.New("no scene given")
	}
	s, err := scene.LoadFile(cfg.Scene.Path)
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	if cfg.Scene.Fit > 0 {
		s.Fit(cfg.Scene.Fit)
	}
	slog.Info("scene loaded", "path", cfg.Scene.Path,
		"objects", len(s.Objects), "triangles", s.TriangleCount())

	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.RenderOptions()
	if err != nil {
		return nil, err
	}

	target := s.Center()
	if v, ok := config.Vec(cfg.Camera.LookAt); ok {
		target = v
	}
	pos, ok := config.Vec(cfg.Camera.Position)
	if !ok {
		pos = framePosition(s, target, cfg.Camera.FocalLength, width, height)
	}
	cam := render.NewCamera(pos, target, cfg.Camera.FocalLength)

	light := render.DefaultLight()
	if v, ok := config.Vec(cfg.Light.Position); ok {
		light.Position = v
	}
	light.Intensity = cfg.Light.Intensity
	light.Spread = cfg.Light.Spread
	if cfg.Light.Object != "" {
		if err := light.MoveToObject(s, cfg.Light.Object); err != nil {
			return nil, err
		}
	}

	rc := render.NewRenderContext(s, cam, light, render.NewFramebuffer(width, height), opts)
	return &session{
		cfg:     cfg,
		scene:   s,
		rc:      rc,
		mode:    mode,
		samples: cfg.Render.Samples,
		target:  target,
	}, nil
}

// framePosition backs the camera away from target, slightly above it, until
// the scene's bounding sphere fills frameFill of the canvas.
func framePosition(s *scene.Scene, target math3d.Vec3, focal float64, width, height int) math3d.Vec3 {
	lo, hi, ok := s.Bounds()
	radius := 1.0
	if ok {
		radius = math.Max(hi.Sub(lo).Len()/2, 1e-3)
	}
	dist := radius * focal / (frameFill * float64(min(width, height)))
	return target.Add(math3d.V3(0, 0.3, 1).Normalize().Scale(dist + radius))
}

// step is the viewer's translation per key press, scaled to the scene.
func (s *session) step() float64 {
	lo, hi, ok := s.scene.Bounds()
	if !ok {
		return 1
	}
	return math.Max(hi.Sub(lo).MaxComponent()/50, 1e-3)
}

func (s *session) render() {
	s.rc.Render(s.mode, s.samples)
}
