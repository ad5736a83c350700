package render

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/taigrr/rednoise/pkg/scene"
)

// Mode selects how a frame is drawn.
type Mode int

const (
	ModeWireframe Mode = iota
	ModeRaster
	ModeRayTrace
)

// ErrUnknownMode is returned by ParseMode for unrecognised names.
var ErrUnknownMode = errors.New("render: unknown mode")

func (m Mode) String() string {
	switch m {
	case ModeWireframe:
		return "wireframe"
	case ModeRaster:
		return "raster"
	case ModeRayTrace:
		return "raytrace"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts the names printed by Mode.String plus a few short
// aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wireframe", "wire":
		return ModeWireframe, nil
	case "raster", "fill":
		return ModeRaster, nil
	case "raytrace", "ray":
		return ModeRayTrace, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Options tune a RenderContext.
type Options struct {
	// Background fills pixels no triangle covers.
	Background Color

	// YDown puts pixel row 0 at the top of the image.
	YDown bool

	// Near is the near-plane distance used for projection and clipping.
	Near float64

	// Ambient is the fraction of a surface's colour kept in shadow.
	Ambient float64

	// IncidenceBias brightens surfaces lit at grazing angles.
	IncidenceBias float64

	// Cull skips objects outside the view frustum in wireframe and raster
	// modes.
	Cull bool

	// MarkLight draws a cross where the light projects.
	MarkLight bool

	// Axes draws world axes of this length in wireframe mode. Zero hides
	// them.
	Axes float64
}

// DefaultOptions returns y-down, culled rendering on black.
func DefaultOptions() Options {
	return Options{
		Background:    ColorBlack,
		YDown:         true,
		Near:          DefaultNear,
		Ambient:       DefaultAmbient,
		IncidenceBias: DefaultIncidenceBias,
		Cull:          true,
	}
}

// RenderContext owns everything needed to draw frames of a scene: the
// camera, the light, the caller's framebuffer and a matching depth buffer.
// It is not safe for concurrent use.
type RenderContext struct {
	Scene   *scene.Scene
	Camera  *Camera
	Light   *Light
	Options Options

	// CullingStats describes the most recent wireframe or raster frame.
	CullingStats CullingStats

	fb     *Framebuffer
	depth  *DepthBuffer
	raster *Rasterizer
}

// NewRenderContext creates a context drawing into fb. A nil light means
// DefaultLight.
func NewRenderContext(s *scene.Scene, cam *Camera, light *Light, fb *Framebuffer, opts Options) *RenderContext {
	if light == nil {
		light = DefaultLight()
	}
	rc := &RenderContext{
		Scene:   s,
		Camera:  cam,
		Light:   light,
		Options: opts,
	}
	rc.SetFramebuffer(fb)
	return rc
}

// SetFramebuffer switches to a new target, reallocating the depth buffer
// when the size changes.
func (rc *RenderContext) SetFramebuffer(fb *Framebuffer) {
	if rc.depth == nil || rc.depth.Width != fb.Width || rc.depth.Height != fb.Height {
		rc.depth = NewDepthBuffer(fb.Width, fb.Height)
		Logger().Info("render target", "width", fb.Width, "height", fb.Height)
	}
	rc.fb = fb
	rc.raster = NewRasterizer(fb, rc.depth)
}

// Resize replaces the framebuffer with a new one of the given size.
func (rc *RenderContext) Resize(width, height int) {
	rc.SetFramebuffer(NewFramebuffer(width, height))
}

// Framebuffer returns the current target.
func (rc *RenderContext) Framebuffer() *Framebuffer { return rc.fb }

// DepthBuffer returns the depth buffer of the last frame.
func (rc *RenderContext) DepthBuffer() *DepthBuffer { return rc.depth }

// Projector returns the projector for the current camera and target.
func (rc *RenderContext) Projector() Projector {
	return Projector{
		Camera: rc.Camera,
		Width:  rc.fb.Width,
		Height: rc.fb.Height,
		YDown:  rc.Options.YDown,
		Near:   rc.Options.Near,
	}
}

// Frustum returns the current view frustum.
func (rc *RenderContext) Frustum() Frustum {
	return NewFrustum(rc.Projector())
}

// Render draws one frame in the given mode. samples only affects ray
// tracing.
func (rc *RenderContext) Render(mode Mode, samples int) {
	switch mode {
	case ModeRaster:
		rc.RenderRaster()
	case ModeRayTrace:
		rc.RenderRayTrace(samples)
	default:
		rc.RenderWireframe()
	}
}

func (rc *RenderContext) beginFrame() {
	rc.fb.Clear(rc.Options.Background)
	rc.depth.Clear()
	rc.CullingStats = CullingStats{}
}

// visibleObjects returns the objects that survive frustum culling.
func (rc *RenderContext) visibleObjects() []*scene.Object {
	if rc.Scene == nil {
		return nil
	}
	if !rc.Options.Cull {
		return rc.Scene.Objects
	}
	f := rc.Frustum()
	visible := make([]*scene.Object, 0, len(rc.Scene.Objects))
	for _, o := range rc.Scene.Objects {
		if rc.CullingStats.Visible(f, o) {
			visible = append(visible, o)
		}
	}
	return visible
}

// RenderWireframe outlines every triangle in its own colour.
func (rc *RenderContext) RenderWireframe() {
	start := time.Now()
	rc.beginFrame()

	w := NewWireframe(rc.Projector(), rc.raster)
	for _, o := range rc.visibleObjects() {
		w.DrawObject(o)
	}
	if rc.Options.Axes > 0 {
		w.DrawAxes(rc.Options.Axes)
	}
	rc.markLight(w.proj)
	rc.logFrame(ModeWireframe, start)
}

// RenderRaster fills every triangle with its colour or texture, resolving
// visibility with the depth buffer.
func (rc *RenderContext) RenderRaster() {
	start := time.Now()
	rc.beginFrame()

	proj := rc.Projector()
	for _, o := range rc.visibleObjects() {
		for i := range o.Triangles {
			tri := &o.Triangles[i]
			pts, n := proj.ProjectTriangle(tri)
			for k := range n {
				if tri.Textured() {
					rc.raster.FillTexturedTriangle(pts[k], tri.Texture.Texture)
				} else {
					rc.raster.FillTriangle(pts[k], tri.Colour.ToRGBA())
				}
			}
		}
	}
	rc.markLight(proj)
	rc.logFrame(ModeRaster, start)
}

// RenderRayTrace casts samples primary rays per pixel with point-light
// shading and hard shadows. The depth buffer receives the distance of the
// nearest hit in each pixel.
func (rc *RenderContext) RenderRayTrace(samples int) {
	start := time.Now()
	rc.beginFrame()

	rt := NewRayTracer(rc.Scene, rc.Light)
	rt.Ambient = rc.Options.Ambient
	rt.IncidenceBias = rc.Options.IncidenceBias
	rt.Background = rc.Options.Background

	proj := rc.Projector()
	offsets := SampleOffsets(samples)
	for y := range rc.fb.Height {
		for x := range rc.fb.Width {
			c, dist, ok := rt.TracePixel(proj, x, y, offsets)
			rc.fb.SetPixel(x, y, c)
			if ok {
				rc.depth.TestAndUpdate(x, y, dist)
			}
		}
	}
	rc.markLight(proj)
	rc.logFrame(ModeRayTrace, start, "samples", len(offsets), "triangles", rt.Triangles())
}

func (rc *RenderContext) markLight(proj Projector) {
	if !rc.Options.MarkLight || rc.Light == nil {
		return
	}
	p, ok := proj.Project(rc.Light.Position)
	if !ok {
		return
	}
	rc.fb.DrawCross(int(math.Floor(p.X)), int(math.Floor(p.Y)), 2, ColorYellow)
}

func (rc *RenderContext) logFrame(mode Mode, start time.Time, args ...any) {
	log := Logger()
	attrs := []any{
		"mode", mode.String(),
		"width", rc.fb.Width,
		"height", rc.fb.Height,
		"elapsed", time.Since(start),
	}
	if mode != ModeRayTrace && rc.Options.Cull {
		attrs = append(attrs,
			"tested", rc.CullingStats.ObjectsTested,
			"culled", rc.CullingStats.ObjectsCulled,
		)
	}
	log.Debug("frame", append(attrs, args...)...)
}
