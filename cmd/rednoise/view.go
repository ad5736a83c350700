package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"

	"github.com/taigrr/rednoise/internal/config"
	"github.com/taigrr/rednoise/pkg/render"
	"github.com/taigrr/rednoise/pkg/scene"
)

const (
	// lightObject is the scene object the light jumps to on "o".
	lightObject = "light"
	// screenshotPath is where "p" writes the current frame.
	screenshotPath = "screenie.ppm"
	// logPath receives the viewer's log with --verbose, since stderr
	// shares the terminal.
	logPath = "rednoise.log"
	// turnDegrees is the pitch or yaw per arrow key press.
	turnDegrees = 1.0
)

func newViewCommand(root *rootOptions) *cobra.Command {
	var fps int

	cmd := &cobra.Command{
		Use:   "view [scene]",
		Short: "Explore a scene interactively in the terminal",
		Long: `Explore a scene interactively in the terminal.

Controls:
  w/s a/d q/e   move forward/back, left/right, up/down
  arrows        pitch and yaw by one degree
  l             look at the scene centre
  f/b/r         wireframe, raster or ray traced
  1/2/4         ray samples per pixel
  o             move the light to the "light" object
  x             toggle world axes
  p             save the frame to screenie.ppm
  c             clear the frame
  ?             toggle the HUD
  esc           quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.resolve(args)
			if err != nil {
				return err
			}
			if root.verbose {
				f, err := os.Create(logPath)
				if err != nil {
					return err
				}
				defer f.Close()
				setupLogging(f, true)
			} else {
				setupLogging(io.Discard, false)
			}
			return runViewer(cmd.Context(), cfg, fps)
		},
	}

	cmd.Flags().IntVar(&fps, "fps", 30, "target frames per second")
	return cmd
}

// MotionAxis eases one camera axis toward a target offset with a
// critically damped spring.
type MotionAxis struct {
	Position float64
	Target   float64
	velocity float64
	spring   harmonica.Spring
}

// NewMotionAxis creates an axis with harmonica spring for smooth motion
func NewMotionAxis(fps int) MotionAxis {
	return MotionAxis{
		// Frequency 6.0 settles within a few frames, damping 1.0 = no overshoot
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Update advances the spring one frame and returns how far it moved.
func (a *MotionAxis) Update() float64 {
	prev := a.Position
	a.Position, a.velocity = a.spring.Update(a.Position, a.velocity, a.Target)
	return a.Position - prev
}

// Settled reports whether the axis has reached its target.
func (a *MotionAxis) Settled(eps float64) bool {
	return abs(a.Target-a.Position) < eps && abs(a.velocity) < eps
}

// Motion smooths camera translation along its right, up and forward axes.
type Motion struct {
	Right, Up, Forward MotionAxis
}

func NewMotion(fps int) *Motion {
	return &Motion{
		Right:   NewMotionAxis(fps),
		Up:      NewMotionAxis(fps),
		Forward: NewMotionAxis(fps),
	}
}

// Push adds to the target offsets.
func (m *Motion) Push(right, up, forward float64) {
	m.Right.Target += right
	m.Up.Target += up
	m.Forward.Target += forward
}

// Apply moves cam by this frame's share of the pending motion. It reports
// whether the camera moved.
func (m *Motion) Apply(cam *render.Camera, eps float64) bool {
	if m.Right.Settled(eps) && m.Up.Settled(eps) && m.Forward.Settled(eps) {
		return false
	}
	cam.Move(m.Right.Update(), m.Up.Update(), m.Forward.Update())
	return true
}

// Stop drops pending motion, leaving the camera where it is.
func (m *Motion) Stop() {
	for _, a := range []*MotionAxis{&m.Right, &m.Up, &m.Forward} {
		a.Target = a.Position
		a.velocity = 0
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// viewer ties a session to a terminal. Only the render loop touches it.
type viewer struct {
	term   *uv.Terminal
	sess   *session
	hud    *HUD
	motion *Motion
	step   float64

	canvasHeight int
	focal        float64

	axes    bool
	cleared bool
	dirty   bool
}

func runViewer(ctx context.Context, cfg config.Config, fps int) error {
	if fps <= 0 {
		return errors.New("fps must be positive")
	}

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	// Each cell shows two pixel rows.
	fbW, fbH := width, height*2
	cfg.Camera.FocalLength *= float64(fbH) / float64(cfg.Canvas.Height)
	sess, err := newSession(cfg, fbW, fbH)
	if err != nil {
		return err
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	_ = term.Resize(width, height)

	v := &viewer{
		term:         term,
		sess:         sess,
		hud:          NewHUD(filepath.Base(cfg.Scene.Path), sess.scene.TriangleCount()),
		motion:       NewMotion(fps),
		step:         sess.step(),
		canvasHeight: fbH,
		focal:        sess.rc.Camera.FocalLength,
		dirty:        true,
	}
	v.hud.Visible = true

	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		_ = term.Display()
		_ = term.Shutdown(context.Background())
	}()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	events := term.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if v.handle(ev) {
				return nil
			}
		case <-ticker.C:
			if err := v.frame(); err != nil {
				return err
			}
		}
	}
}

// handle applies one input event. It returns true when the viewer should
// quit.
func (v *viewer) handle(ev uv.Event) bool {
	cam := v.sess.rc.Camera

	switch ev := ev.(type) {
	case uv.WindowSizeEvent:
		v.resize(ev.Width, ev.Height)

	case uv.KeyPressEvent:
		switch {
		case ev.MatchString("esc", "ctrl+c"):
			return true
		case ev.MatchString("w"):
			v.motion.Push(0, 0, v.step)
		case ev.MatchString("s"):
			v.motion.Push(0, 0, -v.step)
		case ev.MatchString("a"):
			v.motion.Push(-v.step, 0, 0)
		case ev.MatchString("d"):
			v.motion.Push(v.step, 0, 0)
		case ev.MatchString("q"):
			v.motion.Push(0, v.step, 0)
		case ev.MatchString("e"):
			v.motion.Push(0, -v.step, 0)
		case ev.MatchString("up"):
			cam.Pitch(turnDegrees)
		case ev.MatchString("down"):
			cam.Pitch(-turnDegrees)
		case ev.MatchString("left"):
			cam.Yaw(turnDegrees)
		case ev.MatchString("right"):
			cam.Yaw(-turnDegrees)
		case ev.MatchString("l"):
			v.motion.Stop()
			cam.LookAt(v.sess.target)
		case ev.MatchString("f"):
			v.setMode(render.ModeWireframe)
		case ev.MatchString("b"):
			v.setMode(render.ModeRaster)
		case ev.MatchString("r"):
			v.setMode(render.ModeRayTrace)
		case ev.MatchString("1"), ev.MatchString("2"), ev.MatchString("4"):
			v.sess.samples = int(ev.Key().Code - '0')
			v.hud.Status(fmt.Sprintf("%d samples per pixel", v.sess.samples))
		case ev.MatchString("o"):
			if err := v.sess.rc.Light.MoveToObject(v.sess.scene, lightObject); err != nil {
				if errors.Is(err, scene.ErrObjectNotFound) {
					v.hud.Status(fmt.Sprintf("no %q object in scene", lightObject))
				} else {
					v.hud.Status(err.Error())
				}
				return false
			}
			v.hud.Status("light moved to " + lightObject)
		case ev.MatchString("x"):
			v.axes = !v.axes
		case ev.MatchString("p"):
			v.screenshot()
			return false
		case ev.MatchString("c"):
			v.cleared = true
		case ev.MatchString("?"), ev.MatchString("shift+/"):
			v.hud.Visible = !v.hud.Visible
		default:
			return false
		}
		if !ev.MatchString("c") {
			v.cleared = false
		}
		v.dirty = true
	}
	return false
}

func (v *viewer) setMode(m render.Mode) {
	if v.sess.mode != m {
		slog.Info("render mode", "mode", m)
	}
	v.sess.mode = m
}

func (v *viewer) resize(width, height int) {
	v.term.Erase()
	_ = v.term.Resize(width, height)
	v.sess.rc.Camera.FocalLength = v.focal * float64(height*2) / float64(v.canvasHeight)
	v.sess.rc.Resize(width, height*2)
	v.dirty = true
}

func (v *viewer) screenshot() {
	data := render.WriteImage(v.sess.rc.Framebuffer())
	if err := os.WriteFile(screenshotPath, data, 0o644); err != nil {
		v.hud.Status("screenshot failed: " + err.Error())
		return
	}
	v.hud.Status("saved " + screenshotPath)
}

// frame renders and displays a new frame when anything changed.
func (v *viewer) frame() error {
	if v.motion.Apply(v.sess.rc.Camera, v.step*1e-3) {
		v.dirty = true
		v.cleared = false
	}
	if v.hud.Expired() {
		v.dirty = true
	}
	if !v.dirty {
		return nil
	}
	v.dirty = false

	rc := v.sess.rc
	rc.Options.Axes = 0
	if v.axes {
		rc.Options.Axes = v.step * 10
	}
	start := time.Now()
	if v.cleared {
		rc.Framebuffer().Clear(rc.Options.Background)
	} else {
		v.sess.render()
	}
	v.hud.UpdateFPS(time.Since(start))

	fb := rc.Framebuffer()
	v.term.Draw(uv.DrawableFunc(func(scr uv.Screen, area uv.Rectangle) {
		fb.Draw(scr, area)
		v.hud.Draw(scr, area, v.sess, rc.Options.Cull)
	}))
	if err := v.term.Display(); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}
