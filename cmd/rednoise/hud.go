package main

import (
	"fmt"
	"time"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/charmbracelet/x/ansi"

	"github.com/taigrr/rednoise/pkg/render"
)

// statusTTL is how long a status message stays on the bottom row.
const statusTTL = 3 * time.Second

// HUD renders an overlay with scene info, render settings and the last
// status message.
type HUD struct {
	Visible bool

	filename  string
	polyCount int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
	frameTime time.Duration

	status     string
	statusTime time.Time
}

// NewHUD creates a new HUD
func NewHUD(filename string, polyCount int) *HUD {
	return &HUD{
		filename:  filename,
		polyCount: polyCount,
		fpsTime:   time.Now(),
	}
}

// UpdateFPS records one drawn frame and how long it took to render.
func (h *HUD) UpdateFPS(frame time.Duration) {
	h.frameTime = frame
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Status shows msg on the bottom row for a few seconds, even with the HUD
// hidden.
func (h *HUD) Status(msg string) {
	h.status = msg
	h.statusTime = time.Now()
}

// Expired reports whether a status message has just timed out and the
// screen needs redrawing to remove it.
func (h *HUD) Expired() bool {
	if h.status == "" || time.Since(h.statusTime) < statusTTL {
		return false
	}
	h.status = ""
	return true
}

// Draw paints the overlay over the framebuffer already drawn to scr.
func (h *HUD) Draw(scr uv.Screen, area uv.Rectangle, s *session, cull bool) {
	const (
		reset    = "\x1b[0m"
		bold     = "\x1b[1m"
		dim      = "\x1b[2m"
		bgBlack  = "\x1b[40m"
		fgWhite  = "\x1b[97m"
		fgGreen  = "\x1b[92m"
		fgYellow = "\x1b[93m"
		fgCyan   = "\x1b[96m"
	)

	width, top, bottom := area.Dx(), area.Min.Y, area.Max.Y-1
	put := func(col, row int, text string) {
		w := ansi.StringWidth(text)
		if col < 0 || w == 0 {
			return
		}
		uv.NewStyledString(text).Draw(scr, uv.Rect(area.Min.X+col, row, w, 1))
	}

	if h.status != "" {
		put(max((width-len(h.status)-2)/2, 0), bottom,
			fmt.Sprintf("%s%s%s %s %s", bgBlack, bold, fgYellow, h.status, reset))
	}
	if !h.Visible {
		return
	}

	// Top left: FPS and last frame time.
	put(0, top, fmt.Sprintf("%s%s %.0f FPS %v %s", bgBlack, fgGreen, h.fps,
		h.frameTime.Round(time.Millisecond), reset))

	// Top middle: filename.
	put(max((width-len(h.filename)-2)/2, 0), top,
		fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.filename, reset))

	// Top right: triangle count.
	polys := fmt.Sprintf(" %d tris ", h.polyCount)
	put(max(width-len(polys), 0), top, fmt.Sprintf("%s%s%s%s%s", bgBlack, fgCyan, bold, polys, reset))

	if h.status != "" {
		return
	}

	// Bottom: mode, samples and culling.
	modes := ""
	for _, m := range []render.Mode{render.ModeWireframe, render.ModeRaster, render.ModeRayTrace} {
		check := "[ ]"
		if m == s.mode {
			check = "[✓]"
		}
		modes += fmt.Sprintf("%s %s  ", check, m)
	}
	stats := ""
	if cull && s.mode != render.ModeRayTrace {
		cs := s.rc.CullingStats
		stats = fmt.Sprintf(" culled %d/%d", cs.ObjectsCulled, cs.ObjectsTested)
	}
	put(0, bottom, fmt.Sprintf("%s%s %s%d spp%s %s", bgBlack, fgWhite, modes, s.samples, stats, reset))

	hint := " ?: hide  esc: quit "
	put(max(width-len(hint), 0), bottom, fmt.Sprintf("%s%s%s%s%s", bgBlack, dim, fgYellow, hint, reset))
}
