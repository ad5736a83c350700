package config

import (
	"bytes"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/render"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rednoise.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if m, _ := cfg.Mode(); m != render.ModeRaster {
		t.Errorf("default mode = %v, want raster", m)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[canvas]
width = 640

[camera]
position = [0, 2, -8]
focal_length = 500

[render]
mode = "ray"
samples = 4
background = "#102030"

[scene]
path = "cornell-box.obj"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Canvas.Width != 640 {
		t.Errorf("width = %d, want 640", cfg.Canvas.Width)
	}
	// Keys the file leaves out keep their defaults.
	if cfg.Canvas.Height != 240 {
		t.Errorf("height = %d, want default 240", cfg.Canvas.Height)
	}
	if !cfg.Render.Cull {
		t.Error("cull default lost")
	}
	if pos, ok := Vec(cfg.Camera.Position); !ok || pos != math3d.V3(0, 2, -8) {
		t.Errorf("camera position = %v, %v", pos, ok)
	}
	if _, ok := Vec(cfg.Camera.LookAt); ok {
		t.Error("empty look_at reported as set")
	}
	if m, _ := cfg.Mode(); m != render.ModeRayTrace {
		t.Errorf("mode = %v, want ray trace", m)
	}
	bg, err := cfg.BackgroundColor()
	if err != nil || bg != (color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}) {
		t.Errorf("background = %v, %v", bg, err)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("err = %v, want ErrNotExist", err)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeConfig(t, "[render]\nshader = \"phong\"\n")
		if _, err := Load(path); err == nil {
			t.Error("unknown key accepted")
		}
	})

	t.Run("bad syntax", func(t *testing.T) {
		path := writeConfig(t, "[canvas\nwidth = 1\n")
		if _, err := Load(path); err == nil {
			t.Error("malformed TOML accepted")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		target error
	}{
		{"zero width", func(c *Config) { c.Canvas.Width = 0 }, ErrInvalid},
		{"negative focal", func(c *Config) { c.Camera.FocalLength = -1 }, ErrInvalid},
		{"no samples", func(c *Config) { c.Render.Samples = 0 }, ErrInvalid},
		{"ambient above one", func(c *Config) { c.Render.Ambient = 1.5 }, ErrInvalid},
		{"short position", func(c *Config) { c.Light.Position = []float64{1, 2} }, ErrInvalid},
		{"bad background", func(c *Config) { c.Render.Background = "teal" }, ErrInvalid},
		{"unknown mode", func(c *Config) { c.Render.Mode = "phong" }, render.ErrUnknownMode},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.target) {
				t.Errorf("Validate() = %v, want %v", err, tc.target)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		check func(t *testing.T, c Config)
	}{
		{
			name:  "empty flags keep file values",
			flags: Flags{},
			check: func(t *testing.T, c Config) {
				if c.Canvas.Width != 640 || c.Render.Mode != "wireframe" || !c.Render.Cull {
					t.Errorf("file values lost: %+v", c)
				}
			},
		},
		{
			name:  "flags win",
			flags: Flags{Width: 100, Height: 50, Mode: "ray", Samples: 2, Output: "x.webp", NoCull: true},
			check: func(t *testing.T, c Config) {
				if c.Canvas.Width != 100 || c.Canvas.Height != 50 {
					t.Errorf("canvas = %+v", c.Canvas)
				}
				if c.Render.Mode != "ray" || c.Render.Samples != 2 || c.Render.Cull {
					t.Errorf("render = %+v", c.Render)
				}
				if c.Output.Path != "x.webp" {
					t.Errorf("output = %q", c.Output.Path)
				}
			},
		},
		{
			name:  "scene flags",
			flags: Flags{Scene: "model.glb", Fit: 10, LightObject: "lamp", Supersample: 3, FocalLength: 90},
			check: func(t *testing.T, c Config) {
				if c.Scene.Path != "model.glb" || c.Scene.Fit != 10 {
					t.Errorf("scene = %+v", c.Scene)
				}
				if c.Light.Object != "lamp" || c.Render.Supersample != 3 || c.Camera.FocalLength != 90 {
					t.Errorf("light %+v, render %+v, camera %+v", c.Light, c.Render, c.Camera)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Decode(strings.NewReader("[canvas]\nwidth = 640\n[render]\nmode = \"wireframe\"\n"))
			if err != nil {
				t.Fatal(err)
			}
			if err := cfg.Resolve(tc.flags); err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			tc.check(t, cfg)
		})
	}

	t.Run("invalid flag", func(t *testing.T) {
		cfg := Default()
		if err := cfg.Resolve(Flags{Mode: "sketch"}); !errors.Is(err, render.ErrUnknownMode) {
			t.Errorf("Resolve() = %v, want ErrUnknownMode", err)
		}
	})
}

func TestEncodeDecode(t *testing.T) {
	cfg := Default()
	cfg.Camera.Position = []float64{1, 2, 3}
	cfg.Light.Object = "light"

	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Light.Object != "light" || len(got.Camera.Position) != 3 || got.Camera.Position[2] != 3 {
		t.Errorf("decoded %+v", got)
	}
}

func TestRenderOptions(t *testing.T) {
	cfg := Default()
	cfg.Render.Background = "#ff0000"
	cfg.Render.Ambient = 0.5
	cfg.Render.Cull = false

	opts, err := cfg.RenderOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Background != render.ColorRed || opts.Ambient != 0.5 || opts.Cull {
		t.Errorf("options = %+v", opts)
	}
	if !opts.YDown {
		t.Error("options should keep y-down screen space")
	}
}
