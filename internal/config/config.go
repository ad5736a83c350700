// Package config loads rednoise settings from a TOML file and layers
// command-line flags on top.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pelletier/go-toml/v2"

	"github.com/taigrr/rednoise/pkg/math3d"
	"github.com/taigrr/rednoise/pkg/render"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config holds every setting of a render or viewer session.
type Config struct {
	Canvas Canvas `toml:"canvas"`
	Camera Camera `toml:"camera"`
	Light  Light  `toml:"light"`
	Render Render `toml:"render"`
	Scene  Scene  `toml:"scene"`
	Output Output `toml:"output"`
}

// Canvas is the output size in pixels.
type Canvas struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Camera places the viewer. An empty position frames the whole scene and
// an empty look_at aims at the scene centre.
type Camera struct {
	Position    []float64 `toml:"position"`
	LookAt      []float64 `toml:"look_at"`
	FocalLength float64   `toml:"focal_length"`
}

// Light configures the point light. Object, when set, moves the light to
// that object's centroid after loading.
type Light struct {
	Position  []float64 `toml:"position"`
	Intensity float64   `toml:"intensity"`
	Spread    float64   `toml:"spread"`
	Object    string    `toml:"object"`
}

// Render selects the mode and shading parameters.
type Render struct {
	Mode        string  `toml:"mode"`
	Samples     int     `toml:"samples"`
	Background  string  `toml:"background"`
	Ambient     float64 `toml:"ambient"`
	Supersample int     `toml:"supersample"`
	Cull        bool    `toml:"cull"`
	MarkLight   bool    `toml:"mark_light"`
}

// Scene names the model to load. A positive Fit rescales the scene to
// fit a cube of that size centred on the origin.
type Scene struct {
	Path string  `toml:"path"`
	Fit  float64 `toml:"fit"`
}

// Output is where the render command writes its image.
type Output struct {
	Path string `toml:"path"`
}

// Default returns the settings used when no file or flag says otherwise.
func Default() Config {
	return Config{
		Canvas: Canvas{Width: 320, Height: 240},
		Camera: Camera{FocalLength: 320},
		Light: Light{
			Intensity: render.DefaultLightIntensity,
			Spread:    render.DefaultLightSpread,
		},
		Render: Render{
			Mode:        render.ModeRaster.String(),
			Samples:     1,
			Background:  "#000000",
			Ambient:     render.DefaultAmbient,
			Supersample: 1,
			Cull:        true,
		},
		Output: Output{Path: "out.png"},
	}
}

// Load reads a TOML file on top of Default. Keys the file omits keep
// their defaults; unknown keys are an error.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r on top of Default.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Flags holds CLI flag values that override config file settings.
// Zero values leave the file's setting alone.
type Flags struct {
	Width       int
	Height      int
	Mode        string
	Samples     int
	Scene       string
	Fit         float64
	Output      string
	LightObject string
	Supersample int
	FocalLength float64
	NoCull      bool
}

// Resolve applies flags over the loaded settings and validates the result.
func (c *Config) Resolve(flags Flags) error {
	if flags.Width > 0 {
		c.Canvas.Width = flags.Width
	}
	if flags.Height > 0 {
		c.Canvas.Height = flags.Height
	}
	if flags.Mode != "" {
		c.Render.Mode = flags.Mode
	}
	if flags.Samples > 0 {
		c.Render.Samples = flags.Samples
	}
	if flags.Scene != "" {
		c.Scene.Path = flags.Scene
	}
	if flags.Fit > 0 {
		c.Scene.Fit = flags.Fit
	}
	if flags.Output != "" {
		c.Output.Path = flags.Output
	}
	if flags.LightObject != "" {
		c.Light.Object = flags.LightObject
	}
	if flags.Supersample > 0 {
		c.Render.Supersample = flags.Supersample
	}
	if flags.FocalLength > 0 {
		c.Camera.FocalLength = flags.FocalLength
	}
	if flags.NoCull {
		c.Render.Cull = false
	}
	return c.Validate()
}

// Validate checks ranges and parses the string-typed settings.
func (c *Config) Validate() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalid, c.Canvas.Width, c.Canvas.Height)
	}
	if c.Camera.FocalLength <= 0 {
		return fmt.Errorf("%w: focal_length %v", ErrInvalid, c.Camera.FocalLength)
	}
	if c.Render.Samples < 1 {
		return fmt.Errorf("%w: samples %d", ErrInvalid, c.Render.Samples)
	}
	if c.Render.Supersample < 1 {
		return fmt.Errorf("%w: supersample %d", ErrInvalid, c.Render.Supersample)
	}
	if c.Render.Ambient < 0 || c.Render.Ambient > 1 {
		return fmt.Errorf("%w: ambient %v outside [0, 1]", ErrInvalid, c.Render.Ambient)
	}
	for name, v := range map[string][]float64{
		"camera.position": c.Camera.Position,
		"camera.look_at":  c.Camera.LookAt,
		"light.position":  c.Light.Position,
	} {
		if len(v) != 0 && len(v) != 3 {
			return fmt.Errorf("%w: %s needs 3 components, got %d", ErrInvalid, name, len(v))
		}
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if _, err := c.BackgroundColor(); err != nil {
		return err
	}
	return nil
}

// Mode returns the parsed render mode.
func (c *Config) Mode() (render.Mode, error) {
	m, err := render.ParseMode(c.Render.Mode)
	if err != nil {
		return 0, fmt.Errorf("config: %w", err)
	}
	return m, nil
}

// BackgroundColor parses the "#rrggbb" background.
func (c *Config) BackgroundColor() (color.RGBA, error) {
	col, err := colorful.Hex(c.Render.Background)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: background %q: %v", ErrInvalid, c.Render.Background, err)
	}
	r, g, b := col.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Vec converts a validated three-component setting. ok is false when the
// setting was left empty.
func Vec(v []float64) (math3d.Vec3, bool) {
	if len(v) != 3 {
		return math3d.Vec3{}, false
	}
	return math3d.V3(v[0], v[1], v[2]), true
}

// RenderOptions builds the render options the settings describe.
func (c *Config) RenderOptions() (render.Options, error) {
	bg, err := c.BackgroundColor()
	if err != nil {
		return render.Options{}, err
	}
	opts := render.DefaultOptions()
	opts.Background = bg
	opts.Ambient = c.Render.Ambient
	opts.Cull = c.Render.Cull
	opts.MarkLight = c.Render.MarkLight
	return opts, nil
}
