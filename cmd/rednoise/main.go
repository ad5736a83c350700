// rednoise - software renderer for OBJ and glTF scenes.
//
// Scenes can be drawn as wireframes, filled with a depth-tested
// scan-line rasterizer or ray traced with a point light and hard shadows.
//
//	rednoise render cornell-box.obj --mode ray --samples 4 -o box.png
//	rednoise view cornell-box.obj
package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/taigrr/rednoise/internal/config"
	"github.com/taigrr/rednoise/pkg/render"
)

var version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
	flags      config.Flags
}

func main() {
	root := newRootCommand()
	if err := fang.Execute(context.Background(), root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rednoise",
		Short: "Render OBJ and glTF scenes by wireframe, raster or ray tracing",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(os.Stderr, opts.verbose)
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log per-frame timings")
	pf.IntVar(&opts.flags.Width, "width", 0, "canvas width in pixels")
	pf.IntVar(&opts.flags.Height, "height", 0, "canvas height in pixels")
	pf.StringVarP(&opts.flags.Mode, "mode", "m", "", "render mode: wireframe, raster or ray")
	pf.IntVarP(&opts.flags.Samples, "samples", "s", 0, "ray samples per pixel")
	pf.Float64Var(&opts.flags.FocalLength, "focal", 0, "focal length in pixels")
	pf.Float64Var(&opts.flags.Fit, "fit", 0, "rescale the scene to fit a cube of this size")
	pf.StringVar(&opts.flags.LightObject, "light-object", "", "move the light to this object's centroid")
	pf.BoolVar(&opts.flags.NoCull, "no-cull", false, "disable frustum culling")

	root.AddCommand(newRenderCommand(opts), newViewCommand(opts))
	return root
}

// resolve loads the config file, if any, and applies flags and the scene
// argument on top.
func (o *rootOptions) resolve(args []string) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}
	flags := o.flags
	if len(args) > 0 {
		flags.Scene = args[0]
	}
	if err := cfg.Resolve(flags); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	render.SetLogger(logger)
}
