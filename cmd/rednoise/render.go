package main

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taigrr/rednoise/pkg/render"
)

func newRenderCommand(root *rootOptions) *cobra.Command {
	var output string
	var supersample int

	cmd := &cobra.Command{
		Use:   "render [scene]",
		Short: "Render one frame to an image file",
		Long: "Render one frame and write it as PPM, PNG or WebP, chosen by the\n" +
			"output file's extension.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root.flags.Output = output
			root.flags.Supersample = supersample
			cfg, err := root.resolve(args)
			if err != nil {
				return err
			}

			// Supersampling renders a larger frame with a proportionally
			// longer lens, then scales it back down.
			ss := cfg.Render.Supersample
			cfg.Camera.FocalLength *= float64(ss)
			sess, err := newSession(cfg, cfg.Canvas.Width*ss, cfg.Canvas.Height*ss)
			if err != nil {
				return err
			}
			sess.render()

			var img image.Image = sess.rc.Framebuffer().ToImage()
			if ss > 1 {
				img = render.Downsample(img, cfg.Canvas.Width, cfg.Canvas.Height)
			}
			if err := render.SaveImage(cfg.Output.Path, img); err != nil {
				return fmt.Errorf("write %s: %w", cfg.Output.Path, err)
			}
			slog.Info("image written", "path", cfg.Output.Path, "mode", sess.mode,
				"width", cfg.Canvas.Width, "height", cfg.Canvas.Height)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output image (.ppm, .png or .webp)")
	cmd.Flags().IntVar(&supersample, "supersample", 0, "render at this multiple of the canvas size and downscale")
	return cmd
}
