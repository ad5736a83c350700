package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	xdraw "golang.org/x/image/draw"

	"github.com/taigrr/rednoise/pkg/ppm"
)

// ErrUnsupportedFormat is returned for image formats the renderer cannot
// write.
var ErrUnsupportedFormat = errors.New("render: unsupported image format")

// WriteImage returns the framebuffer as a binary PPM (P6).
func WriteImage(fb *Framebuffer) []byte {
	var buf bytes.Buffer
	buf.Grow(32 + 3*fb.Width*fb.Height)
	// Writing to a bytes.Buffer cannot fail.
	_ = ppm.Encode(&buf, fb.ToImage())
	return buf.Bytes()
}

// EncodeImage writes img as "ppm", "png" or "webp".
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "ppm":
		return ppm.Encode(w, img)
	case "png":
		return png.Encode(w, img)
	case "webp":
		return nativewebp.Encode(w, img, nil)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// SaveImage writes img to path, choosing the format from the extension.
func SaveImage(path string, img image.Image) (err error) {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch format {
	case "ppm", "png", "webp":
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("save image: %w", cerr)
		}
	}()

	if err := EncodeImage(f, img, format); err != nil {
		return fmt.Errorf("save image %s: %w", path, err)
	}
	return nil
}

// Downsample scales img to width x height with a Catmull-Rom filter. It is
// used to resolve supersampled raster frames.
func Downsample(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}
