package scene

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io/fs"
	"math"
	"os"
	"path/filepath"

	_ "github.com/ftrvxmtrx/tga"           // Register TGA decoder
	_ "github.com/taigrr/rednoise/pkg/ppm" // Register P6 decoder
	_ "golang.org/x/image/bmp"             // Register BMP decoder
)

// WrapMode determines how texture coordinates outside [0,1] are handled.
type WrapMode int

const (
	WrapClamp  WrapMode = iota // Clamp to edge
	WrapRepeat                 // Tile the texture
)

// Texture is an immutable RGB image shared by the triangles that sample it.
type Texture struct {
	Name   string
	Width  int
	Height int
	Pixels []color.RGBA // Row-major pixel data
	Wrap   WrapMode
}

// NewTexture creates a black texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
	}
}

// LoadTexture loads a texture from an image file on disk.
func LoadTexture(path string) (*Texture, error) {
	return ReadTexture(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// ReadTexture decodes the named file from fsys. Any format registered with
// the image package is accepted: PPM (P6), PNG, JPEG, TGA and BMP.
func ReadTexture(fsys fs.FS, name string) (*Texture, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open texture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode texture %s: %w", name, err)
	}

	tex := TextureFromImage(img)
	tex.Name = name
	return tex, nil
}

// TextureFromImage copies an image into a texture, dropping alpha.
func TextureFromImage(img image.Image) *Texture {
	bounds := img.Bounds()
	tex := NewTexture(bounds.Dx(), bounds.Dy())

	for y := range tex.Height {
		for x := range tex.Width {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			c.A = 255
			tex.Pixels[y*tex.Width+x] = c
		}
	}
	return tex
}

// NewCheckerTexture creates a procedural checkerboard texture.
func NewCheckerTexture(width, height, checkSize int, c1, c2 color.RGBA) *Texture {
	tex := NewTexture(width, height)
	tex.Name = "checker"
	for y := range height {
		for x := range width {
			if (x/checkSize+y/checkSize)%2 == 0 {
				tex.SetPixel(x, y, c1)
			} else {
				tex.SetPixel(x, y, c2)
			}
		}
	}
	return tex
}

// SetPixel sets a pixel in the texture. Meant for building textures
// before they are shared.
func (t *Texture) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return
	}
	t.Pixels[y*t.Width+x] = c
}

// GetPixel returns the pixel at (x, y) with bounds checking.
func (t *Texture) GetPixel(x, y int) color.RGBA {
	if x < 0 || x >= t.Width || y < 0 || y >= t.Height {
		return color.RGBA{}
	}
	return t.Pixels[y*t.Width+x]
}

// At returns the texel nearest to (u, v): the coordinates are scaled to
// the texture's pixel dimensions and rounded.
func (t *Texture) At(u, v float64) color.RGBA {
	if t.Width == 0 || t.Height == 0 {
		return color.RGBA{}
	}
	x := int(math.Round(t.wrap(u) * float64(t.Width-1)))
	y := int(math.Round(t.wrap(v) * float64(t.Height-1)))
	return t.Pixels[y*t.Width+x]
}

func (t *Texture) wrap(coord float64) float64 {
	if t.Wrap == WrapRepeat {
		return coord - math.Floor(coord)
	}
	return math.Max(0, math.Min(1, coord))
}
