// Package ppm reads and writes binary (P6) portable pixmaps.
//
// Importing the package registers the decoder with image.Decode, so P6
// textures load through the same path as PNG, JPEG, TGA or BMP.
package ppm

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
)

// ErrFormat is returned for input that is not an 8-bit P6 pixmap.
var ErrFormat = errors.New("ppm: invalid format")

const magic = "P6"

// Limits on decoded images. Larger headers are rejected before any
// allocation.
const (
	maxDimension = 1 << 15
	maxPixels    = 1 << 28
)

func init() {
	image.RegisterFormat("ppm", magic, Decode, DecodeConfig)
}

// Encode writes img as a P6 pixmap: the header "P6\n<w> <h>\n255\n"
// followed by row-major RGB triples. Alpha is dropped.
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n255\n", magic, b.Dx(), b.Dy()); err != nil {
		return err
	}

	row := make([]byte, 3*b.Dx())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := 0
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			row[i], row[i+1], row[i+2] = c.R, c.G, c.B
			i += 3
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeConfig returns the dimensions of a P6 pixmap without reading pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	br := bufio.NewReader(r)
	w, h, err := readHeader(br)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.RGBAModel, Width: w, Height: h}, nil
}

// Decode reads a P6 pixmap. One comment line starting with '#' may
// appear anywhere in the header; the maximum channel value must be 255.
func Decode(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	w, h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	row := make([]byte, 3*w)
	for y := range h {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("ppm: read row %d: %w", y, err)
		}
		for x := range w {
			i := img.PixOffset(x, y)
			img.Pix[i] = row[3*x]
			img.Pix[i+1] = row[3*x+1]
			img.Pix[i+2] = row[3*x+2]
			img.Pix[i+3] = 255
		}
	}
	return img, nil
}

func readHeader(br *bufio.Reader) (width, height int, err error) {
	tok, err := token(br)
	if err != nil {
		return 0, 0, err
	}
	if tok != magic {
		return 0, 0, fmt.Errorf("%w: magic %q", ErrFormat, tok)
	}

	var vals [3]int
	for i := range vals {
		tok, err := token(br)
		if err != nil {
			return 0, 0, err
		}
		n, err := strconv.Atoi(tok)
		if err != nil || n <= 0 {
			return 0, 0, fmt.Errorf("%w: bad header field %q", ErrFormat, tok)
		}
		vals[i] = n
	}
	if vals[2] != 255 {
		return 0, 0, fmt.Errorf("%w: max value %d, want 255", ErrFormat, vals[2])
	}
	w, h := vals[0], vals[1]
	if w > maxDimension || h > maxDimension || w*h > maxPixels {
		return 0, 0, fmt.Errorf("%w: image %dx%d too large", ErrFormat, w, h)
	}
	return w, h, nil
}

// token reads the next whitespace-delimited header token, skipping
// comment lines. Exactly one whitespace byte after the token is consumed,
// so after the max value the reader sits on the first pixel byte.
func token(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", fmt.Errorf("%w: header: %w", ErrFormat, err)
		}
		switch {
		case c == '#' && len(buf) == 0:
			if _, err := br.ReadString('\n'); err != nil {
				return "", fmt.Errorf("%w: unterminated comment", ErrFormat)
			}
		case isSpace(c):
			if len(buf) > 0 {
				return string(buf), nil
			}
		default:
			buf = append(buf, c)
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}
