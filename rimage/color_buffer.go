package rimage

import (
	"bytes"
	"image"
	"image/color"

	// jpeg and png decoders for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ErrDecodeFailure is returned when a color payload cannot be decoded.
var ErrDecodeFailure = errors.New("could not decode color frame")

// BGRA is a tightly packed 32 bits per pixel color buffer in B, G, R, A byte order, the layout
// color textures are uploaded in.
type BGRA struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewBGRA returns a black, opaque buffer.
func NewBGRA(width, height int) *BGRA {
	b := &BGRA{Pix: make([]uint8, 4*width*height), Width: width, Height: height}
	for i := 3; i < len(b.Pix); i += 4 {
		b.Pix[i] = 0xff
	}
	return b
}

// BGRAAt returns the B, G, R, A bytes at column x, row y.
func (b *BGRA) BGRAAt(x, y int) (uint8, uint8, uint8, uint8) {
	i := 4 * (y*b.Width + x)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// ColorModel fulfills image.Image.
func (b *BGRA) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds fulfills image.Image.
func (b *BGRA) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// At fulfills image.Image.
func (b *BGRA) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.NRGBA{}
	}
	bb, g, r, a := b.BGRAAt(x, y)
	return color.NRGBA{R: r, G: g, B: bb, A: a}
}

// NewBGRAFromImage converts img into a width x height BGRA buffer, resampling it if the
// dimensions differ. Alpha is forced to opaque since the source formats carry none.
func NewBGRAFromImage(img image.Image, width, height int) *BGRA {
	bounds := img.Bounds()
	var nrgba *image.NRGBA
	if bounds.Dx() != width || bounds.Dy() != height {
		nrgba = imaging.Resize(img, width, height, imaging.Linear)
	} else {
		nrgba = imaging.Clone(img)
	}
	out := &BGRA{Pix: make([]uint8, 4*width*height), Width: width, Height: height}
	for y := 0; y < height; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+4*width]
		dst := out.Pix[4*y*width : 4*(y+1)*width]
		for x := 0; x < width; x++ {
			dst[4*x] = src[4*x+2]
			dst[4*x+1] = src[4*x+1]
			dst[4*x+2] = src[4*x]
			dst[4*x+3] = 0xff
		}
	}
	return out
}

// DecodeColorFrame decodes an encoded color frame (JPEG from the frame service, PNG also accepted)
// into a width x height BGRA buffer.
func DecodeColorFrame(data []byte, width, height int) (*BGRA, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrDecodeFailure, "empty payload")
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrDecodeFailure, err.Error())
	}
	return NewBGRAFromImage(img, width, height), nil
}
