package rimage

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// Depth is the depth in mm.
type Depth uint16

// MaxDepth is the max allowed depth.
const MaxDepth = Depth(math.MaxUint16)

// DepthMap fulfills image.Image for ease of use with image libraries. Samples are stored row-major,
// one uint16 per pixel, which is exactly the layout of a raw sensor frame.
type DepthMap struct {
	width  int
	height int

	data []uint16
}

// NewEmptyDepthMap returns an unset depth map with the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]uint16, width*height),
	}
}

// NewDepthMapFromSamples wraps row-major samples in a DepthMap. The samples are copied.
func NewDepthMapFromSamples(width, height int, samples []uint16) (*DepthMap, error) {
	if len(samples) != width*height {
		return nil, errors.Errorf("depth frame has %d samples, expected %dx%d=%d", len(samples), width, height, width*height)
	}
	dm := NewEmptyDepthMap(width, height)
	copy(dm.data, samples)
	return dm, nil
}

// ConvertImageToDepthMap takes an image and figures out if it's already a DepthMap
// or if it can be converted from a 16-bit single channel image.
func ConvertImageToDepthMap(img image.Image) (*DepthMap, error) {
	switch ii := img.(type) {
	case *DepthMap:
		return ii, nil
	case *image.Gray16:
		bounds := ii.Bounds()
		dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				dm.data[y*dm.width+x] = ii.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
			}
		}
		return dm, nil
	default:
		return nil, errors.Errorf("don't know how to make DepthMap from %T", img)
	}
}

// Width returns the width of the depth map.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the height of the depth map.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds returns the rectangle dimensions of the image.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// In returns whether (x, y) is a valid pixel.
func (dm *DepthMap) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// GetDepth returns the depth at column x, row y.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return Depth(dm.data[y*dm.width+x])
}

// Set sets the depth at column x, row y.
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[y*dm.width+x] = uint16(val)
}

// Samples returns the row-major samples backing the map. The slice is not copied.
func (dm *DepthMap) Samples() []uint16 {
	return dm.data
}

// Clone makes a deep copy.
func (dm *DepthMap) Clone() *DepthMap {
	ret := NewEmptyDepthMap(dm.width, dm.height)
	copy(ret.data, dm.data)
	return ret
}

// ToGray16 copies the map into a standard 16-bit grayscale image for encoders that switch on
// concrete image types.
func (dm *DepthMap) ToGray16() *image.Gray16 {
	img := image.NewGray16(dm.Bounds())
	for i, d := range dm.data {
		img.Pix[2*i] = uint8(d >> 8)
		img.Pix[2*i+1] = uint8(d)
	}
	return img
}

// ColorModel for DepthMap so that it fulfills image.Image.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// At returns the depth value as a color.Gray16.
func (dm *DepthMap) At(x, y int) color.Color {
	if !dm.In(x, y) {
		return color.Gray16{}
	}
	return color.Gray16{Y: dm.data[y*dm.width+x]}
}

// EncodeRawDepth serializes samples as little-endian uint16s, the wire format of the frame service.
func EncodeRawDepth(samples []uint16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], s)
	}
	return out
}

// DecodeRawDepth parses a little-endian uint16 frame and checks that it holds exactly
// width*height samples.
func DecodeRawDepth(data []byte, width, height int) ([]uint16, error) {
	if len(data) != 2*width*height {
		return nil, errors.Errorf("raw depth frame is %d bytes, expected %d for %dx%d", len(data), 2*width*height, width, height)
	}
	samples := make([]uint16, width*height)
	for i := range samples {
		samples[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return samples, nil
}
