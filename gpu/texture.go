// Package gpu is a small software graphics device: typed 2D textures and render targets, a
// border-aware sampler, a triangle rasterizer with programmable vertex and fragment stages, and
// fixed function cull, depth and blend state.
package gpu

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Format is a texel format.
type Format int

// Supported texel formats.
const (
	// FormatR16UI is one unsigned 16-bit integer channel, raw depth.
	FormatR16UI Format = iota
	// FormatR32F is one 32-bit float channel.
	FormatR32F
	// FormatBGRA8 is four normalized bytes in B, G, R, A order.
	FormatBGRA8
)

func (f Format) String() string {
	switch f {
	case FormatR16UI:
		return "R16UI"
	case FormatR32F:
		return "R32F"
	case FormatBGRA8:
		return "BGRA8"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Texture is a 2D texture. Only the slice matching its format is allocated.
type Texture struct {
	format Format
	width  int
	height int

	u16  []uint16
	f32  []float32
	bgra []uint8
}

// NewTexture allocates a zeroed texture.
func NewTexture(format Format, width, height int) *Texture {
	t := &Texture{format: format, width: width, height: height}
	switch format {
	case FormatR16UI:
		t.u16 = make([]uint16, width*height)
	case FormatR32F:
		t.f32 = make([]float32, width*height)
	case FormatBGRA8:
		t.bgra = make([]uint8, 4*width*height)
	}
	return t
}

// NewRenderTarget allocates a single channel float texture to render into.
func NewRenderTarget(width, height int) *Texture {
	return NewTexture(FormatR32F, width, height)
}

// Format returns the texel format.
func (t *Texture) Format() Format {
	return t.format
}

// Width returns the width in texels.
func (t *Texture) Width() int {
	return t.width
}

// Height returns the height in texels.
func (t *Texture) Height() int {
	return t.height
}

// In returns whether (x, y) addresses a texel.
func (t *Texture) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < t.width && y < t.height
}

func (t *Texture) checkFormat(want Format) error {
	if t.format != want {
		return errors.Errorf("texture is %v, not %v", t.format, want)
	}
	return nil
}

// SetDataR16 uploads width*height row-major samples.
func (t *Texture) SetDataR16(samples []uint16) error {
	if err := t.checkFormat(FormatR16UI); err != nil {
		return err
	}
	if len(samples) != len(t.u16) {
		return errors.Errorf("upload of %d texels into %dx%d texture", len(samples), t.width, t.height)
	}
	copy(t.u16, samples)
	return nil
}

// SetDataBGRA uploads 4*width*height bytes.
func (t *Texture) SetDataBGRA(pix []uint8) error {
	if err := t.checkFormat(FormatBGRA8); err != nil {
		return err
	}
	if len(pix) != len(t.bgra) {
		return errors.Errorf("upload of %d bytes into %dx%d BGRA texture", len(pix), t.width, t.height)
	}
	copy(t.bgra, pix)
	return nil
}

// DataR16 exposes the texels of an R16UI texture.
func (t *Texture) DataR16() []uint16 {
	return t.u16
}

// DataR32F exposes the texels of an R32F texture.
func (t *Texture) DataR32F() []float32 {
	return t.f32
}

// DataBGRA exposes the bytes of a BGRA8 texture.
func (t *Texture) DataBGRA() []uint8 {
	return t.bgra
}

// CopyFrom copies the contents of a texture of the same format and size.
func (t *Texture) CopyFrom(src *Texture) error {
	if src.format != t.format || src.width != t.width || src.height != t.height {
		return errors.Errorf("cannot copy %v %dx%d into %v %dx%d", src.format, src.width, src.height, t.format, t.width, t.height)
	}
	copy(t.u16, src.u16)
	copy(t.f32, src.f32)
	copy(t.bgra, src.bgra)
	return nil
}

// Clear sets every texel to v, normalized for BGRA8 where v applies to all four channels.
func (t *Texture) Clear(v float32) {
	switch t.format {
	case FormatR16UI:
		c := uint16(v)
		for i := range t.u16 {
			t.u16[i] = c
		}
	case FormatR32F:
		for i := range t.f32 {
			t.f32[i] = v
		}
	case FormatBGRA8:
		c := uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
		for i := range t.bgra {
			t.bgra[i] = c
		}
	}
}

// Load fetches texel (x, y) without filtering as (r, g, b, a). Single channel formats return the
// value in r with a = 1. Out of range coordinates load zero.
func (t *Texture) Load(x, y int) mgl32.Vec4 {
	if !t.In(x, y) {
		return mgl32.Vec4{}
	}
	i := y*t.width + x
	switch t.format {
	case FormatR16UI:
		return mgl32.Vec4{float32(t.u16[i]), 0, 0, 1}
	case FormatR32F:
		return mgl32.Vec4{t.f32[i], 0, 0, 1}
	default:
		p := t.bgra[4*i : 4*i+4]
		return mgl32.Vec4{float32(p[2]) / 255, float32(p[1]) / 255, float32(p[0]) / 255, float32(p[3]) / 255}
	}
}

// LoadR16 fetches a raw R16UI texel.
func (t *Texture) LoadR16(x, y int) uint16 {
	return t.u16[y*t.width+x]
}

// LoadR32F fetches an R32F texel.
func (t *Texture) LoadR32F(x, y int) float32 {
	return t.f32[y*t.width+x]
}

// StoreR32F writes an R32F texel.
func (t *Texture) StoreR32F(x, y int, v float32) {
	t.f32[y*t.width+x] = v
}
