package gpu

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// Framebuffer is the shared output: an RGBA float color buffer and a depth buffer with depths in
// [0, 1], smaller is nearer.
type Framebuffer struct {
	Width  int
	Height int
	Color  []mgl32.Vec4
	Depth  []float32
}

// NewFramebuffer allocates a framebuffer cleared to transparent black and far depth.
func NewFramebuffer(width, height int) *Framebuffer {
	fb := &Framebuffer{
		Width:  width,
		Height: height,
		Color:  make([]mgl32.Vec4, width*height),
		Depth:  make([]float32, width*height),
	}
	fb.Clear(mgl32.Vec4{}, 1)
	return fb
}

// Clear resets every pixel.
func (fb *Framebuffer) Clear(c mgl32.Vec4, depth float32) {
	for i := range fb.Color {
		fb.Color[i] = c
		fb.Depth[i] = depth
	}
}

// At returns the color at pixel (x, y).
func (fb *Framebuffer) At(x, y int) mgl32.Vec4 {
	return fb.Color[y*fb.Width+x]
}

// DepthAt returns the depth at pixel (x, y).
func (fb *Framebuffer) DepthAt(x, y int) float32 {
	return fb.Depth[y*fb.Width+x]
}

// Covered reports whether anything was drawn at (x, y) since the last clear to far depth.
func (fb *Framebuffer) Covered(x, y int) bool {
	return fb.DepthAt(x, y) < 1
}

// ToImage converts the color buffer to an 8-bit image, saturating each channel.
func (fb *Framebuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			c := fb.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{
				R: toByte(c[0]),
				G: toByte(c[1]),
				B: toByte(c[2]),
				A: toByte(c[3]),
			})
		}
	}
	return img
}

func toByte(v float32) uint8 {
	return uint8(mgl32.Clamp(v, 0, 1)*255 + 0.5)
}
