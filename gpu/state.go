package gpu

import "github.com/go-gl/mathgl/mgl32"

// CullMode selects which triangles the rasterizer drops. A triangle is front facing when its
// vertices appear clockwise on screen.
type CullMode int

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// BlendMode selects how fragment colors combine with the framebuffer.
type BlendMode int

// Blend modes.
const (
	// BlendDefault replaces the destination.
	BlendDefault BlendMode = iota
	// BlendAdditive adds src*src.a to the destination.
	BlendAdditive
)

// Viewport is the pixel rectangle NDC maps onto. A zero-sized viewport covers the whole target.
type Viewport struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Empty reports whether the viewport has no area.
func (v Viewport) Empty() bool {
	return v.Width <= 0 || v.Height <= 0
}

// PipelineState is the fixed function state of a draw.
type PipelineState struct {
	Cull       CullMode
	Blend      BlendMode
	DepthTest  bool
	DepthWrite bool
	Viewport   Viewport
}

// DefaultPipelineState tests and writes depth with less-than, blends by replacing and culls nothing.
func DefaultPipelineState() PipelineState {
	return PipelineState{DepthTest: true, DepthWrite: true}
}

func blend(mode BlendMode, src, dst mgl32.Vec4) mgl32.Vec4 {
	if mode == BlendAdditive {
		return dst.Add(mgl32.Vec4{src[0] * src[3], src[1] * src[3], src[2] * src[3], src[3]})
	}
	return src
}
