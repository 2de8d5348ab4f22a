package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"go.viam.com/holo/utils"
)

// Filter selects how a sampler reconstructs between texels.
type Filter int

// Sampler filters.
const (
	FilterPoint Filter = iota
	FilterLinear
)

// AddressMode selects what a sampler returns outside [0, 1].
type AddressMode int

// Sampler address modes.
const (
	AddressClamp AddressMode = iota
	AddressBorder
)

// Sampler samples textures at normalized coordinates, texel centers at (i+0.5)/size.
type Sampler struct {
	Filter  Filter
	Address AddressMode
	Border  mgl32.Vec4
}

func (s Sampler) texel(t *Texture, x, y int) mgl32.Vec4 {
	if !t.In(x, y) {
		if s.Address == AddressBorder {
			return s.Border
		}
		x, y = utils.Clamp(x, 0, t.width-1), utils.Clamp(y, 0, t.height-1)
	}
	return t.Load(x, y)
}

// Sample returns the filtered value of t at uv.
func (s Sampler) Sample(t *Texture, uv mgl32.Vec2) mgl32.Vec4 {
	fx := uv[0]*float32(t.width) - 0.5
	fy := uv[1]*float32(t.height) - 0.5
	if s.Filter == FilterPoint {
		return s.texel(t, int(math.Floor(float64(fx+0.5))), int(math.Floor(float64(fy+0.5))))
	}
	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	ax := fx - float32(x0)
	ay := fy - float32(y0)
	c00 := s.texel(t, x0, y0)
	c10 := s.texel(t, x0+1, y0)
	c01 := s.texel(t, x0, y0+1)
	c11 := s.texel(t, x0+1, y0+1)
	top := c00.Mul(1 - ax).Add(c10.Mul(ax))
	bottom := c01.Mul(1 - ax).Add(c11.Mul(ax))
	return top.Mul(1 - ay).Add(bottom.Mul(ay))
}
