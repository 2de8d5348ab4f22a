// Package depthfilter turns a raw depth texture into a denoised float depth texture.
package depthfilter

import (
	"context"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/holo/gpu"
	"go.viam.com/holo/rimage"
)

// Settings control the bilateral passes. Sigmas are in pixels (spatial) and millimeters (intensity).
type Settings struct {
	Enabled        bool
	SpatialSigma   float64
	IntensitySigma float64
}

// Pipeline owns the float render targets of one camera.
type Pipeline struct {
	width   int
	height  int
	final   *gpu.Texture
	subpass *gpu.Texture
}

// New allocates the render targets for a width x height depth sensor.
func New(width, height int) *Pipeline {
	return &Pipeline{
		width:   width,
		height:  height,
		final:   gpu.NewRenderTarget(width, height),
		subpass: gpu.NewRenderTarget(width, height),
	}
}

// Final is the output target, depths in millimeters with 0 marking no data.
func (p *Pipeline) Final() *gpu.Texture {
	return p.final
}

// Run unpacks raw into the final target and, when enabled, applies a separable bilateral filter:
// horizontally into the subpass target, then vertically back into final. Every target is cleared
// before it is drawn into.
func (p *Pipeline) Run(ctx context.Context, raw *gpu.Texture, settings Settings) error {
	_, span := trace.StartSpan(ctx, "depthfilter::Run")
	defer span.End()

	if raw.Format() != gpu.FormatR16UI || raw.Width() != p.width || raw.Height() != p.height {
		return errors.Errorf("raw depth must be %v %dx%d, got %v %dx%d",
			gpu.FormatR16UI, p.width, p.height, raw.Format(), raw.Width(), raw.Height())
	}

	p.final.Clear(0)
	if err := gpu.DrawFullscreen(p.final, func(x, y int) float32 {
		return float32(raw.LoadR16(x, y))
	}); err != nil {
		return err
	}
	if !settings.Enabled {
		return nil
	}

	filter := rimage.BilateralFilter1D(settings.SpatialSigma, settings.IntensitySigma)
	width, height := p.width, p.height

	p.subpass.Clear(0)
	src := p.final.DataR32F()
	if err := gpu.DrawFullscreen(p.subpass, func(x, y int) float32 {
		return filter(src, y*width+x, 1, func(k int) bool { return x+k >= 0 && x+k < width })
	}); err != nil {
		return err
	}

	p.final.Clear(0)
	src = p.subpass.DataR32F()
	return gpu.DrawFullscreen(p.final, func(x, y int) float32 {
		return filter(src, y*width+x, width, func(k int) bool { return y+k >= 0 && y+k < height })
	})
}
