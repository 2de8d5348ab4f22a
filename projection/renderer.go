// Package projection draws a camera's depth mesh textured with its color image, as seen from the
// scene's viewer.
package projection

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/holo/calibration"
	"go.viam.com/holo/gpu"
	"go.viam.com/holo/mesh"
	"go.viam.com/holo/rimage/transform"
)

// MillimetersToMeters scales filtered depth to scene units.
const MillimetersToMeters = 0.001

// BorderColor is what the color sampler returns outside the color image.
var BorderColor = mgl32.Vec4{0.5, 0.5, 0.5, 1}

// Params are the scene wide render parameters of one frame.
type Params struct {
	View        mgl32.Mat4
	Projection  mgl32.Mat4
	ClipCenter  r3.Vector
	ClipRadius  float64
	Floor       float64
	Ceiling     float64
	Holographic bool
}

// Renderer draws one calibrated camera.
type Renderer struct {
	mesh            *mesh.Mesh
	world           mgl32.Mat4
	depthToColor    mgl32.Mat4
	colorIntrinsics transform.Intrinsics32
	colorDistortion transform.Distortion32
	sampler         gpu.Sampler
	// Viewport restricts drawing to part of the framebuffer. Zero means the whole framebuffer.
	Viewport gpu.Viewport
}

// NewRenderer returns a renderer for a mesh built from cal, placed in the scene by pose.
func NewRenderer(m *mesh.Mesh, cal *calibration.Calibration, pose mgl32.Mat4) (*Renderer, error) {
	if m == nil || cal == nil {
		return nil, calibration.ErrCalibrationMissing
	}
	return &Renderer{
		mesh:            m,
		world:           pose,
		depthToColor:    cal.DepthToColor,
		colorIntrinsics: cal.ColorIntrinsics.Float32(),
		colorDistortion: cal.ColorDistortion.Float32(),
		sampler: gpu.Sampler{
			Filter:  gpu.FilterLinear,
			Address: gpu.AddressBorder,
			Border:  BorderColor,
		},
	}, nil
}

// PipelineState is the fixed function state draws use: front faces culled, depth tested, and
// additive blending for the holographic look.
func PipelineState(holographic bool, viewport gpu.Viewport) gpu.PipelineState {
	state := gpu.DefaultPipelineState()
	state.Cull = gpu.CullFront
	state.Viewport = viewport
	if holographic {
		state.Blend = gpu.BlendAdditive
	}
	return state
}

// Draw renders the mesh displaced by depth (an R32F texture in millimeters) and textured by color
// (BGRA8) into fb. Fragments are discarded outside the clip sphere, below the floor or above the
// ceiling in world space, and where the interpolated depth strays more than depthThreshold meters
// from the depth at that pixel, which tears the mesh apart at depth discontinuities.
func (r *Renderer) Draw(
	ctx context.Context,
	fb *gpu.Framebuffer,
	depth, color *gpu.Texture,
	params Params,
	depthThreshold float64,
) error {
	_, span := trace.StartSpan(ctx, "projection::Draw")
	defer span.End()

	if depth.Format() != gpu.FormatR32F || depth.Width() != r.mesh.Width || depth.Height() != r.mesh.Height {
		return errors.Errorf("depth must be %v %dx%d", gpu.FormatR32F, r.mesh.Width, r.mesh.Height)
	}
	if color.Format() != gpu.FormatBGRA8 {
		return errors.Errorf("color must be %v, got %v", gpu.FormatBGRA8, color.Format())
	}

	prog := &program{
		mesh:           r.mesh,
		depth:          depth,
		color:          color,
		sampler:        r.sampler,
		world:          r.world,
		clip:           params.Projection.Mul4(params.View).Mul4(r.world),
		depthToColor:   r.depthToColor,
		intrinsics:     r.colorIntrinsics,
		distortion:     r.colorDistortion,
		clipCenter:     mgl32.Vec3{float32(params.ClipCenter.X), float32(params.ClipCenter.Y), float32(params.ClipCenter.Z)},
		clipRadius:     float32(params.ClipRadius),
		floor:          float32(params.Floor),
		ceiling:        float32(params.Ceiling),
		depthThreshold: float32(depthThreshold),
	}
	return gpu.DrawIndexed(fb, PipelineState(params.Holographic, r.Viewport), prog, len(r.mesh.Vertices), r.mesh.Indices)
}

// varying slots
const (
	varU = iota
	varV
	varWorldX
	varWorldY
	varWorldZ
	varDepth
	varCol
	varRow
)

type program struct {
	mesh    *mesh.Mesh
	depth   *gpu.Texture
	color   *gpu.Texture
	sampler gpu.Sampler

	world        mgl32.Mat4
	clip         mgl32.Mat4
	depthToColor mgl32.Mat4
	intrinsics   transform.Intrinsics32
	distortion   transform.Distortion32

	clipCenter     mgl32.Vec3
	clipRadius     float32
	floor          float32
	ceiling        float32
	depthThreshold float32
}

// colorUV projects a point in depth camera space into normalized color image coordinates.
func (p *program) colorUV(depthCam mgl32.Vec4) mgl32.Vec2 {
	c := p.depthToColor.Mul4x1(depthCam)
	if c[2] == 0 {
		return mgl32.Vec2{-1, -1}
	}
	x, y := p.distortion.Distort(c[0]/c[2], c[1]/c[2])
	return p.intrinsics.PixelToTexCoord(p.intrinsics.NormalizedToPixel(x, y))
}

func (p *program) Vertex(i int) gpu.VertexOutput {
	v := p.mesh.Vertices[i]
	z := p.depth.LoadR32F(int(v.Col), int(v.Row)) * MillimetersToMeters
	pos := mgl32.Vec4{v.X * z, v.Y * z, z, 1}
	world := p.world.Mul4x1(pos)
	uv := p.colorUV(pos)

	var out gpu.VertexOutput
	out.Position = p.clip.Mul4x1(pos)
	out.Varyings[varU] = uv[0]
	out.Varyings[varV] = uv[1]
	out.Varyings[varWorldX] = world[0]
	out.Varyings[varWorldY] = world[1]
	out.Varyings[varWorldZ] = world[2]
	out.Varyings[varDepth] = z
	out.Varyings[varCol] = v.Col
	out.Varyings[varRow] = v.Row
	return out
}

// KeepTriangle drops triangles touching a pixel without depth.
func (p *program) KeepTriangle(a, b, c *gpu.VertexOutput) bool {
	return a.Varyings[varDepth] != 0 && b.Varyings[varDepth] != 0 && c.Varyings[varDepth] != 0
}

func (p *program) Fragment(in *gpu.FragmentInput) (mgl32.Vec4, bool) {
	vary := &in.Varyings

	col := int(math.Round(float64(vary[varCol])))
	row := int(math.Round(float64(vary[varRow])))
	if !p.depth.In(col, row) {
		return mgl32.Vec4{}, false
	}
	nearest := p.depth.LoadR32F(col, row) * MillimetersToMeters
	if d := vary[varDepth] - nearest; d > p.depthThreshold || -d > p.depthThreshold {
		return mgl32.Vec4{}, false
	}

	world := mgl32.Vec3{vary[varWorldX], vary[varWorldY], vary[varWorldZ]}
	if world.Sub(p.clipCenter).Len() > p.clipRadius {
		return mgl32.Vec4{}, false
	}
	if world[1] < p.floor || world[1] > p.ceiling {
		return mgl32.Vec4{}, false
	}
	return p.sampler.Sample(p.color, mgl32.Vec2{vary[varU], vary[varV]}), true
}
