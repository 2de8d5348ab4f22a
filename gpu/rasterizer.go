package gpu

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"go.viam.com/holo/utils"
)

// MaxVaryings is the number of floats a vertex stage can hand to the fragment stage.
const MaxVaryings = 8

// Varyings are interpolated perspective correctly across a triangle.
type Varyings [MaxVaryings]float32

// VertexOutput is the result of the vertex stage: a clip space position and its varyings.
type VertexOutput struct {
	Position mgl32.Vec4
	Varyings Varyings
}

// FragmentInput is what the fragment stage sees for one covered pixel.
type FragmentInput struct {
	X, Y     int
	Depth    float32
	Varyings Varyings
}

// Program is a pair of shader stages.
type Program interface {
	// Vertex runs the vertex stage on vertex i.
	Vertex(i int) VertexOutput
	// Fragment shades one fragment. Returning false discards it.
	Fragment(in *FragmentInput) (mgl32.Vec4, bool)
}

// TriangleFilter is optionally implemented by a Program to drop whole triangles after the vertex
// stage, the way a geometry stage would.
type TriangleFilter interface {
	KeepTriangle(a, b, c *VertexOutput) bool
}

type screenVertex struct {
	x, y, z float32
	invW    float32
	out     *VertexOutput
}

type setupTriangle struct {
	v          [3]screenVertex
	area       float32
	minX, maxX int
	minY, maxY int
}

// DrawIndexed runs program over vertexCount vertices and rasterizes the triangle list in indices into
// fb. Triangles with a vertex behind the eye (w <= 0) are dropped. Rows are shaded in parallel bands,
// and within a band triangles are drawn in index order so depth ties and blending are deterministic.
func DrawIndexed(fb *Framebuffer, state PipelineState, program Program, vertexCount int, indices []uint32) error {
	if len(indices)%3 != 0 {
		return errors.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= vertexCount {
			return errors.Errorf("index %d out of range of %d vertices", idx, vertexCount)
		}
	}

	outputs := make([]VertexOutput, vertexCount)
	utils.ParallelForEachBand(vertexCount, func(from, to int) {
		for i := from; i < to; i++ {
			outputs[i] = program.Vertex(i)
		}
	})

	vp := state.Viewport
	if vp.Empty() {
		vp = Viewport{Width: float32(fb.Width), Height: float32(fb.Height)}
	}
	filter, _ := program.(TriangleFilter)

	triangles := make([]setupTriangle, 0, len(indices)/3)
	for t := 0; t < len(indices); t += 3 {
		a, b, c := &outputs[indices[t]], &outputs[indices[t+1]], &outputs[indices[t+2]]
		if filter != nil && !filter.KeepTriangle(a, b, c) {
			continue
		}
		tri, ok := setup(a, b, c, vp, fb, state.Cull)
		if ok {
			triangles = append(triangles, tri)
		}
	}

	utils.ParallelForEachBand(fb.Height, func(from, to int) {
		var in FragmentInput
		for i := range triangles {
			tri := &triangles[i]
			y0, y1 := max(tri.minY, from), min(tri.maxY, to-1)
			for y := y0; y <= y1; y++ {
				for x := tri.minX; x <= tri.maxX; x++ {
					shade(fb, state, program, tri, x, y, &in)
				}
			}
		}
	})
	return nil
}

func setup(a, b, c *VertexOutput, vp Viewport, fb *Framebuffer, cull CullMode) (setupTriangle, bool) {
	var tri setupTriangle
	outs := [3]*VertexOutput{a, b, c}
	var ndc [3]mgl32.Vec2
	for i, o := range outs {
		w := o.Position[3]
		if w <= 0 {
			return tri, false
		}
		invW := 1 / w
		nx, ny, nz := o.Position[0]*invW, o.Position[1]*invW, o.Position[2]*invW
		ndc[i] = mgl32.Vec2{nx, ny}
		tri.v[i] = screenVertex{
			x:    vp.X + (nx+1)*0.5*vp.Width,
			y:    vp.Y + (1-ny)*0.5*vp.Height,
			z:    nz*0.5 + 0.5,
			invW: invW,
			out:  o,
		}
	}
	// negative area in y-up NDC is clockwise
	ndcArea := (ndc[1][0]-ndc[0][0])*(ndc[2][1]-ndc[0][1]) - (ndc[2][0]-ndc[0][0])*(ndc[1][1]-ndc[0][1])
	if ndcArea == 0 {
		return tri, false
	}
	front := ndcArea < 0
	if (cull == CullFront && front) || (cull == CullBack && !front) {
		return tri, false
	}

	v := tri.v
	tri.area = edge(v[0].x, v[0].y, v[1].x, v[1].y, v[2].x, v[2].y)
	minX := math.Floor(float64(min(v[0].x, v[1].x, v[2].x)))
	maxX := math.Ceil(float64(max(v[0].x, v[1].x, v[2].x)))
	minY := math.Floor(float64(min(v[0].y, v[1].y, v[2].y)))
	maxY := math.Ceil(float64(max(v[0].y, v[1].y, v[2].y)))
	tri.minX = max(int(minX), int(vp.X), 0)
	tri.maxX = min(int(maxX), int(vp.X+vp.Width)-1, fb.Width-1)
	tri.minY = max(int(minY), int(vp.Y), 0)
	tri.maxY = min(int(maxY), int(vp.Y+vp.Height)-1, fb.Height-1)
	if tri.minX > tri.maxX || tri.minY > tri.maxY {
		return tri, false
	}
	return tri, true
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

func shade(fb *Framebuffer, state PipelineState, program Program, tri *setupTriangle, x, y int, in *FragmentInput) {
	px, py := float32(x)+0.5, float32(y)+0.5
	v := &tri.v
	b0 := edge(v[1].x, v[1].y, v[2].x, v[2].y, px, py) / tri.area
	b1 := edge(v[2].x, v[2].y, v[0].x, v[0].y, px, py) / tri.area
	b2 := 1 - b0 - b1
	if b0 < 0 || b1 < 0 || b2 < 0 {
		return
	}
	z := b0*v[0].z + b1*v[1].z + b2*v[2].z
	if z < 0 || z > 1 {
		return
	}
	i := y*fb.Width + x
	if state.DepthTest && z >= fb.Depth[i] {
		return
	}

	w0, w1, w2 := b0*v[0].invW, b1*v[1].invW, b2*v[2].invW
	norm := 1 / (w0 + w1 + w2)
	in.X, in.Y, in.Depth = x, y, z
	for k := 0; k < MaxVaryings; k++ {
		in.Varyings[k] = (w0*v[0].out.Varyings[k] + w1*v[1].out.Varyings[k] + w2*v[2].out.Varyings[k]) * norm
	}
	c, keep := program.Fragment(in)
	if !keep {
		return
	}
	if state.DepthWrite {
		fb.Depth[i] = z
	}
	fb.Color[i] = blend(state.Blend, c, fb.Color[i])
}

// DrawFullscreen runs a pixel stage over every texel of an R32F render target, rows in parallel. It
// is how image passes are expressed: each output texel depends only on the inputs bound in f.
func DrawFullscreen(target *Texture, f func(x, y int) float32) error {
	if err := target.checkFormat(FormatR32F); err != nil {
		return err
	}
	utils.ParallelForEachRow(target.height, func(y int) {
		row := target.f32[y*target.width : (y+1)*target.width]
		for x := range row {
			row[x] = f(x, y)
		}
	})
	return nil
}
