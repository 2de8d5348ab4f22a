package projection

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/holo/calibration"
	"go.viam.com/holo/gpu"
	"go.viam.com/holo/mesh"
	"go.viam.com/holo/rimage/transform"
)

type fixture struct {
	renderer *Renderer
	depth    *gpu.Texture
	color    *gpu.Texture
}

// newFixture is a 3x3 depth grid whose unit-depth rays spread over x, y in {-1, 0, 1}, all pixels at
// 1000mm, and a uniformly green color image.
func newFixture(t *testing.T, pose mgl32.Mat4) *fixture {
	t.Helper()
	pairs := make([][2]float64, 0, 9)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			pairs = append(pairs, [2]float64{float64(col - 1), float64(row - 1)})
		}
	}
	table, err := calibration.NewLookupTable(3, 3, pairs)
	test.That(t, err, test.ShouldBeNil)
	cal := &calibration.Calibration{
		DepthWidth:      3,
		DepthHeight:     3,
		ColorIntrinsics: transform.PinholeCameraIntrinsics{Width: 8, Height: 6, Fx: 10, Fy: 10, Ppx: 4, Ppy: 3},
		DepthToColor:    mgl32.Ident4(),
		Table:           table,
	}
	m, err := mesh.Build(table, 3, 3)
	test.That(t, err, test.ShouldBeNil)
	r, err := NewRenderer(m, cal, pose)
	test.That(t, err, test.ShouldBeNil)

	depth := gpu.NewRenderTarget(3, 3)
	depth.Clear(1000)
	color := gpu.NewTexture(gpu.FormatBGRA8, 8, 6)
	pix := make([]uint8, 8*6*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i+1], pix[i+3] = 255, 255
	}
	test.That(t, color.SetDataBGRA(pix), test.ShouldBeNil)
	return &fixture{renderer: r, depth: depth, color: color}
}

// cameraView looks down +z with y down, the way the depth camera sees, so the mesh faces the viewer
// and world (x, y) lands on pixel ((x/10+1)*20, (y/10+1)*20) of a 40x40 framebuffer.
var cameraView = mgl32.Scale3D(1, -1, -1)

func sceneParams() Params {
	return Params{
		View:       cameraView,
		Projection: mgl32.Ortho(-10, 10, -10, 10, -10, 10),
		ClipCenter: r3.Vector{X: 0, Y: 0, Z: 1},
		ClipRadius: 1,
		Floor:      -1,
		Ceiling:    2,
	}
}

func covered(fb *gpu.Framebuffer) int {
	n := 0
	for y := 0; y < fb.Height; y++ {
		for x := 0; x < fb.Width; x++ {
			if fb.Covered(x, y) {
				n++
			}
		}
	}
	return n
}

func TestDrawInsideClip(t *testing.T) {
	f := newFixture(t, mgl32.Ident4())
	fb := gpu.NewFramebuffer(40, 40)
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, sceneParams(), 0.1), test.ShouldBeNil)

	// world (0.25, 0.25, 1), near the clip center
	test.That(t, fb.Covered(20, 20), test.ShouldBeTrue)
	c := fb.At(20, 20)
	test.That(t, c[1], test.ShouldAlmostEqual, 1, 0.01)
	test.That(t, c[0], test.ShouldAlmostEqual, 0, 0.01)

	// world (0.75, 0.25, 1) is inside the clip but projects outside the color image
	test.That(t, fb.Covered(21, 20), test.ShouldBeTrue)
	c = fb.At(21, 20)
	test.That(t, c[0], test.ShouldAlmostEqual, BorderColor[0], 1e-3)
	test.That(t, c[1], test.ShouldAlmostEqual, BorderColor[1], 1e-3)

	// world (-0.75, -0.75, 1) is outside the clip sphere
	test.That(t, fb.Covered(18, 18), test.ShouldBeFalse)
	// seen from behind every triangle is front facing and culled
	params := sceneParams()
	params.View = mgl32.Scale3D(1, 1, -1)
	fb = gpu.NewFramebuffer(40, 40)
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, params, 0.1), test.ShouldBeNil)
	test.That(t, covered(fb), test.ShouldEqual, 0)
	// off the mesh
	test.That(t, fb.Covered(5, 5), test.ShouldBeFalse)
}

func TestDrawOutsideClip(t *testing.T) {
	// the depth plane lands around (5, 5, 5)
	f := newFixture(t, mgl32.Translate3D(5, 5, 4))
	fb := gpu.NewFramebuffer(40, 40)
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, sceneParams(), 0.1), test.ShouldBeNil)
	test.That(t, covered(fb), test.ShouldEqual, 0)

	params := sceneParams()
	params.ClipRadius = 100
	params.Ceiling = 100
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, params, 0.1), test.ShouldBeNil)
	test.That(t, fb.Covered(30, 30), test.ShouldBeTrue)
}

func TestDrawFloorCeiling(t *testing.T) {
	f := newFixture(t, mgl32.Ident4())
	params := sceneParams()
	params.Floor = 0.9
	fb := gpu.NewFramebuffer(40, 40)
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, params, 0.1), test.ShouldBeNil)
	test.That(t, covered(fb), test.ShouldEqual, 0)

	params = sceneParams()
	params.Ceiling = -0.5
	params.Floor = -5
	fb = gpu.NewFramebuffer(40, 40)
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, params, 0.1), test.ShouldBeNil)
	test.That(t, fb.Covered(20, 20), test.ShouldBeFalse)
	// world y = -0.75
	test.That(t, fb.Covered(20, 18), test.ShouldBeTrue)
}

func TestDrawSkipsHoles(t *testing.T) {
	f := newFixture(t, mgl32.Ident4())
	// every triangle of a 3x3 grid touches the center pixel
	f.depth.StoreR32F(1, 1, 0)
	fb := gpu.NewFramebuffer(40, 40)
	test.That(t, f.renderer.Draw(context.Background(), fb, f.depth, f.color, sceneParams(), 0.1), test.ShouldBeNil)
	test.That(t, covered(fb), test.ShouldEqual, 0)
}

func TestDrawRejectsBadTextures(t *testing.T) {
	f := newFixture(t, mgl32.Ident4())
	fb := gpu.NewFramebuffer(4, 4)
	err := f.renderer.Draw(context.Background(), fb, gpu.NewRenderTarget(2, 2), f.color, sceneParams(), 0.1)
	test.That(t, err, test.ShouldNotBeNil)
	err = f.renderer.Draw(context.Background(), fb, f.depth, f.depth, sceneParams(), 0.1)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewRenderer(nil, nil, mgl32.Ident4())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFragmentDepthThreshold(t *testing.T) {
	f := newFixture(t, mgl32.Ident4())
	p := &program{
		mesh:           f.renderer.mesh,
		depth:          f.depth,
		color:          f.color,
		sampler:        f.renderer.sampler,
		clipCenter:     mgl32.Vec3{0, 0, 1},
		clipRadius:     1,
		floor:          -1,
		ceiling:        2,
		depthThreshold: 0.1,
	}
	in := &gpu.FragmentInput{}
	in.Varyings[varU], in.Varyings[varV] = 0.5, 0.5
	in.Varyings[varWorldZ] = 1
	in.Varyings[varCol], in.Varyings[varRow] = 1.2, 0.9

	in.Varyings[varDepth] = 1.05
	_, keep := p.Fragment(in)
	test.That(t, keep, test.ShouldBeTrue)

	in.Varyings[varDepth] = 1.5
	_, keep = p.Fragment(in)
	test.That(t, keep, test.ShouldBeFalse)

	in.Varyings[varDepth] = 0.85
	_, keep = p.Fragment(in)
	test.That(t, keep, test.ShouldBeFalse)

	// exactly on the clip sphere is kept
	in.Varyings[varDepth] = 1
	in.Varyings[varWorldX] = 1
	_, keep = p.Fragment(in)
	test.That(t, keep, test.ShouldBeTrue)
}

func TestColorUV(t *testing.T) {
	p := &program{
		depthToColor: mgl32.Ident4(),
		intrinsics:   (&transform.PinholeCameraIntrinsics{Width: 8, Height: 6, Fx: 10, Fy: 10, Ppx: 4, Ppy: 3}).Float32(),
		distortion:   (&transform.RadialDistortion{K1: 0.1}).Float32(),
	}
	uv := p.colorUV(mgl32.Vec4{0.5, 0, 1, 1})
	test.That(t, uv[0], test.ShouldAlmostEqual, (10*0.5*1.025+4)/8, 1e-6)
	test.That(t, uv[1], test.ShouldAlmostEqual, 0.5, 1e-6)

	// depth-to-color shifts before projecting
	p.depthToColor = mgl32.Translate3D(0, 0, 1)
	uv = p.colorUV(mgl32.Vec4{0.5, 0, 1, 1})
	test.That(t, uv[0], test.ShouldAlmostEqual, (10*0.25*(1+0.1*0.0625)+4)/8, 1e-6)

	uv = p.colorUV(mgl32.Vec4{0, 0, -1, 1})
	test.That(t, uv, test.ShouldResemble, mgl32.Vec2{-1, -1})
}

func TestPipelineState(t *testing.T) {
	state := PipelineState(true, gpu.Viewport{})
	test.That(t, state.Blend, test.ShouldEqual, gpu.BlendAdditive)
	test.That(t, state.Cull, test.ShouldEqual, gpu.CullFront)
	test.That(t, state.DepthTest, test.ShouldBeTrue)
	test.That(t, PipelineState(false, gpu.Viewport{}).Blend, test.ShouldEqual, gpu.BlendDefault)
}
