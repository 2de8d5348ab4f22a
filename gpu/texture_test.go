package gpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.viam.com/test"
)

func TestTextureUploads(t *testing.T) {
	depth := NewTexture(FormatR16UI, 3, 2)
	test.That(t, depth.SetDataR16([]uint16{1, 2, 3, 4, 5, 6}), test.ShouldBeNil)
	test.That(t, depth.LoadR16(2, 1), test.ShouldEqual, uint16(6))
	test.That(t, depth.Load(0, 1), test.ShouldResemble, mgl32.Vec4{4, 0, 0, 1})
	test.That(t, depth.Load(3, 0), test.ShouldResemble, mgl32.Vec4{})

	err := depth.SetDataR16([]uint16{1})
	test.That(t, err, test.ShouldNotBeNil)
	err = depth.SetDataBGRA(make([]uint8, 24))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "R16UI")

	color := NewTexture(FormatBGRA8, 1, 1)
	test.That(t, color.SetDataBGRA([]uint8{255, 0, 51, 255}), test.ShouldBeNil)
	test.That(t, color.Load(0, 0), test.ShouldResemble, mgl32.Vec4{0.2, 0, 1, 1})

	target := NewRenderTarget(2, 2)
	test.That(t, target.Format(), test.ShouldEqual, FormatR32F)
	target.Clear(7)
	test.That(t, target.DataR32F(), test.ShouldResemble, []float32{7, 7, 7, 7})
	target.StoreR32F(1, 1, 3)
	test.That(t, target.LoadR32F(1, 1), test.ShouldEqual, float32(3))

	other := NewRenderTarget(2, 2)
	test.That(t, other.CopyFrom(target), test.ShouldBeNil)
	test.That(t, other.DataR32F(), test.ShouldResemble, []float32{7, 7, 7, 3})
	test.That(t, other.CopyFrom(depth), test.ShouldNotBeNil)

	test.That(t, FormatBGRA8.String(), test.ShouldEqual, "BGRA8")
}

func TestSampler(t *testing.T) {
	tex := NewTexture(FormatBGRA8, 2, 1)
	// red then blue
	test.That(t, tex.SetDataBGRA([]uint8{0, 0, 255, 255, 255, 0, 0, 255}), test.ShouldBeNil)
	border := mgl32.Vec4{0.5, 0.5, 0.5, 1}

	linear := Sampler{Filter: FilterLinear, Address: AddressBorder, Border: border}
	test.That(t, linear.Sample(tex, mgl32.Vec2{0.25, 0.5}), test.ShouldResemble, mgl32.Vec4{1, 0, 0, 1})
	test.That(t, linear.Sample(tex, mgl32.Vec2{0.5, 0.5}), test.ShouldResemble, mgl32.Vec4{0.5, 0, 0.5, 1})
	test.That(t, linear.Sample(tex, mgl32.Vec2{-1, 0.5}), test.ShouldResemble, border)
	test.That(t, linear.Sample(tex, mgl32.Vec2{0.5, 3}), test.ShouldResemble, border)

	point := Sampler{Filter: FilterPoint, Address: AddressClamp}
	test.That(t, point.Sample(tex, mgl32.Vec2{0.3, 0.5}), test.ShouldResemble, mgl32.Vec4{1, 0, 0, 1})
	test.That(t, point.Sample(tex, mgl32.Vec2{0.7, 0.5}), test.ShouldResemble, mgl32.Vec4{0, 0, 1, 1})
	test.That(t, point.Sample(tex, mgl32.Vec2{5, 0.5}), test.ShouldResemble, mgl32.Vec4{0, 0, 1, 1})
}
