package rimage

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestDepthMapBasics(t *testing.T) {
	dm := NewEmptyDepthMap(4, 3)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	test.That(t, dm.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	test.That(t, dm.In(3, 2), test.ShouldBeTrue)
	test.That(t, dm.In(4, 2), test.ShouldBeFalse)
	test.That(t, dm.In(-1, 0), test.ShouldBeFalse)

	dm.Set(2, 1, 1234)
	test.That(t, dm.GetDepth(2, 1), test.ShouldEqual, Depth(1234))
	test.That(t, dm.Samples()[1*4+2], test.ShouldEqual, uint16(1234))
	test.That(t, dm.At(2, 1), test.ShouldResemble, color.Gray16{Y: 1234})
	test.That(t, dm.At(10, 10), test.ShouldResemble, color.Gray16{})

	clone := dm.Clone()
	clone.Set(2, 1, 1)
	test.That(t, dm.GetDepth(2, 1), test.ShouldEqual, Depth(1234))

	gray := dm.ToGray16()
	test.That(t, gray.Gray16At(2, 1).Y, test.ShouldEqual, uint16(1234))
	back, err := ConvertImageToDepthMap(gray)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Samples(), test.ShouldResemble, dm.Samples())

	_, err = ConvertImageToDepthMap(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthMapFromSamples(t *testing.T) {
	_, err := NewDepthMapFromSamples(2, 2, []uint16{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)

	samples := []uint16{1, 2, 3, 4}
	dm, err := NewDepthMapFromSamples(2, 2, samples)
	test.That(t, err, test.ShouldBeNil)
	samples[0] = 99
	test.That(t, dm.GetDepth(0, 0), test.ShouldEqual, Depth(1))
	test.That(t, dm.GetDepth(1, 1), test.ShouldEqual, Depth(4))
}

func TestRawDepth(t *testing.T) {
	raw := EncodeRawDepth([]uint16{0x0102, 0xfffe, 0})
	test.That(t, raw, test.ShouldResemble, []byte{0x02, 0x01, 0xfe, 0xff, 0, 0})

	samples, err := DecodeRawDepth(raw, 3, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, samples, test.ShouldResemble, []uint16{0x0102, 0xfffe, 0})

	_, err = DecodeRawDepth(raw, 2, 2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected 8")
}
