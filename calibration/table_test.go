package calibration

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.viam.com/test"

	"go.viam.com/holo/rimage/transform"
)

func TestComputeLookupTable(t *testing.T) {
	intrinsics := &transform.PinholeCameraIntrinsics{Width: 6, Height: 5, Fx: 3, Fy: 3, Ppx: 3, Ppy: 2}
	distortion := &transform.RadialDistortion{K1: 0.05, K2: 0.01}

	table, err := ComputeLookupTable(intrinsics, distortion)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(table.Points), test.ShouldEqual, 30)

	// every entry distorts back onto its pixel
	for row := 0; row < 5; row++ {
		for col := 0; col < 6; col++ {
			p := table.At(col, row)
			x, y := distortion.Float32().Distort(p[0], p[1])
			u, v := intrinsics.Float32().NormalizedToPixel(x, y)
			test.That(t, u, test.ShouldAlmostEqual, float32(col), 1e-3)
			test.That(t, v, test.ShouldAlmostEqual, float32(row), 1e-3)
		}
	}

	undistorted, err := ComputeLookupTable(intrinsics, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, undistorted.At(0, 0)[0], test.ShouldEqual, float32(-1))

	_, err = ComputeLookupTable(&transform.PinholeCameraIntrinsics{}, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewLookupTable(t *testing.T) {
	_, err := NewLookupTable(0, 1, nil)
	test.That(t, err, test.ShouldNotBeNil)

	table, err := NewLookupTable(1, 2, [][2]float64{{1, 2}, {3, 4}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, table.At(0, 1)[1], test.ShouldEqual, float32(4))
}

func TestMatrix4(t *testing.T) {
	m, err := Matrix4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}.Mat4()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m, test.ShouldResemble, mgl32.Ident4())

	_, err = Matrix4{{1, 2, 3, 4}, {1, 2, 3}, {1, 2, 3, 4}, {1, 2, 3, 4}}.Dense()
	test.That(t, err, test.ShouldNotBeNil)

	dense, err := Matrix4{{2, 0, 0, 1}, {0, 2, 0, 0}, {0, 0, 2, 0}, {0, 0, 0, 1}}.Dense()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, IsAffine(dense), test.ShouldBeTrue)
	dense.Set(3, 0, 1)
	test.That(t, IsAffine(dense), test.ShouldBeFalse)
}
