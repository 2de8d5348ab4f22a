package rimage

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestMakeRangeArray(t *testing.T) {
	test.That(t, makeRangeArray(0), test.ShouldResemble, []int{})
	test.That(t, makeRangeArray(1), test.ShouldResemble, []int{0})
	test.That(t, makeRangeArray(4), test.ShouldResemble, []int{-2, -1, 0, 1})
	test.That(t, makeRangeArray(5), test.ShouldResemble, []int{-2, -1, 0, 1, 2})
}

func TestBilateralRadius(t *testing.T) {
	test.That(t, BilateralRadius(0.1), test.ShouldEqual, 1)
	test.That(t, BilateralRadius(2), test.ShouldEqual, 4)
	test.That(t, BilateralRadius(2.2), test.ShouldEqual, 5)
	test.That(t, BilateralRadius(10), test.ShouldEqual, MaxBilateralRadius)
	test.That(t, len(BilateralOffsets(2)), test.ShouldEqual, 9)
}

func TestUnnormalizedGaussian(t *testing.T) {
	g := UnnormalizedGaussian(0.5)
	test.That(t, g(0), test.ShouldEqual, 1.)
	test.That(t, g(2), test.ShouldAlmostEqual, math.Exp(-0.5))
	test.That(t, UnnormalizedGaussian(0)(1000), test.ShouldEqual, 1.)
}

func TestBilateralFilter1D(t *testing.T) {
	row := []float32{1000, 1000, 0, 1000, 1000, 3000, 3000}
	filter := BilateralFilter1D(1, 20)
	inBounds := func(center int) func(k int) bool {
		return func(k int) bool { return center+k >= 0 && center+k < len(row) }
	}
	out := make([]float32, len(row))
	for i := range row {
		out[i] = filter(row, i, 1, inBounds(i))
	}
	// zero centers stay zero, zero neighbors don't pull values down
	test.That(t, out[2], test.ShouldEqual, float32(0))
	test.That(t, out[0], test.ShouldEqual, float32(1000))
	test.That(t, out[1], test.ShouldEqual, float32(1000))
	// a 2000mm edge is far outside the range sigma and survives
	test.That(t, out[4], test.ShouldAlmostEqual, 1000, 0.01)
	test.That(t, out[5], test.ShouldAlmostEqual, 3000, 0.01)

	smooth := BilateralFilter1D(1, 1000)
	noisy := []float32{1000, 1010, 1000}
	v := smooth(noisy, 1, 1, func(k int) bool { return true })
	test.That(t, v, test.ShouldBeLessThan, float32(1010))
	test.That(t, v, test.ShouldBeGreaterThan, float32(1000))
}
