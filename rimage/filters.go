package rimage

import (
	"math"

	"go.viam.com/holo/utils"
)

// MaxBilateralRadius bounds the half width of a bilateral kernel.
const MaxBilateralRadius = 10

// Helper function for convolving matrices together, When used with i, dx := range makeRangeArray(n)
// i is the position within the kernel and dx gives the offset within the depth map.
// if length is even, then the origin is to the right of middle i.e. 4 -> {-2, -1, 0, 1}
func makeRangeArray(length int) []int {
	if length <= 0 {
		return make([]int, 0)
	}
	rangeArray := make([]int, length)
	var span int
	if length%2 == 0 {
		oddArr := makeRangeArray(length - 1)
		span = length / 2
		rangeArray = append([]int{-span}, oddArr...)
	} else {
		span = (length - 1) / 2
		for i := 0; i < span; i++ {
			rangeArray[length-1-i] = span - i
			rangeArray[i] = -span + i
		}
	}
	return rangeArray
}

// UnnormalizedGaussian returns exp(-0.5*(p*invSigma)^2). Bilateral weights are renormalized per pixel
// so the usual 1/(sigma*sqrt(2pi)) factor is dropped, and taking the inverse sigma lets a zero inverse
// collapse the term to a constant 1.
func UnnormalizedGaussian(invSigma float64) func(p float64) float64 {
	return func(p float64) float64 {
		return math.Exp(-0.5 * utils.Square(p*invSigma))
	}
}

// BilateralRadius is the half width of the kernel used for a given spatial sigma: ceil(2*sigma)
// clamped to [1, MaxBilateralRadius].
func BilateralRadius(spatialSigma float64) int {
	return utils.Clamp(int(math.Ceil(2*spatialSigma)), 1, MaxBilateralRadius)
}

// BilateralOffsets lists the kernel offsets for a spatial sigma, centered on zero.
func BilateralOffsets(spatialSigma float64) []int {
	return makeRangeArray(2*BilateralRadius(spatialSigma) + 1)
}

// BilateralFilter1D returns a separable, depth-aware bilateral filter along one axis of a float depth
// buffer. Zero samples are invalid: they are skipped as neighbors and a zero center stays zero.
// The returned function reads src at index center and neighbors center+k*stride for k in the kernel
// offsets, with inBounds deciding whether offset k exists.
func BilateralFilter1D(spatialSigma, intensitySigma float64) func(src []float32, center, stride int, inBounds func(k int) bool) float32 {
	offsets := BilateralOffsets(spatialSigma)
	invSpatial, invIntensity := 0., 0.
	if spatialSigma > 0 {
		invSpatial = 1 / spatialSigma
	}
	spatial := UnnormalizedGaussian(invSpatial)
	if intensitySigma > 0 {
		invIntensity = 1 / intensitySigma
	}
	intensity := UnnormalizedGaussian(invIntensity)
	spatialWeights := make([]float64, len(offsets))
	for i, k := range offsets {
		spatialWeights[i] = spatial(float64(k))
	}
	return func(src []float32, center, stride int, inBounds func(k int) bool) float32 {
		d0 := src[center]
		if d0 == 0 {
			return 0
		}
		sum, wsum := 0., 0.
		for i, k := range offsets {
			if !inBounds(k) {
				continue
			}
			d := src[center+k*stride]
			if d == 0 {
				continue
			}
			w := spatialWeights[i] * intensity(float64(d-d0))
			sum += w * float64(d)
			wsum += w
		}
		if wsum == 0 {
			return d0
		}
		return float32(sum / wsum)
	}
}
