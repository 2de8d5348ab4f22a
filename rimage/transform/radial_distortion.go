package transform

import (
	"math"

	"github.com/pkg/errors"
)

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// RadialDistortion is the two coefficient radial lens model g(r) = 1 + k1*r^2 + k2*r^4 applied to
// normalized image coordinates.
type RadialDistortion struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
}

// CheckValid checks that the coefficients are finite.
func (rd *RadialDistortion) CheckValid() error {
	if rd == nil {
		return InvalidDistortionError("radial distortion_parameters not provided")
	}
	for _, k := range rd.Parameters() {
		if math.IsNaN(k) || math.IsInf(k, 0) {
			return InvalidDistortionError("coefficients must be finite")
		}
	}
	return nil
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (rd *RadialDistortion) Parameters() []float64 {
	if rd == nil {
		return []float64{}
	}
	return []float64{rd.K1, rd.K2}
}

// Gain is the radial scale factor at the undistorted point (x, y).
func (rd *RadialDistortion) Gain(x, y float64) float64 {
	r2 := x*x + y*y
	return 1 + rd.K1*r2 + rd.K2*r2*r2
}

// Float32 returns the coefficients in the single precision form used per vertex. A nil
// distortion is the identity.
func (rd *RadialDistortion) Float32() Distortion32 {
	if rd == nil {
		return Distortion32{}
	}
	return Distortion32{K1: float32(rd.K1), K2: float32(rd.K2)}
}

// Distortion32 is RadialDistortion in single precision.
type Distortion32 struct {
	K1, K2 float32
}

// Gain is the radial scale factor at the undistorted point (x, y).
func (d Distortion32) Gain(x, y float32) float32 {
	r2 := x*x + y*y
	return 1 + d.K1*r2 + d.K2*r2*r2
}

// Distort maps an undistorted normalized point to where the lens images it.
func (d Distortion32) Distort(x, y float32) (float32, float32) {
	g := d.Gain(x, y)
	return x * g, y * g
}

// Undistort inverts Distort with Newton-Raphson iterations, starting from the distorted point.
func (rd *RadialDistortion) Undistort(xd, yd float64) (float64, float64) {
	if rd == nil {
		return xd, yd
	}
	const maxIterations = 20
	const tolerance = 1e-10

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		r2 := xu*xu + yu*yu
		g := rd.Gain(xu, yu)

		errX := xu*g - xd
		errY := yu*g - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		// J = g*I + 2*(k1 + 2*k2*r^2) * [x y]^T [x y]
		dg := 2 * (rd.K1 + 2*rd.K2*r2)
		dxdx := g + dg*xu*xu
		dxdy := dg * xu * yu
		dydy := g + dg*yu*yu

		det := dxdx*dydy - dxdy*dxdy
		if det == 0 {
			break
		}
		xu -= (dydy*errX - dxdy*errY) / det
		yu -= (-dxdy*errX + dxdx*errY) / det
	}
	return xu, yu
}
