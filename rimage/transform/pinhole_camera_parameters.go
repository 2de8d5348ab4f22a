package transform

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// PixelToNormalized maps a pixel to the normalized image plane at z = 1.
func (params *PinholeCameraIntrinsics) PixelToNormalized(u, v float64) (float64, float64) {
	return (u - params.Ppx) / params.Fx, (v - params.Ppy) / params.Fy
}

// Float32 returns the intrinsics in the single precision form used per vertex.
func (params *PinholeCameraIntrinsics) Float32() Intrinsics32 {
	return Intrinsics32{
		Focal:     mgl32.Vec2{float32(params.Fx), float32(params.Fy)},
		Principal: mgl32.Vec2{float32(params.Ppx), float32(params.Ppy)},
		Size:      mgl32.Vec2{float32(params.Width), float32(params.Height)},
	}
}

// Intrinsics32 is PinholeCameraIntrinsics in single precision.
type Intrinsics32 struct {
	Focal     mgl32.Vec2
	Principal mgl32.Vec2
	Size      mgl32.Vec2
}

// NormalizedToPixel maps a normalized (already divided by z, possibly distorted) image point to pixels.
func (in Intrinsics32) NormalizedToPixel(x, y float32) (float32, float32) {
	return x*in.Focal[0] + in.Principal[0], y*in.Focal[1] + in.Principal[1]
}

// PixelToTexCoord scales pixel coordinates into [0, 1] texture coordinates.
func (in Intrinsics32) PixelToTexCoord(u, v float32) mgl32.Vec2 {
	return mgl32.Vec2{u / in.Size[0], v / in.Size[1]}
}
