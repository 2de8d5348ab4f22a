package calibration

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"go.viam.com/holo/rimage/transform"
	"go.viam.com/holo/utils"
)

// LookupTable maps each depth pixel (col, row) to the camera space (x, y) a point at depth 1 projects
// from, so a pixel with depth z lies at (x*z, y*z, z). Entries are row-major.
type LookupTable struct {
	Width  int
	Height int
	Points []mgl32.Vec2
}

// NewLookupTable wraps row-major (x, y) pairs.
func NewLookupTable(width, height int, pairs [][2]float64) (*LookupTable, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid lookup table size %dx%d", width, height)
	}
	if len(pairs) != width*height {
		return nil, errors.Errorf("lookup table has %d entries, expected %d", len(pairs), width*height)
	}
	t := &LookupTable{Width: width, Height: height, Points: make([]mgl32.Vec2, len(pairs))}
	for i, p := range pairs {
		t.Points[i] = mgl32.Vec2{float32(p[0]), float32(p[1])}
	}
	return t, nil
}

// ComputeLookupTable builds the table from depth intrinsics by undistorting the normalized
// coordinate of every pixel.
func ComputeLookupTable(intrinsics *transform.PinholeCameraIntrinsics, distortion *transform.RadialDistortion) (*LookupTable, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	t := &LookupTable{
		Width:  intrinsics.Width,
		Height: intrinsics.Height,
		Points: make([]mgl32.Vec2, intrinsics.Width*intrinsics.Height),
	}
	utils.ParallelForEachRow(t.Height, func(row int) {
		for col := 0; col < t.Width; col++ {
			x, y := intrinsics.PixelToNormalized(float64(col), float64(row))
			x, y = distortion.Undistort(x, y)
			t.Points[row*t.Width+col] = mgl32.Vec2{float32(x), float32(y)}
		}
	})
	return t, nil
}

// At returns the entry for depth pixel (col, row).
func (t *LookupTable) At(col, row int) mgl32.Vec2 {
	return t.Points[row*t.Width+col]
}
