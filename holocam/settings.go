package holocam

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"

	"go.viam.com/holo/depthfilter"
	"go.viam.com/holo/projection"
)

// Settings are the per camera tunables.
type Settings struct {
	LiveDepth   bool
	LiveColor   bool
	FilterDepth bool
	// SpatialSigma is in depth pixels.
	SpatialSigma float64
	// IntensitySigma is in millimeters.
	IntensitySigma float64
	// DepthThreshold is in meters.
	DepthThreshold float64
}

// DefaultSettings returns live streams with filtering on.
func DefaultSettings() Settings {
	return Settings{
		LiveDepth:      true,
		LiveColor:      true,
		FilterDepth:    true,
		SpatialSigma:   2,
		IntensitySigma: 20,
		DepthThreshold: 0.1,
	}
}

func (s Settings) filter() depthfilter.Settings {
	return depthfilter.Settings{
		Enabled:        s.FilterDepth,
		SpatialSigma:   s.SpatialSigma,
		IntensitySigma: s.IntensitySigma,
	}
}

// DefaultRenderParams are used until the scene pushes its own: identity view and projection, a
// unit clip sphere at (0, 0, 1) and a floor and ceiling at -5 and 5.
func DefaultRenderParams() projection.Params {
	return projection.Params{
		View:       mgl32.Ident4(),
		Projection: mgl32.Ident4(),
		ClipCenter: r3.Vector{X: 0, Y: 0, Z: 1},
		ClipRadius: 1,
		Floor:      -5,
		Ceiling:    5,
	}
}

// State is what a camera renderer currently does.
type State int

// Camera renderer states. Uncalibrated is terminal.
const (
	StateUncalibrated State = iota
	StateLive
	StateDepthOnly
	StateColorOnly
	StateStatic
)

func (s State) String() string {
	switch s {
	case StateUncalibrated:
		return "uncalibrated"
	case StateLive:
		return "live"
	case StateDepthOnly:
		return "depth only"
	case StateColorOnly:
		return "color only"
	case StateStatic:
		return "static"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
