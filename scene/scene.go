// Package scene is the studio: it loads the camera ensemble, owns one camera renderer per camera
// and pushes the shared render parameters to all of them every frame.
package scene

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"go.viam.com/holo/calibration"
	"go.viam.com/holo/framesource"
	"go.viam.com/holo/gpu"
	"go.viam.com/holo/holocam"
	"go.viam.com/holo/logging"
	"go.viam.com/holo/params"
	"go.viam.com/holo/projection"
)

// Params are the scene wide render parameters.
type Params struct {
	Center      r3.Vector
	Radius      float64
	Floor       float64
	Ceiling     float64
	Holographic bool
}

// DefaultParams is a unit clip sphere one meter in front of the first camera.
func DefaultParams() Params {
	return Params{
		Center:  r3.Vector{X: 0, Y: 0, Z: 1},
		Radius:  1,
		Floor:   -1,
		Ceiling: 2,
	}
}

// Dialer opens the frame source of a camera.
type Dialer func(cam *calibration.Camera) (framesource.Source, error)

// Config configures a Studio.
type Config struct {
	EnsemblePath string
	// CallTimeout bounds every frame request. Zero uses framesource.DefaultCallTimeout.
	CallTimeout time.Duration
	// Dial overrides how frame sources are opened. Nil dials cam.Address over gRPC.
	Dial Dialer
	// Clock drives stream backoff. Nil uses the wall clock.
	Clock clock.Clock
}

// Studio renders every camera of an ensemble into one framebuffer.
type Studio struct {
	logger    logging.Logger
	renderers []*holocam.Renderer
	registry  *params.Registry

	mu         sync.Mutex
	params     Params
	view       mgl32.Mat4
	projection mgl32.Mat4
}

// New loads the ensemble and builds a renderer per camera. A missing ensemble yields an empty
// studio, and a camera whose frame source cannot be dialed is shown from its reference images.
func New(ctx context.Context, cfg Config, logger logging.Logger) (*Studio, error) {
	_, span := trace.StartSpan(ctx, "scene::New")
	defer span.End()

	cameras, err := calibration.LoadCameras(cfg.EnsemblePath, logger)
	if err != nil {
		return nil, err
	}
	dial := cfg.Dial
	if dial == nil {
		dial = grpcDialer(cfg.CallTimeout, logger)
	}

	// reference images are decoded here, so build the renderers concurrently
	renderers := make([]*holocam.Renderer, len(cameras))
	var g errgroup.Group
	for i, cam := range cameras {
		g.Go(func() error {
			var source framesource.Source
			if cam.Calibration != nil {
				var err error
				if source, err = dial(cam); err != nil {
					logger.Warnw("could not dial frame source, camera will be static",
						"camera", cam.Name, "address", cam.Address, "error", err)
					source = nil
				}
			}
			r, err := holocam.NewRenderer(cam, source, cfg.Clock, logger)
			if err != nil {
				if source != nil {
					err = multierr.Combine(err, source.Close(ctx))
				}
				return err
			}
			renderers[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, r := range renderers {
			if r != nil {
				err = multierr.Combine(err, r.Close(ctx))
			}
		}
		return nil, err
	}

	s := &Studio{
		logger:     logger,
		renderers:  renderers,
		registry:   params.NewRegistry(),
		params:     DefaultParams(),
		view:       mgl32.Ident4(),
		projection: mgl32.Ident4(),
	}
	if err := s.registerParams(); err != nil {
		return nil, multierr.Combine(err, s.Close(ctx))
	}
	logger.Infow("studio loaded", "ensemble", cfg.EnsemblePath, "cameras", len(renderers))
	return s, nil
}

func grpcDialer(callTimeout time.Duration, logger logging.Logger) Dialer {
	if callTimeout == 0 {
		callTimeout = framesource.DefaultCallTimeout
	}
	return func(cam *calibration.Camera) (framesource.Source, error) {
		width, height := cam.DepthSize()
		return framesource.NewClient(cam.Address, width, height, callTimeout, logger.Sublogger(cam.Name))
	}
}

func (s *Studio) floatParam(name string, lo, hi, step float64, field func(p *Params) *float64) error {
	return s.registry.AddFloat(params.FloatParam{
		Name: name, Min: lo, Max: hi, Step: step,
		Get: func() float64 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return *field(&s.params)
		},
		Set: func(v float64) {
			s.mu.Lock()
			defer s.mu.Unlock()
			*field(&s.params) = v
		},
	})
}

func cameraFloatParam(r *holocam.Renderer, name string, lo, hi, step float64, field func(s *holocam.Settings) *float64) params.FloatParam {
	return params.FloatParam{
		Name: name, Min: lo, Max: hi, Step: step,
		Get: func() float64 {
			settings := r.Settings()
			return *field(&settings)
		},
		Set: func(v float64) {
			r.UpdateSettings(func(s *holocam.Settings) { *field(s) = v })
		},
	}
}

func cameraBoolParam(r *holocam.Renderer, name string, field func(s *holocam.Settings) *bool) params.BoolParam {
	return params.BoolParam{
		Name: name,
		Get: func() bool {
			settings := r.Settings()
			return *field(&settings)
		},
		Set: func(v bool) {
			r.UpdateSettings(func(s *holocam.Settings) { *field(s) = v })
		},
	}
}

func (s *Studio) registerParams() error {
	err := multierr.Combine(
		s.floatParam("Clip Radius", 0.01, 10, 0.01, func(p *Params) *float64 { return &p.Radius }),
		s.floatParam("Clip CenterX", -10, 10, 0.01, func(p *Params) *float64 { return &p.Center.X }),
		s.floatParam("Clip CenterY", -10, 10, 0.01, func(p *Params) *float64 { return &p.Center.Y }),
		s.floatParam("Clip CenterZ", 0, 10, 0.01, func(p *Params) *float64 { return &p.Center.Z }),
		s.floatParam("Clip Floor", -5, 5, 0.01, func(p *Params) *float64 { return &p.Floor }),
		s.floatParam("Clip Ceiling", -5, 5, 0.01, func(p *Params) *float64 { return &p.Ceiling }),
		s.registry.AddBool(params.BoolParam{
			Name: "Apply Hologram Effect",
			Get: func() bool {
				s.mu.Lock()
				defer s.mu.Unlock()
				return s.params.Holographic
			},
			Set: func(v bool) {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.params.Holographic = v
			},
		}),
	)
	for i, r := range s.renderers {
		err = multierr.Combine(err,
			s.registry.AddBool(cameraBoolParam(r, fmt.Sprintf("LiveDepth%d", i),
				func(s *holocam.Settings) *bool { return &s.LiveDepth })),
			s.registry.AddBool(cameraBoolParam(r, fmt.Sprintf("LiveColor%d", i),
				func(s *holocam.Settings) *bool { return &s.LiveColor })),
			s.registry.AddBool(cameraBoolParam(r, fmt.Sprintf("FilterDepth%d", i),
				func(s *holocam.Settings) *bool { return &s.FilterDepth })),
			s.registry.AddFloat(cameraFloatParam(r, fmt.Sprintf("SpatialSigma%d", i), 0.1, 10, 0.1,
				func(s *holocam.Settings) *float64 { return &s.SpatialSigma })),
			s.registry.AddFloat(cameraFloatParam(r, fmt.Sprintf("IntensitySigma%d", i), 1, 1000, 1,
				func(s *holocam.Settings) *float64 { return &s.IntensitySigma })),
			s.registry.AddFloat(cameraFloatParam(r, fmt.Sprintf("DepthThreshold%d", i), 0, 1, 0.01,
				func(s *holocam.Settings) *float64 { return &s.DepthThreshold })),
		)
	}
	return err
}

// Registry returns the tweakable parameters of the scene and its cameras.
func (s *Studio) Registry() *params.Registry {
	return s.registry
}

// Renderers returns the camera renderers in ensemble order.
func (s *Studio) Renderers() []*holocam.Renderer {
	return s.renderers
}

// Params returns the scene parameters.
func (s *Studio) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetParams replaces the scene parameters.
func (s *Studio) SetParams(p Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
}

// SetView sets the viewer's view and projection matrices.
func (s *Studio) SetView(view, projection mgl32.Mat4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = view
	s.projection = projection
}

func (s *Studio) renderParams() projection.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return projection.Params{
		View:        s.view,
		Projection:  s.projection,
		ClipCenter:  s.params.Center,
		ClipRadius:  s.params.Radius,
		Floor:       s.params.Floor,
		Ceiling:     s.params.Ceiling,
		Holographic: s.params.Holographic,
	}
}

// Update starts an update cycle on every camera that is not already updating.
func (s *Studio) Update(ctx context.Context) {
	for _, r := range s.renderers {
		r.Update(ctx)
	}
}

// UpdateNow runs an update cycle on every camera concurrently and waits for all of them.
func (s *Studio) UpdateNow(ctx context.Context) {
	var g errgroup.Group
	for _, r := range s.renderers {
		g.Go(func() error {
			r.UpdateNow(ctx)
			return nil
		})
	}
	goutils.UncheckedError(g.Wait())
}

// Draw clears fb to black and draws every camera into it with the current render parameters. A
// camera failing to draw does not keep the others from drawing.
func (s *Studio) Draw(ctx context.Context, fb *gpu.Framebuffer) error {
	ctx, span := trace.StartSpan(ctx, "scene::Draw")
	defer span.End()

	fb.Clear(mgl32.Vec4{0, 0, 0, 1}, 1)
	params := s.renderParams()
	var errs error
	for _, r := range s.renderers {
		r.SetRenderParams(params)
		errs = multierr.Append(errs, r.Draw(ctx, fb))
	}
	return errs
}

// Close closes every camera renderer.
func (s *Studio) Close(ctx context.Context) error {
	var errs error
	for _, r := range s.renderers {
		errs = multierr.Append(errs, r.Close(ctx))
	}
	return errs
}
