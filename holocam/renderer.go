// Package holocam renders a single camera of the ensemble: it fetches live depth and color frames
// into a double buffer on a background goroutine and draws the latest published pair.
package holocam

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/holo/calibration"
	"go.viam.com/holo/depthfilter"
	"go.viam.com/holo/framebuffer"
	"go.viam.com/holo/framesource"
	"go.viam.com/holo/gpu"
	"go.viam.com/holo/logging"
	"go.viam.com/holo/mesh"
	"go.viam.com/holo/projection"
	"go.viam.com/holo/rimage"
)

// frames is one slot of the double buffer. depthSeq identifies the depth frame held by the slot so
// the draw side knows when it has to filter again.
type frames struct {
	depth    *gpu.Texture
	color    *gpu.Texture
	depthSeq uint64
}

func newFrames(depthWidth, depthHeight, colorWidth, colorHeight int) *frames {
	color := gpu.NewTexture(gpu.FormatBGRA8, colorWidth, colorHeight)
	// opaque black
	pix := color.DataBGRA()
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xff
	}
	return &frames{
		depth: gpu.NewTexture(gpu.FormatR16UI, depthWidth, depthHeight),
		color: color,
	}
}

type filterKey struct {
	depthSeq uint64
	settings depthfilter.Settings
}

// Renderer is the camera renderer. Update and Draw are meant to be called once per tick from the
// host loop; Update returns immediately and the fetches run in the background.
type Renderer struct {
	name   string
	logger logging.Logger
	source framesource.Source

	depthStream *framesource.Stream
	colorStream *framesource.Stream

	// nil when uncalibrated
	cal      *calibration.Calibration
	renderer *projection.Renderer
	filter   *depthfilter.Pipeline
	frames   *framebuffer.DoubleBuffer[*frames]

	colorWidth  int
	colorHeight int

	mu       sync.Mutex
	settings Settings
	params   projection.Params
	viewport gpu.Viewport
	closed   bool

	updating atomic.Bool
	depthSeq atomic.Uint64
	// touched only by Draw
	filtered filterKey

	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// NewRenderer builds the renderer of cam fed by source. An uncalibrated camera yields a renderer
// in StateUncalibrated that never fetches or draws. The camera's color reference and mean depth
// images, when present, are loaded into both buffer slots so that something is shown before the
// first live frame arrives. A calibrated camera without a source is drawn from those images only,
// with both streams disabled.
func NewRenderer(cam *calibration.Camera, source framesource.Source, clk clock.Clock, logger logging.Logger) (*Renderer, error) {
	if clk == nil {
		clk = clock.New()
	}
	logger = logger.Sublogger(cam.Name)
	cancelCtx, cancel := context.WithCancel(context.Background())
	r := &Renderer{
		name:        cam.Name,
		logger:      logger,
		source:      source,
		depthStream: framesource.NewStream("depth", clk, logger.Sublogger("depth")),
		colorStream: framesource.NewStream("color", clk, logger.Sublogger("color")),
		settings:    DefaultSettings(),
		params:      DefaultRenderParams(),
		cancelCtx:   cancelCtx,
		cancel:      cancel,
	}
	if cam.Calibration == nil {
		logger.Warnw("camera is missing calibration, it will not be drawn", "error", calibration.ErrCalibrationMissing)
		return r, nil
	}
	m, err := mesh.Build(cam.Calibration.Table, cam.Calibration.DepthWidth, cam.Calibration.DepthHeight)
	if err != nil {
		cancel()
		return nil, err
	}
	renderer, err := projection.NewRenderer(m, cam.Calibration, cam.Pose)
	if err != nil {
		cancel()
		return nil, err
	}
	r.cal = cam.Calibration
	r.renderer = renderer
	r.filter = depthfilter.New(m.Width, m.Height)
	r.colorWidth, r.colorHeight = cam.ColorSize()

	depthWidth, depthHeight := cam.DepthSize()
	reader := newFrames(depthWidth, depthHeight, r.colorWidth, r.colorHeight)
	writer := newFrames(depthWidth, depthHeight, r.colorWidth, r.colorHeight)
	r.loadInitialFrames(cam, reader, writer)
	r.frames = framebuffer.New(reader, writer)

	if source == nil {
		reason := errors.Wrapf(framesource.ErrStreamUnreachable, "camera %q has no frame source", cam.Name)
		r.depthStream.Disable(reason)
		r.colorStream.Disable(reason)
		r.settings.LiveDepth = false
		r.settings.LiveColor = false
		logger.Warnw("camera has no frame source, showing reference images only")
	}
	return r, nil
}

func (r *Renderer) loadInitialFrames(cam *calibration.Camera, slots ...*frames) {
	if cam.ColorImagePath != "" {
		color, err := rimage.ReadColorFromFile(cam.ColorImagePath, r.colorWidth, r.colorHeight)
		if err != nil {
			r.logger.Warnw("could not load color reference image", "path", cam.ColorImagePath, "error", err)
		} else {
			for _, s := range slots {
				goutils.UncheckedError(s.color.SetDataBGRA(color.Pix))
			}
		}
	}
	if cam.MeanDepthImagePath != "" {
		width, height := cam.DepthSize()
		dm, err := rimage.ReadDepthMapFromFile(cam.MeanDepthImagePath, width, height)
		if err != nil {
			r.logger.Warnw("could not load mean depth image", "path", cam.MeanDepthImagePath, "error", err)
		} else {
			seq := r.depthSeq.Inc()
			for _, s := range slots {
				goutils.UncheckedError(s.depth.SetDataR16(dm.Samples()))
				s.depthSeq = seq
			}
		}
	}
}

// Name returns the camera name.
func (r *Renderer) Name() string {
	return r.name
}

// Settings returns the current tunables.
func (r *Renderer) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// UpdateSettings applies f to the tunables.
func (r *Renderer) UpdateSettings(f func(s *Settings)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(&r.settings)
}

// SetRenderParams replaces the render parameters used by the next Draw.
func (r *Renderer) SetRenderParams(params projection.Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = params
}

// RenderParams returns the render parameters used by the next Draw.
func (r *Renderer) RenderParams() projection.Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// SetViewport restricts drawing to part of the framebuffer. An empty viewport draws to all of it.
func (r *Renderer) SetViewport(vp gpu.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.viewport = vp
}

// State reports what the renderer currently does.
func (r *Renderer) State() State {
	if r.cal == nil {
		return StateUncalibrated
	}
	settings := r.Settings()
	depth := settings.LiveDepth && !r.depthStream.Disabled()
	color := settings.LiveColor && !r.colorStream.Disabled()
	switch {
	case depth && color:
		return StateLive
	case depth:
		return StateDepthOnly
	case color:
		return StateColorOnly
	default:
		return StateStatic
	}
}

// DepthStream returns the health of the depth stream.
func (r *Renderer) DepthStream() framesource.StreamState {
	return r.depthStream.State()
}

// ColorStream returns the health of the color stream.
func (r *Renderer) ColorStream() framesource.StreamState {
	return r.colorStream.State()
}

// Update starts an update cycle in the background and reports whether one was started. No cycle is
// started while another is still in flight, when the camera is uncalibrated or after Close.
func (r *Renderer) Update(ctx context.Context) bool {
	if !r.startUpdate() {
		return false
	}
	goutils.PanicCapturingGo(func() {
		defer r.activeBackgroundWorkers.Done()
		defer r.updating.Store(false)
		r.cycle(trace.NewContext(r.cancelCtx, trace.FromContext(ctx)))
	})
	return true
}

// UpdateNow runs an update cycle on the calling goroutine and reports whether it ran.
func (r *Renderer) UpdateNow(ctx context.Context) bool {
	if !r.startUpdate() {
		return false
	}
	defer r.activeBackgroundWorkers.Done()
	defer r.updating.Store(false)
	r.cycle(ctx)
	return true
}

// startUpdate claims the update slot and registers the cycle with Close. The caller must call
// activeBackgroundWorkers.Done and reset updating when the cycle ends.
func (r *Renderer) startUpdate() bool {
	if r.cal == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.updating.CompareAndSwap(false, true) {
		return false
	}
	r.activeBackgroundWorkers.Add(1)
	return true
}

// cycle fetches depth and then color, each only if enabled and its stream is ready, and publishes
// what it got with a single swap.
func (r *Renderer) cycle(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "holocam::cycle")
	defer span.End()

	settings := r.Settings()
	var depthWritten, colorWritten bool

	if settings.LiveDepth {
		samples, ok := framesource.Fetch(ctx, r.depthStream, func(ctx context.Context) ([]uint16, error) {
			return r.source.LatestDepthFrame(ctx)
		})
		if ok {
			seq := r.depthSeq.Inc()
			err := r.frames.Write(func(f *frames) error {
				if err := f.depth.SetDataR16(samples); err != nil {
					return err
				}
				f.depthSeq = seq
				return nil
			})
			if err != nil {
				r.logger.Warnw("could not upload depth frame", "error", err)
			} else {
				depthWritten = true
			}
		}
		r.disableIfStreamDisabled(r.depthStream, func(s *Settings) { s.LiveDepth = false })
	}

	if settings.LiveColor {
		color, ok := framesource.Fetch(ctx, r.colorStream, func(ctx context.Context) (*rimage.BGRA, error) {
			data, err := r.source.LatestColorFrame(ctx)
			if err != nil {
				return nil, err
			}
			return rimage.DecodeColorFrame(data, r.colorWidth, r.colorHeight)
		})
		if ok {
			if err := r.frames.Write(func(f *frames) error {
				return f.color.SetDataBGRA(color.Pix)
			}); err != nil {
				r.logger.Warnw("could not upload color frame", "error", err)
			} else {
				colorWritten = true
			}
		}
		r.disableIfStreamDisabled(r.colorStream, func(s *Settings) { s.LiveColor = false })
	}

	if !depthWritten && !colorWritten {
		return
	}
	if err := r.frames.CopyForward(func(dst, src *frames) error {
		var err error
		if !depthWritten {
			err = dst.depth.CopyFrom(src.depth)
			dst.depthSeq = src.depthSeq
		}
		if !colorWritten {
			err = multierr.Combine(err, dst.color.CopyFrom(src.color))
		}
		return err
	}); err != nil {
		r.logger.Errorw("could not carry frames forward", "error", err)
		return
	}
	gen := r.frames.Swap()
	r.logger.CDebugw(ctx, "published frames", "generation", gen, "depth", depthWritten, "color", colorWritten)
}

func (r *Renderer) disableIfStreamDisabled(s *framesource.Stream, off func(s *Settings)) {
	if !s.Disabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	before := r.settings
	off(&r.settings)
	if before != r.settings {
		r.logger.Warnw("live stream turned off", "stream", s.Name(), "reason", s.State().Reason)
	}
}

// Draw filters the published depth frame if it changed since the last draw and renders the camera
// into fb. Depth and color come from the same published slot for the whole draw.
func (r *Renderer) Draw(ctx context.Context, fb *gpu.Framebuffer) error {
	if r.cal == nil {
		return nil
	}
	ctx, span := trace.StartSpan(ctx, "holocam::Draw")
	defer span.End()

	r.mu.Lock()
	settings := r.settings
	params := r.params
	r.renderer.Viewport = r.viewport
	r.mu.Unlock()

	return r.frames.Read(func(f *frames, _ uint64) error {
		key := filterKey{depthSeq: f.depthSeq, settings: settings.filter()}
		if key != r.filtered {
			if err := r.filter.Run(ctx, f.depth, key.settings); err != nil {
				return errors.Wrapf(err, "could not filter depth of camera %q", r.name)
			}
			r.filtered = key
		}
		return r.renderer.Draw(ctx, fb, r.filter.Final(), f.color, params, settings.DepthThreshold)
	})
}

// Close waits for an in-flight update and closes the frame source. No update starts afterwards.
func (r *Renderer) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.activeBackgroundWorkers.Wait()
	if r.source == nil {
		return nil
	}
	return errors.Wrapf(r.source.Close(ctx), "could not close frame source of camera %q", r.name)
}
