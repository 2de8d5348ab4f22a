// Package main is a headless studio host. It loads an ensemble, runs the update and draw loop for a
// number of frames and writes the final frame to a PNG.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"

	"go.viam.com/holo/framesource"
	"go.viam.com/holo/gpu"
	"go.viam.com/holo/logging"
	"go.viam.com/holo/params"
	"go.viam.com/holo/rimage"
	"go.viam.com/holo/scene"
)

const (
	flagEnsemble    = "ensemble"
	flagParams      = "params"
	flagOut         = "out"
	flagFrames      = "frames"
	flagInterval    = "interval"
	flagWidth       = "width"
	flagHeight      = "height"
	flagFOV         = "fov"
	flagEye         = "eye"
	flagCallTimeout = "call-timeout"
	flagDebug       = "debug"
	flagTraceFrames = "trace-frames"
)

func main() {
	logger := logging.NewLogger("holostudio")
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("Fatal exception occurred", "error", r, "stack", string(debug.Stack()))
			goutils.UncheckedError(logger.Sync())
			os.Exit(1)
		}
	}()

	app := &cli.App{
		Name:  "holostudio",
		Usage: "render the camera ensemble into an image",
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    flagEnsemble,
				Aliases: []string{"e"},
				Value:   "ensemble.json",
				Usage:   "load the camera ensemble from `FILE`",
			},
			&cli.PathFlag{
				Name:  flagParams,
				Usage: "apply and watch parameter values in `FILE`",
			},
			&cli.PathFlag{
				Name:    flagOut,
				Aliases: []string{"o"},
				Value:   "frame.png",
				Usage:   "write the last frame to `FILE`",
			},
			&cli.IntFlag{
				Name:  flagFrames,
				Value: 30,
				Usage: "number of frames to run",
			},
			&cli.DurationFlag{
				Name:  flagInterval,
				Value: 33 * time.Millisecond,
				Usage: "time between frames",
			},
			&cli.IntFlag{
				Name:  flagWidth,
				Value: 1920,
				Usage: "output width in pixels",
			},
			&cli.IntFlag{
				Name:  flagHeight,
				Value: 1080,
				Usage: "output height in pixels",
			},
			&cli.Float64Flag{
				Name:  flagFOV,
				Value: 60,
				Usage: "vertical field of view in degrees",
			},
			&cli.Float64SliceFlag{
				Name:  flagEye,
				Value: cli.NewFloat64Slice(0, 0, 0),
				Usage: "viewer position x,y,z in the first camera's frame; the viewer looks at the clip center",
			},
			&cli.DurationFlag{
				Name:  flagCallTimeout,
				Value: framesource.DefaultCallTimeout,
				Usage: "timeout of each frame request",
			},
			&cli.BoolFlag{
				Name:  flagTraceFrames,
				Usage: "log per-frame publishing at debug level without enabling debug logging elsewhere",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(zapcore.DebugLevel)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Errorw("holostudio failed", "error", err)
		goutils.UncheckedError(logger.Sync())
		stop()
		//nolint:gocritic
		os.Exit(1)
	}
}

// viewMatrices places the viewer at eye looking at center with image y pointing down, the way the
// cameras see, and builds a perspective projection for a width x height output.
func viewMatrices(eye []float64, center mgl32.Vec3, fovDegrees float64, width, height int) (mgl32.Mat4, mgl32.Mat4, error) {
	if len(eye) != 3 {
		return mgl32.Mat4{}, mgl32.Mat4{}, errors.Errorf("eye needs 3 coordinates, got %d", len(eye))
	}
	if width <= 0 || height <= 0 {
		return mgl32.Mat4{}, mgl32.Mat4{}, errors.Errorf("invalid output size %dx%d", width, height)
	}
	e := mgl32.Vec3{float32(eye[0]), float32(eye[1]), float32(eye[2])}
	if e.ApproxEqual(center) {
		return mgl32.Mat4{}, mgl32.Mat4{}, errors.New("eye cannot be at the clip center")
	}
	view := mgl32.LookAtV(e, center, mgl32.Vec3{0, -1, 0})
	projection := mgl32.Perspective(mgl32.DegToRad(float32(fovDegrees)), float32(width)/float32(height), 0.01, 100)
	return view, projection, nil
}

func run(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	if c.Bool(flagTraceFrames) {
		ctx = logging.EnableDebugMode(ctx, "")
	}
	studio, err := scene.New(ctx, scene.Config{
		EnsemblePath: c.Path(flagEnsemble),
		CallTimeout:  c.Duration(flagCallTimeout),
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, studio.Close(context.Background()))
	}()

	watcher, err := watchParams(ctx, c.Path(flagParams), studio.Registry(), logger)
	if err != nil {
		return err
	}
	if watcher != nil {
		defer func() {
			err = multierr.Combine(err, watcher.Close())
		}()
	}

	width, height := c.Int(flagWidth), c.Int(flagHeight)
	fb := gpu.NewFramebuffer(width, height)
	var drawMillis []float64
	for i := 0; i < c.Int(flagFrames); i++ {
		center := studio.Params().Center
		view, projection, err := viewMatrices(c.Float64Slice(flagEye),
			mgl32.Vec3{float32(center.X), float32(center.Y), float32(center.Z)}, c.Float64(flagFOV), width, height)
		if err != nil {
			return err
		}
		studio.SetView(view, projection)
		studio.Update(ctx)
		start := time.Now()
		if err := studio.Draw(ctx, fb); err != nil {
			logger.Warnw("error drawing frame", "frame", i, "error", err)
		}
		drawMillis = append(drawMillis, float64(time.Since(start).Microseconds())/1000)
		if !goutils.SelectContextOrWait(ctx, c.Duration(flagInterval)) {
			break
		}
	}

	for _, r := range studio.Renderers() {
		logger.Infow("camera", "name", r.Name(), "state", r.State().String(),
			"depth", r.DepthStream().Kind.String(), "color", r.ColorStream().Kind.String())
	}
	if mean, p95, err := drawTimeSummary(drawMillis); err == nil {
		logger.Infow("draw times", "frames", len(drawMillis), "mean_ms", mean, "p95_ms", p95)
	}
	out := c.Path(flagOut)
	if err := rimage.WriteImageToFile(out, fb.ToImage()); err != nil {
		return err
	}
	logger.Infow("wrote frame", "path", out)
	return nil
}

// watchParams hot-applies the parameter file at path to registry. It returns nil when path is empty.
func watchParams(ctx context.Context, path string, registry *params.Registry, logger logging.Logger) (*params.Watcher, error) {
	if path == "" {
		return nil, nil
	}
	watcher, err := params.NewWatcher(ctx, path, registry, logger.Sublogger("params"))
	if err != nil {
		return nil, errors.Wrap(err, "could not watch parameter file")
	}
	return watcher, nil
}

// drawTimeSummary returns the mean and 95th percentile of the given draw times.
func drawTimeSummary(millis []float64) (float64, float64, error) {
	mean, err := stats.Mean(millis)
	if err != nil {
		return 0, 0, err
	}
	p95, err := stats.Percentile(millis, 95)
	if err != nil {
		return 0, 0, err
	}
	return mean, p95, nil
}
