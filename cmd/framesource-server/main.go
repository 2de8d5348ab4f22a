// Package main serves fixed depth and color frames over the frame source protocol, standing in for
// a live sensor server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	goutils "go.viam.com/utils"
	"google.golang.org/grpc"

	"go.viam.com/holo/calibration"
	"go.viam.com/holo/framesource"
	"go.viam.com/holo/logging"
)

const (
	flagPort        = "port"
	flagDepth       = "depth"
	flagColor       = "color"
	flagDepthWidth  = "depth-width"
	flagDepthHeight = "depth-height"
	flagDebug       = "debug"
)

func main() {
	logger := logging.NewLogger("framesource")
	app := &cli.App{
		Name:  "framesource-server",
		Usage: "serve a depth image and a color image as the latest sensor frames",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  flagPort,
				Value: 9000,
				Usage: "port to listen on",
			},
			&cli.PathFlag{
				Name:     flagDepth,
				Required: true,
				Usage:    "16-bit depth image `FILE` (TIFF or PNG)",
			},
			&cli.PathFlag{
				Name:     flagColor,
				Required: true,
				Usage:    "color image `FILE`",
			},
			&cli.IntFlag{
				Name:  flagDepthWidth,
				Value: calibration.DefaultDepthWidth,
				Usage: "depth image width in pixels",
			},
			&cli.IntFlag{
				Name:  flagDepthHeight,
				Value: calibration.DefaultDepthHeight,
				Usage: "depth image height in pixels",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(zapcore.DebugLevel)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return serve(c, logger)
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Errorw("framesource-server failed", "error", err)
		goutils.UncheckedError(logger.Sync())
		stop()
		//nolint:gocritic
		os.Exit(1)
	}
}

func serve(c *cli.Context, logger logging.Logger) (err error) {
	source, err := framesource.NewFileSource(c.Path(flagDepth), c.Path(flagColor), c.Int(flagDepthWidth), c.Int(flagDepthHeight))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, source.Close(context.Background()))
	}()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", c.Int(flagPort)))
	if err != nil {
		return err
	}
	server := grpc.NewServer()
	framesource.RegisterFrameSourceServiceServer(server, framesource.NewRPCServiceServer(source, logger))

	serveErr := make(chan error, 1)
	goutils.PanicCapturingGo(func() {
		serveErr <- server.Serve(listener)
	})
	logger.Infow("serving frames", "address", listener.Addr().String())

	select {
	case <-c.Context.Done():
		server.GracefulStop()
		return <-serveErr
	case err := <-serveErr:
		return err
	}
}
