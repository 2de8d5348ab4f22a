package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.viam.com/test"

	"go.viam.com/holo/logging"
	"go.viam.com/holo/params"
)

func TestViewMatrices(t *testing.T) {
	center := mgl32.Vec3{0, 0, 1}
	view, projection, err := viewMatrices([]float64{0, 0, 0}, center, 60, 40, 30)
	test.That(t, err, test.ShouldBeNil)

	// the viewer looks down +z with y down, so a point below the center lands low in the image
	clip := projection.Mul4(view).Mul4x1(mgl32.Vec4{0, 0.1, 1, 1})
	test.That(t, clip[3], test.ShouldBeGreaterThan, 0)
	test.That(t, clip[1]/clip[3], test.ShouldBeLessThan, 0)
	clip = projection.Mul4(view).Mul4x1(mgl32.Vec4{0.1, 0, 1, 1})
	test.That(t, clip[0]/clip[3], test.ShouldBeGreaterThan, 0)

	_, _, err = viewMatrices([]float64{0, 0}, center, 60, 40, 30)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = viewMatrices([]float64{0, 0, 1}, center, 60, 40, 30)
	test.That(t, err, test.ShouldNotBeNil)
	_, _, err = viewMatrices([]float64{0, 0, 0}, center, 60, 0, 30)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDrawTimeSummary(t *testing.T) {
	millis := make([]float64, 20)
	for i := range millis {
		millis[len(millis)-1-i] = float64(i + 1)
	}
	mean, p95, err := drawTimeSummary(millis)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mean, test.ShouldEqual, 10.5)
	test.That(t, p95, test.ShouldEqual, 19)

	_, _, err = drawTimeSummary(nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWatchParams(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	radius := 1.
	registry := params.NewRegistry()
	test.That(t, registry.AddFloat(params.FloatParam{
		Name: "Clip Radius", Min: 0.01, Max: 10, Step: 0.01,
		Get: func() float64 { return radius },
		Set: func(v float64) { radius = v },
	}), test.ShouldBeNil)

	watcher, err := watchParams(ctx, "", registry, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, watcher, test.ShouldBeNil)

	_, err = watchParams(ctx, filepath.Join(t.TempDir(), "missing", "params.json"), registry, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "could not watch parameter file")

	path := filepath.Join(t.TempDir(), "params.json")
	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius": 3}`), 0o600), test.ShouldBeNil)
	watcher, err = watchParams(ctx, path, registry, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, watcher, test.ShouldNotBeNil)
	test.That(t, watcher.Close(), test.ShouldBeNil)
	v, err := registry.Float("Clip Radius")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 3)
}
