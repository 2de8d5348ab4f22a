package params

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/holo/logging"
)

func TestApplyFile(t *testing.T) {
	r, k := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "params.json")

	test.That(t, ApplyFile(path, r), test.ShouldNotBeNil)

	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius": 4, "LiveDepth0": "false"}`), 0o600), test.ShouldBeNil)
	test.That(t, ApplyFile(path, r), test.ShouldBeNil)
	test.That(t, k.radius, test.ShouldEqual, 4)
	test.That(t, k.live, test.ShouldBeFalse)

	test.That(t, os.WriteFile(path, []byte("{\n  // tuned by hand\n  \"Clip Radius\": 3,\n}"), 0o600), test.ShouldBeNil)
	test.That(t, ApplyFile(path, r), test.ShouldBeNil)
	test.That(t, k.radius, test.ShouldEqual, 3)

	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius"`), 0o600), test.ShouldBeNil)
	test.That(t, ApplyFile(path, r), test.ShouldNotBeNil)
}

func TestWatcher(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r, _ := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "params.json")
	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius": 2}`), 0o600), test.ShouldBeNil)

	w, err := NewWatcher(context.Background(), path, r, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	v, err := r.Float("Clip Radius")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 2)

	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius": 5, "LiveDepth0": false}`), 0o600), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		v, err := r.Float("Clip Radius")
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, v, test.ShouldEqual, 5)
		live, err := r.Bool("LiveDepth0")
		test.That(tb, err, test.ShouldBeNil)
		test.That(tb, live, test.ShouldBeFalse)
	})
}

func TestWatcherMissingDir(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := NewWatcher(context.Background(), filepath.Join(t.TempDir(), "nope", "params.json"), NewRegistry(), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestWatcherClosedDropsPending(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r, k := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "params.json")

	w, err := NewWatcher(context.Background(), path, r, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius": 7}`), 0o600), test.ShouldBeNil)
	w.apply()
	test.That(t, k.radius, test.ShouldNotEqual, 7)
}

func TestWatcherCloseBeforeSettle(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r, k := newTestRegistry(t)
	path := filepath.Join(t.TempDir(), "params.json")

	w, err := NewWatcher(context.Background(), path, r, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, os.WriteFile(path, []byte(`{"Clip Radius": 7}`), 0o600), test.ShouldBeNil)
	test.That(t, w.Close(), test.ShouldBeNil)

	time.Sleep(3 * settleTime)
	v, err := r.Float("Clip Radius")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, 1)
	test.That(t, k.radius, test.ShouldEqual, 1)
}
