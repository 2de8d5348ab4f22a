package framebuffer

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

type frame struct {
	depth int
	color int
}

func TestDoubleBufferSwap(t *testing.T) {
	d := New(&frame{depth: 1, color: 1}, &frame{})

	test.That(t, d.Read(func(f *frame, gen uint64) error {
		test.That(t, *f, test.ShouldResemble, frame{depth: 1, color: 1})
		test.That(t, gen, test.ShouldEqual, uint64(0))
		return nil
	}), test.ShouldBeNil)

	test.That(t, d.Write(func(f *frame) error {
		f.depth, f.color = 2, 2
		return nil
	}), test.ShouldBeNil)

	// not visible until swapped
	test.That(t, d.Read(func(f *frame, gen uint64) error {
		test.That(t, f.depth, test.ShouldEqual, 1)
		return nil
	}), test.ShouldBeNil)

	test.That(t, d.Swap(), test.ShouldEqual, uint64(1))
	test.That(t, d.Generation(), test.ShouldEqual, uint64(1))
	test.That(t, d.Read(func(f *frame, gen uint64) error {
		test.That(t, *f, test.ShouldResemble, frame{depth: 2, color: 2})
		test.That(t, gen, test.ShouldEqual, uint64(1))
		return nil
	}), test.ShouldBeNil)

	// the old reader is now the writer; carry forward color only
	test.That(t, d.CopyForward(func(dst, src *frame) error {
		test.That(t, dst.depth, test.ShouldEqual, 1)
		dst.color = src.color
		return nil
	}), test.ShouldBeNil)
	test.That(t, d.Write(func(f *frame) error {
		f.depth = 3
		return nil
	}), test.ShouldBeNil)
	d.Swap()
	test.That(t, d.Read(func(f *frame, gen uint64) error {
		test.That(t, *f, test.ShouldResemble, frame{depth: 3, color: 2})
		test.That(t, gen, test.ShouldEqual, uint64(2))
		return nil
	}), test.ShouldBeNil)

	errBad := errors.New("bad")
	test.That(t, d.Write(func(f *frame) error { return errBad }), test.ShouldEqual, errBad)
	test.That(t, d.Read(func(f *frame, gen uint64) error { return errBad }), test.ShouldEqual, errBad)
}

func TestDoubleBufferNoTearing(t *testing.T) {
	d := New(&frame{}, &frame{})
	const rounds = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= rounds; i++ {
			_ = d.Write(func(f *frame) error {
				f.depth = i
				f.color = i
				return nil
			})
			d.Swap()
		}
	}()

	mismatches := 0
	var last uint64
	for i := 0; i < rounds; i++ {
		_ = d.Read(func(f *frame, gen uint64) error {
			if f.depth != f.color || uint64(f.depth) != gen {
				mismatches++
			}
			if gen < last {
				mismatches++
			}
			last = gen
			return nil
		})
	}
	wg.Wait()
	test.That(t, mismatches, test.ShouldEqual, 0)
}
