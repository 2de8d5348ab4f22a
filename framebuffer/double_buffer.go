// Package framebuffer provides a two slot buffer with one writer slot and one reader slot.
package framebuffer

import "sync"

type slot[T any] struct {
	mu         sync.RWMutex
	value      T
	generation uint64
}

// DoubleBuffer holds two values of T. One goroutine writes into the writer slot and publishes it
// with Swap; any number of readers read the reader slot. A reader holds its slot for the whole
// of Read, so a value is never written while it is being read and a reader never sees a mix of
// two generations.
type DoubleBuffer[T any] struct {
	mu     sync.Mutex
	writer int
	next   uint64
	slots  [2]slot[T]
}

// New returns a buffer whose reader slot holds reader and whose writer slot holds writer.
func New[T any](reader, writer T) *DoubleBuffer[T] {
	d := &DoubleBuffer[T]{writer: 1}
	d.slots[0].value = reader
	d.slots[1].value = writer
	return d
}

func (d *DoubleBuffer[T]) writerSlot() *slot[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &d.slots[d.writer]
}

// Write runs f with exclusive access to the writer slot. Write, CopyForward and Swap must be called
// from a single goroutine.
func (d *DoubleBuffer[T]) Write(f func(v T) error) error {
	s := d.writerSlot()
	s.mu.Lock()
	defer s.mu.Unlock()
	return f(s.value)
}

// CopyForward runs f with the writer slot and the current reader slot, for carrying over parts of
// the published value the writer did not replace.
func (d *DoubleBuffer[T]) CopyForward(f func(dst, src T) error) error {
	d.mu.Lock()
	w, r := &d.slots[d.writer], &d.slots[1-d.writer]
	d.mu.Unlock()
	w.mu.Lock()
	defer w.mu.Unlock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return f(w.value, r.value)
}

// Read runs f with shared access to the reader slot and the generation it was published with.
// Generation 0 is the initial value.
func (d *DoubleBuffer[T]) Read(f func(v T, generation uint64) error) error {
	d.mu.Lock()
	s := &d.slots[1-d.writer]
	s.mu.RLock()
	d.mu.Unlock()
	defer s.mu.RUnlock()
	return f(s.value, s.generation)
}

// Swap publishes the writer slot and returns its generation. The old reader slot becomes the writer
// slot; a Write into it waits for readers still holding it.
func (d *DoubleBuffer[T]) Swap() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	s := &d.slots[d.writer]
	s.mu.Lock()
	s.generation = d.next
	s.mu.Unlock()
	d.writer = 1 - d.writer
	return d.next
}

// Generation returns the generation of the reader slot.
func (d *DoubleBuffer[T]) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}
