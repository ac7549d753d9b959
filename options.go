package dynalloc

import "github.com/rs/zerolog"

// Option configures an Allocator before New installs its heap. The teacher's
// Allocator has a ready-to-use zero value because it has nothing to
// choose between; this one needs a heap provider selected before its
// first byte is requested, so it gets the ambient functional-options
// layer instead.
type Option func(*Allocator)

// WithLogger routes the diagnostic events every public method emits
// (component J) through l instead of a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Allocator) { a.log = l }
}

// WithHeapProvider overrides the default ArenaHeap. Tests typically pass a
// SliceHeap so they don't depend on the host's mmap support.
func WithHeapProvider(h HeapProvider) Option {
	return func(a *Allocator) { a.heap = h }
}

// WithChunkSize overrides defaultChunk. Tests that want to exercise the
// extend-on-miss path without mapping hundreds of megabytes pass a small
// value here.
func WithChunkSize(n int) Option {
	return func(a *Allocator) { a.chunk = n }
}
