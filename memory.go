// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dynalloc

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Allocator allocates and frees memory against a single HeapProvider. It
// replaces the teacher's zero-value-ready struct with a constructor
// (New) because, unlike a segregated-class slab allocator, a boundary-tag
// allocator needs a prologue/epilogue bootstrap and a chosen heap
// provider before it can serve its first request.
type Allocator struct {
	heap HeapProvider
	log  zerolog.Logger

	chunk int

	heapBase  uintptr
	firstFree uintptr
	lastFree  uintptr

	slot1, slot2 cacheSlot
	armedOff     bool
	opCounter    uint64
}

// New builds an Allocator, installing the prologue/epilogue sentinels and
// an initial free chunk. Equivalent to spec.md's init(); returns an error
// instead of -1 on heap-provider failure.
func New(opts ...Option) (*Allocator, error) {
	a := &Allocator{
		log:   zerolog.Nop(),
		chunk: defaultChunk,
		slot1: emptySlot(),
		slot2: emptySlot(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.heap == nil {
		h, err := NewArenaHeap(defaultArenaReserve)
		if err != nil {
			return nil, errors.Wrap(err, "dynalloc: default arena heap")
		}
		a.heap = h
	}

	if err := a.init(); err != nil {
		return nil, err
	}

	return a, nil
}

// Close releases the OS resources backing the heap, if the provider owns
// any. It is not necessary to Close an Allocator when exiting a process.
func (a *Allocator) Close() error {
	type closer interface{ Close() error }
	if c, ok := a.heap.(closer); ok {
		return c.Close()
	}
	return nil
}

// init installs the pad/prologue/epilogue sentinels described in
// spec.md §4.B and seeds the free list with one CHUNK-sized free block.
func (a *Allocator) init() error {
	base, ok := a.heap.Extend(int(4 * W))
	if !ok {
		return errors.WithStack(ErrOutOfMemory)
	}

	writeWord(base, 0)               // alignment pad
	writeWord(base+W, pack(DW, 1))   // prologue header
	writeWord(base+2*W, pack(DW, 1)) // prologue footer
	writeWord(base+3*W, pack(0, 1))  // epilogue header
	a.heapBase = base + 2*W          // prologue's own bp: header==footer for a DW block

	if _, err := a.extend(uintptr(a.chunk)); err != nil {
		return err
	}

	return nil
}

// rawExtend grows the heap by exactly nBytes and writes the new block's
// header/footer with the given allocated bit, followed by a fresh
// epilogue header one word past it. It performs no coalescing or
// free-list insertion — callers decide that, since the normal extend
// path and the cache bypass path (component G) need different behavior
// here (spec.md §9).
func (a *Allocator) rawExtend(nBytes, allocBit uintptr) (uintptr, error) {
	base, ok := a.heap.Extend(int(nBytes))
	if !ok {
		return 0, errors.WithStack(ErrOutOfMemory)
	}

	bp := base
	writeHeaderFooter(bp, nBytes, allocBit)
	writeWord(bp+nBytes-W, pack(0, 1)) // new epilogue header
	a.log.Debug().Uintptr("addr", bp).Int("bytes", int(nBytes)).Msg("extend")
	return bp, nil
}

// extend grows the heap by at least nBytes (rounded up to a DW multiple)
// and coalesces the new free block with its left neighbor if that
// neighbor is free, inserting the result into the free list. Grounded on
// mm.c's extend_heap.
func (a *Allocator) extend(nBytes uintptr) (uintptr, error) {
	nBytes = roundUpDW(nBytes)

	bp, err := a.rawExtend(nBytes, 0)
	if err != nil {
		return 0, err
	}

	return a.coalesce(bp), nil
}

// Alloc allocates a block with at least n bytes of payload, unless n is
// zero. Panics for n < 0, mirroring the teacher's Malloc.
func (a *Allocator) Alloc(n int) (unsafe.Pointer, error) {
	if n < 0 {
		panic("dynalloc: invalid alloc size")
	}
	if n == 0 {
		return nil, nil
	}

	a.opCounter++
	asize := adjustedSize(n)

	if a.cacheOnAlloc(n) {
		if bp, ok := a.extendBypass(asize); ok {
			return unsafe.Pointer(bp), nil
		}
		// Extension failed; the slot stays armed and we fall through to
		// the normal find-fit path, per spec.md §4.G's bypass action.
	}

	if bp := a.findFit(asize); bp != 0 {
		a.place(bp, asize)
		a.log.Debug().Int("n", n).Uintptr("addr", bp).Msg("alloc")
		return unsafe.Pointer(bp), nil
	}

	grow := asize
	if uintptr(a.chunk) > grow {
		grow = uintptr(a.chunk)
	}

	bp, err := a.extend(grow)
	if err != nil {
		return nil, err
	}

	a.place(bp, asize)
	a.log.Debug().Int("n", n).Uintptr("addr", bp).Msg("alloc")
	return unsafe.Pointer(bp), nil
}

// Free deallocates a block returned by Alloc or Realloc. The argument may
// be nil, in which case Free is a no-op.
func (a *Allocator) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}

	a.opCounter++
	a.cacheTickFree()

	bp := uintptr(p)
	size := blockSize(bp)
	writeHeaderFooter(bp, size, 0)
	writeWord(bp, 0)   // wipe the next-free link
	writeWord(bp+W, 0) // wipe the prev-free link

	a.coalesce(bp)
	a.log.Debug().Uintptr("addr", bp).Msg("free")
}

// Realloc changes the size of the block p to at least n bytes of
// payload. A nil p behaves as Alloc(n); n == 0 behaves as Free(p). Once
// Realloc has been called, the adaptive bypass cache is permanently
// disabled for the rest of the Allocator's lifetime (spec.md §4.F, §4.G).
func (a *Allocator) Realloc(p unsafe.Pointer, n int) (unsafe.Pointer, error) {
	a.opCounter++
	a.armedOff = true

	if n == 0 {
		a.Free(p)
		return nil, nil
	}
	if p == nil {
		return a.Alloc(n)
	}

	bp := uintptr(p)
	old := blockSize(bp)
	asize := adjustedSize(n)

	if old == asize || old > asize {
		// No shrink-split is performed; the remainder stays bundled with
		// the block for cheap future regrowth (spec.md §4.F, §9).
		return p, nil
	}

	if next := nextBlock(bp); blockAlloc(next) == 0 {
		nextSize := blockSize(next)
		if old+nextSize >= asize {
			a.removeFree(next)
			surplus := old + nextSize - asize

			if surplus <= reallocSurplusThreshold {
				writeHeaderFooter(bp, old+nextSize, 1)
			} else {
				writeHeaderFooter(bp, asize, 1)
				trailer := bp + asize
				writeHeaderFooter(trailer, surplus, 1)
				a.Free(unsafe.Pointer(trailer))
			}

			a.log.Debug().Uintptr("addr", bp).Msg("realloc_inplace")
			return p, nil
		}
	}

	newP, err := a.Alloc(n)
	if err != nil {
		// The original block is left untouched on OOM.
		return nil, err
	}

	copySize := old - DW
	if uintptr(n) < copySize {
		copySize = uintptr(n)
	}
	rawCopy(uintptr(newP), bp, copySize)

	a.Free(p)
	return newP, nil
}
