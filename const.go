// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dynalloc

import "unsafe"

// Word and doubleword size. All block pointers are DW-aligned; all block
// sizes are multiples of DW. The low bits freed up by that alignment hold
// the allocated-bit in every header/footer word.
const (
	W  = unsafe.Sizeof(uintptr(0))
	DW = 2 * W
)

// defaultChunk is the number of bytes extend() grows the heap by when a
// find-fit miss needs fresh space. Mirrors mm.c's CHUNKSIZE.
const defaultChunk = 4096

// defaultArenaReserve is the virtual size reserved up front by the default
// ArenaHeap. It bounds how far the heap may grow over its lifetime; actual
// resident memory only grows as extend() advances the high-water mark
// within it.
const defaultArenaReserve = 1 << 30

// Adaptive bypass cache tunables (component G). These numbers are
// empirical, tuned against the CS:APP benchmark traces the original
// allocator was evaluated on, and must not be changed casually.
const (
	cacheSizeMin   = 16
	cacheSizeMax   = 512
	cacheAdmitTTL  = 101
	cacheArmHits   = 50
	cacheArmTTL    = 100
	cacheEmptySize = -1
)

// reallocSurplusThreshold is the number of leftover bytes realloc's
// in-place expansion will bundle into the grown block rather than
// splitting off and freeing separately.
const reallocSurplusThreshold = 50
