// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// +build unix

// Modifications (c) 2017 The Memory Authors.
// Further modifications: reworked from a per-page mmap/munmap pair into a
// single reserved arena that Extend grows a cursor inside of, upgraded
// from raw syscall numbers to golang.org/x/sys/unix.

package dynalloc

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ArenaHeap is the default HeapProvider on unix-like hosts. It reserves a
// large anonymous mapping once and satisfies Extend by moving a
// high-water mark within it, so block pointers never move for the
// arena's lifetime.
type ArenaHeap struct {
	mem []byte
	hi  int
}

// NewArenaHeap reserves reserve bytes of virtual address space via
// mmap(MAP_ANON|MAP_PRIVATE). No physical memory beyond what the host OS
// lazily commits on first touch is used until Extend advances past it.
func NewArenaHeap(reserve int) (*ArenaHeap, error) {
	b, err := unix.Mmap(-1, 0, reserve, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrap(err, "dynalloc: mmap arena")
	}

	return &ArenaHeap{mem: b}, nil
}

func (h *ArenaHeap) Extend(n int) (uintptr, bool) {
	if n < 0 || h.hi+n > len(h.mem) {
		return 0, false
	}

	base := h.Lo() + uintptr(h.hi)
	h.hi += n
	return base, true
}

func (h *ArenaHeap) Lo() uintptr {
	if len(h.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&h.mem[0]))
}

func (h *ArenaHeap) Hi() uintptr { return h.Lo() + uintptr(h.hi) }
func (h *ArenaHeap) Size() int  { return h.hi }

// Close releases the reservation. It is not necessary to Close an
// ArenaHeap when exiting a process.
func (h *ArenaHeap) Close() error {
	if h.mem == nil {
		return nil
	}

	err := unix.Munmap(h.mem)
	h.mem = nil
	return err
}
