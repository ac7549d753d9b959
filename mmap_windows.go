// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// Modifications (c) 2017 The Memory Authors.
// Further modifications: reworked from a per-page mmap/munmap pair into a
// single reserved arena that Extend grows a cursor inside of, upgraded
// from raw syscall to golang.org/x/sys/windows.

package dynalloc

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// ArenaHeap is the default HeapProvider on Windows. mmap on Windows is a
// two-step process: CreateFileMapping gets a handle, then MapViewOfFile
// gets an actual pointer into memory. Both happen once, up front, for the
// whole reservation; Extend only moves a cursor inside it.
type ArenaHeap struct {
	handle windows.Handle
	addr   uintptr
	size   int
	hi     int
}

// NewArenaHeap reserves reserve bytes of address space backed by the
// system paging file.
func NewArenaHeap(reserve int) (*ArenaHeap, error) {
	maxSizeHigh := uint32(uint64(reserve) >> 32)
	maxSizeLow := uint32(uint64(reserve) & 0xFFFFFFFF)

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, maxSizeHigh, maxSizeLow, nil)
	if err != nil {
		return nil, errors.Wrap(err, "dynalloc: CreateFileMapping")
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(reserve))
	if err != nil {
		windows.CloseHandle(h)
		return nil, errors.Wrap(err, "dynalloc: MapViewOfFile")
	}

	return &ArenaHeap{handle: h, addr: addr, size: reserve}, nil
}

func (h *ArenaHeap) Extend(n int) (uintptr, bool) {
	if n < 0 || h.hi+n > h.size {
		return 0, false
	}

	base := h.Lo() + uintptr(h.hi)
	h.hi += n
	return base, true
}

func (h *ArenaHeap) Lo() uintptr { return h.addr }
func (h *ArenaHeap) Hi() uintptr { return h.addr + uintptr(h.hi) }
func (h *ArenaHeap) Size() int  { return h.hi }

// Close unmaps the view and releases the mapping handle.
func (h *ArenaHeap) Close() error {
	if h.addr == 0 {
		return nil
	}

	err := windows.UnmapViewOfFile(h.addr)
	h.addr = 0
	if cerr := windows.CloseHandle(h.handle); err == nil {
		err = cerr
	}
	return err
}
