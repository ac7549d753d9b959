package dynalloc

import "unsafe"

// Block pointers are addresses of the payload start, exactly as the
// client sees them. Every function here is expression-pure address
// arithmetic grounded on mm.c's HDRP/FTRP/NEXT_BLKP/PREV_BLKP/PACK/GET
// macros. Outside this file, only the heap sentinels written by init and
// rawExtend and the checker's tag comparison touch header or footer words
// directly.

func readWord(addr uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(addr))
}

func writeWord(addr, v uintptr) {
	*(*uintptr)(unsafe.Pointer(addr)) = v
}

// pack combines a size (already a multiple of DW) with an allocated bit
// into one header/footer word.
func pack(size, alloc uintptr) uintptr { return size | alloc }

func headerAddr(bp uintptr) uintptr { return bp - W }

func blockSize(bp uintptr) uintptr { return readWord(headerAddr(bp)) &^ (DW - 1) }

func blockAlloc(bp uintptr) uintptr { return readWord(headerAddr(bp)) & 1 }

func footerAddr(bp uintptr) uintptr { return bp + blockSize(bp) - DW }

func nextBlock(bp uintptr) uintptr { return bp + blockSize(bp) }

// prevBlock reads the previous block's footer (the word immediately
// before bp's header) to recover its size.
func prevBlock(bp uintptr) uintptr {
	prevSize := readWord(bp-DW) &^ (DW - 1)
	return bp - prevSize
}

// writeHeaderFooter stamps both boundary tags of the block at bp. Every
// block's tags are written this way (only the prologue and epilogue
// sentinels are written word by word), which is what keeps invariant I1
// (header == footer) true by construction.
func writeHeaderFooter(bp, size, alloc uintptr) {
	v := pack(size, alloc)
	writeWord(headerAddr(bp), v)
	writeWord(footerAddr(bp), v)
}

// roundUpDW rounds n up to the next multiple of DW.
func roundUpDW(n uintptr) uintptr { return (n + DW - 1) &^ (DW - 1) }

// adjustedSize computes the block size (header+payload+footer, DW
// aligned) needed to satisfy a client request of n payload bytes.
func adjustedSize(n int) uintptr {
	un := uintptr(n)
	if un <= DW {
		return 2 * DW
	}
	return DW * ((un + DW + (DW - 1)) / DW)
}

// rawCopy copies n raw payload bytes from src to dst. This is the host's
// raw-byte-copy collaborator spec.md §1 calls for, used only by Realloc's
// move path.
func rawCopy(dst, src, n uintptr) {
	if n == 0 {
		return
	}

	d := unsafe.Slice((*byte)(unsafe.Pointer(dst)), int(n))
	s := unsafe.Slice((*byte)(unsafe.Pointer(src)), int(n))
	copy(d, s)
}
