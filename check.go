package dynalloc

import "github.com/pkg/errors"

// CheckHeap walks the entire heap from the prologue to the epilogue and
// cross-validates it against an independent walk of the explicit free
// list, returning the first inconsistency found. Grounded on mm.c's
// mm_checkheap/checkblock; verbose mode logs every block instead of
// printing it, per SPEC_FULL.md's diagnostics section.
func (a *Allocator) CheckHeap(verbose bool) error {
	bp := a.heapBase
	if blockSize(bp) != DW || blockAlloc(bp) != 1 {
		return errors.New("dynalloc: bad prologue header")
	}
	if err := a.checkBlock(bp); err != nil {
		return err
	}

	freeSet := map[uintptr]bool{}
	for ; blockSize(bp) > 0; bp = nextBlock(bp) {
		if verbose {
			a.logBlock(bp)
		}
		if err := a.checkBlock(bp); err != nil {
			return err
		}
		if blockAlloc(bp) == 0 {
			freeSet[bp] = true
		}
	}

	if verbose {
		a.logBlock(bp)
	}
	if blockSize(bp) != 0 || blockAlloc(bp) != 1 {
		return errors.New("dynalloc: bad epilogue header")
	}

	seen := map[uintptr]bool{}
	var prevAddr uintptr
	for p := a.firstFree; p != 0; p = readNextFree(p) {
		if prevAddr != 0 && p <= prevAddr {
			return errors.Errorf("dynalloc: free list address order violated at %#x", p)
		}
		if blockAlloc(p) != 0 {
			return errors.Errorf("dynalloc: free list contains allocated block %#x", p)
		}
		seen[p] = true
		prevAddr = p
	}

	if len(seen) != len(freeSet) {
		return errors.New("dynalloc: free list does not match implicit free set")
	}
	for p := range seen {
		if !freeSet[p] {
			return errors.Errorf("dynalloc: free list entry %#x not found by implicit walk", p)
		}
	}

	return nil
}

// checkBlock validates the alignment and header/footer agreement of a
// single block. Grounded on mm.c's checkblock.
func (a *Allocator) checkBlock(bp uintptr) error {
	if bp%DW != 0 {
		return errors.Errorf("dynalloc: %#x is not doubleword aligned", bp)
	}
	if readWord(headerAddr(bp)) != readWord(footerAddr(bp)) {
		return errors.Errorf("dynalloc: %#x: header does not match footer", bp)
	}
	return nil
}

// logBlock emits one block's header/footer state as structured fields,
// replacing the teacher's printblock text dump.
func (a *Allocator) logBlock(bp uintptr) {
	a.log.Debug().
		Uintptr("addr", bp).
		Int("header_size", int(blockSize(bp))).
		Int("header_alloc", int(blockAlloc(bp))).
		Int("footer_size", int(readWord(footerAddr(bp))&^(DW-1))).
		Int("footer_alloc", int(readWord(footerAddr(bp))&1)).
		Msg("checkheap_block")
}
