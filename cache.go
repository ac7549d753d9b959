package dynalloc

// cacheSlot tracks one candidate hot size. Grounded on mm.c's
// slot{1,2}/timer{1,2}/freq{1,2}/pol_flag{1,2} globals, folded into a
// struct per spec.md §3's "Adaptive cache state".
type cacheSlot struct {
	size  int32 // cacheEmptySize when unoccupied
	ttl   int
	hits  int
	armed bool
}

func emptySlot() cacheSlot {
	return cacheSlot{size: cacheEmptySize, ttl: cacheEmptySize, hits: cacheEmptySize}
}

// inCacheBand reports whether n falls in the bypass cache's admissible
// size band.
func inCacheBand(n int) bool { return n >= cacheSizeMin && n <= cacheSizeMax }

// cacheOnAlloc runs the admission/tick/count/arm/evict state machine for
// one Alloc(n) call and reports whether this call should be served by the
// bypass path. It never itself performs the bypass extension — that
// decision belongs to Alloc, since the bypass can fail and fall back to
// the normal find-fit path without disturbing cache state further.
//
// The slot1-then-slot2 processing order, and the fact that a slot's
// bypass check takes priority over its own eviction check on the same
// call, both mirror mm.c's mm_malloc if/else-if chain exactly.
func (a *Allocator) cacheOnAlloc(n int) (bypass bool) {
	if a.armedOff {
		return false
	}

	size := int32(n)

	if inCacheBand(n) {
		switch {
		case a.slot1.size == cacheEmptySize:
			a.slot1 = cacheSlot{size: size, ttl: cacheAdmitTTL}
		case a.slot1.size != size && a.slot2.size == cacheEmptySize:
			a.slot2 = cacheSlot{size: size, ttl: cacheAdmitTTL}
		}
	}

	if a.slot1.size != cacheEmptySize {
		a.slot1.ttl--
	}
	if a.slot2.size != cacheEmptySize {
		a.slot2.ttl--
	}

	switch {
	case a.slot1.size == size:
		a.slot1.hits++
	case a.slot2.size == size:
		a.slot2.hits++
	}

	if a.slot1.ttl >= 0 && a.slot1.hits >= cacheArmHits {
		a.slot1.ttl = cacheArmTTL
		a.slot1.hits = 1
		a.slot1.armed = true
		a.log.Debug().Int32("size", a.slot1.size).Msg("cache_arm")
	}

	switch {
	case a.slot1.armed && a.slot1.size == size:
		return true
	case a.slot1.ttl < 0 && a.slot1.size != cacheEmptySize:
		a.log.Debug().Int32("size", a.slot1.size).Msg("cache_evict")
		a.slot1 = emptySlot()
	}

	if a.slot2.ttl >= 0 && a.slot2.hits >= cacheArmHits {
		a.slot2.ttl = cacheArmTTL
		a.slot2.hits = 1
		a.slot2.armed = true
		a.log.Debug().Int32("size", a.slot2.size).Msg("cache_arm")
	}

	switch {
	case a.slot2.armed && a.slot2.size == size:
		return true
	case a.slot2.ttl < 0 && a.slot2.size != cacheEmptySize:
		a.log.Debug().Int32("size", a.slot2.size).Msg("cache_evict")
		a.slot2 = emptySlot()
	}

	return false
}

// cacheTickFree decrements both slots' ttl on every Free call, per
// spec.md §4.G: "On each free call, decrement both ttls by 1 as well —
// regardless of whether slots are empty". Empty slots are resurrected by
// the next admission regardless of what their ttl decremented to, so
// guarding the decrement behind a non-empty check changes nothing
// observable.
func (a *Allocator) cacheTickFree() {
	if a.slot1.size != cacheEmptySize {
		a.slot1.ttl--
	}
	if a.slot2.size != cacheEmptySize {
		a.slot2.ttl--
	}
}

// extendBypass serves an armed cache hit by growing the heap directly
// rather than consulting the free list. The new block is written
// allocated from the start over the old epilogue, so it is never
// coalesced: its left neighbor may be free, but an allocated block is
// not merged with anything.
func (a *Allocator) extendBypass(asize uintptr) (uintptr, bool) {
	bp, err := a.rawExtend(asize, 1)
	if err != nil {
		return 0, false
	}

	a.log.Debug().Uintptr("addr", bp).Int("size", int(asize)).Msg("cache_bypass")
	return bp, true
}
