// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dynalloc implements a boundary-tag dynamic memory allocator
// over a single contiguous, monotonically growable heap region.
//
// The design follows the classic CS:APP implicit-list-with-boundary-tags
// allocator: every block carries a header and footer word encoding its
// size and allocated bit, which lets a freed block be merged with either
// neighbor in constant time without any out-of-band bookkeeping. Free
// blocks are additionally threaded into an address-ordered doubly linked
// free list through their own payload, so first-fit search and
// consistency checking both run in a single forward pass.
//
// On top of that base, an adaptive two-slot bypass cache watches for
// allocation sizes requested often enough to be worth serving straight
// from fresh heap space instead of the free list, trading heap space for
// avoiding free-list churn at hot sizes.
//
// Changelog
//
// 2026-07-31 Reworked from a segregated per-size-class slab allocator
// into a single-heap boundary-tag allocator with an explicit free list
// and adaptive bypass cache.
package dynalloc
