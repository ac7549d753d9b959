// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dynalloc

import (
	"fmt"
	"math"
	"os"
	"path"
	"runtime"
	"strings"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"modernc.org/mathutil"
)

func caller(s string, va ...interface{}) {
	if s == "" {
		s = strings.Repeat("%v ", len(va))
	}
	_, fn, fl, _ := runtime.Caller(2)
	fmt.Fprintf(os.Stderr, "# caller: %s:%d: ", path.Base(fn), fl)
	fmt.Fprintf(os.Stderr, s, va...)
	fmt.Fprintln(os.Stderr)
	_, fn, fl, _ = runtime.Caller(1)
	fmt.Fprintf(os.Stderr, "# \tcallee: %s:%d: ", path.Base(fn), fl)
	fmt.Fprintln(os.Stderr)
	os.Stderr.Sync()
}

func dbg(s string, va ...interface{}) {
	if s == "" {
		s = strings.Repeat("%v ", len(va))
	}
	_, fn, fl, _ := runtime.Caller(1)
	fmt.Fprintf(os.Stderr, "# dbg %s:%d: ", path.Base(fn), fl)
	fmt.Fprintf(os.Stderr, s, va...)
	fmt.Fprintln(os.Stderr)
	os.Stderr.Sync()
}

func TODO(...interface{}) string { //TODOOK
	_, fn, fl, _ := runtime.Caller(1)
	return fmt.Sprintf("# TODO: %s:%d:\n", path.Base(fn), fl) //TODOOK
}

func use(...interface{}) {}

func init() {
	use(caller, dbg, TODO) //TODOOK
}

// ============================================================================

// quota bounds the randomized harnesses below to a SliceHeap small enough
// to keep the test binary's memory footprint sane; reserve must exceed it
// to leave headroom for boundary tags and the adaptive cache's bypass
// growth.
const (
	quota   = 16 << 20
	reserve = 32 << 20
)

func newTestAllocator(t *testing.T) *Allocator {
	a, err := New(WithHeapProvider(NewSliceHeap(reserve)), WithChunkSize(4096))
	require.NoError(t, err)
	return a
}

func viewBytes(p unsafe.Pointer, n int) []byte {
	return unsafe.Slice((*byte)(p), n)
}

var max = 256

func test1(t *testing.T, maxSize int) {
	a := newTestAllocator(t)
	rem := quota
	var ptrs []unsafe.Pointer
	var sizes []int

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	require.NoError(t, err)

	rng.Seed(42)
	pos := rng.Pos()

	for rem > 0 {
		size := rng.Next()%maxSize + 1
		rem -= size
		p, err := a.Alloc(size)
		require.NoError(t, err)

		ptrs = append(ptrs, p)
		sizes = append(sizes, size)
		b := viewBytes(p, size)
		for i := range b {
			b[i] = byte(rng.Next())
		}
	}

	require.NoError(t, a.CheckHeap(false))

	rng.Seek(pos)
	for i, p := range ptrs {
		size := rng.Next()%maxSize + 1
		require.Equal(t, size, sizes[i])

		b := viewBytes(p, size)
		for j, g := range b {
			e := byte(rng.Next())
			require.Equalf(t, e, g, "index %d byte %d", i, j)
			b[j] = 0
		}
	}

	for i := range ptrs {
		j := rng.Next() % len(ptrs)
		ptrs[i], ptrs[j] = ptrs[j], ptrs[i]
	}

	for _, p := range ptrs {
		a.Free(p)
	}

	require.NoError(t, a.CheckHeap(false))
}

func Test1Small(t *testing.T) { test1(t, max) }
func Test1Big(t *testing.T)   { test1(t, 4*max) }

func test2(t *testing.T, maxSize int) {
	a := newTestAllocator(t)
	rem := quota
	var ptrs []unsafe.Pointer
	var sizes []int

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	require.NoError(t, err)

	rng.Seed(42)
	pos := rng.Pos()

	for rem > 0 {
		size := rng.Next()%maxSize + 1
		rem -= size
		p, err := a.Alloc(size)
		require.NoError(t, err)

		ptrs = append(ptrs, p)
		sizes = append(sizes, size)
		b := viewBytes(p, size)
		for i := range b {
			b[i] = byte(rng.Next())
		}
	}

	rng.Seek(pos)
	for i, p := range ptrs {
		size := rng.Next()%maxSize + 1
		require.Equal(t, size, sizes[i])

		b := viewBytes(p, size)
		for _, g := range b {
			e := byte(rng.Next())
			require.Equal(t, e, g)
		}

		a.Free(p)
	}

	require.NoError(t, a.CheckHeap(false))
}

func Test2Small(t *testing.T) { test2(t, max) }
func Test2Big(t *testing.T)   { test2(t, 4*max) }

// test3 interleaves allocation and freeing at random, the pattern most
// likely to exercise every coalesce case.
func test3(t *testing.T, maxSize int) {
	a := newTestAllocator(t)
	rem := quota
	live := map[unsafe.Pointer][]byte{}

	rng, err := mathutil.NewFC32(1, maxSize, true)
	require.NoError(t, err)

	for rem > 0 {
		switch rng.Next() % 3 {
		case 0, 1: // 2/3 allocate
			size := rng.Next()
			rem -= size
			p, err := a.Alloc(size)
			require.NoError(t, err)

			b := viewBytes(p, size)
			for i := range b {
				b[i] = byte(size + i)
			}
			live[p] = append([]byte(nil), b...)
		default: // 1/3 free
			for p, want := range live {
				got := viewBytes(p, len(want))
				require.Equal(t, want, got, "corrupted heap")
				rem += len(want)
				a.Free(p)
				delete(live, p)
				break
			}
		}
	}

	for p, want := range live {
		got := viewBytes(p, len(want))
		require.Equal(t, want, got, "corrupted heap")
		a.Free(p)
	}

	require.NoError(t, a.CheckHeap(false))
}

func Test3Small(t *testing.T) { test3(t, max) }
func Test3Big(t *testing.T)   { test3(t, 4*max) }

func TestFreeNil(t *testing.T) {
	a := newTestAllocator(t)
	p, err := a.Alloc(1)
	require.NoError(t, err)

	a.Free(nil)
	a.Free(p)
	require.NoError(t, a.CheckHeap(false))
}

func TestAllocZero(t *testing.T) {
	a := newTestAllocator(t)
	p, err := a.Alloc(0)
	require.NoError(t, err)
	require.Nil(t, p)
}

func benchmarkFree(b *testing.B, size int) {
	a, err := New(WithHeapProvider(NewSliceHeap(quota)), WithChunkSize(4096))
	require.NoError(b, err)

	ptrs := make([]unsafe.Pointer, b.N)
	for i := 0; i < b.N; i++ {
		p, err := a.Alloc(size)
		require.NoError(b, err)
		ptrs[i] = p
	}
	b.ResetTimer()
	for _, p := range ptrs {
		a.Free(p)
	}
	b.StopTimer()
}

func BenchmarkFree16(b *testing.B) { benchmarkFree(b, 1<<4) }
func BenchmarkFree32(b *testing.B) { benchmarkFree(b, 1<<5) }
func BenchmarkFree64(b *testing.B) { benchmarkFree(b, 1<<6) }

func benchmarkAlloc(b *testing.B, size int) {
	a, err := New(WithHeapProvider(NewSliceHeap(quota)), WithChunkSize(4096))
	require.NoError(b, err)

	ptrs := make([]unsafe.Pointer, 0, b.N)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, err := a.Alloc(size)
		require.NoError(b, err)
		ptrs = append(ptrs, p)
	}
	b.StopTimer()
	for _, p := range ptrs {
		a.Free(p)
	}
}

func BenchmarkAlloc16(b *testing.B) { benchmarkAlloc(b, 1<<4) }
func BenchmarkAlloc32(b *testing.B) { benchmarkAlloc(b, 1<<5) }
func BenchmarkAlloc64(b *testing.B) { benchmarkAlloc(b, 1<<6) }
