// Copyright 2026 cs5222-lab-fpga Authors. SPDX-License-Identifier: Apache-2.0

package workerpool

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}

	def := New(0)
	defer def.Close()
	if def.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", def.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestParallelForCoversRowsOnce(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	for _, n := range []int{1, 3, 4, 7, 128, 1000} {
		hits := make([]int32, n)
		pool.ParallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("n=%d: row %d computed %d times", n, i, h)
			}
		}
	}
}

func TestParallelForAtomic(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)
	pool.ParallelForAtomic(n, func(i int) {
		results[i] = i * 2
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForZeroN(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var called bool
	pool.ParallelFor(0, func(start, end int) { called = true })
	pool.ParallelForAtomic(0, func(i int) { called = true })
	if called {
		t.Error("n=0 should not call fn")
	}
}

func TestNilAndClosedPoolRunInline(t *testing.T) {
	var nilPool *Pool
	closed := New(4)
	closed.Close()
	closed.Close() // Should not panic

	for name, pool := range map[string]*Pool{"nil": nilPool, "closed": closed} {
		var calls atomic.Int32
		n := 10
		results := make([]int, n)
		pool.ParallelFor(n, func(start, end int) {
			calls.Add(1)
			for i := start; i < end; i++ {
				results[i] = i + 1
			}
		})
		if calls.Load() != 1 {
			t.Errorf("%s pool: fn called %d times, want 1", name, calls.Load())
		}
		pool.ParallelForAtomic(n, func(i int) { results[i] *= 2 })
		for i, r := range results {
			if r != (i+1)*2 {
				t.Errorf("%s pool: results[%d] = %d, want %d", name, i, r, (i+1)*2)
			}
		}
	}
}

func BenchmarkParallelForTile(b *testing.B) {
	pool := New(0)
	defer pool.Close()

	// One tile of the default shape: 128 rows of 10 dot products.
	const rows, classes, feat = 128, 10, 256
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ParallelFor(rows, func(start, end int) {
			for r := start; r < end; r++ {
				var acc int64
				for j := 0; j < classes*feat; j++ {
					acc += int64(r * j)
				}
				_ = acc
			}
		})
	}
}
