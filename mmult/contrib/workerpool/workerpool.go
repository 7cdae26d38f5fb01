// Copyright 2026 cs5222-lab-fpga Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides the persistent worker pool the dot-product
// engine uses to compute the rows of a tile in parallel.
//
// The hardware engine retires one dot product per cycle from a single
// pipeline; in software the rows of a tile have no data dependency on each
// other, so they are split into contiguous row ranges and handed to workers
// that live for as long as the kernel does. Spawning goroutines per tile
// would dominate the cost of small tiles.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	for tile := range tiles {
//	    pool.ParallelFor(tiling, func(start, end int) {
//	        computeRows(tile, start, end)
//	    })
//	}
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of workers shared by every run of a kernel. A Pool
// may be used by concurrent runs; each ParallelFor call waits only for its
// own work.
type Pool struct {
	numWorkers int
	workC      chan job
	closeOnce  sync.Once
	closed     atomic.Bool
}

type job struct {
	fn   func()
	done *sync.WaitGroup
}

// New creates a pool with numWorkers workers, or GOMAXPROCS workers if
// numWorkers <= 0. Workers are spawned immediately.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan job, numWorkers*2),
	}
	for range numWorkers {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for j := range p.workC {
		j.fn()
		j.done.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close stops the workers. Later calls run work on the caller's goroutine.
// Close must not race with an in-flight ParallelFor. Calling Close multiple
// times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// ParallelFor splits [0, n) into at most NumWorkers contiguous ranges and
// calls fn(start, end) for each, blocking until all return. A nil or closed
// pool, or a single range, runs fn(0, n) on the caller's goroutine.
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if p == nil || p.closed.Load() {
		fn(0, n)
		return
	}

	workers := min(p.numWorkers, n)
	if workers == 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		p.workC <- job{fn: func() { fn(start, end) }, done: &wg}
	}
	wg.Wait()
}

// ParallelForAtomic calls fn(i) for every i in [0, n), handing out indices
// one at a time so uneven work balances across workers.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := 1
	if p != nil && !p.closed.Load() {
		workers = min(p.numWorkers, n)
	}
	if workers == 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var next atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		p.workC <- job{
			fn: func() {
				for {
					i := int(next.Add(1)) - 1
					if i >= n {
						return
					}
					fn(i)
				}
			},
			done: &wg,
		}
	}
	wg.Wait()
}
