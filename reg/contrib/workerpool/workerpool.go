// Copyright 2025 The go-highway Authors. SPDX-License-Identifier: Apache-2.0

// Package workerpool provides the persistent worker pool the registration
// kernels run on. A Pool is created once and reused across many kernel
// calls, so an ICP loop running dozens of reductions per second does not pay
// goroutine spawn costs per call.
//
// Usage:
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	sum := workerpool.Reduce(pool, n,
//	    func(acc *[29]float64, start, end int) { /* fold [start, end) */ },
//	    func(dst, src *[29]float64) { /* elementwise add */ })
package workerpool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Pool is a persistent worker pool that can be reused across many parallel
// operations. Workers are spawned once at creation and reused.
//
// Pool methods must not be called from inside a function running on the
// same pool.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	closed     atomic.Bool
}

// workItem represents a single parallel operation to execute.
type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a new worker pool with the specified number of workers.
// Workers are spawned immediately and persist until Close is called.
// If numWorkers <= 0, uses GOMAXPROCS.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		// Buffer enough for all workers to have pending work
		workC: make(chan workItem, numWorkers*2),
	}

	for range numWorkers {
		go p.worker()
	}

	return p
}

var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide pool sized to GOMAXPROCS at first use.
// It is never closed.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New(0)
	})
	return defaultPool
}

func (p *Pool) worker() {
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Close shuts down the worker pool. All pending work will complete.
// Calling Close multiple times is safe.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
}

// chunks returns how many contiguous chunks ParallelFor splits n items into
// and the size of each chunk. The last chunk may be shorter.
func (p *Pool) chunks(n int) (count, size int) {
	workers := min(p.numWorkers, n)
	if p.closed.Load() || workers <= 1 {
		return 1, n
	}
	size = (n + workers - 1) / workers
	return (n + size - 1) / size, size
}

// ParallelFor executes fn for each index in [0, n) using the worker pool.
// Each worker processes a contiguous range of indices.
// Blocks until all work completes.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelFor(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	count, size := p.chunks(n)
	if count == 1 {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	wg.Add(count)

	for i := range count {
		start := i * size
		end := min(start+size, n)
		p.workC <- workItem{
			fn: func() {
				fn(start, end)
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}

// ParallelForAtomic executes fn for each index in [0, n) using atomic work
// stealing. This provides better load balancing when work per item varies,
// e.g. neighbour queries with uneven result sizes.
// Blocks until all work completes.
func (p *Pool) ParallelForAtomic(n int, fn func(i int)) {
	if n <= 0 {
		return
	}

	workers := min(p.numWorkers, n)
	if p.closed.Load() || workers == 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var nextIdx atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		p.workC <- workItem{
			fn: func() {
				for {
					idx := int(nextIdx.Add(1)) - 1
					if idx >= n {
						return
					}
					fn(idx)
				}
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}

// ParallelForAtomicBatched executes fn for batches of indices using atomic
// work stealing. Combines the load balancing of atomic distribution with
// reduced atomic operation overhead by processing multiple items per grab.
//
// fn receives (start, end) indices where work should process [start, end).
func (p *Pool) ParallelForAtomicBatched(n int, batchSize int, fn func(start, end int)) {
	if n <= 0 {
		return
	}

	if batchSize <= 0 {
		batchSize = 1
	}

	numBatches := (n + batchSize - 1) / batchSize
	workers := min(p.numWorkers, numBatches)
	if p.closed.Load() || workers == 1 {
		fn(0, n)
		return
	}

	var nextBatch atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		p.workC <- workItem{
			fn: func() {
				for {
					batch := int(nextBatch.Add(1)) - 1
					start := batch * batchSize
					if start >= n {
						return
					}
					end := min(start+batchSize, n)
					fn(start, end)
				}
			},
			barrier: &wg,
		}
	}

	wg.Wait()
}

// padded keeps each partial accumulator on its own cache lines so workers
// folding into neighbouring partials do not false-share.
type padded[A any] struct {
	_   cpu.CacheLinePad
	acc A
	_   cpu.CacheLinePad
}

// Reduce folds the index range [0, n) into a single accumulator.
//
// The range is split into the same contiguous chunks ParallelFor uses. Each
// chunk folds into a private zero-valued partial via fold(acc, start, end);
// the partials are then combined into the result in chunk order via
// merge(dst, src). merge must be associative and commutative. For a fixed
// worker count the result is bit-for-bit reproducible.
func Reduce[A any](p *Pool, n int, fold func(acc *A, start, end int), merge func(dst, src *A)) A {
	var result A
	if n <= 0 {
		return result
	}

	count, size := p.chunks(n)
	if count == 1 {
		fold(&result, 0, n)
		return result
	}

	partials := make([]padded[A], count)
	p.ParallelFor(n, func(start, end int) {
		fold(&partials[start/size].acc, start, end)
	})

	for i := range partials {
		merge(&result, &partials[i].acc)
	}
	return result
}
