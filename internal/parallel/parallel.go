// Package parallel provides a bounded worker fan-out over index ranges.
// Every data-parallel loop in the planning core (volume resampling slices,
// per-element ray integration) goes through For so the worker-count policy
// lives in one place.
package parallel

import (
	"runtime"
	"sync"
)

// For runs fn(i) for i in [0, n) across at most workers goroutines and
// blocks until all calls return. workers <= 0 selects runtime.NumCPU().
// Each index is visited exactly once; fn must write only to slots owned by
// its index.
func For(n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
