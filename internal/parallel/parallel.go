// Package parallel provides helpers for fanning CPU-bound loops across
// goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how a loop is split across goroutines.
type Config struct {
	Enabled      bool // Whether to fan out at all.
	NumWorkers   int  // Upper bound on worker goroutines.
	MinChunkSize int  // Minimum items per goroutine.
}

// DefaultConfig returns defaults for loops over cheap items, batched so that
// goroutine startup cost is amortized.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// CoarseConfig returns defaults for loops whose items are individually
// expensive, such as decoding one tensor per iteration. Every item may get
// its own goroutine.
func CoarseConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1,
	}
}

// For runs f(i) for i in [0, n), splitting the index range into contiguous
// chunks. It runs sequentially when parallelism is disabled or n is below
// the chunk minimum.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForErr is For with fallible items. Each worker stops at its first failure,
// and the lowest-indexed error is returned, so the result does not depend on
// goroutine scheduling.
func ForErr(n int, f func(i int) error, cfg Config) error {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)
	errs := make([]error, (n+chunkSize-1)/chunkSize)

	var wg sync.WaitGroup
	for start, c := 0, 0; start < n; start, c = start+chunkSize, c+1 {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e, c int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				if err := f(i); err != nil {
					errs[c] = err
					return
				}
			}
		}(start, end, c)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
