// Package parallel fans independent work items out over a bounded set of
// goroutines. Each item must own all the state it touches; graphs are never
// shared between items.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Number of worker goroutines to use.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// For executes f(ctx, i) for i in [0, n) and returns the errors of every
// failed item joined together. Items not yet started when ctx is done are
// skipped and reported as ctx.Err().
func For(ctx context.Context, n int, f func(ctx context.Context, i int) error, cfg Config) error {
	errs := make([]error, n)
	run := func(i int) {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			return
		}
		if err := f(ctx, i); err != nil {
			errs[i] = fmt.Errorf("item %d: %w", i, err)
		}
	}

	if !cfg.Enabled || cfg.NumWorkers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			run(i)
		}
		return errors.Join(errs...)
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(cfg.NumWorkers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				run(i)
			}
		}()
	}
	for i := 0; i < n; i++ {
		work <- i
	}
	close(work)
	wg.Wait()
	return errors.Join(errs...)
}
