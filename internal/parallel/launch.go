package parallel

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Launch runs f(i) for every i in [0, b) using a shared atomic cursor instead
// of a static up-front chunking. Each instance's forward/backward cost varies
// with its own sweep count, so a fixed up-front split leaves some workers
// idle while others are still grinding through slow instances.
//
// Launch stamps every call with a fresh run ID so batch-level logs (emitted
// by the caller, not this package) can be correlated across goroutines; the
// ID carries no semantics beyond that.
func Launch(b int, f func(i int), cfg Config) uuid.UUID {
	runID := uuid.New()

	if !cfg.Enabled || b < cfg.MinChunkSize {
		for i := 0; i < b; i++ {
			f(i)
		}
		return runID
	}

	var cursor int64
	workers := cfg.NumWorkers
	if workers > b {
		workers = b
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= b {
					return
				}
				f(i)
			}
		}()
	}
	wg.Wait()

	return runID
}
