package importer

import (
	"context"
	"sync"
)

// DefaultBatchSize bounds how many creation tasks run in flight at once
// during webhook fan-out.
const DefaultBatchSize = 10

// BatchResult partitions a batch run into successes and failures.
type BatchResult struct {
	Succeeded int
	Errors    []error
}

func (r BatchResult) Failed() int {
	return len(r.Errors)
}

// RunBatches executes fns in fixed-size batches: a batch runs fully in
// parallel and must drain before the next batch starts. There is no ordering
// guarantee within a batch. Failures are collected, never short-circuited.
func RunBatches(ctx context.Context, size int, fns []func(context.Context) error) BatchResult {
	if size <= 0 {
		size = DefaultBatchSize
	}

	var result BatchResult

	for start := 0; start < len(fns); start += size {
		end := start + size
		if end > len(fns) {
			end = len(fns)
		}
		batch := fns[start:end]

		errs := make([]error, len(batch))
		var wg sync.WaitGroup

		for i, fn := range batch {
			wg.Add(1)
			go func(i int, fn func(context.Context) error) {
				defer wg.Done()
				errs[i] = fn(ctx)
			}(i, fn)
		}

		wg.Wait()

		for _, err := range errs {
			if err != nil {
				result.Errors = append(result.Errors, err)
			} else {
				result.Succeeded++
			}
		}
	}

	return result
}
