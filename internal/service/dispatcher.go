package service

import (
	"context"
	"sync"

	"github.com/1dlvb/async-bank-app/internal/model"
)

// runPool fans n items out to at most workers goroutines and waits for all
// of them. Every item is attempted regardless of sibling failures; per-item
// errors come back aggregated in input order so callers can tell exactly
// which items failed.
func runPool(ctx context.Context, workers, n int, fn func(ctx context.Context, index int) error) error {
	if workers <= 0 || workers > n {
		workers = n
	}

	errs := make([]error, n)
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				errs[i] = fn(ctx, i)
			}
		}()
	}

	for i := 0; i < n; i++ {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	var batch model.BatchError
	for i, err := range errs {
		batch.Append(i, err)
	}
	return batch.ErrOrNil()
}
