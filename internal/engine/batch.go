package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"mdqengine/internal/model"
)

// Job names one request of a batch, typically by its source path.
type Job struct {
	Name    string
	Request Request
}

// Batch runs jobs with at most concurrency runs in flight. emit is called
// once per finished job, never concurrently, in completion order. Batch
// stops starting new jobs once ctx is done.
func (r *Runner) Batch(ctx context.Context, jobs []Job, concurrency int, emit func(Job, *model.Run)) error {
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			run := r.Run(gctx, job.Request)
			mu.Lock()
			defer mu.Unlock()
			if emit != nil {
				emit(job, run)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
