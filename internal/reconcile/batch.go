package reconcile

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/redline/pkg/suggestion"
	"github.com/MrWong99/redline/pkg/transcript"
)

// Job is one independent reconciliation request.
type Job struct {
	ID          string
	Document    transcript.Document
	Suggestions []suggestion.Suggestion
}

// ReconcileBatch runs one pass per job, at most MaxConcurrentPasses at a
// time. Results are in job order. Each job owns its document, so passes
// never share state. When ctx is cancelled, jobs that have not started are
// abandoned and the cancellation error is returned.
func (e *Engine) ReconcileBatch(ctx context.Context, jobs []Job) ([]*Result, error) {
	limit := e.opts.MaxConcurrentPasses
	if limit <= 0 {
		limit = DefaultMaxConcurrentPasses
	}

	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			res, err := e.Reconcile(gctx, job.Document, job.Suggestions)
			if err != nil {
				return fmt.Errorf("reconcile: job %d (%s): %w", i, job.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
