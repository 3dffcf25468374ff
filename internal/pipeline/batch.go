package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"grantreview/internal/review"
)

// BatchResult is one document's outcome within a batch, at its input index.
// Report is nil only for documents the batch never started.
type BatchResult struct {
	Index  int
	Report *review.FinalReport
	Err    error
}

// RunBatch reviews documents concurrently with at most parallel runs in
// flight. Results keep input order. A failed document never cancels the
// others; only ctx does.
func (c *Controller) RunBatch(ctx context.Context, docs []Document, parallel int) []BatchResult {
	if parallel <= 0 {
		parallel = 1
	}
	results := make([]BatchResult, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, doc := range docs {
		if gctx.Err() != nil {
			results[i] = BatchResult{Index: i, Err: fmt.Errorf("%w: %s not started: %v", ErrAborted, doc.Reference, gctx.Err())}
			continue
		}
		g.Go(func() error {
			rep, err := c.Run(gctx, doc)
			results[i] = BatchResult{Index: i, Report: rep, Err: err}
			return nil
		})
	}
	_ = g.Wait() // errors captured in BatchResult.Err

	c.log.Infow("batch finished", "documents", len(docs), "parallel", parallel, "failed", countFailed(results))
	return results
}

func countFailed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
