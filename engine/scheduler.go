package engine

import (
	"context"
	"sync"
)

// Outcome is the result of one copy pair. Every submitted pair yields exactly
// one outcome; the scheduler never drops outcomes, even on failure.
type Outcome struct {
	Pair    CopyPair
	Skipped bool
	Err     *TransferError
}

// Failed reports whether the pair's transfer failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// runPairs executes the pairs across a bounded worker pool and returns the
// outcomes aligned with the submission order. Execution order across workers
// is unspecified; with one worker the pairs run strictly sequentially.
//
// Cancelling the context stops submitting new pairs (best effort); pairs
// already handed to a worker run to completion, pairs never submitted are
// reported as failed with the context error.
func (c *Client) runPairs(ctx context.Context, pairs []CopyPair, workers int) []Outcome {
	outcomes := make([]Outcome, len(pairs))
	for i, p := range pairs {
		outcomes[i] = Outcome{
			Pair: p,
			Err:  &TransferError{Src: p.Src.Endpoint.String(), Dst: p.Dst.String(), Err: context.Canceled},
		}
	}

	c.progress.Submitted.Add(uint64(len(pairs)))

	// Each index is written once by exactly one worker, so the pre-sized
	// slice needs no further synchronization.
	runIndexed(ctx, len(pairs), workers, func(i int) {
		outcomes[i] = c.execute(ctx, pairs[i])
		c.progress.record(outcomes[i])
	})
	return outcomes
}

// runIndexed fans fn out over [0, n) with at most workers goroutines.
func runIndexed(ctx context.Context, n, workers int, fn func(i int)) {
	if workers < 1 {
		workers = DefaultWorkerCount()
	}
	if workers > n {
		workers = n
	}

	if workers <= 1 {
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			fn(i)
		}
		return
	}

	idx := make(chan int)
	wg := sync.WaitGroup{}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				fn(i)
			}
		}()
	}

feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			break feed
		case idx <- i:
		}
	}
	close(idx)
	wg.Wait()
}

// outcomesError folds a batch of outcomes into nil or a *PartialFailureError
// enumerating every failed pair.
func outcomesError(outcomes []Outcome) error {
	var failed []*TransferError
	for _, o := range outcomes {
		if o.Failed() {
			failed = append(failed, o.Err)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &PartialFailureError{Total: len(outcomes), Failed: failed}
}
