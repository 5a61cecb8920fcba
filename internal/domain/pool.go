package domain

import (
	"context"

	"golang.org/x/sync/errgroup"

	m "rotwatch.dev/pkg/rotwatch/internal/model"
	"rotwatch.dev/pkg/rotwatch/pkg"
)

// abandon shuts a pool down on a fatal error: cancelling releases
// every worker blocked on a channel send, and draining waits for the
// dispatch goroutine to finish and close the channel. Without both
// steps the spill mutex stays held and the pass never returns.
func abandon[T any](cancel context.CancelFunc, results <-chan completion[T]) {
	cancel()

	for range results {
	}
}

// completion carries one finished digest task back to the reconciler.
type completion[T any] struct {
	task     T
	evidence m.Evidence
	err      error
}

// fanOut dispatches one digest job per staged task onto a pool capped
// at workers goroutines and streams completions as they finish.
// Results arrive in completion order, not submission order, so one
// slow file never blocks reporting of the fast ones. The returned
// channel closes once every dispatched job is done.
//
// Cancelling the context stops dispatching new tasks; in-flight jobs
// finish their read and drop their result.
func fanOut[T any](ctx context.Context, workers int, tasks pkg.Spill[T], digest func(T) (m.Evidence, error)) <-chan completion[T] {
	out := make(chan completion[T], workers)

	go func() {
		defer close(out)

		var group errgroup.Group
		group.SetLimit(workers)

		_ = tasks.Range(func(_ uint64, task T) error {
			if err := ctx.Err(); err != nil {
				return err
			}

			group.Go(func() error {
				evidence, err := digest(task)

				select {
				case out <- completion[T]{task: task, evidence: evidence, err: err}:
				case <-ctx.Done():
				}

				return nil
			})

			return nil
		})

		_ = group.Wait()
	}()

	return out
}
