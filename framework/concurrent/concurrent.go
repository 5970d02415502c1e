package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one item
type Outcome[R any] struct {
	Value R
	Err   error
}

// Settle runs fn for every item with at most limit calls in flight and
// returns one outcome per item, in input order. A failing item does not
// cancel the others. Items not started before ctx is done report ctx.Err().
func Settle[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Outcome[R] {
	outcomes := make([]Outcome[R], len(items))
	if len(items) == 0 {
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(normalizeLimit(limit))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			outcomes[i].Err = err
			continue
		}
		// errors are recorded per item, never returned to the group
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			v, err := fn(ctx, item)
			outcomes[i] = Outcome[R]{Value: v, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	return limit
}
