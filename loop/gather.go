package loop

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Gather applies fn to every item with at most parallelism concurrent calls
// and returns the results in input order. A parallelism below 2 runs
// sequentially in the caller goroutine. The first error cancels the
// remaining calls and is returned.
func Gather[T, R any](ctx context.Context, items []T, parallelism int, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))

	if parallelism < 2 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			r, err := fn(ctx, i, item)
			if err != nil {
				return nil, err
			}

			results[i] = r
		}

		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			r, err := fn(gctx, i, item)
			if err != nil {
				return err
			}

			// Each goroutine owns a distinct slot
			results[i] = r

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
