package realitycheck

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallelRows fills rows using up to workers goroutines. Each replicate's
// RNG is derived from its index inside the source, so the schedule cannot
// influence the values: slot b holds the same bits a serial run would
// produce.
func parallelRows(ctx context.Context, gen ReplicateSource, rows [][]float64, workers int) ([][]float64, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for b := range rows {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows[b] = gen.Replicate(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
