package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/indmach/internal/dynamo"
)

// Builder makes an independent simulator for one sweep point. Devices are
// not safe for concurrent use, so every point needs its own.
type Builder func(edit string) (*Simulator, error)

// Sweep runs one simulation per edit, at most limit at a time, and returns
// the results in the order of edits. The first failure cancels the rest.
func Sweep(ctx context.Context, build Builder, edits []string, limit int) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, len(edits))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for idx, edit := range edits {
		idx, edit := idx, edit
		g.Go(func() error {
			s, err := build(edit)
			if err != nil {
				return fmt.Errorf("sweep %q: %w", edit, err)
			}
			res, err := s.Run(ctx)
			if err != nil {
				return fmt.Errorf("sweep %q: %w", edit, err)
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
