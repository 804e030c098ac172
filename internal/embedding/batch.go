package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EmbedFunc embeds a single text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// BatchEmbed calls embed for every text with at most limit calls in flight
// and returns the vectors in input order. The first failure cancels the
// remaining calls and is returned.
func BatchEmbed(ctx context.Context, texts []string, limit int, embed EmbedFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := embed(gctx, text)
			if err != nil {
				return err
			}
			out[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
