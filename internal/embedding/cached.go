package embedding

import (
	"context"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/flemzord/recall/internal/memory"
)

var _ memory.Embedder = (*Cached)(nil)

// Cached memoizes another embedder in a fixed-size LRU keyed by text.
// Concurrent misses on the same text share one backend call. Failures are
// never cached.
type Cached struct {
	inner memory.Embedder
	cache *lru.Cache[string, []float32]
	group singleflight.Group
}

// NewCached wraps inner with an LRU of size entries.
func NewCached(inner memory.Embedder, size int) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding: create cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text, computing it on a miss.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return slices.Clone(vec), nil
	}

	// The shared call must outlive any single waiter, so it runs detached
	// from the caller's cancellation and each waiter selects on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(text, func() (any, error) {
		vec, err := c.inner.Embed(shared, text)
		if err != nil {
			return nil, err
		}
		c.cache.Add(text, slices.Clone(vec))
		return vec, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]float32)), nil
	}
}

// EmbedBatch serves hits from the cache and sends the misses to the
// wrapped embedder as one batch.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missIdx   []int
		missTexts []string
	)
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = slices.Clone(vec)
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrMalformedResponse, len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		c.cache.Add(texts[i], slices.Clone(vecs[j]))
		out[i] = vecs[j]
	}
	return out, nil
}

// Dimensions returns the wrapped embedder's vector length.
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

// Len returns the number of cached texts.
func (c *Cached) Len() int { return c.cache.Len() }
