package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/flemzord/recall/internal/memory"
)

var _ memory.Embedder = (*Mock)(nil)

// Mock derives a unit vector from a hash of the text. Equal texts always
// map to the same vector; the vectors carry no meaning beyond that.
type Mock struct {
	dimensions int
}

// NewMock creates a mock embedder producing vectors of dim entries.
func NewMock(dim int) *Mock {
	if dim <= 0 {
		dim = memory.DefaultDimension
	}
	return &Mock{dimensions: dim}
}

// Embed returns the vector for text.
func (m *Mock) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimensions)
	var norm float64
	for i := range vec {
		// 64-bit LCG step, mapped to [-1, 1].
		seed = seed*6364136223846793005 + 1442695040888963407
		v := float64(int64(seed)) / math.MaxInt64
		vec[i] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (m *Mock) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the vector length.
func (m *Mock) Dimensions() int { return m.dimensions }
