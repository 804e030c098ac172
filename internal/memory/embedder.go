package memory

import "context"

// Embedder maps text to a fixed-length vector. The same backend and model
// always produce the same vector for the same text.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in input order. The result
	// must equal calling Embed on each text in turn.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of every produced vector.
	Dimensions() int
}
