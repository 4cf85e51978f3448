// Package embeddings defines the Provider interface for vector embedding
// backends.
//
// An embeddings provider maps text to dense float32 vectors (OpenAI
// text-embedding-3, a local Ollama model, ...). Transcript segments are
// embedded at persistence time and searched by cosine similarity across a
// user's conversations.
//
// Implementations must be safe for concurrent use.
package embeddings

import "context"

// Provider is the abstraction over any text-embedding backend.
//
// All vectors returned by one Provider instance share the dimensionality
// reported by Dimensions. Vectors from different providers must not be mixed
// in the same similarity computation unless model and space match.
type Provider interface {
	// Embed computes the embedding vector for a single text string. The
	// text is passed through verbatim; any model-specific formatting is the
	// caller's responsibility.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for texts in a single provider call; the
	// i-th result corresponds to texts[i]. On error no partial results are
	// returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces.
	Dimensions() int

	// ModelID returns the provider-specific model identifier, for logging
	// and for keeping one model per schema.
	ModelID() string
}
