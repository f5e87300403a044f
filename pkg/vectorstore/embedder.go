package vectorstore

import "context"

// Embedder turns text into a vector embedding for storage and similarity
// search. Sentence-transformer models in the original implementation are
// an external process Sentinel does not replicate in-process. StubEmbedder
// is the only implementation in this repository and every cmd/sentinel
// service that opens the store uses it; the configured
// EMBEDDING_MODEL_NAME is loaded into config but no embedder reads it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// StubEmbedder deterministically hashes text into a fixed-size vector. It
// satisfies Embedder's contract (same text always embeds to the same
// vector) without depending on a model server, which is enough for
// exercising upsert/search wiring in tests and local development.
type StubEmbedder struct {
	dims int
}

// NewStubEmbedder returns a StubEmbedder producing vectors of the given
// dimensionality.
func NewStubEmbedder(dims int) *StubEmbedder {
	return &StubEmbedder{dims: dims}
}

func (e *StubEmbedder) Dimensions() int { return e.dims }

func (e *StubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	h := fnv1a(text)
	for i := range vec {
		h = h*1099511628211 ^ uint64(i)
		vec[i] = float32(h%2000)/1000 - 1
	}
	return vec, nil
}

func fnv1a(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
