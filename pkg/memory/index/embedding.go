package index

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder converts text to a fixed-size vector. The bundled implementations
// are fully local hashing embedders: weak compared to a learned model, but
// deterministic and dependency-free, which is what the embedded vector
// backend needs to stay self-contained.
type Embedder interface {
	ModelID() string
	Embed(text string) []float32
}

const (
	chargramModelID = "hivemem-chargram-384-v1"
	hashModelID     = "hivemem-hash-256-v1"
)

// NewEmbedder returns the embedder for a model name; unknown names fall back
// to the chargram model.
func NewEmbedder(name string) Embedder {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case hashModelID, "hash", "hash-256":
		return &hashEmbedder{dims: 256, modelID: hashModelID}
	default:
		return &chargramEmbedder{dims: 384, modelID: chargramModelID}
	}
}

type hashEmbedder struct {
	dims    int
	modelID string
}

func (e *hashEmbedder) ModelID() string { return e.modelID }

func (e *hashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dims)
	for _, token := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dims))
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		weight := float32(1 + (len(token) / 8))
		vec[idx] += sign * weight
	}
	normalizeVector(vec)
	return vec
}

type chargramEmbedder struct {
	dims    int
	modelID string
}

func (e *chargramEmbedder) ModelID() string { return e.modelID }

// Embed hashes character trigrams plus whole tokens into a fixed-size
// bag-of-features vector. Trigrams make the vector robust to inflection and
// small typos; the token channel keeps exact terms discriminative.
func (e *chargramEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dims)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec
	}
	window := "#" + normalized + "#"
	for i := 0; i+3 <= len(window); i++ {
		gram := window[i : i+3]
		h := fnv.New64a()
		_, _ = h.Write([]byte(gram))
		idx := int(h.Sum64() % uint64(e.dims))
		vec[idx]++
	}
	for _, token := range tokenize(normalized) {
		h := fnv.New64a()
		_, _ = h.Write([]byte("tok:" + token))
		idx := int(h.Sum64() % uint64(e.dims))
		vec[idx] += 1.25
	}
	normalizeVector(vec)
	return vec
}

// EmbeddingFunc adapts an Embedder to the context-aware signature the vector
// backend expects.
func EmbeddingFunc(e Embedder) func(ctx context.Context, text string) ([]float32, error) {
	return func(_ context.Context, text string) ([]float32, error) {
		return e.Embed(text), nil
	}
}

func normalizeVector(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	n := math.Sqrt(sum)
	if n == 0 {
		return
	}
	inv := float32(1.0 / n)
	for i := range vec {
		vec[i] *= inv
	}
}
