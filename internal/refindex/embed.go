package refindex

import (
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns search text into a vector. No example repo in the
// pack ships an embedding-model client, so the default implementation
// is a deterministic hashed bag-of-words vector rather than a real
// semantic embedding — good enough to exercise the upsert/search
// contract end to end, and swappable for a real embedding client
// behind the same interface once one is available.
type Embedder interface {
	Embed(text string) []float32
}

// HashEmbedder implements Embedder with feature hashing: each token is
// hashed into one of Dim buckets and the resulting vector is
// L2-normalized, matching the shape (not the semantics) of a real
// sentence embedding closely enough to exercise cosine search.
type HashEmbedder struct {
	Dim int
}

func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{Dim: dim}
}

func (e *HashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.Dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		idx := int(h.Sum32()) % e.Dim
		if idx < 0 {
			idx += e.Dim
		}
		vec[idx]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
