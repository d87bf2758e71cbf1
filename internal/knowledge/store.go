package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Embedder turns a text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// embedConcurrency bounds the fan-out when indexing many chunks at once.
const embedConcurrency = 4

// Document is one indexed chunk with its provenance.
type Document struct {
	ID      string            `json:"id"`
	Text    string            `json:"text"`
	Meta    map[string]string `json:"meta,omitempty"`
	vector  []float32
}

// Match is a search hit with its cosine similarity score.
type Match struct {
	Document Document
	Score    float64
}

// VectorStore is an in-memory cosine-similarity index over embedded chunks.
type VectorStore struct {
	mu       sync.RWMutex
	embedder Embedder
	docs     []Document
}

func NewVectorStore(embedder Embedder) *VectorStore {
	return &VectorStore{embedder: embedder}
}

// Add embeds and indexes the given documents. Embedding calls fan out with
// bounded concurrency; one failure aborts the batch and nothing is indexed.
func (v *VectorStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	embedded := make([]Document, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			vec, err := v.embedder.Embed(ctx, doc.Text)
			if err != nil {
				return fmt.Errorf("knowledge: embed %q: %w", doc.ID, err)
			}
			doc.vector = vec
			embedded[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.docs = append(v.docs, embedded...)
	return nil
}

// Search embeds the query and returns the topK most similar documents in
// descending score order.
func (v *VectorStore) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}
	qvec, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed query: %w", err)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	matches := make([]Match, 0, len(v.docs))
	for _, doc := range v.docs {
		matches = append(matches, Match{Document: doc, Score: cosine(qvec, doc.vector)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len returns the number of indexed documents.
func (v *VectorStore) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.docs)
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
