package flat

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync"

	"github.com/barekit/givingfaq/pkg/knowledge"
)

// Store implements knowledge.VectorStore with an exact, in-process cosine search.
type Store struct {
	mu      sync.RWMutex
	ordinal []int
	vectors [][]float32
	norms   []float64
}

// New creates a Store holding the vectors of the given entries.
func New(entries []knowledge.Entry) *Store {
	s := &Store{}
	_ = s.Upsert(context.Background(), entries)
	return s
}

// NewIndex adapts New to knowledge.IndexFactory.
func NewIndex(_ context.Context, entries []knowledge.Entry) (knowledge.VectorStore, error) {
	return New(entries), nil
}

// Upsert replaces the stored vectors.
func (s *Store) Upsert(ctx context.Context, entries []knowledge.Entry) error {
	ordinal := make([]int, len(entries))
	vectors := make([][]float32, len(entries))
	norms := make([]float64, len(entries))
	for i, e := range entries {
		ordinal[i] = e.Ordinal
		vectors[i] = slices.Clone(e.Embedding)
		norms[i] = norm(e.Embedding)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordinal, s.vectors, s.norms = ordinal, vectors, norms
	return nil
}

// Search scores every stored vector against the query. Ties keep ordinal order.
func (s *Store) Search(ctx context.Context, query []float32, limit int) ([]knowledge.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || len(s.vectors) == 0 {
		return nil, nil
	}

	qn := norm(query)
	hits := make([]knowledge.Hit, 0, len(s.vectors))
	for i, vec := range s.vectors {
		if len(vec) != len(query) {
			return nil, fmt.Errorf("%w: expected %d, got %d", knowledge.ErrDimensionMismatch, len(vec), len(query))
		}
		hits = append(hits, knowledge.Hit{
			Ordinal: s.ordinal[i],
			Score:   cosine(query, vec, qn, s.norms[i]),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float32 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (na * nb))
}
