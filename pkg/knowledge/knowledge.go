package knowledge

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"
)

// Row is one raw question/answer row read from the row store.
type Row struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Language string `json:"lang"`
}

// Entry is one question/answer pair of the knowledge base together with its embedding.
type Entry struct {
	// Ordinal is the 0-based ingestion position. It is the stable sort key for question numbering.
	Ordinal   int       `json:"ordinal"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Language  Language  `json:"lang"`
	Embedding []float32 `json:"embedding"`
}

// Snapshot is the persisted form of a knowledge base.
type Snapshot struct {
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	BuiltAt   time.Time `json:"built_at"`
	Entries   []Entry   `json:"entries"`
}

// Hit is a raw result of a vector search, identified by entry ordinal.
type Hit struct {
	Ordinal int
	Score   float32 // Similarity, higher is better
}

// Match is an entry returned by a nearest-neighbor lookup.
type Match struct {
	Entry Entry   `json:"entry"`
	Score float32 `json:"score"`
}

// Embedder is the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the interface for indexing and searching entry vectors.
type VectorStore interface {
	// Upsert replaces the indexed vectors with those of the given entries.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns the hits most similar to the query vector.
	Search(ctx context.Context, query []float32, limit int) ([]Hit, error)
}

// Store persists and loads knowledge base snapshots.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	// Load returns ErrNotFound when nothing has been saved yet.
	Load(ctx context.Context) (*Snapshot, error)
}

// RowSource is a read-only row store such as a spreadsheet.
type RowSource interface {
	Rows(ctx context.Context) ([]Row, error)
}

// IndexFactory creates the vector store used for serving a loaded snapshot.
type IndexFactory func(ctx context.Context, entries []Entry) (VectorStore, error)

// KnowledgeBase is an immutable, language-partitioned collection of entries
// backed by a vector store. It is safe for concurrent reads.
type KnowledgeBase struct {
	model     string
	dimension int
	builtAt   time.Time
	entries   []Entry
	store     VectorStore
}

// New validates the snapshot and wraps it with the given vector store.
// Validation failures are reported as *LoadError.
func New(snap *Snapshot, store VectorStore) (*KnowledgeBase, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, &LoadError{Reason: "no vector store"}
	}

	entries := make([]Entry, len(snap.Entries))
	for i, e := range snap.Entries {
		entries[i] = e.clone()
	}

	return &KnowledgeBase{
		model:     snap.Model,
		dimension: snap.Dimension,
		builtAt:   snap.BuiltAt,
		entries:   entries,
		store:     store,
	}, nil
}

// Load reads a snapshot from the store and builds the serving index for it.
func Load(ctx context.Context, store Store, newIndex IndexFactory) (*KnowledgeBase, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, &LoadError{Reason: "read snapshot", Err: err}
	}
	if err := Validate(snap); err != nil {
		return nil, err
	}

	index, err := newIndex(ctx, snap.Entries)
	if err != nil {
		return nil, &LoadError{Reason: "build index", Err: err}
	}

	return New(snap, index)
}

// NearestNeighbor returns up to topK entries most similar to the query vector,
// highest score first. Equal scores are ordered by ordinal.
func (kb *KnowledgeBase) NearestNeighbor(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if topK <= 0 || len(kb.entries) == 0 {
		return nil, nil
	}
	if len(query) != kb.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, kb.dimension, len(query))
	}

	hits, err := kb.store.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Ordinal < 0 || hit.Ordinal >= len(kb.entries) {
			return nil, fmt.Errorf("index returned unknown ordinal %d (index out of date?)", hit.Ordinal)
		}
		matches = append(matches, Match{Entry: kb.entries[hit.Ordinal].clone(), Score: hit.Score})
	}

	return matches, nil
}

// FilterByLanguage returns the entries of one language partition in ingestion order.
func (kb *KnowledgeBase) FilterByLanguage(lang Language) []Entry {
	var out []Entry
	for _, e := range kb.entries {
		if e.Language == lang {
			out = append(out, e.clone())
		}
	}
	return out
}

// Entries returns a copy of all entries in ingestion order.
func (kb *KnowledgeBase) Entries() []Entry {
	out := make([]Entry, len(kb.entries))
	for i, e := range kb.entries {
		out[i] = e.clone()
	}
	return out
}

// clone returns the entry with its own copy of the embedding.
func (e Entry) clone() Entry {
	e.Embedding = slices.Clone(e.Embedding)
	return e
}

func (kb *KnowledgeBase) Len() int           { return len(kb.entries) }
func (kb *KnowledgeBase) Dimension() int     { return kb.dimension }
func (kb *KnowledgeBase) Model() string      { return kb.model }
func (kb *KnowledgeBase) BuiltAt() time.Time { return kb.builtAt }
