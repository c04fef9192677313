package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultBatchSize is the number of texts sent to the embedder per call during a build.
const DefaultBatchSize = 64

// Build validates the rows, embeds each as question + " " + answer and returns
// a snapshot holding the entries in row order. It never deduplicates.
func Build(ctx context.Context, rows []Row, embedder Embedder, model string) (*Snapshot, error) {
	entries := make([]Entry, len(rows))
	texts := make([]string, len(rows))
	for i, row := range rows {
		q := strings.TrimSpace(row.Question)
		a := strings.TrimSpace(row.Answer)
		if q == "" || a == "" {
			return nil, fmt.Errorf("row %d: question and answer must not be empty", i+1)
		}
		lang, err := ParseLanguage(row.Language)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		entries[i] = Entry{Ordinal: i, Question: q, Answer: a, Language: lang}
		texts[i] = q + " " + a
	}

	dimension := 0
	for start := 0; start < len(texts); start += DefaultBatchSize {
		end := min(start+DefaultBatchSize, len(texts))

		vectors, err := embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed rows %d-%d: %w", start+1, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embed rows %d-%d: got %d vectors for %d texts", start+1, end, len(vectors), end-start)
		}

		for i, vec := range vectors {
			if dimension == 0 {
				dimension = len(vec)
			}
			if len(vec) == 0 || len(vec) != dimension {
				return nil, fmt.Errorf("row %d: %w: expected %d, got %d", start+i+1, ErrDimensionMismatch, dimension, len(vec))
			}
			entries[start+i].Embedding = vec
		}
	}

	return &Snapshot{
		Model:     model,
		Dimension: dimension,
		BuiltAt:   time.Now().UTC(),
		Entries:   entries,
	}, nil
}
