package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/qdrant/go-client/qdrant"
)

const payloadLanguage = "lang"

// QdrantStore implements knowledge.VectorStore using Qdrant.
type QdrantStore struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
}

// New creates a new QdrantStore. The collection is created on the first Upsert.
func New(host string, port int, collectionName string, vectorSize uint64) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &QdrantStore{
		client:         client,
		collectionName: collectionName,
		vectorSize:     vectorSize,
	}, nil
}

// resetCollection drops and recreates the collection. Every build is a full rebuild.
func (s *QdrantStore) resetCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if exists {
		if err := s.client.DeleteCollection(ctx, s.collectionName); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	// An empty knowledge base has no dimension and is never searched.
	if s.vectorSize == 0 {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert rebuilds the collection from the entries. Point IDs are entry ordinals.
func (s *QdrantStore) Upsert(ctx context.Context, entries []knowledge.Entry) error {
	if err := s.checkEntries(entries); err != nil {
		return err
	}
	if err := s.resetCollection(ctx); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(e.Ordinal)),
			Vectors: qdrant.NewVectors(e.Embedding...),
			Payload: map[string]*qdrant.Value{
				payloadLanguage: qdrant.NewValueString(string(e.Language)),
			},
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collectionName,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// checkEntries rejects entries that do not fit the collection before anything is dropped.
func (s *QdrantStore) checkEntries(entries []knowledge.Entry) error {
	if len(entries) > 0 && s.vectorSize == 0 {
		return errors.New("vector size must be set to index entries")
	}
	for _, e := range entries {
		if uint64(len(e.Embedding)) != s.vectorSize {
			return fmt.Errorf("entry %d: %w: expected %d, got %d", e.Ordinal, knowledge.ErrDimensionMismatch, s.vectorSize, len(e.Embedding))
		}
	}
	return nil
}

// Search runs an exact (non-approximate) query so results are reproducible.
func (s *QdrantStore) Search(ctx context.Context, query []float32, limit int) ([]knowledge.Hit, error) {
	limit64 := uint64(limit)
	exact := true
	res, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collectionName,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit64,
		Params:         &qdrant.SearchParams{Exact: &exact},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	hits := make([]knowledge.Hit, len(res))
	for i, point := range res {
		hits[i] = knowledge.Hit{
			Ordinal: int(point.Id.GetNum()),
			Score:   point.Score,
		}
	}

	return hits, nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
