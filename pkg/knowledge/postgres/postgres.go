package postgres

import (
	"context"
	"fmt"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresStore implements knowledge.VectorStore using pgvector.
type PostgresStore struct {
	db *gorm.DB
}

// VectorModel is one indexed entry vector.
type VectorModel struct {
	Ordinal   int             `gorm:"primaryKey;autoIncrement:false"`
	Language  string          `gorm:"index"`
	Embedding pgvector.Vector `gorm:"type:vector"`
}

// TableName overrides the table name.
func (VectorModel) TableName() string {
	return "faq_vectors"
}

type scoredRow struct {
	Ordinal  int
	Distance float64
}

// New creates a new PostgresStore.
func New(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(&VectorModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Upsert replaces every stored vector with those of the entries.
func (s *PostgresStore) Upsert(ctx context.Context, entries []knowledge.Entry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&VectorModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear vectors: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		models := make([]VectorModel, len(entries))
		for i, e := range entries {
			models[i] = VectorModel{
				Ordinal:   e.Ordinal,
				Language:  string(e.Language),
				Embedding: pgvector.NewVector(e.Embedding),
			}
		}
		if err := tx.CreateInBatches(models, 100).Error; err != nil {
			return fmt.Errorf("failed to insert vectors: %w", err)
		}
		return nil
	})
}

// Search orders by cosine distance (<=>), breaking ties by ordinal.
func (s *PostgresStore) Search(ctx context.Context, query []float32, limit int) ([]knowledge.Hit, error) {
	var rows []scoredRow
	err := s.db.WithContext(ctx).
		Model(&VectorModel{}).
		Select("ordinal, embedding <=> ? AS distance", pgvector.NewVector(query)).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "distance"}},
			{Column: clause.Column{Name: "ordinal"}},
		}}).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	hits := make([]knowledge.Hit, len(rows))
	for i, r := range rows {
		hits[i] = knowledge.Hit{
			Ordinal: r.Ordinal,
			Score:   float32(1 - r.Distance),
		}
	}

	return hits, nil
}
