package gorm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/store/consts"
	"gorm.io/gorm"
)

// Store implements knowledge.Store using GORM.
type Store struct {
	db *gorm.DB
}

// EntryModel represents the database schema for an entry.
type EntryModel struct {
	Ordinal   int `gorm:"primaryKey;autoIncrement:false"`
	Question  string
	Answer    string
	Language  string `gorm:"column:lang;index"`
	Embedding []byte // little-endian float32
}

// TableName overrides the table name.
func (EntryModel) TableName() string {
	return consts.TableNameEntries
}

// MetadataModel holds the single metadata row of the snapshot.
type MetadataModel struct {
	ID        uint `gorm:"primaryKey"`
	Model     string
	Dimension int
	BuiltAt   time.Time
}

// TableName overrides the table name.
func (MetadataModel) TableName() string {
	return consts.TableNameMetadata
}

// New creates a new Store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&EntryModel{}, &MetadataModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the stored snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snap *knowledge.Snapshot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&EntryModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear entries: %w", err)
		}
		if err := all.Delete(&MetadataModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear metadata: %w", err)
		}

		meta := MetadataModel{ID: 1, Model: snap.Model, Dimension: snap.Dimension, BuiltAt: snap.BuiltAt}
		if err := tx.Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to save metadata: %w", err)
		}
		if len(snap.Entries) == 0 {
			return nil
		}

		models := make([]EntryModel, len(snap.Entries))
		for i, e := range snap.Entries {
			models[i] = EntryModel{
				Ordinal:   e.Ordinal,
				Question:  e.Question,
				Answer:    e.Answer,
				Language:  string(e.Language),
				Embedding: floatsToBytes(e.Embedding),
			}
		}
		if err := tx.CreateInBatches(models, 100).Error; err != nil {
			return fmt.Errorf("failed to save entries: %w", err)
		}
		return nil
	})
}

// Load loads the snapshot from the database.
func (s *Store) Load(ctx context.Context) (*knowledge.Snapshot, error) {
	var meta MetadataModel
	if err := s.db.WithContext(ctx).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, knowledge.ErrNotFound
		}
		return nil, err
	}

	var models []EntryModel
	if err := s.db.WithContext(ctx).Order(consts.ColOrdinal + " asc").Find(&models).Error; err != nil {
		return nil, err
	}

	snap := &knowledge.Snapshot{
		Model:     meta.Model,
		Dimension: meta.Dimension,
		BuiltAt:   meta.BuiltAt,
		Entries:   make([]knowledge.Entry, len(models)),
	}
	for i, m := range models {
		vec, err := bytesToFloats(m.Embedding)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", m.Ordinal, err)
		}
		snap.Entries[i] = knowledge.Entry{
			Ordinal:   m.Ordinal,
			Question:  m.Question,
			Answer:    m.Answer,
			Language:  knowledge.Language(m.Language),
			Embedding: vec,
		}
	}

	return snap, nil
}

func floatsToBytes(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func bytesToFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding: %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
