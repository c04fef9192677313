package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/store/consts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const metadataID = "current"

type MongoStore struct {
	client   *mongo.Client
	entries  *mongo.Collection
	metadata *mongo.Collection
}

type EntryDoc struct {
	Ordinal   int       `bson:"ordinal"`
	Question  string    `bson:"question"`
	Answer    string    `bson:"answer"`
	Language  string    `bson:"lang"`
	Embedding []float32 `bson:"embedding"`
}

type MetadataDoc struct {
	ID        string    `bson:"_id"`
	Model     string    `bson:"model"`
	Dimension int       `bson:"dimension"`
	BuiltAt   time.Time `bson:"built_at"`
}

// New creates a new MongoStore adapter.
func New(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		entries:  db.Collection(consts.TableNameEntries),
		metadata: db.Collection(consts.TableNameMetadata),
	}
}

// Save replaces all entry documents and the metadata document.
// MongoDB without a replica set has no multi-document transactions, so the
// metadata is written last and acts as the commit marker.
func (m *MongoStore) Save(ctx context.Context, snap *knowledge.Snapshot) error {
	if _, err := m.metadata.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	if _, err := m.entries.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}

	if len(snap.Entries) > 0 {
		docs := make([]interface{}, len(snap.Entries))
		for i, e := range snap.Entries {
			docs[i] = EntryDoc{
				Ordinal:   e.Ordinal,
				Question:  e.Question,
				Answer:    e.Answer,
				Language:  string(e.Language),
				Embedding: e.Embedding,
			}
		}
		if _, err := m.entries.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert entries: %w", err)
		}
	}

	_, err := m.metadata.InsertOne(ctx, MetadataDoc{
		ID:        metadataID,
		Model:     snap.Model,
		Dimension: snap.Dimension,
		BuiltAt:   snap.BuiltAt,
	})
	return err
}

func (m *MongoStore) Load(ctx context.Context) (*knowledge.Snapshot, error) {
	var meta MetadataDoc
	err := m.metadata.FindOne(ctx, bson.M{"_id": metadataID}).Decode(&meta)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, knowledge.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.M{consts.ColOrdinal: 1})
	cursor, err := m.entries.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	snap := &knowledge.Snapshot{
		Model:     meta.Model,
		Dimension: meta.Dimension,
		BuiltAt:   meta.BuiltAt,
	}
	for cursor.Next(ctx) {
		var doc EntryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		snap.Entries = append(snap.Entries, knowledge.Entry{
			Ordinal:   doc.Ordinal,
			Question:  doc.Question,
			Answer:    doc.Answer,
			Language:  knowledge.Language(doc.Language),
			Embedding: doc.Embedding,
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, err
	}

	return snap, nil
}
