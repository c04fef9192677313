package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/store/consts"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const knowledgeBaseID = "current"

type Neo4jStore struct {
	driver neo4j.DriverWithContext
	dbName string
}

// New creates a new Neo4jStore adapter.
func New(uri, username, password, dbName string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	return &Neo4jStore{
		driver: driver,
		dbName: dbName,
	}, nil
}

// Save replaces the knowledge base node and its entries in one write transaction.
func (s *Neo4jStore) Save(ctx context.Context, snap *knowledge.Snapshot) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	entries := make([]map[string]any, len(snap.Entries))
	for i, e := range snap.Entries {
		vec := make([]float64, len(e.Embedding))
		for j, v := range e.Embedding {
			vec[j] = float64(v)
		}
		entries[i] = map[string]any{
			consts.ColOrdinal:   int64(e.Ordinal),
			consts.ColQuestion:  e.Question,
			consts.ColAnswer:    e.Answer,
			consts.ColLanguage:  string(e.Language),
			consts.ColEmbedding: vec,
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		queryClear := fmt.Sprintf(`
		MATCH (kb:%s {id: $id})
		OPTIONAL MATCH (kb)-[:%s]->(e:%s)
		DETACH DELETE kb, e
		`, consts.LabelKnowledgeBase, consts.RelHasEntry, consts.LabelEntry)
		if _, err := tx.Run(ctx, queryClear, map[string]any{"id": knowledgeBaseID}); err != nil {
			return nil, err
		}

		queryCreate := fmt.Sprintf(`
		CREATE (kb:%s {id: $id, %s: $model, %s: $dimension, %s: $builtAt})
		WITH kb
		UNWIND $entries AS row
		CREATE (e:%s)
		SET e = row
		CREATE (kb)-[:%s]->(e)
		`, consts.LabelKnowledgeBase, consts.ColModel, consts.ColDimension, consts.ColBuiltAt,
			consts.LabelEntry, consts.RelHasEntry)

		params := map[string]any{
			"id":        knowledgeBaseID,
			"model":     snap.Model,
			"dimension": int64(snap.Dimension),
			"builtAt":   snap.BuiltAt,
			"entries":   entries,
		}
		_, err := tx.Run(ctx, queryCreate, params)
		return nil, err
	})

	return err
}

func (s *Neo4jStore) Load(ctx context.Context) (*knowledge.Snapshot, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.dbName})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		queryMeta := fmt.Sprintf(`
		MATCH (kb:%s {id: $id})
		RETURN kb.%s AS model, kb.%s AS dimension, kb.%s AS builtAt
		`, consts.LabelKnowledgeBase, consts.ColModel, consts.ColDimension, consts.ColBuiltAt)

		metaRes, err := tx.Run(ctx, queryMeta, map[string]any{"id": knowledgeBaseID})
		if err != nil {
			return nil, err
		}
		if !metaRes.Next(ctx) {
			if err := metaRes.Err(); err != nil {
				return nil, err
			}
			return nil, knowledge.ErrNotFound
		}
		record := metaRes.Record()

		snap := &knowledge.Snapshot{}
		if v, ok := record.Get("model"); ok && v != nil {
			snap.Model, _ = v.(string)
		}
		if v, ok := record.Get("dimension"); ok && v != nil {
			d, _ := v.(int64)
			snap.Dimension = int(d)
		}
		if v, ok := record.Get("builtAt"); ok && v != nil {
			snap.BuiltAt, _ = v.(time.Time)
		}

		queryEntries := fmt.Sprintf(`
		MATCH (kb:%s {id: $id})-[:%s]->(e:%s)
		RETURN e.%s AS ordinal, e.%s AS question, e.%s AS answer, e.%s AS lang, e.%s AS embedding
		ORDER BY e.%s ASC
		`, consts.LabelKnowledgeBase, consts.RelHasEntry, consts.LabelEntry,
			consts.ColOrdinal, consts.ColQuestion, consts.ColAnswer, consts.ColLanguage, consts.ColEmbedding,
			consts.ColOrdinal)

		entryRes, err := tx.Run(ctx, queryEntries, map[string]any{"id": knowledgeBaseID})
		if err != nil {
			return nil, err
		}

		for entryRes.Next(ctx) {
			rec := entryRes.Record()

			ordinal, _ := rec.Get("ordinal")
			question, _ := rec.Get("question")
			answer, _ := rec.Get("answer")
			lang, _ := rec.Get("lang")
			embedding, _ := rec.Get("embedding")

			raw, _ := embedding.([]any)
			vec := make([]float32, len(raw))
			for i, x := range raw {
				f, ok := x.(float64)
				if !ok {
					return nil, fmt.Errorf("entry %v: embedding element %d is %T", ordinal, i, x)
				}
				vec[i] = float32(f)
			}

			ord, _ := ordinal.(int64)
			q, _ := question.(string)
			a, _ := answer.(string)
			l, _ := lang.(string)
			snap.Entries = append(snap.Entries, knowledge.Entry{
				Ordinal:   int(ord),
				Question:  q,
				Answer:    a,
				Language:  knowledge.Language(l),
				Embedding: vec,
			})
		}
		if err := entryRes.Err(); err != nil {
			return nil, err
		}

		return snap, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*knowledge.Snapshot), nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
