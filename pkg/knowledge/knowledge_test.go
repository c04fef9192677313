package knowledge_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/knowledge/flat"
)

// hashEmbedder derives a deterministic 4-dimensional vector from the text.
type hashEmbedder struct {
	calls int
	err   error
	dims  map[string]int
}

func (h *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		dim := 4
		if d, ok := h.dims[text]; ok {
			dim = d
		}
		vec := make([]float32, dim)
		for j, r := range text {
			vec[j%dim] += float32(r%17) + 1
		}
		out[i] = vec
	}
	return out, nil
}

func sampleRows() []knowledge.Row {
	return []knowledge.Row{
		{Question: "如何奉献？", Answer: "使用 Church Center。", Language: "zh"},
		{Question: "How do I give?", Answer: "Use Church Center.", Language: "en"},
		{Question: "如何奉獻？", Answer: "使用 Church Center。", Language: "zh-TW"},
		{Question: "Can I give monthly?", Answer: "Yes, set up recurring giving.", Language: "EN"},
		{Question: "可以每月奉献吗？", Answer: "可以，设定定期奉献。", Language: "zh"},
	}
}

func buildKB(t *testing.T, rows []knowledge.Row) *knowledge.KnowledgeBase {
	t.Helper()
	snap, err := knowledge.Build(context.Background(), rows, &hashEmbedder{}, "hash")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	kb, err := knowledge.New(snap, flat.New(snap.Entries))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return kb
}

func TestBuild_RoundTrip(t *testing.T) {
	rows := []knowledge.Row{{Question: "How do I give?", Answer: "Use Church Center.", Language: "en"}}
	snap, err := knowledge.Build(context.Background(), rows, &hashEmbedder{}, "hash")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := append([]float32(nil), snap.Entries[0].Embedding...)

	store := &memStore{}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	kb, err := knowledge.Load(context.Background(), store, flat.NewIndex)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := kb.FilterByLanguage(knowledge.LanguageEnglish)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Question != "How do I give?" || got[0].Answer != "Use Church Center." {
		t.Errorf("entry changed: %+v", got[0])
	}
	if !reflect.DeepEqual(got[0].Embedding, want) {
		t.Errorf("embedding changed: %v != %v", got[0].Embedding, want)
	}
}

func TestBuild_EmbedsQuestionAndAnswer(t *testing.T) {
	rec := &recordingEmbedder{}
	_, err := knowledge.Build(context.Background(), []knowledge.Row{
		{Question: " Q1 ", Answer: "A1", Language: "en"},
	}, rec, "rec")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(rec.texts) != 1 || rec.texts[0] != "Q1 A1" {
		t.Errorf("unexpected embedded texts: %q", rec.texts)
	}
}

func TestBuild_Batches(t *testing.T) {
	rows := make([]knowledge.Row, knowledge.DefaultBatchSize*2+1)
	for i := range rows {
		rows[i] = knowledge.Row{Question: fmt.Sprintf("q%d", i), Answer: "a", Language: "en"}
	}
	emb := &hashEmbedder{}
	snap, err := knowledge.Build(context.Background(), rows, emb, "hash")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if emb.calls != 3 {
		t.Errorf("expected 3 embed calls, got %d", emb.calls)
	}
	for i, e := range snap.Entries {
		if e.Ordinal != i {
			t.Fatalf("entry %d has ordinal %d", i, e.Ordinal)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		rows []knowledge.Row
		emb  *hashEmbedder
		want string
	}{
		{
			name: "empty answer",
			rows: []knowledge.Row{{Question: "q", Answer: " ", Language: "en"}},
			emb:  &hashEmbedder{},
			want: "row 1",
		},
		{
			name: "unknown language",
			rows: []knowledge.Row{{Question: "q", Answer: "a", Language: "en"}, {Question: "q", Answer: "a", Language: "fr"}},
			emb:  &hashEmbedder{},
			want: "row 2",
		},
		{
			name: "embedding failure",
			rows: []knowledge.Row{{Question: "q", Answer: "a", Language: "en"}},
			emb:  &hashEmbedder{err: errors.New("boom")},
			want: "boom",
		},
		{
			name: "inconsistent dimension",
			rows: []knowledge.Row{{Question: "q", Answer: "a", Language: "en"}, {Question: "q2", Answer: "a", Language: "en"}},
			emb:  &hashEmbedder{dims: map[string]int{"q2 a": 3}},
			want: "dimension mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := knowledge.Build(context.Background(), tt.rows, tt.emb, "hash")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestFilterByLanguage_IsPartition(t *testing.T) {
	kb := buildKB(t, sampleRows())

	seen := make(map[int]int)
	total := 0
	for _, lang := range knowledge.Languages() {
		part := kb.FilterByLanguage(lang)
		for i, e := range part {
			if e.Language != lang {
				t.Errorf("%s partition holds %s entry", lang, e.Language)
			}
			if i > 0 && part[i-1].Ordinal >= e.Ordinal {
				t.Errorf("%s partition not in ingestion order", lang)
			}
			seen[e.Ordinal]++
		}
		total += len(part)
	}

	if total != kb.Len() {
		t.Errorf("partitions hold %d entries, knowledge base %d", total, kb.Len())
	}
	for ord, n := range seen {
		if n != 1 {
			t.Errorf("entry %d seen %d times", ord, n)
		}
	}

	zh := kb.FilterByLanguage(knowledge.LanguageSimplifiedChinese)
	if len(zh) != 2 || zh[0].Ordinal != 0 || zh[1].Ordinal != 4 {
		t.Errorf("unexpected zh partition: %+v", zh)
	}
}

func TestFilterByLanguage_EmptyPartition(t *testing.T) {
	kb := buildKB(t, []knowledge.Row{{Question: "q", Answer: "a", Language: "en"}})

	if got := kb.FilterByLanguage(knowledge.LanguageTraditionalChinese); len(got) != 0 {
		t.Errorf("expected empty partition, got %+v", got)
	}
}

func TestNearestNeighbor_Deterministic(t *testing.T) {
	kb := buildKB(t, sampleRows())
	query := []float32{3, 1, 4, 1}

	first, err := kb.NearestNeighbor(context.Background(), query, 3)
	if err != nil {
		t.Fatalf("NearestNeighbor failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Score < first[i].Score {
			t.Errorf("matches not ordered by score: %+v", first)
		}
	}

	second, err := kb.NearestNeighbor(context.Background(), query, 3)
	if err != nil {
		t.Fatalf("NearestNeighbor failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls")
	}
}

func TestNearestNeighbor_ReordersExternalHits(t *testing.T) {
	entries := []knowledge.Entry{
		{Ordinal: 0, Question: "q0", Answer: "a0", Language: "en", Embedding: []float32{1}},
		{Ordinal: 1, Question: "q1", Answer: "a1", Language: "en", Embedding: []float32{1}},
		{Ordinal: 2, Question: "q2", Answer: "a2", Language: "en", Embedding: []float32{1}},
	}
	store := fixedStore{hits: []knowledge.Hit{{Ordinal: 2, Score: 0.5}, {Ordinal: 1, Score: 0.9}, {Ordinal: 0, Score: 0.9}}}
	kb, err := knowledge.New(&knowledge.Snapshot{Dimension: 1, Entries: entries}, store)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	matches, err := kb.NearestNeighbor(context.Background(), []float32{1}, 2)
	if err != nil {
		t.Fatalf("NearestNeighbor failed: %v", err)
	}
	if len(matches) != 2 || matches[0].Entry.Ordinal != 0 || matches[1].Entry.Ordinal != 1 {
		t.Errorf("unexpected order: %+v", matches)
	}
}

func TestNearestNeighbor_Errors(t *testing.T) {
	kb := buildKB(t, sampleRows())

	if _, err := kb.NearestNeighbor(context.Background(), []float32{1, 2}, 1); !errors.Is(err, knowledge.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}

	entries := []knowledge.Entry{{Ordinal: 0, Question: "q", Answer: "a", Language: "en", Embedding: []float32{1}}}
	stale, err := knowledge.New(&knowledge.Snapshot{Dimension: 1, Entries: entries}, fixedStore{hits: []knowledge.Hit{{Ordinal: 7}}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := stale.NearestNeighbor(context.Background(), []float32{1}, 1); err == nil {
		t.Error("expected error for unknown ordinal")
	}
}

func TestNearestNeighbor_EmptyKnowledgeBase(t *testing.T) {
	kb, err := knowledge.New(&knowledge.Snapshot{}, flat.New(nil))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	matches, err := kb.NearestNeighbor(context.Background(), []float32{1, 2, 3}, 1)
	if err != nil || len(matches) != 0 {
		t.Errorf("expected empty result, got %+v, %v", matches, err)
	}
}

func TestLoad_Errors(t *testing.T) {
	valid := func() *knowledge.Snapshot {
		return &knowledge.Snapshot{Dimension: 2, Entries: []knowledge.Entry{
			{Ordinal: 0, Question: "q", Answer: "a", Language: "en", Embedding: []float32{1, 2}},
		}}
	}

	tests := []struct {
		name   string
		mutate func(*knowledge.Snapshot)
		err    error
	}{
		{name: "missing", err: knowledge.ErrNotFound},
		{name: "dimension mismatch", mutate: func(s *knowledge.Snapshot) { s.Entries[0].Embedding = []float32{1} }},
		{name: "zero dimension", mutate: func(s *knowledge.Snapshot) { s.Dimension = 0 }},
		{name: "bad ordinal", mutate: func(s *knowledge.Snapshot) { s.Entries[0].Ordinal = 3 }},
		{name: "unknown language", mutate: func(s *knowledge.Snapshot) { s.Entries[0].Language = "de" }},
		{name: "empty answer", mutate: func(s *knowledge.Snapshot) { s.Entries[0].Answer = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			if tt.mutate != nil {
				snap := valid()
				tt.mutate(snap)
				store.snap = snap
			}

			_, err := knowledge.Load(context.Background(), store, flat.NewIndex)
			var loadErr *knowledge.LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]knowledge.Language{
		"zh":    knowledge.LanguageSimplifiedChinese,
		"ZH":    knowledge.LanguageSimplifiedChinese,
		"zh-TW": knowledge.LanguageTraditionalChinese,
		"zh_tw": knowledge.LanguageTraditionalChinese,
		" en ":  knowledge.LanguageEnglish,
	}
	for in, want := range tests {
		got, err := knowledge.ParseLanguage(in)
		if err != nil || got != want {
			t.Errorf("ParseLanguage(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := knowledge.ParseLanguage("zh-HK"); err == nil {
		t.Error("expected error for zh-HK")
	}
	if knowledge.LanguageTraditionalChinese.Label() != "中文(繁)" {
		t.Errorf("unexpected label %q", knowledge.LanguageTraditionalChinese.Label())
	}
}

type memStore struct {
	snap *knowledge.Snapshot
}

func (m *memStore) Save(ctx context.Context, snap *knowledge.Snapshot) error {
	m.snap = snap
	return nil
}

func (m *memStore) Load(ctx context.Context) (*knowledge.Snapshot, error) {
	if m.snap == nil {
		return nil, knowledge.ErrNotFound
	}
	return m.snap, nil
}

type fixedStore struct {
	hits []knowledge.Hit
}

func (f fixedStore) Upsert(ctx context.Context, entries []knowledge.Entry) error { return nil }

func (f fixedStore) Search(ctx context.Context, query []float32, limit int) ([]knowledge.Hit, error) {
	out := make([]knowledge.Hit, len(f.hits))
	copy(out, f.hits)
	return out, nil
}

type recordingEmbedder struct {
	texts []string
}

func (r *recordingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	r.texts = append(r.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func TestKnowledgeBase_ReturnedEntriesAreCopies(t *testing.T) {
	snap, err := knowledge.Build(context.Background(), sampleRows(), &hashEmbedder{}, "hash")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	kb, err := knowledge.New(snap, flat.New(snap.Entries))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	want := kb.Entries()

	snap.Entries[1].Embedding[0] = 42
	kb.FilterByLanguage(knowledge.LanguageEnglish)[0].Embedding[0] = 42
	kb.Entries()[1].Embedding[1] = 42
	matches, err := kb.NearestNeighbor(context.Background(), want[1].Embedding, 1)
	if err != nil || len(matches) != 1 {
		t.Fatalf("NearestNeighbor: %v, %d matches", err, len(matches))
	}
	matches[0].Entry.Embedding[2] = 42

	if got := kb.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("knowledge base changed through a returned entry:\n got %v\nwant %v", got[1].Embedding, want[1].Embedding)
	}
}
