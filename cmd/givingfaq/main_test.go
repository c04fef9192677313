package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/knowledge/flat"
	"github.com/barekit/givingfaq/pkg/store/file"
)

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge.json")
	snap := &knowledge.Snapshot{
		Model:     "test-embedding",
		Dimension: 2,
		BuiltAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Entries: []knowledge.Entry{
			{Ordinal: 0, Question: "如何奉献？", Answer: "可以在线奉献。", Language: knowledge.LanguageSimplifiedChinese, Embedding: []float32{1, 0}},
			{Ordinal: 1, Question: "How do I give?", Answer: "Give online.", Language: knowledge.LanguageEnglish, Embedding: []float32{0, 1}},
			{Ordinal: 2, Question: "Is giving tax deductible?", Answer: "Yes.", Language: knowledge.LanguageEnglish, Embedding: []float32{1, 1}},
		},
	}
	if err := file.New(path).Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout, _, err := runSplit(t, args...)
	return stdout, err
}

func runSplit(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestList(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIVINGFAQ_STORE_CONNECTION_STRING", writeSnapshot(t))

	out, err := run(t, "list", "--lang", "en")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Q1: How do I give?") || !strings.Contains(out, "Q2: Is giving tax deductible?") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if strings.Contains(out, "如何奉献") {
		t.Errorf("other partitions should not be listed:\n%s", out)
	}
}

func TestList_EmptyPartition(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIVINGFAQ_STORE_CONNECTION_STRING", writeSnapshot(t))

	out, err := run(t, "list", "--lang", "zh-TW")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No questions for 中文(繁)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestList_UnknownLanguage(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIVINGFAQ_STORE_CONNECTION_STRING", writeSnapshot(t))

	if _, err := run(t, "list", "--lang", "fr"); err == nil {
		t.Fatal("expected error for unknown language")
	}
}

func TestList_MissingSnapshot(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIVINGFAQ_STORE_CONNECTION_STRING", filepath.Join(t.TempDir(), "missing.json"))

	_, err := run(t, "list")
	var loadErr *knowledge.LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *knowledge.LoadError, got %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIVINGFAQ_STORE_TYPE", "cassandra")

	_, err := run(t, "list")
	if err == nil || !strings.Contains(err.Error(), "unknown store type") {
		t.Fatalf("expected config validation error, got %v", err)
	}
}

func TestServe_InvalidServerMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GIVINGFAQ_STORE_CONNECTION_STRING", writeSnapshot(t))
	t.Setenv("GIVINGFAQ_SERVER_MODE", "production")

	_, err := run(t, "serve")
	if err == nil || !strings.Contains(err.Error(), "unknown server mode") {
		t.Fatalf("expected server mode validation error, got %v", err)
	}
}

func TestServingEmbeddingModel(t *testing.T) {
	path := writeSnapshot(t)
	kb, err := knowledge.Load(context.Background(), file.New(path), flat.NewIndex)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := servingEmbeddingModel("", kb); got != "test-embedding" {
		t.Errorf("expected the knowledge base model, got %q", got)
	}
	if got := servingEmbeddingModel("other-model", kb); got != "other-model" {
		t.Errorf("expected the configured model, got %q", got)
	}
}
