package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/llm"
)

var (
	// ErrEmbeddingService reports a failed query embedding.
	ErrEmbeddingService = errors.New("embedding service failed")
	// ErrGenerationService reports a failed supplementary answer generation.
	ErrGenerationService = errors.New("generation service failed")
)

// DefaultTemperature is the sampling temperature used for augmentation.
const DefaultTemperature = 0.3

// AugmentationStatus tells whether a supplementary answer was produced.
type AugmentationStatus string

const (
	AugmentNotRequested AugmentationStatus = "not_requested"
	AugmentSkipped      AugmentationStatus = "skipped"
	AugmentSucceeded    AugmentationStatus = "succeeded"
	AugmentFailed       AugmentationStatus = "failed"
)

// Query is one user question with its display language and augmentation opt-in.
type Query struct {
	Text     string
	Language knowledge.Language
	Augment  bool
}

// Result is the outcome of resolving a query.
type Result struct {
	Query    string
	Language knowledge.Language
	// Match is nil when no answer was found.
	Match         *knowledge.Match
	Supplementary string
	Augmentation  AugmentationStatus
	AugmentErr    error
}

// Found reports whether a primary answer exists.
func (r Result) Found() bool { return r.Match != nil }

// PrimaryAnswer returns the answer of the best match, or "".
func (r Result) PrimaryAnswer() string {
	if r.Match == nil {
		return ""
	}
	return r.Match.Entry.Answer
}

// Resolver answers queries from a knowledge base. It holds no per-call state.
type Resolver struct {
	kb          *knowledge.KnowledgeBase
	embedder    knowledge.Embedder
	generator   llm.Provider
	temperature float64
	topK        int
	prompts     map[knowledge.Language]PromptTemplate
	debug       bool
}

// Option is a function that configures a Resolver.
type Option func(*Resolver)

// WithGenerator sets the text-generation service used by Augment.
func WithGenerator(p llm.Provider) Option {
	return func(r *Resolver) {
		r.generator = p
	}
}

// WithTemperature sets the augmentation temperature.
func WithTemperature(t float64) Option {
	return func(r *Resolver) {
		r.temperature = t
	}
}

// WithTopK sets how many neighbours are requested from the knowledge base.
// Only the first is used as the primary answer.
func WithTopK(k int) Option {
	return func(r *Resolver) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithPrompts overrides the grounding prompt of the given languages.
func WithPrompts(prompts map[knowledge.Language]PromptTemplate) Option {
	return func(r *Resolver) {
		for lang, tmpl := range prompts {
			r.prompts[lang] = tmpl
		}
	}
}

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(r *Resolver) {
		r.debug = enable
	}
}

// New creates a Resolver over a ready knowledge base.
func New(kb *knowledge.KnowledgeBase, embedder knowledge.Embedder, opts ...Option) *Resolver {
	r := &Resolver{
		kb:          kb,
		embedder:    embedder,
		temperature: DefaultTemperature,
		topK:        1,
		prompts:     make(map[knowledge.Language]PromptTemplate, len(defaultPrompts)),
	}
	for lang, tmpl := range defaultPrompts {
		r.prompts[lang] = tmpl
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve finds the stored answer closest to the query. The search covers the
// whole knowledge base; lang only labels the result. A blank query returns an
// empty result without calling any service.
func (r *Resolver) Resolve(ctx context.Context, query string, lang knowledge.Language) (Result, error) {
	res := Result{Query: query, Language: lang, Augmentation: AugmentNotRequested}

	q := strings.TrimSpace(query)
	if q == "" {
		return res, nil
	}
	res.Query = q

	if r.debug {
		slog.Info("Resolve started", "query", q, "lang", lang)
	}

	vectors, err := r.embedder.Embed(ctx, []string{q})
	if err != nil {
		if r.debug {
			slog.Error("Query embedding failed", "error", err)
		}
		return res, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	if len(vectors) != 1 {
		return res, fmt.Errorf("%w: expected 1 vector, got %d", ErrEmbeddingService, len(vectors))
	}

	matches, err := r.kb.NearestNeighbor(ctx, vectors[0], r.topK)
	if err != nil {
		return res, fmt.Errorf("nearest neighbor lookup: %w", err)
	}

	if len(matches) > 0 {
		best := matches[0]
		res.Match = &best
		if r.debug {
			slog.Info("Resolve matched", "ordinal", best.Entry.Ordinal, "score", best.Score)
		}
	} else if r.debug {
		slog.Info("Resolve found no match")
	}

	return res, nil
}

// Augment asks the generation service for a supplementary answer grounded in
// the primary answer. The returned text is the completion, trimmed.
func (r *Resolver) Augment(ctx context.Context, query, primaryAnswer string, lang knowledge.Language) (string, error) {
	if r.generator == nil {
		return "", fmt.Errorf("%w: no generator configured", ErrGenerationService)
	}

	tmpl, ok := r.prompts[lang]
	if !ok {
		tmpl = r.prompts[knowledge.LanguageSimplifiedChinese]
	}
	prompt, err := renderPrompt(tmpl, strings.TrimSpace(query), primaryAnswer)
	if err != nil {
		return "", fmt.Errorf("%w: render prompt: %w", ErrGenerationService, err)
	}

	resp, err := r.generator.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.WithTemperature(r.temperature))
	if err != nil {
		if r.debug {
			slog.Error("Augmentation failed", "error", err)
		}
		return "", fmt.Errorf("%w: %w", ErrGenerationService, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", ErrGenerationService)
	}
	return text, nil
}

// Answer resolves the query and, when requested and a primary answer exists,
// augments it. A failed augmentation is recorded on the result and never
// discards the primary answer.
func (r *Resolver) Answer(ctx context.Context, q Query) (Result, error) {
	res, err := r.Resolve(ctx, q.Text, q.Language)
	if err != nil {
		return res, err
	}
	if !q.Augment {
		return res, nil
	}
	if !res.Found() {
		res.Augmentation = AugmentSkipped
		return res, nil
	}

	text, err := r.Augment(ctx, res.Query, res.PrimaryAnswer(), q.Language)
	if err != nil {
		res.Augmentation = AugmentFailed
		res.AugmentErr = err
		return res, nil
	}

	res.Supplementary = text
	res.Augmentation = AugmentSucceeded
	return res, nil
}
