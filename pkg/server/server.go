package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/barekit/givingfaq/pkg/knowledge"
	"github.com/barekit/givingfaq/pkg/resolver"
	"github.com/gin-gonic/gin"
)

// Server exposes the knowledge base and the resolver over HTTP.
type Server struct {
	kb       *knowledge.KnowledgeBase
	resolver *resolver.Resolver
	debug    bool
}

// New creates a Server. kb and res must share the same knowledge base.
func New(kb *knowledge.KnowledgeBase, res *resolver.Resolver, debug bool) *Server {
	return &Server{kb: kb, resolver: res, debug: debug}
}

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// LanguageItem describes one selectable language.
type LanguageItem struct {
	Tag   knowledge.Language `json:"tag"`
	Label string             `json:"label"`
}

// FAQItem is one numbered question of a language partition.
type FAQItem struct {
	Number   int    `json:"number"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FAQList is the question list of one language.
type FAQList struct {
	Language knowledge.Language `json:"lang"`
	Items    []FAQItem          `json:"items"`
}

// AnswerRequest asks a question.
type AnswerRequest struct {
	Query   string `json:"query"`
	Lang    string `json:"lang"`
	Augment bool   `json:"augment"`
}

// AnswerResponse carries the primary and the supplementary answer.
type AnswerResponse struct {
	Query         string                      `json:"query"`
	Found         bool                        `json:"found"`
	Question      string                      `json:"question,omitempty"`
	Answer        string                      `json:"answer,omitempty"`
	Score         float32                     `json:"score,omitempty"`
	Supplementary string                      `json:"supplementary,omitempty"`
	Augmentation  resolver.AugmentationStatus `json:"augmentation"`
	AugmentError  string                      `json:"augment_error,omitempty"`
}

// Handler builds the gin engine.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.debug {
		r.Use(gin.Logger())
	}

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	api.GET("/languages", s.languages)
	api.GET("/faqs", s.faqs)
	api.POST("/answer", s.answer)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "entries": s.kb.Len()})
}

func (s *Server) languages(c *gin.Context) {
	langs := knowledge.Languages()
	items := make([]LanguageItem, len(langs))
	for i, l := range langs {
		items[i] = LanguageItem{Tag: l, Label: l.Label()}
	}
	c.JSON(http.StatusOK, Response{Data: items})
}

func (s *Server) faqs(c *gin.Context) {
	lang, err := knowledge.ParseLanguage(c.DefaultQuery("lang", string(knowledge.LanguageSimplifiedChinese)))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error(), Kind: "invalid_request"})
		return
	}

	entries := s.kb.FilterByLanguage(lang)
	items := make([]FAQItem, len(entries))
	for i, e := range entries {
		items[i] = FAQItem{Number: i + 1, Question: e.Question, Answer: e.Answer}
	}
	c.JSON(http.StatusOK, Response{Data: FAQList{Language: lang, Items: items}})
}

func (s *Server) answer(c *gin.Context) {
	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: err.Error(), Kind: "invalid_request"})
		return
	}

	lang := knowledge.LanguageSimplifiedChinese
	if req.Lang != "" {
		parsed, err := knowledge.ParseLanguage(req.Lang)
		if err != nil {
			c.JSON(http.StatusBadRequest, Response{Error: err.Error(), Kind: "invalid_request"})
			return
		}
		lang = parsed
	}

	res, err := s.resolver.Answer(c.Request.Context(), resolver.Query{
		Text:     req.Query,
		Language: lang,
		Augment:  req.Augment,
	})
	if err != nil {
		status, kind := http.StatusInternalServerError, "internal"
		if errors.Is(err, resolver.ErrEmbeddingService) {
			status, kind = http.StatusBadGateway, "embedding_service"
		}
		slog.Error("answer failed", "query", req.Query, "error", err)
		c.JSON(status, Response{Error: err.Error(), Kind: kind})
		return
	}

	resp := AnswerResponse{
		Query:         res.Query,
		Found:         res.Found(),
		Supplementary: res.Supplementary,
		Augmentation:  res.Augmentation,
	}
	if res.Match != nil {
		resp.Question = res.Match.Entry.Question
		resp.Answer = res.Match.Entry.Answer
		resp.Score = res.Match.Score
	}
	if res.AugmentErr != nil {
		resp.AugmentError = res.AugmentErr.Error()
		slog.Warn("augmentation failed", "query", req.Query, "error", res.AugmentErr)
	}

	c.JSON(http.StatusOK, Response{Data: resp})
}
