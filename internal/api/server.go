package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/capdigest/internal/config"
	"github.com/dgallion1/capdigest/internal/llm"
	"github.com/dgallion1/capdigest/internal/pathstore"
	"github.com/dgallion1/capdigest/internal/pipeline"
)

// SummaryStore keeps published summaries per user.
type SummaryStore interface {
	ListSummaries(ctx context.Context, userID string, limit int) ([]pathstore.Summary, error)
	GetSummary(ctx context.Context, userID, docID string) (*pathstore.Summary, error)
	DeleteSummary(ctx context.Context, userID, docID string) error
}

// Server is the HTTP API server for capdigest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	llm          *llm.Client
	store        SummaryStore
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. llmClient and store may
// be nil; the endpoints that need them then answer 503.
func NewServer(orch *pipeline.Orchestrator, llmClient *llm.Client, store SummaryStore, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		llm:          llmClient,
		store:        store,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/summarize", s.handleSummarize)

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/summary", s.handleIngestSummary)

		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/summaries", s.handleListSummaries)
		r.Get("/api/summaries/{docID}", s.handleGetSummary)
		r.Delete("/api/summaries/{docID}", s.handleDeleteSummary)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
