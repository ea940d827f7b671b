package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dgallion1/capdigest/internal/pipeline"
	"github.com/dgallion1/capdigest/internal/prompt"
	"github.com/dgallion1/capdigest/internal/summarize"
)

type summarizeRequest struct {
	Text         string `json:"text"`
	MaxChunkSize *int   `json:"max_chunk_size,omitempty"`
	Style        string `json:"style,omitempty"`
	Normalize    bool   `json:"normalize,omitempty"`
}

type summarizeResponse struct {
	Summary         string `json:"summary"`
	Style           string `json:"style"`
	MaxChunkSize    int    `json:"max_chunk_size"`
	Chunks          int    `json:"chunks"`
	Calls           int    `json:"calls"`
	Levels          int    `json:"levels"`
	EstimatedTokens int    `json:"estimated_tokens"`
	ContentHash     string `json:"content_hash"`
	Cached          bool   `json:"cached"`
}

// handleSummarize summarizes the posted text before responding.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid json body: "+err.Error(), http.StatusBadRequest)
		return
	}

	maxSize := 0
	if req.MaxChunkSize != nil {
		if *req.MaxChunkSize <= 0 {
			jsonError(w, summarize.ErrInvalidInput.Error(), http.StatusBadRequest)
			return
		}
		maxSize = *req.MaxChunkSize
	}

	res, err := s.orchestrator.Worker().SummarizeText(r.Context(), pipeline.TextRequest{
		Text:         req.Text,
		Style:        prompt.ParseStyle(req.Style),
		MaxChunkSize: maxSize,
		Normalize:    req.Normalize,
	})
	if err != nil {
		code := errorStatus(err)
		s.log.Warn("summarize request failed", "status", code, "error", err)
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{
		Summary:         res.Summary,
		Style:           res.Style.String(),
		MaxChunkSize:    res.MaxChunkSize,
		Chunks:          res.Chunks,
		Calls:           res.Calls,
		Levels:          res.Levels,
		EstimatedTokens: res.EstimatedTokens,
		ContentHash:     res.ContentHash,
		Cached:          res.Cached,
	})
}

// errorStatus maps summarization errors to HTTP status codes.
func errorStatus(err error) int {
	var genErr *summarize.GenerationError
	switch {
	case errors.Is(err, summarize.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, summarize.ErrCancelled):
		return http.StatusRequestTimeout
	case errors.As(err, &genErr), errors.Is(err, summarize.ErrReductionStalled):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
