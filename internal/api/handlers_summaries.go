package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

const listLimit = 200

// storeUser returns the user_id query parameter, answering the request
// itself when the store or the parameter is missing.
func (s *Server) storeUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.store == nil {
		jsonError(w, "summary store not configured", http.StatusServiceUnavailable)
		return "", false
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		jsonError(w, "user_id query parameter is required", http.StatusBadRequest)
		return "", false
	}
	return userID, true
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.storeUser(w, r)
	if !ok {
		return
	}
	summaries, err := s.store.ListSummaries(r.Context(), userID, listLimit)
	if err != nil {
		s.log.Error("list summaries failed", "user_id", userID, "error", err)
		jsonError(w, "failed to list summaries: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.storeUser(w, r)
	if !ok {
		return
	}
	summary, err := s.store.GetSummary(r.Context(), userID, chi.URLParam(r, "docID"))
	if err != nil {
		jsonError(w, "failed to get summary: "+err.Error(), http.StatusBadGateway)
		return
	}
	if summary == nil {
		jsonError(w, "summary not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDeleteSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.storeUser(w, r)
	if !ok {
		return
	}
	docID := chi.URLParam(r, "docID")
	if err := s.store.DeleteSummary(r.Context(), userID, docID); err != nil {
		s.log.Error("delete summary failed", "user_id", userID, "doc_id", docID, "error", err)
		jsonError(w, "failed to delete summary: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "deleted": true})
}
