package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.llm == nil || s.llm.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider":    s.llm.Provider(),
		"model":       s.llm.Model(),
		"stats":       s.llm.Stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
