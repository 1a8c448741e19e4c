package api

import (
	"net/http"

	"github.com/contract-scanner/internal/errors"
)

// handleUsage returns the calling account's current quota consumption.
// Read-only, never charges quota.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	account := AccountFromContext(r.Context())

	stats, err := s.admission.Usage(r.Context(), account)
	if err != nil {
		respondCategorizedError(w, errors.NewStoreError("usage query", err))
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
