package api

import (
	"net/http"

	"github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/logging"
	"github.com/contract-scanner/internal/models"
)

// BatchScanRequest is the request body for batch scans.
type BatchScanRequest struct {
	Contracts []models.ScanRequest `json:"contracts"`
}

// handleScan admits and runs a single contract scan.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req models.ScanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	account := AccountFromContext(r.Context())

	decision, err := s.admission.Admit(r.Context(), account, []models.ScanRequest{req})
	if err != nil {
		respondCategorizedError(w, err)
		return
	}
	if !decision.Allowed {
		respondCategorizedError(w, errors.NewQuotaExceededError(
			decision.Tier, decision.Scope, decision.Reason, decision.ResetTime))
		return
	}

	// Quota is charged at this point and stays charged even if the scan fails.
	result, err := s.orchestrator.ScanOne(r.Context(), req)
	if err != nil {
		entry := logging.WithFields(map[string]interface{}{
			"address": req.ContractAddress,
			"chain":   req.Chain,
		}).WithError(err)
		if errors.IsUserError(err) {
			entry.Warn("Scan rejected after admission")
		} else {
			entry.Error("Scan failed after admission")
		}
		respondCategorizedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleBatchScan admits and runs a batch of contract scans.
func (s *Server) handleBatchScan(w http.ResponseWriter, r *http.Request) {
	var req BatchScanRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if len(req.Contracts) == 0 {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Batch must contain at least one contract", nil)
		return
	}

	account := AccountFromContext(r.Context())

	decision, err := s.admission.Admit(r.Context(), account, req.Contracts)
	if err != nil {
		respondCategorizedError(w, err)
		return
	}
	if !decision.Allowed {
		respondCategorizedError(w, errors.NewQuotaExceededError(
			decision.Tier, decision.Scope, decision.Reason, decision.ResetTime))
		return
	}

	result := s.orchestrator.ScanBatch(r.Context(), req.Contracts)

	respondJSON(w, http.StatusOK, result)
}
