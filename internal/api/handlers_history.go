package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/tier"
	"github.com/contract-scanner/internal/types"
)

const defaultTrendDays = 30

// HistoryResponse is the response body for scan history queries.
type HistoryResponse struct {
	ContractAddress string              `json:"contract_address"`
	Chain           types.ChainID       `json:"chain"`
	TotalScans      int                 `json:"total_scans"`
	History         []models.ScanRecord `json:"history"`
}

// handleHistory returns the stored scan history for a contract.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chain := types.ChainID(vars["chain"])
	address := vars["address"]

	if !chain.IsValid() {
		respondCategorizedError(w, errors.NewInvalidChainError(string(chain)))
		return
	}

	account := AccountFromContext(r.Context())
	if !s.admission.Policy(account.Tier).HasFeature(tier.FeatureHistory) {
		respondCategorizedError(w, errors.NewFeatureNotAvailableError(account.Tier, tier.FeatureHistory))
		return
	}

	records, err := s.historyStore.History(r.Context(), chain, address)
	if err != nil {
		respondCategorizedError(w, errors.NewStoreError("history query", err))
		return
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		ContractAddress: address,
		Chain:           chain,
		TotalScans:      len(records),
		History:         records,
	})
}

// handleTrends returns derived trend statistics for a contract.
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	chain := types.ChainID(vars["chain"])
	address := vars["address"]

	if !chain.IsValid() {
		respondCategorizedError(w, errors.NewInvalidChainError(string(chain)))
		return
	}

	account := AccountFromContext(r.Context())
	if !s.admission.Policy(account.Tier).HasFeature(tier.FeatureTrends) {
		respondCategorizedError(w, errors.NewFeatureNotAvailableError(account.Tier, tier.FeatureTrends))
		return
	}

	days := defaultTrendDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondCategorizedError(w, errors.NewInvalidParameterError("days", "must be a positive integer"))
			return
		}
		days = parsed
	}

	trends, err := s.trends.Trends(r.Context(), chain, address, days)
	if err != nil {
		respondCategorizedError(w, errors.NewStoreError("trend analysis", err))
		return
	}

	respondJSON(w, http.StatusOK, trends)
}
