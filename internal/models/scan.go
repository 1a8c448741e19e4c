package models

import (
	"time"

	"github.com/contract-scanner/internal/types"
)

// ScanRequest identifies one contract to analyze.
type ScanRequest struct {
	ContractAddress string        `json:"contract_address"`
	Chain           types.ChainID `json:"chain"`
}

// ScanRecord is one appended history entry for a contract. Records are
// immutable once written; identity is (contract_address, chain, timestamp).
type ScanRecord struct {
	ScanID             string        `json:"scan_id"`
	ContractAddress    string        `json:"contract_address"`
	Chain              types.ChainID `json:"chain"`
	Timestamp          time.Time     `json:"timestamp"`
	SafetyScore        int           `json:"safety_score"`
	VulnerabilityCount int           `json:"vulnerability_count"`
	RugPullCount       int           `json:"rug_pull_count"`
}

// BatchItem is the per-contract outcome inside a batch response. Exactly
// one of Result or Error is set, according to Status.
type BatchItem struct {
	Request ScanRequest      `json:"request"`
	Status  types.ScanStatus `json:"status"`
	Result  interface{}      `json:"result,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// BatchResult aggregates a completed batch. Items preserve input order.
type BatchResult struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Items      []BatchItem `json:"results"`
}

// TrendSummary is the derived statistic set for one metric over a window.
// All fields are nil when the window holds no records, so callers can
// distinguish "no data" from "no change".
type TrendSummary struct {
	Current *float64              `json:"current"`
	Average *float64              `json:"average"`
	Min     *float64              `json:"min"`
	Max     *float64              `json:"max"`
	Trend   *types.TrendDirection `json:"trend"`
}

// ContractTrends groups the three tracked metrics for one contract.
type ContractTrends struct {
	ContractAddress string        `json:"contract_address"`
	Chain           types.ChainID `json:"chain"`
	PeriodDays      int           `json:"period_days"`
	TotalScans      int           `json:"total_scans"`
	SafetyScore     TrendSummary  `json:"safety_score"`
	Vulnerabilities TrendSummary  `json:"vulnerabilities"`
	RugIndicators   TrendSummary  `json:"rug_indicators"`
}
