// Package scan dispatches admitted requests to the external analysis
// engine and aggregates batch outcomes.
package scan

import (
	"context"
	"time"

	"github.com/contract-scanner/internal/types"
)

// Vulnerability is one finding reported by the analysis engine.
type Vulnerability struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
}

// RugPullIndicator is one rug-pull pattern reported by the engine.
type RugPullIndicator struct {
	Type        string `json:"type"`
	Risk        string `json:"risk"`
	Description string `json:"description"`
}

// Result is the engine's verdict for one contract, enriched with the
// derived risk level and recommendations before it reaches clients.
type Result struct {
	ScanID            string             `json:"scan_id,omitempty"`
	ContractAddress   string             `json:"contract_address"`
	Chain             types.ChainID      `json:"chain"`
	SafetyScore       int                `json:"safety_score"`
	RiskLevel         string             `json:"risk_level,omitempty"`
	Vulnerabilities   []Vulnerability    `json:"vulnerabilities"`
	RugPullIndicators []RugPullIndicator `json:"rug_pull_indicators"`
	Recommendations   []string           `json:"recommendations,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
}

// Engine is the external vulnerability/rug-pull analyzer, treated as a
// black box with a bounded per-call timeout.
type Engine interface {
	Scan(ctx context.Context, address string, chain types.ChainID) (*Result, error)
}

// RiskLevel maps a safety score to the label clients display.
func RiskLevel(score int) string {
	switch {
	case score >= 80:
		return "Low Risk"
	case score >= 50:
		return "Moderate Risk"
	default:
		return "Severe Risk"
	}
}

// Recommendations derives actionable guidance from the engine findings.
func Recommendations(result *Result) []string {
	var recs []string
	for _, vuln := range result.Vulnerabilities {
		if vuln.Severity == "high" {
			rec := vuln.Recommendation
			if rec == "" {
				rec = "Review contract security"
			}
			recs = append(recs, "Address "+vuln.Type+": "+rec)
		}
	}
	for _, indicator := range result.RugPullIndicators {
		if indicator.Risk == "high" {
			recs = append(recs, "Warning: "+indicator.Description)
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "No critical issues detected. Continue monitoring contract activity.")
	}
	return recs
}
