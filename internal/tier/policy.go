// Package tier defines the static per-tier quota and feature policy table.
package tier

import (
	"github.com/contract-scanner/internal/logging"
	"github.com/contract-scanner/internal/types"
)

// Unlimited marks a window limit that is never enforced.
const Unlimited int64 = -1

// Feature names gated per tier.
const (
	FeatureBasicScan     = "basic_scan"
	FeaturePDFReport     = "pdf_report"
	FeatureHistory       = "history"
	FeatureTrends        = "trends"
	FeatureMLPredictions = "ml_predictions"
	FeatureWebhooks      = "webhooks"
	FeatureCustomRules   = "custom_rules"
	FeatureAll           = "all"
)

// Policy holds the limits and feature flags for one tier.
// When both window limits are finite, HourlyLimit <= DailyLimit.
type Policy struct {
	Tier         types.Tier
	DailyLimit   int64 // scans per clock-aligned day, Unlimited for none
	HourlyLimit  int64 // scans per clock-aligned hour, Unlimited for none
	MaxBatchSize int
	Features     []string
}

// HasFeature reports whether the policy grants a named feature.
func (p Policy) HasFeature(name string) bool {
	for _, f := range p.Features {
		if f == FeatureAll || f == name {
			return true
		}
	}
	return false
}

// Policies is the tier -> policy lookup table.
type Policies map[types.Tier]Policy

// Defaults returns the standard tier table.
func Defaults() Policies {
	return Policies{
		types.TierFree: {
			Tier:         types.TierFree,
			DailyLimit:   10,
			HourlyLimit:  3,
			MaxBatchSize: 1,
			Features:     []string{FeatureBasicScan, FeaturePDFReport},
		},
		types.TierBasic: {
			Tier:         types.TierBasic,
			DailyLimit:   100,
			HourlyLimit:  20,
			MaxBatchSize: 5,
			Features:     []string{FeatureBasicScan, FeaturePDFReport, FeatureHistory, FeatureTrends},
		},
		types.TierPro: {
			Tier:         types.TierPro,
			DailyLimit:   1000,
			HourlyLimit:  100,
			MaxBatchSize: 50,
			Features: []string{
				FeatureBasicScan, FeaturePDFReport, FeatureHistory, FeatureTrends,
				FeatureMLPredictions, FeatureWebhooks, FeatureCustomRules,
			},
		},
		types.TierEnterprise: {
			Tier:         types.TierEnterprise,
			DailyLimit:   Unlimited,
			HourlyLimit:  Unlimited,
			MaxBatchSize: 200,
			Features:     []string{FeatureAll},
		},
	}
}

// Limits returns the policy for a tier. Tiers are assigned by the billing
// system so an unknown value should never reach this point; if one does,
// fall back to the free tier and log it.
func (ps Policies) Limits(t types.Tier) Policy {
	if p, ok := ps[t]; ok {
		return p
	}
	logging.WithField("tier", string(t)).Warn("Unknown tier, falling back to free limits")
	return ps[types.TierFree]
}
