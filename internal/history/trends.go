package history

import (
	"context"
	"time"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/types"
)

// Analyzer computes trend summaries over a contract's history window.
// Invoked only on reads, never on the scan write path.
type Analyzer struct {
	store Store
	now   func() time.Time
}

// NewAnalyzer creates a trend analyzer over a history store. The clock is
// injectable for tests and defaults to time.Now.
func NewAnalyzer(store Store, now func() time.Time) *Analyzer {
	if now == nil {
		now = time.Now
	}
	return &Analyzer{store: store, now: now}
}

// Trends computes per-metric summaries over records newer than now - days.
// An empty window yields nil summary fields so clients can tell "no data"
// from "no change".
func (a *Analyzer) Trends(ctx context.Context, chain types.ChainID, address string, days int) (*models.ContractTrends, error) {
	records, err := a.store.History(ctx, chain, address)
	if err != nil {
		return nil, err
	}

	cutoff := a.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	var window []models.ScanRecord
	for _, r := range records {
		if !r.Timestamp.Before(cutoff) {
			window = append(window, r)
		}
	}

	trends := &models.ContractTrends{
		ContractAddress: address,
		Chain:           chain,
		PeriodDays:      days,
		TotalScans:      len(window),
	}
	if len(window) == 0 {
		return trends, nil
	}

	scores := make([]float64, len(window))
	vulns := make([]float64, len(window))
	rugs := make([]float64, len(window))
	for i, r := range window {
		scores[i] = float64(r.SafetyScore)
		vulns[i] = float64(r.VulnerabilityCount)
		rugs[i] = float64(r.RugPullCount)
	}

	trends.SafetyScore = summarize(scores, scorePolarity)
	trends.Vulnerabilities = summarize(vulns, countPolarity)
	trends.RugIndicators = summarize(rugs, countPolarity)

	return trends, nil
}

// polarity maps the earliest-vs-latest comparison to a direction label.
type polarity struct {
	up   types.TrendDirection // latest > earliest
	down types.TrendDirection // latest < earliest
}

// For safety scores higher is better; a rising score is an improvement.
var scorePolarity = polarity{up: types.TrendImproving, down: types.TrendDeclining}

// For vulnerability and rug-indicator counts lower is better; a rising
// count is labeled increasing (worse), not improving. The two polarities
// must never be swapped.
var countPolarity = polarity{up: types.TrendIncreasing, down: types.TrendDecreasing}

// summarize computes current/average/min/max and the direction for one
// metric. The window is ordered by timestamp, so values[0] is the earliest
// record and values[len-1] the latest.
func summarize(values []float64, pol polarity) models.TrendSummary {
	current := values[len(values)-1]
	min, max := values[0], values[0]
	sum := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	average := sum / float64(len(values))

	direction := types.TrendStable
	earliest, latest := values[0], values[len(values)-1]
	switch {
	case latest > earliest:
		direction = pol.up
	case latest < earliest:
		direction = pol.down
	}

	return models.TrendSummary{
		Current: &current,
		Average: &average,
		Min:     &min,
		Max:     &max,
		Trend:   &direction,
	}
}
