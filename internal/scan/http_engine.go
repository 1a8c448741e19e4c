package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/contract-scanner/internal/circuitbreaker"
	"github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/logging"
	"github.com/contract-scanner/internal/retry"
	"github.com/contract-scanner/internal/types"
)

// HTTPEngineConfig configures the HTTP analysis engine client
type HTTPEngineConfig struct {
	BaseURL string
	Timeout time.Duration
	Retry   *retry.Config
	Breaker *circuitbreaker.Config
}

// Validate checks the configuration
func (c *HTTPEngineConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("engine base URL is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("engine timeout must be positive")
	}
	return nil
}

// HTTPEngine calls a remote analysis engine over HTTP. Calls are wrapped
// in retry with backoff and a circuit breaker so a failing engine does
// not stall batch workers.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
	retry   *retry.Config
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

// NewHTTPEngine creates a new HTTP engine client
func NewHTTPEngine(cfg *HTTPEngineConfig) (*HTTPEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	retryCfg := cfg.Retry
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	if retryCfg.ShouldRetry == nil {
		rc := *retryCfg
		rc.ShouldRetry = errors.IsRetryable
		retryCfg = &rc
	}
	breakerCfg := cfg.Breaker
	if breakerCfg == nil {
		breakerCfg = circuitbreaker.DefaultConfig("analysis-engine")
	}

	return &HTTPEngine{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   retryCfg,
		breaker: circuitbreaker.NewCircuitBreaker(breakerCfg),
		now:     time.Now,
	}, nil
}

type engineRequest struct {
	ContractAddress string `json:"contract_address"`
	Chain           string `json:"chain"`
}

type engineResponse struct {
	SafetyScore       int                `json:"safety_score"`
	Vulnerabilities   []Vulnerability    `json:"vulnerabilities"`
	RugPullIndicators []RugPullIndicator `json:"rug_pull_indicators"`
}

// Scan analyzes a contract via the remote engine
func (e *HTTPEngine) Scan(ctx context.Context, address string, chain types.ChainID) (*Result, error) {
	var resp engineResponse

	err := e.breaker.Execute(ctx, func() error {
		return retry.WithExponentialBackoff(ctx, e.retry, func(ctx context.Context) error {
			return e.doScan(ctx, address, chain, &resp)
		})
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewEngineTimeoutError(address, chain)
		}
		if catErr, ok := err.(*errors.CategorizedError); ok {
			return nil, catErr
		}
		return nil, errors.NewEngineError(err)
	}

	result := &Result{
		ScanID:            uuid.New().String(),
		ContractAddress:   address,
		Chain:             chain,
		SafetyScore:       resp.SafetyScore,
		RiskLevel:         RiskLevel(resp.SafetyScore),
		Vulnerabilities:   resp.Vulnerabilities,
		RugPullIndicators: resp.RugPullIndicators,
		Timestamp:         e.now().UTC(),
	}
	result.Recommendations = Recommendations(result)

	return result, nil
}

func (e *HTTPEngine) doScan(ctx context.Context, address string, chain types.ChainID, out *engineResponse) error {
	body, err := json.Marshal(engineRequest{
		ContractAddress: address,
		Chain:           string(chain),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal engine request: %w", err)
	}

	url := e.baseURL + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := e.client.Do(req)
	if err != nil {
		return errors.NewEngineError(fmt.Errorf("engine request failed: %w", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		logging.WithFields(map[string]interface{}{
			"status": httpResp.StatusCode,
			"chain":  chain,
		}).Warn("Analysis engine returned non-200 status")
		statusErr := fmt.Errorf("engine returned status %d: %s", httpResp.StatusCode, string(raw))
		// Only 5xx responses count as transient engine faults
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return errors.NewEngineError(statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}

	return nil
}
