package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract-scanner/internal/admission"
	"github.com/contract-scanner/internal/history"
	"github.com/contract-scanner/internal/identity"
	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/quota"
	"github.com/contract-scanner/internal/scan"
	"github.com/contract-scanner/internal/tier"
	"github.com/contract-scanner/internal/types"
)

const testContract = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

// stubEngine returns canned results, failing for listed addresses.
type stubEngine struct {
	failFor map[string]error
}

func (e *stubEngine) Scan(_ context.Context, address string, chain types.ChainID) (*scan.Result, error) {
	if err := e.failFor[address]; err != nil {
		return nil, err
	}
	return &scan.Result{
		ScanID:          "scan-1",
		ContractAddress: address,
		Chain:           chain,
		SafetyScore:     85,
		RiskLevel:       scan.RiskLevel(85),
		Timestamp:       time.Now().UTC(),
	}, nil
}

type testHarness struct {
	server *Server
	store  *history.MemoryStore
	engine *stubEngine
}

func setupTestServer(t *testing.T, opts ...func(*ServerConfig)) *testHarness {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	quotaStore, err := quota.NewStore(&quota.StoreConfig{Redis: client})
	require.NoError(t, err)

	controller, err := admission.NewController(&admission.ControllerConfig{
		Policies: tier.Defaults(),
		Quota:    quotaStore,
	})
	require.NoError(t, err)

	engine := &stubEngine{failFor: make(map[string]error)}
	historyStore := history.NewMemoryStore()
	analyzer := history.NewAnalyzer(historyStore, time.Now)

	orchestrator, err := scan.NewOrchestrator(&scan.OrchestratorConfig{
		Engine:      engine,
		History:     historyStore,
		Workers:     3,
		ItemTimeout: time.Second,
	})
	require.NoError(t, err)

	serverConfig := &ServerConfig{
		Host:          "127.0.0.1",
		Port:          "0",
		FreeTierRPS:   100,
		BasicTierRPS:  100,
		ProTierRPS:    100,
		EnterpriseRPS: 100,
	}
	for _, opt := range opts {
		opt(serverConfig)
	}

	server := NewServer(serverConfig, controller, orchestrator, historyStore, analyzer, identity.NewPrefixProvider())

	return &testHarness{server: server, store: historyStore, engine: engine}
}

func (h *testHarness) do(t *testing.T, method, path, apiKey string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandleHealth(t *testing.T) {
	t.Run("reports liveness without component probes", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		decode(t, rec, &body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("reports component status when probes pass", func(t *testing.T) {
		h := setupTestServer(t, func(cfg *ServerConfig) {
			cfg.HealthChecks = map[string]HealthCheck{
				"redis":    func(ctx context.Context) error { return nil },
				"postgres": func(ctx context.Context) error { return nil },
			}
		})

		rec := h.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		decode(t, rec, &body)
		assert.Equal(t, "healthy", body["status"])
		components := body["components"].(map[string]interface{})
		assert.Equal(t, "ok", components["redis"])
		assert.Equal(t, "ok", components["postgres"])
	})

	t.Run("degrades when a probe fails", func(t *testing.T) {
		h := setupTestServer(t, func(cfg *ServerConfig) {
			cfg.HealthChecks = map[string]HealthCheck{
				"redis":    func(ctx context.Context) error { return nil },
				"postgres": func(ctx context.Context) error { return fmt.Errorf("connection refused") },
			}
		})

		rec := h.do(t, http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]interface{}
		decode(t, rec, &body)
		assert.Equal(t, "degraded", body["status"])
		components := body["components"].(map[string]interface{})
		assert.Equal(t, "ok", components["redis"])
		assert.Equal(t, "unreachable", components["postgres"])
	})
}

func TestHandleScan(t *testing.T) {
	t.Run("returns the scan result", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodPost, "/api/v1/scan", "basic_key", models.ScanRequest{
			ContractAddress: testContract,
			Chain:           types.ChainEthereum,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result scan.Result
		decode(t, rec, &result)
		assert.Equal(t, testContract, result.ContractAddress)
		assert.Equal(t, "Low Risk", result.RiskLevel)
		assert.Equal(t, 85, result.SafetyScore)
	})

	t.Run("rejects invalid chain without consuming quota", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodPost, "/api/v1/scan", "basic_key", models.ScanRequest{
			ContractAddress: testContract,
			Chain:           "dogechain",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		usage := h.do(t, http.MethodGet, "/api/v1/usage", "basic_key", nil)
		var stats models.UsageStats
		decode(t, usage, &stats)
		assert.Equal(t, int64(0), stats.HourlyScans)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		h := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewBufferString("{nope"))
		rec := httptest.NewRecorder()
		h.server.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("hourly exhaustion returns the uniform 429 payload", func(t *testing.T) {
		h := setupTestServer(t)

		for i := 0; i < 3; i++ {
			rec := h.do(t, http.MethodPost, "/api/v1/scan", "", models.ScanRequest{
				ContractAddress: testContract,
				Chain:           types.ChainEthereum,
			})
			require.Equal(t, http.StatusOK, rec.Code)
		}

		rec := h.do(t, http.MethodPost, "/api/v1/scan", "", models.ScanRequest{
			ContractAddress: testContract,
			Chain:           types.ChainEthereum,
		})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		var payload map[string]interface{}
		decode(t, rec, &payload)
		assert.Equal(t, "Rate limit exceeded", payload["error"])
		assert.Equal(t, "free", payload["tier"])
		assert.Equal(t, "Hourly limit exceeded", payload["reason"])

		resetTime, err := time.Parse(time.RFC3339, payload["reset_time"].(string))
		require.NoError(t, err)
		assert.True(t, resetTime.After(time.Now().UTC().Add(-time.Minute)))
	})

	t.Run("engine failure after admission surfaces an upstream error", func(t *testing.T) {
		h := setupTestServer(t)
		h.engine.failFor[testContract] = fmt.Errorf("engine down")

		rec := h.do(t, http.MethodPost, "/api/v1/scan", "basic_key", models.ScanRequest{
			ContractAddress: testContract,
			Chain:           types.ChainEthereum,
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		// The failed scan still consumed its unit
		usage := h.do(t, http.MethodGet, "/api/v1/usage", "basic_key", nil)
		var stats models.UsageStats
		decode(t, usage, &stats)
		assert.Equal(t, int64(1), stats.HourlyScans)
	})
}

func TestHandleBatchScan(t *testing.T) {
	t.Run("returns per-item outcomes in request order", func(t *testing.T) {
		h := setupTestServer(t)

		second := "0x6B175474E89094C44Da98b954EedeAC495271d0F"
		h.engine.failFor[second] = fmt.Errorf("engine blew up")

		rec := h.do(t, http.MethodPost, "/api/v1/batch-scan", "basic_key", BatchScanRequest{
			Contracts: []models.ScanRequest{
				{ContractAddress: testContract, Chain: types.ChainEthereum},
				{ContractAddress: second, Chain: types.ChainEthereum},
				{ContractAddress: testContract, Chain: types.ChainPolygon},
			},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var result models.BatchResult
		decode(t, rec, &result)
		assert.Equal(t, 3, result.Total)
		assert.Equal(t, 2, result.Successful)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Items, 3)
		assert.Equal(t, types.ScanStatusSuccess, result.Items[0].Status)
		assert.Equal(t, types.ScanStatusError, result.Items[1].Status)
		assert.Equal(t, types.ScanStatusSuccess, result.Items[2].Status)
		assert.Equal(t, second, result.Items[1].Request.ContractAddress)
	})

	t.Run("oversized batch returns 429 with batch reason", func(t *testing.T) {
		h := setupTestServer(t)

		contracts := make([]models.ScanRequest, 6) // basic tier max is 5
		for i := range contracts {
			contracts[i] = models.ScanRequest{ContractAddress: testContract, Chain: types.ChainEthereum}
		}

		rec := h.do(t, http.MethodPost, "/api/v1/batch-scan", "basic_key", BatchScanRequest{Contracts: contracts})
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		var payload map[string]interface{}
		decode(t, rec, &payload)
		assert.Equal(t, "Rate limit exceeded", payload["error"])
		assert.Equal(t, "basic", payload["tier"])
		assert.Equal(t, "Batch size exceeds tier limit", payload["reason"])
		assert.NotEmpty(t, payload["reset_time"])
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodPost, "/api/v1/batch-scan", "basic_key", BatchScanRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleHistory(t *testing.T) {
	t.Run("free tier lacks the history feature", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodGet, "/api/v1/history/ethereum/"+testContract, "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("returns recorded scans", func(t *testing.T) {
		h := setupTestServer(t)

		scanRec := h.do(t, http.MethodPost, "/api/v1/scan", "basic_key", models.ScanRequest{
			ContractAddress: testContract,
			Chain:           types.ChainEthereum,
		})
		require.Equal(t, http.StatusOK, scanRec.Code)

		rec := h.do(t, http.MethodGet, "/api/v1/history/ethereum/"+testContract, "basic_key", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body HistoryResponse
		decode(t, rec, &body)
		assert.Equal(t, 1, body.TotalScans)
		require.Len(t, body.History, 1)
		assert.Equal(t, 85, body.History[0].SafetyScore)
	})

	t.Run("rejects unsupported chain", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodGet, "/api/v1/history/dogechain/"+testContract, "basic_key", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleTrends(t *testing.T) {
	t.Run("returns trend summaries", func(t *testing.T) {
		h := setupTestServer(t)

		scanRec := h.do(t, http.MethodPost, "/api/v1/scan", "basic_key", models.ScanRequest{
			ContractAddress: testContract,
			Chain:           types.ChainEthereum,
		})
		require.Equal(t, http.StatusOK, scanRec.Code)

		rec := h.do(t, http.MethodGet, "/api/v1/trends/ethereum/"+testContract+"?days=7", "basic_key", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var trends models.ContractTrends
		decode(t, rec, &trends)
		assert.Equal(t, 7, trends.PeriodDays)
		assert.Equal(t, 1, trends.TotalScans)
		require.NotNil(t, trends.SafetyScore.Current)
		assert.Equal(t, 85.0, *trends.SafetyScore.Current)
	})

	t.Run("empty window reports null summaries", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodGet, "/api/v1/trends/ethereum/"+testContract, "basic_key", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var payload map[string]interface{}
		decode(t, rec, &payload)
		score := payload["safety_score"].(map[string]interface{})
		assert.Nil(t, score["current"])
		assert.Nil(t, score["trend"])
	})

	t.Run("rejects invalid days parameter", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodGet, "/api/v1/trends/ethereum/"+testContract+"?days=banana", "basic_key", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("free tier lacks the trends feature", func(t *testing.T) {
		h := setupTestServer(t)

		rec := h.do(t, http.MethodGet, "/api/v1/trends/ethereum/"+testContract, "", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleUsage(t *testing.T) {
	h := setupTestServer(t)

	rec := h.do(t, http.MethodPost, "/api/v1/scan", "pro_key", models.ScanRequest{
		ContractAddress: testContract,
		Chain:           types.ChainEthereum,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	usage := h.do(t, http.MethodGet, "/api/v1/usage", "pro_key", nil)
	require.Equal(t, http.StatusOK, usage.Code)

	var stats models.UsageStats
	decode(t, usage, &stats)
	assert.Equal(t, types.TierPro, stats.Tier)
	assert.Equal(t, int64(1), stats.HourlyScans)
	assert.Equal(t, int64(100), stats.HourlyLimit)
	assert.Equal(t, int64(1), stats.DailyScans)
	assert.Equal(t, 50, stats.BatchSizeLimit)
}
