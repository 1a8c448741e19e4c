package errors

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/contract-scanner/internal/types"
)

func TestCategorize(t *testing.T) {
	t.Run("passes categorized errors through", func(t *testing.T) {
		orig := NewInvalidChainError("dogechain")
		assert.Same(t, orig, Categorize(orig))
	})

	t.Run("wraps unknown errors as internal", func(t *testing.T) {
		catErr := Categorize(fmt.Errorf("boom"))
		assert.Equal(t, CategorySystem, catErr.Category)
		assert.Equal(t, http.StatusInternalServerError, catErr.StatusCode)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Categorize(nil))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewEngineError(fmt.Errorf("connection reset"))))
	assert.True(t, IsRetryable(NewEngineTimeoutError("0xabc", types.ChainEthereum)))

	assert.False(t, IsRetryable(NewInvalidChainError("dogechain")))
	assert.False(t, IsRetryable(NewQuotaExceededError(types.TierFree, types.ScopeHourly, "Hourly limit exceeded", time.Now())))
	assert.False(t, IsRetryable(fmt.Errorf("engine returned status 400")))
	assert.False(t, IsRetryable(NewInternalError("unexpected", nil)))
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(NewInvalidAddressError("nope", types.ChainEthereum)))
	assert.True(t, IsUserError(NewQuotaExceededError(types.TierFree, types.ScopeDaily, "Daily limit exceeded", time.Now())))
	assert.True(t, IsUserError(NewFeatureNotAvailableError(types.TierFree, "scan_history")))

	assert.False(t, IsUserError(NewEngineError(fmt.Errorf("down"))))
	assert.False(t, IsUserError(NewStoreError("append", fmt.Errorf("down"))))
}

func TestQuotaExceededErrorDetails(t *testing.T) {
	reset := time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC)
	err := NewQuotaExceededError(types.TierBasic, types.ScopeHourly, "Hourly limit exceeded", reset)

	assert.Equal(t, CategoryQuota, err.Category)
	assert.Equal(t, http.StatusTooManyRequests, err.StatusCode)
	assert.Equal(t, "basic", err.Details["tier"])
	assert.Equal(t, "hourly", err.Details["scope"])
	assert.Equal(t, "2025-06-15T11:00:00Z", err.Details["reset_time"])
}
