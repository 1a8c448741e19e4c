package admission

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/quota"
	"github.com/contract-scanner/internal/tier"
	"github.com/contract-scanner/internal/types"
)

func setupTestController(t *testing.T) (*Controller, *quota.Store) {
	controller, store, _ := setupTestControllerWithClock(t)
	return controller, store
}

func setupTestControllerWithClock(t *testing.T) (*Controller, *quota.Store, *time.Time) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	clock := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	store, err := quota.NewStore(&quota.StoreConfig{Redis: client, Now: now})
	require.NoError(t, err)

	controller, err := NewController(&ControllerConfig{
		Policies: tier.Defaults(),
		Quota:    store,
		Now:      now,
	})
	require.NoError(t, err)

	return controller, store, &clock
}

func testAccount(id string, t types.Tier) *models.Account {
	return &models.Account{ID: id, Tier: t}
}

func evmRequest() models.ScanRequest {
	return models.ScanRequest{
		ContractAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		Chain:           types.ChainEthereum,
	}
}

func evmBatch(n int) []models.ScanRequest {
	batch := make([]models.ScanRequest, n)
	for i := range batch {
		batch[i] = evmRequest()
	}
	return batch
}

func TestNewController(t *testing.T) {
	t.Run("returns error for nil config", func(t *testing.T) {
		controller, err := NewController(nil)
		assert.Error(t, err)
		assert.Nil(t, controller)
	})

	t.Run("returns error for missing quota store", func(t *testing.T) {
		controller, err := NewController(&ControllerConfig{})
		assert.Error(t, err)
		assert.Nil(t, controller)
	})
}

func TestController_Admit(t *testing.T) {
	ctx := context.Background()

	t.Run("admits a single scan and charges one unit", func(t *testing.T) {
		controller, store := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic)

		decision, err := controller.Admit(ctx, account, evmBatch(1))
		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(1), decision.Units)
		assert.Equal(t, types.TierBasic, decision.Tier)

		counter, err := store.Peek(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), counter.HourCount)
	})

	t.Run("admits a batch as one reservation of len(batch) units", func(t *testing.T) {
		controller, store := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic)

		decision, err := controller.Admit(ctx, account, evmBatch(5))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, int64(5), decision.Units)

		counter, err := store.Peek(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(5), counter.HourCount)
		assert.Equal(t, int64(5), counter.DayCount)
	})

	t.Run("validation failure charges no quota", func(t *testing.T) {
		controller, store := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic)

		batch := evmBatch(3)
		batch[1].ContractAddress = "not-an-address"

		decision, err := controller.Admit(ctx, account, batch)
		require.Error(t, err)
		assert.Nil(t, decision)

		counter, err := store.Peek(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), counter.HourCount)
	})

	t.Run("oversized batch is denied before quota is touched", func(t *testing.T) {
		controller, store := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic) // max batch 5

		decision, err := controller.Admit(ctx, account, evmBatch(6))
		require.NoError(t, err)
		require.NotNil(t, decision)
		assert.False(t, decision.Allowed)
		assert.Equal(t, types.ScopeBatchSize, decision.Scope)
		assert.Equal(t, ReasonBatchTooLarge, decision.Reason)
		assert.Equal(t, time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC), decision.ResetTime)

		counter, err := store.Peek(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), counter.HourCount)
	})

	t.Run("free tier rejects any batch above one", func(t *testing.T) {
		controller, _ := setupTestController(t)
		account := testAccount("acct-1", types.TierFree)

		decision, err := controller.Admit(ctx, account, evmBatch(2))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonBatchTooLarge, decision.Reason)
	})

	t.Run("hourly exhaustion maps to hourly reason", func(t *testing.T) {
		controller, _ := setupTestController(t)
		account := testAccount("acct-1", types.TierFree) // 3 per hour

		for i := 0; i < 3; i++ {
			decision, err := controller.Admit(ctx, account, evmBatch(1))
			require.NoError(t, err)
			require.True(t, decision.Allowed)
		}

		decision, err := controller.Admit(ctx, account, evmBatch(1))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, types.ScopeHourly, decision.Scope)
		assert.Equal(t, ReasonHourlyLimit, decision.Reason)
		assert.Equal(t, time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC), decision.ResetTime)
	})

	t.Run("daily exhaustion maps to daily reason", func(t *testing.T) {
		controller, _, clock := setupTestControllerWithClock(t)
		account := testAccount("acct-1", types.TierFree) // 3/hr, 10/day

		// Spread ten scans over four hours to fill the day without ever
		// blocking on the hourly window
		for _, n := range []int{3, 3, 3, 1} {
			for i := 0; i < n; i++ {
				decision, err := controller.Admit(ctx, account, evmBatch(1))
				require.NoError(t, err)
				require.True(t, decision.Allowed)
			}
			*clock = clock.Add(time.Hour)
		}

		decision, err := controller.Admit(ctx, account, evmBatch(1))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, types.ScopeDaily, decision.Scope)
		assert.Equal(t, ReasonDailyLimit, decision.Reason)
		assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), decision.ResetTime)
	})

	t.Run("batch larger than remaining quota is denied whole", func(t *testing.T) {
		controller, store := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic) // 20 per hour

		// Use 18 of 20 hourly units
		for i := 0; i < 6; i++ {
			decision, err := controller.Admit(ctx, account, evmBatch(3))
			require.NoError(t, err)
			require.True(t, decision.Allowed)
		}

		decision, err := controller.Admit(ctx, account, evmBatch(3))
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, types.ScopeHourly, decision.Scope)

		// No partial charge: still 18 used, so a batch of 2 fits
		counter, err := store.Peek(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(18), counter.HourCount)

		decision, err = controller.Admit(ctx, account, evmBatch(2))
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("rejects empty batch", func(t *testing.T) {
		controller, _ := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic)

		decision, err := controller.Admit(ctx, account, nil)
		assert.Error(t, err)
		assert.Nil(t, decision)
	})
}

func TestController_Usage(t *testing.T) {
	ctx := context.Background()

	t.Run("reports zero usage for fresh account", func(t *testing.T) {
		controller, _ := setupTestController(t)
		account := testAccount("acct-1", types.TierPro)

		stats, err := controller.Usage(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, types.TierPro, stats.Tier)
		assert.Equal(t, int64(0), stats.HourlyScans)
		assert.Equal(t, int64(100), stats.HourlyLimit)
		assert.Equal(t, int64(1000), stats.DailyLimit)
		assert.Equal(t, 50, stats.BatchSizeLimit)
		assert.Contains(t, stats.Features, tier.FeatureMLPredictions)
	})

	t.Run("reflects consumption and reset times", func(t *testing.T) {
		controller, _ := setupTestController(t)
		account := testAccount("acct-1", types.TierBasic)

		decision, err := controller.Admit(ctx, account, evmBatch(4))
		require.NoError(t, err)
		require.True(t, decision.Allowed)

		stats, err := controller.Usage(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, int64(4), stats.HourlyScans)
		assert.Equal(t, int64(4), stats.DailyScans)
		assert.Equal(t, time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC), stats.HourResetTime)
		assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), stats.DayResetTime)
	})

	t.Run("does not charge quota", func(t *testing.T) {
		controller, store := setupTestController(t)
		account := testAccount("acct-1", types.TierFree)

		for i := 0; i < 5; i++ {
			_, err := controller.Usage(ctx, account)
			require.NoError(t, err)
		}

		counter, err := store.Peek(ctx, "acct-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), counter.HourCount)
	})
}

func TestController_Policy(t *testing.T) {
	controller, _ := setupTestController(t)

	assert.Equal(t, 1, controller.Policy(types.TierFree).MaxBatchSize)
	assert.Equal(t, 200, controller.Policy(types.TierEnterprise).MaxBatchSize)
	assert.True(t, controller.Policy(types.TierEnterprise).HasFeature(tier.FeatureWebhooks))
	assert.False(t, controller.Policy(types.TierFree).HasFeature(tier.FeatureHistory))
}
