// Package admission gates every scan request against tier policy and the
// account's quota windows.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/quota"
	"github.com/contract-scanner/internal/tier"
	"github.com/contract-scanner/internal/types"
)

// Rejection reasons, verbatim as clients display them.
const (
	ReasonHourlyLimit   = "Hourly limit exceeded"
	ReasonDailyLimit    = "Daily limit exceeded"
	ReasonBatchTooLarge = "Batch size exceeds tier limit"
)

// Decision is the outcome of admitting a request. When Allowed, Units have
// already been charged and stay charged regardless of scan outcomes.
type Decision struct {
	Allowed   bool
	Units     int64
	Tier      types.Tier
	Scope     types.QuotaScope
	Reason    string
	ResetTime time.Time
}

// Controller decides single and batch admission.
type Controller struct {
	policies tier.Policies
	quota    *quota.Store
	now      func() time.Time
}

// ControllerConfig holds configuration for the admission controller.
type ControllerConfig struct {
	// Policies is the tier policy table. Defaults to tier.Defaults().
	Policies tier.Policies

	// Quota is the quota store. Required.
	Quota *quota.Store

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewController creates an admission controller.
func NewController(cfg *ControllerConfig) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.Quota == nil {
		return nil, errors.New("quota store is required")
	}

	policies := cfg.Policies
	if policies == nil {
		policies = tier.Defaults()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Controller{policies: policies, quota: cfg.Quota, now: now}, nil
}

// Admit validates every request, enforces the tier's batch-size limit and
// reserves len(requests) quota units atomically. Validation failures return
// an error and consume no quota; policy denials return a non-allowed
// Decision; only store faults surface as errors from the reservation path.
func (c *Controller) Admit(ctx context.Context, account *models.Account, requests []models.ScanRequest) (*Decision, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("empty request batch")
	}

	for _, req := range requests {
		if err := ValidateRequest(req); err != nil {
			return nil, err
		}
	}

	policy := c.policies.Limits(account.Tier)

	if len(requests) > policy.MaxBatchSize {
		return &Decision{
			Allowed:   false,
			Tier:      account.Tier,
			Scope:     types.ScopeBatchSize,
			Reason:    ReasonBatchTooLarge,
			ResetTime: c.nextHourBoundary(),
		}, nil
	}

	units := int64(len(requests))
	reservation, denial, err := c.quota.TryReserve(ctx, account.ID, units, policy)
	if err != nil {
		return nil, err
	}

	if denial != nil {
		reason := ReasonHourlyLimit
		if denial.Scope == types.ScopeDaily {
			reason = ReasonDailyLimit
		}
		return &Decision{
			Allowed:   false,
			Tier:      account.Tier,
			Scope:     denial.Scope,
			Reason:    reason,
			ResetTime: denial.ResetTime,
		}, nil
	}

	return &Decision{
		Allowed: true,
		Units:   reservation.Units,
		Tier:    account.Tier,
	}, nil
}

// Usage assembles dashboard usage counters from the quota snapshot and the
// account's policy. Read-only, no quota charge.
func (c *Controller) Usage(ctx context.Context, account *models.Account) (*models.UsageStats, error) {
	policy := c.policies.Limits(account.Tier)

	counter, err := c.quota.Peek(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &models.UsageStats{
		Tier:           account.Tier,
		HourlyScans:    counter.HourCount,
		HourlyLimit:    policy.HourlyLimit,
		DailyScans:     counter.DayCount,
		DailyLimit:     policy.DailyLimit,
		BatchSizeLimit: policy.MaxBatchSize,
		Features:       policy.Features,
		HourResetTime:  counter.HourWindowStart.Add(time.Hour),
		DayResetTime:   counter.DayWindowStart.Add(24 * time.Hour),
	}, nil
}

// Policy exposes the policy table lookup for feature gating.
func (c *Controller) Policy(t types.Tier) tier.Policy {
	return c.policies.Limits(t)
}

func (c *Controller) nextHourBoundary() time.Time {
	return c.now().UTC().Truncate(time.Hour).Add(time.Hour)
}
