package api

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/types"
)

// RateLimiter throttles raw request rates per account. This is a
// transport-level guard against bursts; scan quotas are enforced
// separately at admission.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	// Rate limits per tier (requests per second)
	tierLimits map[types.Tier]rate.Limit

	// Burst size (number of requests that can be made in a burst)
	burstSize int
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(freeRPS, basicRPS, proRPS, enterpriseRPS int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		tierLimits: map[types.Tier]rate.Limit{
			types.TierFree:       rate.Limit(freeRPS),
			types.TierBasic:      rate.Limit(basicRPS),
			types.TierPro:        rate.Limit(proRPS),
			types.TierEnterprise: rate.Limit(enterpriseRPS),
		},
		burstSize: 10,
	}
}

// getLimiter returns the rate limiter for a specific account and tier
func (rl *RateLimiter) getLimiter(accountID string, tier types.Tier) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[accountID]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	limit, ok := rl.tierLimits[tier]
	if !ok {
		limit = rl.tierLimits[types.TierFree]
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := rl.limiters[accountID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(limit, rl.burstSize)
	rl.limiters[accountID] = limiter

	return limiter
}

// RateLimitMiddleware creates a middleware that enforces per-account
// request rates. Runs after AuthMiddleware so the account is resolved.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := AccountFromContext(r.Context())

			accountID := r.RemoteAddr
			tier := types.TierFree
			if account != nil {
				accountID = account.ID
				tier = account.Tier
			}

			limiter := rl.getLimiter(accountID, tier)

			if !limiter.Allow() {
				respondCategorizedError(w, errors.NewQuotaExceededError(
					tier, types.ScopeRequestRate, "Too many requests", time.Now().Add(time.Second)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
