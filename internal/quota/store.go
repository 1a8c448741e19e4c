// Package quota provides per-account scan quota tracking over fixed
// clock-aligned hourly and daily windows, backed by Redis.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contract-scanner/internal/tier"
	"github.com/contract-scanner/internal/types"
)

// Redis key prefixes for quota counters. Keys embed the window start so
// rollover is implicit: a new window reads as zero and stale keys expire.
const (
	KeyPrefixHour = "quota:h:"
	KeyPrefixDay  = "quota:d:"
)

// Key TTLs: window length plus a buffer so Peek can still observe a window
// that just closed.
const (
	hourKeyTTL = 2 * time.Hour
	dayKeyTTL  = 25 * time.Hour
)

// Counter is a read-only snapshot of an account's current windows.
type Counter struct {
	AccountID       string
	HourWindowStart time.Time
	HourCount       int64
	DayWindowStart  time.Time
	DayCount        int64
}

// Reservation records a successful quota charge. Reservations are
// non-refundable: units stay charged even if every scan later fails.
type Reservation struct {
	Units int64
}

// Denial records a rejected reservation. No counter was changed.
type Denial struct {
	Scope     types.QuotaScope
	ResetTime time.Time
}

// Store coordinates quota consumption across server instances using Redis.
type Store struct {
	redis redis.Cmdable
	now   func() time.Time
}

// StoreConfig holds configuration for the quota store.
type StoreConfig struct {
	// Redis is the Redis client. Required.
	Redis redis.Cmdable

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewStore creates a quota store with the given configuration.
func NewStore(cfg *StoreConfig) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if cfg.Redis == nil {
		return nil, errors.New("redis client is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{redis: cfg.Redis, now: now}, nil
}

// reserveScript atomically checks both window limits and increments both
// counters. Splitting the check from the increment would allow two
// concurrent reservations to both observe pre-increment counts, so the
// whole reservation is a single script execution.
//
// Returns {0, hour, day} on hourly denial, {1, hour, day} on daily denial,
// {2, hour', day'} on success. A limit of -1 is unlimited.
var reserveScript = redis.NewScript(`
	local hourKey = KEYS[1]
	local dayKey = KEYS[2]
	local units = tonumber(ARGV[1])
	local hourlyLimit = tonumber(ARGV[2])
	local dailyLimit = tonumber(ARGV[3])
	local hourTTL = tonumber(ARGV[4])
	local dayTTL = tonumber(ARGV[5])

	local hourUsed = tonumber(redis.call('GET', hourKey) or '0')
	local dayUsed = tonumber(redis.call('GET', dayKey) or '0')

	if hourlyLimit >= 0 and hourUsed + units > hourlyLimit then
		return {0, hourUsed, dayUsed}
	end
	if dailyLimit >= 0 and dayUsed + units > dailyLimit then
		return {1, hourUsed, dayUsed}
	end

	redis.call('INCRBY', hourKey, units)
	redis.call('EXPIRE', hourKey, hourTTL)
	redis.call('INCRBY', dayKey, units)
	redis.call('EXPIRE', dayKey, dayTTL)

	return {2, hourUsed + units, dayUsed + units}
`)

// windows returns the starts of the current hour and day windows in UTC.
// Windows are half-open fixed intervals aligned to clock boundaries.
func (s *Store) windows() (hourStart, dayStart time.Time) {
	now := s.now().UTC()
	hourStart = now.Truncate(time.Hour)
	dayStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return hourStart, dayStart
}

func (s *Store) keys(accountID string, hourStart, dayStart time.Time) (hourKey, dayKey string) {
	hourKey = fmt.Sprintf("%s%s:%d", KeyPrefixHour, accountID, hourStart.Unix())
	dayKey = fmt.Sprintf("%s%s:%d", KeyPrefixDay, accountID, dayStart.Unix())
	return hourKey, dayKey
}

// TryReserve attempts to charge units against both windows for an account.
// The reservation is all-or-nothing: a denial leaves both counters
// untouched. Exactly one of the reservation or denial is non-nil unless an
// error is returned.
func (s *Store) TryReserve(ctx context.Context, accountID string, units int64, policy tier.Policy) (*Reservation, *Denial, error) {
	if units <= 0 {
		return nil, nil, fmt.Errorf("units must be positive, got %d", units)
	}

	hourStart, dayStart := s.windows()
	hourKey, dayKey := s.keys(accountID, hourStart, dayStart)

	result, err := reserveScript.Run(ctx, s.redis, []string{hourKey, dayKey},
		units, policy.HourlyLimit, policy.DailyLimit,
		int(hourKeyTTL.Seconds()), int(dayKeyTTL.Seconds())).Int64Slice()
	if err != nil {
		return nil, nil, fmt.Errorf("quota reservation failed: %w", err)
	}

	switch result[0] {
	case 0:
		return nil, &Denial{
			Scope:     types.ScopeHourly,
			ResetTime: hourStart.Add(time.Hour),
		}, nil
	case 1:
		return nil, &Denial{
			Scope:     types.ScopeDaily,
			ResetTime: dayStart.Add(24 * time.Hour),
		}, nil
	default:
		return &Reservation{Units: units}, nil, nil
	}
}

// Peek returns the account's current window counts without mutating them.
// Missing keys read as zero, which also covers lazy window rollover.
func (s *Store) Peek(ctx context.Context, accountID string) (*Counter, error) {
	hourStart, dayStart := s.windows()
	hourKey, dayKey := s.keys(accountID, hourStart, dayStart)

	pipe := s.redis.Pipeline()
	hourCmd := pipe.Get(ctx, hourKey)
	dayCmd := pipe.Get(ctx, dayKey)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("quota peek failed: %w", err)
	}

	return &Counter{
		AccountID:       accountID,
		HourWindowStart: hourStart,
		HourCount:       parseInt64OrZero(hourCmd),
		DayWindowStart:  dayStart,
		DayCount:        parseInt64OrZero(dayCmd),
	}, nil
}

// parseInt64OrZero parses a Redis string command result, returning 0 for
// missing keys.
func parseInt64OrZero(cmd *redis.StringCmd) int64 {
	val, err := cmd.Int64()
	if err != nil {
		return 0
	}
	return val
}
