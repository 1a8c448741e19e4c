// Package models provides data models for the contract scanner system.
package models

import (
	"time"

	"github.com/contract-scanner/internal/types"
)

// Account represents an API account identified by an API key.
// Tier is owned by the billing system; everything here is read-only
// from the scanner's point of view.
type Account struct {
	ID        string     `json:"id" db:"id"`
	APIKey    string     `json:"-" db:"api_key"`
	Email     string     `json:"email,omitempty" db:"email"`
	Tier      types.Tier `json:"tier" db:"tier"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
}

// UsageStats reports an account's current quota consumption for the
// dashboard counters.
type UsageStats struct {
	Tier           types.Tier `json:"tier"`
	HourlyScans    int64      `json:"hourly_scans"`
	HourlyLimit    int64      `json:"hourly_limit"`
	DailyScans     int64      `json:"daily_scans"`
	DailyLimit     int64      `json:"daily_limit"`
	BatchSizeLimit int        `json:"batch_size_limit"`
	Features       []string   `json:"available_features"`
	HourResetTime  time.Time  `json:"hour_reset_time"`
	DayResetTime   time.Time  `json:"day_reset_time"`
}
