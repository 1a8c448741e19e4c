// Package errors provides categorized errors for the contract scanner core.
package errors

import (
	"fmt"
	"net/http"
	"time"

	"github.com/contract-scanner/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryValidation represents malformed input rejected before admission
	CategoryValidation ErrorCategory = "validation"
	// CategoryQuota represents tier quota and batch-size rejections
	CategoryQuota ErrorCategory = "quota"
	// CategoryUpstream represents analysis-engine failures and timeouts
	CategoryUpstream ErrorCategory = "upstream"
	// CategoryAuthorization represents API key and feature-gate rejections
	CategoryAuthorization ErrorCategory = "authorization"
	// CategorySystem represents internal faults (5xx)
	CategorySystem ErrorCategory = "system"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// Validation errors (4xx, no quota consumed)

// NewInvalidAddressError creates an invalid contract address error
func NewInvalidAddressError(address string, chain types.ChainID) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_ADDRESS",
		Message:    fmt.Sprintf("invalid contract address for chain %s: %s", chain, address),
		Details: map[string]interface{}{
			"address": address,
			"chain":   string(chain),
		},
	}
}

// NewInvalidChainError creates an unsupported chain error
func NewInvalidChainError(chain string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_CHAIN",
		Message:    fmt.Sprintf("unsupported chain: %s", chain),
		Details: map[string]interface{}{
			"chain": chain,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       "INVALID_PARAMETER",
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// Quota errors (429, client may retry after reset_time)

// NewQuotaExceededError creates a quota denial carrying scope and reset time
func NewQuotaExceededError(tier types.Tier, scope types.QuotaScope, reason string, resetTime time.Time) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryQuota,
		StatusCode: http.StatusTooManyRequests,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    reason,
		Details: map[string]interface{}{
			"tier":       string(tier),
			"scope":      string(scope),
			"reset_time": resetTime.UTC().Format(time.RFC3339),
		},
	}
}

// Authorization errors

// NewFeatureNotAvailableError creates a tier feature-gate rejection
func NewFeatureNotAvailableError(tier types.Tier, feature string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       "FEATURE_NOT_AVAILABLE",
		Message:    "Feature not available in your tier",
		Details: map[string]interface{}{
			"tier":    string(tier),
			"feature": feature,
		},
	}
}

// Upstream errors (per-item in batches, never aborting siblings)

// NewEngineError creates an analysis-engine failure error
func NewEngineError(cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusBadGateway,
		Code:       "ENGINE_ERROR",
		Message:    "analysis engine failed",
		Cause:      cause,
	}
}

// NewEngineTimeoutError creates an analysis-engine timeout error
func NewEngineTimeoutError(address string, chain types.ChainID) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryUpstream,
		StatusCode: http.StatusGatewayTimeout,
		Code:       "ENGINE_TIMEOUT",
		Message:    "analysis engine timed out",
		Details: map[string]interface{}{
			"address": address,
			"chain":   string(chain),
		},
	}
}

// System errors (5xx)

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Cause:      cause,
	}
}

// NewStoreError creates a storage-layer error
func NewStoreError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       "STORE_ERROR",
		Message:    fmt.Sprintf("store error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	if catErr, ok := err.(*CategorizedError); ok {
		return catErr
	}
	return NewInternalError("unexpected error", err)
}

// IsRetryable determines if an error is worth retrying upstream
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}
	switch catErr.Category {
	case CategoryUpstream:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable ||
			catErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.StatusCode >= 400 && catErr.StatusCode < 500
}
