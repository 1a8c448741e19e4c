package api

import (
	"encoding/json"
	"net/http"

	"github.com/contract-scanner/internal/errors"
	"github.com/contract-scanner/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// RateLimitResponse is the uniform 429 payload. Every quota rejection,
// whatever its scope, produces exactly this shape so clients have a
// single handler for retry scheduling.
type RateLimitResponse struct {
	Error     string     `json:"error"`
	Tier      types.Tier `json:"tier"`
	Reason    string     `json:"reason"`
	ResetTime string     `json:"reset_time"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response) // nolint:errcheck // response write failure is unrecoverable
}

// respondCategorizedError maps a categorized error to its HTTP response.
// Quota errors get the uniform 429 shape; everything else uses the
// standard error envelope. Every rate-limit denial in the service flows
// through the quota branch here, so the payload is built in one place.
func respondCategorizedError(w http.ResponseWriter, err error) {
	catErr := errors.Categorize(err)

	if catErr.Category == errors.CategoryQuota {
		tier, _ := catErr.Details["tier"].(string)
		resetTime, _ := catErr.Details["reset_time"].(string)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(RateLimitResponse{ // nolint:errcheck
			Error:     "Rate limit exceeded",
			Tier:      types.Tier(tier),
			Reason:    catErr.Message,
			ResetTime: resetTime,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(catErr.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: *catErr.ToServiceError()}) // nolint:errcheck
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data) // nolint:errcheck // response write failure is unrecoverable
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)
