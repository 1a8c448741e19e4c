// Package types provides common type definitions for the contract scanner system.
package types

// Tier represents the service tier level
type Tier string

const (
	// TierFree represents the free service tier with limited features
	TierFree Tier = "free"
	// TierBasic represents the entry-level paid tier
	TierBasic Tier = "basic"
	// TierPro represents the professional tier
	TierPro Tier = "pro"
	// TierEnterprise represents the enterprise tier with unlimited scan volume
	TierEnterprise Tier = "enterprise"
)

// IsValid reports whether the tier is one of the known service tiers.
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierBasic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// ChainID represents supported blockchain networks
type ChainID string

const (
	// ChainEthereum represents the Ethereum mainnet
	ChainEthereum ChainID = "ethereum"
	// ChainBase represents the Base network
	ChainBase ChainID = "base"
	// ChainPolygon represents the Polygon network
	ChainPolygon ChainID = "polygon"
	// ChainSolana represents the Solana network
	ChainSolana ChainID = "solana"
)

// SupportedChains lists every chain the scanner accepts.
var SupportedChains = []ChainID{ChainEthereum, ChainBase, ChainPolygon, ChainSolana}

// IsValid reports whether the chain is supported.
func (c ChainID) IsValid() bool {
	switch c {
	case ChainEthereum, ChainBase, ChainPolygon, ChainSolana:
		return true
	}
	return false
}

// IsEVM reports whether the chain uses Ethereum-style hex addresses.
func (c ChainID) IsEVM() bool {
	return c != ChainSolana
}

// ScanStatus represents the outcome of one scan item
type ScanStatus string

const (
	// ScanStatusSuccess represents a completed scan with a result
	ScanStatusSuccess ScanStatus = "success"
	// ScanStatusError represents a scan that failed or timed out
	ScanStatusError ScanStatus = "error"
)

// QuotaScope identifies which limit rejected a reservation
type QuotaScope string

const (
	// ScopeHourly means the hourly window is exhausted
	ScopeHourly QuotaScope = "hourly"
	// ScopeDaily means the daily window is exhausted
	ScopeDaily QuotaScope = "daily"
	// ScopeBatchSize means the batch exceeds the tier's batch limit
	ScopeBatchSize QuotaScope = "batch_size"
	// ScopeRequestRate means the transport request rate was exceeded
	ScopeRequestRate QuotaScope = "request_rate"
)

// TrendDirection labels the direction of a metric over a window.
// Score metrics (higher is better) use improving/declining; count metrics
// (lower is better) use increasing/decreasing. Both share "stable".
type TrendDirection string

const (
	TrendImproving  TrendDirection = "improving"
	TrendDeclining  TrendDirection = "declining"
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
