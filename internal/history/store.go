// Package history provides the append-only per-contract scan time series
// and the trend analysis computed over it.
package history

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/types"
)

// maxRecordsPerContract bounds the retained series per (chain, address).
const maxRecordsPerContract = 100

// Store is the append-only scan history. Records are never updated or
// deleted; History returns records in ascending timestamp order.
type Store interface {
	Append(ctx context.Context, record *models.ScanRecord) error
	History(ctx context.Context, chain types.ChainID, address string) ([]models.ScanRecord, error)
}

// MemoryStore keeps the series in process memory. Used in tests and
// single-node deployments without ClickHouse.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]models.ScanRecord
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]models.ScanRecord)}
}

func seriesKey(chain types.ChainID, address string) string {
	return fmt.Sprintf("%s:%s", chain, strings.ToLower(address))
}

// Append adds a record to the contract's series. Concurrent appends to the
// same key keep the series ordered by timestamp.
func (s *MemoryStore) Append(ctx context.Context, record *models.ScanRecord) error {
	if record == nil {
		return fmt.Errorf("record must not be nil")
	}

	key := seriesKey(record.Chain, record.ContractAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	series := s.records[key]
	// Insert position: appends normally arrive in timestamp order, so scan
	// from the tail.
	idx := len(series)
	for idx > 0 && series[idx-1].Timestamp.After(record.Timestamp) {
		idx--
	}
	series = append(series, models.ScanRecord{})
	copy(series[idx+1:], series[idx:])
	series[idx] = *record

	if len(series) > maxRecordsPerContract {
		series = series[len(series)-maxRecordsPerContract:]
	}
	s.records[key] = series

	return nil
}

// History returns the contract's series in ascending timestamp order.
func (s *MemoryStore) History(ctx context.Context, chain types.ChainID, address string) ([]models.ScanRecord, error) {
	key := seriesKey(chain, address)

	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.records[key]
	out := make([]models.ScanRecord, len(series))
	copy(out, series)

	return out, nil
}
