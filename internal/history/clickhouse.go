package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/storage"
	"github.com/contract-scanner/internal/types"
)

// ClickHouseStore persists the scan series in ClickHouse. The table is
// insert-only; retention beyond maxRecordsPerContract is handled at query
// time.
type ClickHouseStore struct {
	db *storage.ClickHouseDB
}

// NewClickHouseStore creates a ClickHouse-backed history store.
func NewClickHouseStore(db *storage.ClickHouseDB) *ClickHouseStore {
	return &ClickHouseStore{db: db}
}

// Append inserts one scan record.
func (s *ClickHouseStore) Append(ctx context.Context, record *models.ScanRecord) error {
	if record == nil {
		return fmt.Errorf("record must not be nil")
	}

	query := `
		INSERT INTO scan_history (
			scan_id, contract_address, chain, timestamp,
			safety_score, vulnerability_count, rug_pull_count
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.db.Exec(ctx, query,
		record.ScanID,
		strings.ToLower(record.ContractAddress),
		string(record.Chain),
		record.Timestamp,
		int32(record.SafetyScore),
		int32(record.VulnerabilityCount),
		int32(record.RugPullCount),
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}

	return nil
}

// History returns the most recent records for a contract, ascending by
// timestamp.
func (s *ClickHouseStore) History(ctx context.Context, chain types.ChainID, address string) ([]models.ScanRecord, error) {
	query := `
		SELECT scan_id, contract_address, chain, timestamp,
		       safety_score, vulnerability_count, rug_pull_count
		FROM scan_history
		WHERE chain = ? AND contract_address = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := s.db.Conn().Query(ctx, query, string(chain), strings.ToLower(address), maxRecordsPerContract)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []models.ScanRecord
	for rows.Next() {
		var (
			record    models.ScanRecord
			chainStr  string
			timestamp time.Time
			score     int32
			vulns     int32
			rugs      int32
		)
		if err := rows.Scan(&record.ScanID, &record.ContractAddress, &chainStr, &timestamp, &score, &vulns, &rugs); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		record.Chain = types.ChainID(chainStr)
		record.Timestamp = timestamp
		record.SafetyScore = int(score)
		record.VulnerabilityCount = int(vulns)
		record.RugPullCount = int(rugs)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan history: %w", err)
	}

	// Query returns newest first; callers expect ascending order.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	return records, nil
}
