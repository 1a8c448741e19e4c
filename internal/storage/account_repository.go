package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contract-scanner/internal/models"
	"github.com/contract-scanner/internal/types"
)

// AccountRepository handles account data persistence
type AccountRepository struct {
	db *PostgresDB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *PostgresDB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now()

	if err := validateTier(account.Tier); err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (id, api_key, email, tier, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool().Exec(ctx, query,
		account.ID,
		account.APIKey,
		account.Email,
		account.Tier,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByAPIKey retrieves an account by API key
func (r *AccountRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Account, error) {
	query := `
		SELECT id, api_key, email, tier, created_at
		FROM accounts
		WHERE api_key = $1
	`

	var account models.Account
	err := r.db.Pool().QueryRow(ctx, query, apiKey).Scan(
		&account.ID,
		&account.APIKey,
		&account.Email,
		&account.Tier,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `
		SELECT id, api_key, email, tier, created_at
		FROM accounts
		WHERE id = $1
	`

	var account models.Account
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.APIKey,
		&account.Email,
		&account.Tier,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// UpdateTier changes an account's tier
func (r *AccountRepository) UpdateTier(ctx context.Context, accountID string, tier types.Tier) error {
	if err := validateTier(tier); err != nil {
		return err
	}

	query := `UPDATE accounts SET tier = $2 WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, accountID, tier)
	if err != nil {
		return fmt.Errorf("failed to update account tier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", accountID)
	}

	return nil
}

// Delete deletes an account by ID
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}

	return nil
}

// Count returns the total number of accounts
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM accounts`

	err := r.db.Pool().QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// validateTier validates that the tier is one of the allowed values
func validateTier(tier types.Tier) error {
	if tier.IsValid() {
		return nil
	}
	return &types.ServiceError{
		Code:    "INVALID_TIER",
		Message: fmt.Sprintf("invalid tier: %s", tier),
		Details: map[string]interface{}{
			"tier": tier,
		},
	}
}
