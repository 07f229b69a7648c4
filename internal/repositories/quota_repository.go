package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// quotaRepository implements upload quota data access
type quotaRepository struct {
	db *sql.DB
}

// NewQuotaRepository creates a new quota repository
func NewQuotaRepository(db *sql.DB) *quotaRepository {
	return &quotaRepository{
		db: db,
	}
}

// GetCount retrieves the current upload count for an identity key.
// Returns 0 when the identity has no record yet.
func (r *quotaRepository) GetCount(ctx context.Context, identityKey string) (int, error) {
	query := `
		SELECT upload_count
		FROM upload_quotas
		WHERE identity_key = ?
		LIMIT 1
	`

	var count int
	err := r.db.QueryRowContext(ctx, query, identityKey).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get upload count: %w", err)
	}

	return count, nil
}

// TryIncrement increments the upload count for an identity key if and only if
// the count is still below limit, as a single conditional upsert. Two
// concurrent requests from the same identity can therefore never both claim
// the last remaining slot.
//
// Returns true when the increment was applied, false when the identity is at
// its ceiling.
func (r *quotaRepository) TryIncrement(ctx context.Context, identityKey string, limit int) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	query := `
		INSERT INTO upload_quotas (identity_key, upload_count)
		VALUES (?, 1)
		ON DUPLICATE KEY UPDATE upload_count = IF(upload_count < ?, upload_count + 1, upload_count)
	`

	result, err := r.db.ExecContext(ctx, query, identityKey, limit)
	if err != nil {
		return false, fmt.Errorf("failed to increment upload count: %w", err)
	}

	// MySQL reports 1 affected row for a fresh insert, 2 for an update that
	// changed the row and 0 for an update that left it unchanged, which is
	// exactly the at-ceiling case.
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
