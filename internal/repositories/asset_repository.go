package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/imagevault/backend/internal/models"
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation
const mysqlDuplicateEntry = 1062

// assetRepository implements asset data access
type assetRepository struct {
	db *sql.DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB) *assetRepository {
	return &assetRepository{
		db: db,
	}
}

// Create inserts a new asset record into the database.
// Returns models.ErrDuplicateDigest if another asset with the same content
// hash already exists; the unique key on content_hash is the authoritative
// deduplication guard under concurrent inserts.
func (r *assetRepository) Create(ctx context.Context, asset *models.Asset) error {
	tags, err := json.Marshal(asset.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	query := `
		INSERT INTO assets (id, content_hash, stored_name, original_filename, name, description, tags, size, content_type, uploader_key, uploader_ip, uploaded_at, processed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		asset.ID,
		asset.ContentHash,
		asset.StoredName,
		asset.OriginalFilename,
		asset.Name,
		asset.Description,
		string(tags),
		asset.Size,
		asset.ContentType,
		asset.UploaderKey,
		asset.UploaderIP,
		asset.UploadedAt,
		asset.Processed,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return models.ErrDuplicateDigest
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByHash retrieves an asset by its content hash
func (r *assetRepository) GetByHash(ctx context.Context, contentHash string) (*models.Asset, error) {
	query := `
		SELECT id, content_hash, stored_name, original_filename, name, description, tags, size, content_type, uploader_key, uploader_ip, uploaded_at, processed
		FROM assets
		WHERE content_hash = ?
		LIMIT 1
	`

	return r.scanAsset(r.db.QueryRowContext(ctx, query, contentHash))
}

// GetByID retrieves an asset by its identifier
func (r *assetRepository) GetByID(ctx context.Context, id string) (*models.Asset, error) {
	query := `
		SELECT id, content_hash, stored_name, original_filename, name, description, tags, size, content_type, uploader_key, uploader_ip, uploaded_at, processed
		FROM assets
		WHERE id = ?
		LIMIT 1
	`

	return r.scanAsset(r.db.QueryRowContext(ctx, query, id))
}

// DeleteByID deletes an asset by its identifier
func (r *assetRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM assets WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return models.ErrAssetNotFound
	}

	return nil
}

// MarkProcessed sets the processed flag of an asset
func (r *assetRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `UPDATE assets SET processed = TRUE WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark asset processed: %w", err)
	}

	return nil
}

// ListByUploader retrieves all assets submitted by the given identity key,
// newest first
func (r *assetRepository) ListByUploader(ctx context.Context, uploaderKey string) ([]models.Asset, error) {
	query := `
		SELECT id, content_hash, stored_name, original_filename, name, description, tags, size, content_type, uploader_key, uploader_ip, uploaded_at, processed
		FROM assets
		WHERE uploader_key = ?
		ORDER BY uploaded_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, uploaderKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by uploader: %w", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		asset, err := r.scanAssetRow(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}

	return assets, nil
}

// Stats returns aggregate statistics over all assets
func (r *assetRepository) Stats(ctx context.Context) (*models.AssetStats, error) {
	query := `
		SELECT COUNT(id),
		       COUNT(DISTINCT uploader_key),
		       COALESCE(SUM(size), 0),
		       COALESCE(SUM(processed), 0)
		FROM assets
	`

	stats := &models.AssetStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalAssets,
		&stats.UniqueUploaders,
		&stats.TotalSize,
		&stats.ProcessedAssets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset stats: %w", err)
	}

	return stats, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *assetRepository) scanAsset(row *sql.Row) (*models.Asset, error) {
	asset, err := r.scanAssetRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrAssetNotFound
	}
	return asset, err
}

func (r *assetRepository) scanAssetRow(row rowScanner) (*models.Asset, error) {
	asset := &models.Asset{}
	var tags string

	err := row.Scan(
		&asset.ID,
		&asset.ContentHash,
		&asset.StoredName,
		&asset.OriginalFilename,
		&asset.Name,
		&asset.Description,
		&tags,
		&asset.Size,
		&asset.ContentType,
		&asset.UploaderKey,
		&asset.UploaderIP,
		&asset.UploadedAt,
		&asset.Processed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &asset.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if asset.Tags == nil {
		asset.Tags = []string{}
	}

	return asset, nil
}
