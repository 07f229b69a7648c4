package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/imagevault/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAssetTestRepository creates an asset repository with a mock database
func setupAssetTestRepository(t *testing.T) (*assetRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewAssetRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func testAsset() *models.Asset {
	return &models.Asset{
		ID:               "a1b2c3d4-0000-0000-0000-000000000001",
		ContentHash:      "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		StoredName:       "20250101_120000_9f86d081884c.png",
		OriginalFilename: "cat.png",
		Name:             "cat",
		Description:      "a cat picture",
		Tags:             []string{"cat", "animal"},
		Size:             1024,
		ContentType:      "image/png",
		UploaderKey:      "key-1",
		UploaderIP:       "192.0.2.1",
		UploadedAt:       time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Processed:        false,
	}
}

func TestNewAssetRepository(t *testing.T) {
	db := &sql.DB{}

	repo := NewAssetRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestAssetRepository_Create(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO assets`).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expectedError: nil,
		},
		{
			name: "duplicate content hash",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO assets`).
					WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '9f86...' for key 'assets.content_hash'"})
			},
			expectedError: models.ErrDuplicateDigest,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO assets`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: errors.New("database error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAssetTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Create(context.Background(), testAsset())

			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, models.ErrDuplicateDigest) {
					assert.ErrorIs(t, err, models.ErrDuplicateDigest)
				}
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func assetColumns() []string {
	return []string{"id", "content_hash", "stored_name", "original_filename", "name", "description", "tags", "size", "content_type", "uploader_key", "uploader_ip", "uploaded_at", "processed"}
}

func assetRow(a *models.Asset) []driverValue {
	return []driverValue{
		a.ID, a.ContentHash, a.StoredName, a.OriginalFilename, a.Name, a.Description,
		`["cat","animal"]`, a.Size, a.ContentType, a.UploaderKey, a.UploaderIP, a.UploadedAt, a.Processed,
	}
}

type driverValue = driver.Value

func TestAssetRepository_GetByHash(t *testing.T) {
	asset := testAsset()

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(assetColumns()).AddRow(assetRow(asset)...)
				mock.ExpectQuery(`SELECT .+ FROM assets WHERE content_hash = \?`).
					WithArgs(asset.ContentHash).
					WillReturnRows(rows)
			},
			expectedError: nil,
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM assets WHERE content_hash = \?`).
					WithArgs(asset.ContentHash).
					WillReturnError(sql.ErrNoRows)
			},
			expectedError: models.ErrAssetNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM assets WHERE content_hash = \?`).
					WithArgs(asset.ContentHash).
					WillReturnError(errors.New("database error"))
			},
			expectedError: errors.New("database error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAssetTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			got, err := repo.GetByHash(context.Background(), asset.ContentHash)

			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, models.ErrAssetNotFound) {
					assert.ErrorIs(t, err, models.ErrAssetNotFound)
				}
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, got)
				assert.Equal(t, asset.ID, got.ID)
				assert.Equal(t, asset.ContentHash, got.ContentHash)
				assert.Equal(t, []string{"cat", "animal"}, got.Tags)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAssetRepository_GetByID(t *testing.T) {
	asset := testAsset()

	repo, mock, cleanup := setupAssetTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows(assetColumns()).AddRow(assetRow(asset)...)
	mock.ExpectQuery(`SELECT .+ FROM assets WHERE id = \?`).
		WithArgs(asset.ID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), asset.ID)

	assert.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, asset.StoredName, got.StoredName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepository_DeleteByID(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM assets WHERE id = \?`).
					WithArgs("asset-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			expectedError: nil,
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM assets WHERE id = \?`).
					WithArgs("asset-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: models.ErrAssetNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupAssetTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.DeleteByID(context.Background(), "asset-1")

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAssetRepository_MarkProcessed(t *testing.T) {
	repo, mock, cleanup := setupAssetTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE assets SET processed = TRUE WHERE id = \?`).
		WithArgs("asset-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkProcessed(context.Background(), "asset-1")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepository_ListByUploader(t *testing.T) {
	asset := testAsset()

	repo, mock, cleanup := setupAssetTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows(assetColumns()).
		AddRow(assetRow(asset)...).
		AddRow("a1b2c3d4-0000-0000-0000-000000000002", "otherhash", "20250101_130000_otherhash000.jpg", "dog.jpg", "dog", "", `[]`, int64(2048), "image/jpeg", "key-1", "192.0.2.1", asset.UploadedAt, true)
	mock.ExpectQuery(`SELECT .+ FROM assets WHERE uploader_key = \? ORDER BY uploaded_at DESC`).
		WithArgs("key-1").
		WillReturnRows(rows)

	got, err := repo.ListByUploader(context.Background(), "key-1")

	assert.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, asset.ID, got[0].ID)
	assert.Equal(t, []string{}, got[1].Tags)
	assert.True(t, got[1].Processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssetRepository_Stats(t *testing.T) {
	repo, mock, cleanup := setupAssetTestRepository(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"count", "uploaders", "size", "processed"}).
		AddRow(int64(10), int64(3), int64(123456), int64(7))
	mock.ExpectQuery(`SELECT COUNT\(id\),`).
		WillReturnRows(rows)

	stats, err := repo.Stats(context.Background())

	assert.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int64(10), stats.TotalAssets)
	assert.Equal(t, int64(3), stats.UniqueUploaders)
	assert.Equal(t, int64(123456), stats.TotalSize)
	assert.Equal(t, int64(7), stats.ProcessedAssets)
	assert.NoError(t, mock.ExpectationsWereMet())
}
