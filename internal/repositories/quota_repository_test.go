package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupQuotaTestRepository creates a quota repository with a mock database
func setupQuotaTestRepository(t *testing.T) (*quotaRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewQuotaRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestNewQuotaRepository(t *testing.T) {
	db := &sql.DB{}

	repo := NewQuotaRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestQuotaRepository_GetCount(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedCount int
		expectedError bool
	}{
		{
			name: "existing record",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"upload_count"}).AddRow(7)
				mock.ExpectQuery(`SELECT upload_count FROM upload_quotas WHERE identity_key = \?`).
					WithArgs("key-1").
					WillReturnRows(rows)
			},
			expectedCount: 7,
			expectedError: false,
		},
		{
			name: "no record yet",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT upload_count FROM upload_quotas WHERE identity_key = \?`).
					WithArgs("key-1").
					WillReturnError(sql.ErrNoRows)
			},
			expectedCount: 0,
			expectedError: false,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT upload_count FROM upload_quotas WHERE identity_key = \?`).
					WithArgs("key-1").
					WillReturnError(errors.New("database error"))
			},
			expectedCount: 0,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupQuotaTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			count, err := repo.GetCount(context.Background(), "key-1")

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedCount, count)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestQuotaRepository_TryIncrement(t *testing.T) {
	tests := []struct {
		name            string
		limit           int
		setupMock       func(sqlmock.Sqlmock)
		expectedAllowed bool
		expectedError   bool
	}{
		{
			name:  "first upload creates record",
			limit: 25,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO upload_quotas`).
					WithArgs("key-1", 25).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedAllowed: true,
			expectedError:   false,
		},
		{
			name:  "increment below ceiling",
			limit: 25,
			setupMock: func(mock sqlmock.Sqlmock) {
				// MySQL reports 2 affected rows for an upsert that updated
				mock.ExpectExec(`INSERT INTO upload_quotas`).
					WithArgs("key-1", 25).
					WillReturnResult(sqlmock.NewResult(0, 2))
			},
			expectedAllowed: true,
			expectedError:   false,
		},
		{
			name:  "at ceiling leaves count unchanged",
			limit: 25,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO upload_quotas`).
					WithArgs("key-1", 25).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedAllowed: false,
			expectedError:   false,
		},
		{
			name:            "zero limit rejects without touching the database",
			limit:           0,
			setupMock:       func(mock sqlmock.Sqlmock) {},
			expectedAllowed: false,
			expectedError:   false,
		},
		{
			name:  "database error",
			limit: 25,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO upload_quotas`).
					WithArgs("key-1", 25).
					WillReturnError(errors.New("database error"))
			},
			expectedAllowed: false,
			expectedError:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupQuotaTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			allowed, err := repo.TryIncrement(context.Background(), "key-1", tt.limit)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedAllowed, allowed)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
