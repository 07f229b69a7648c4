package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/internal/search"
	"github.com/imagevault/backend/internal/storage"
	"go.uber.org/zap"
)

// storedNameRetries bounds re-salting attempts on a storage key collision
const storedNameRetries = 3

// AssetRepository defines the interface for asset data access
type AssetRepository interface {
	// Create inserts a new asset record.
	//
	// Returns models.ErrDuplicateDigest when another asset with the same
	// content hash already exists; the unique constraint is the authoritative
	// deduplication guard under concurrent inserts.
	Create(ctx context.Context, asset *models.Asset) error
	// GetByHash retrieves an asset by its content hash.
	//
	// Returns models.ErrAssetNotFound together with "nil" value when no asset
	// matches.
	GetByHash(ctx context.Context, contentHash string) (*models.Asset, error)
	// DeleteByID deletes an asset by its identifier.
	//
	// Used to compensate an insert when the quota increment is refused.
	DeleteByID(ctx context.Context, id string) error
	// ListByUploader retrieves all assets submitted by the given identity
	// key, newest first.
	ListByUploader(ctx context.Context, uploaderKey string) ([]models.Asset, error)
	// Stats returns aggregate statistics over all assets.
	Stats(ctx context.Context) (*models.AssetStats, error)
}

// QuotaRepository defines the interface for upload quota data access
type QuotaRepository interface {
	// GetCount retrieves the current upload count for an identity key,
	// 0 when the identity has no record yet.
	GetCount(ctx context.Context, identityKey string) (int, error)
	// TryIncrement increments the upload count if and only if it is still
	// below limit, as one atomic operation.
	//
	// Returns true when the increment was applied, false when the identity is
	// at its ceiling.
	TryIncrement(ctx context.Context, identityKey string, limit int) (bool, error)
}

// ContentStore defines the interface for durable content storage
type ContentStore interface {
	// Save writes content under key, refusing to overwrite an existing key.
	// The returned error satisfies errors.Is(err, os.ErrExist) on a key
	// collision.
	Save(key string, r io.Reader) (int64, error)
	// Delete removes the content under key; absent keys are not an error.
	Delete(key string) error
}

// SearchIndex defines the interface for the best-effort search projection
type SearchIndex interface {
	// Upsert indexes the document under its asset identifier.
	Upsert(ctx context.Context, doc search.Document) error
}

// TaskQueue defines the interface for scheduling asynchronous processing
type TaskQueue interface {
	// Enqueue schedules post-processing for an asset and returns the task
	// identifier.
	Enqueue(ctx context.Context, payload models.ProcessPayload) (string, error)
}

// uploadService implements the ingestion pipeline: content-addressed
// deduplication, quota enforcement, durable storage, metadata persistence,
// search projection and processing dispatch
type uploadService struct {
	assetRepo   AssetRepository
	quotaRepo   QuotaRepository
	store       ContentStore
	searchIndex SearchIndex
	taskQueue   TaskQueue
	logger      *zap.Logger
	uploadLimit int
}

// NewUploadService creates a new upload service
func NewUploadService(
	assetRepo AssetRepository,
	quotaRepo QuotaRepository,
	store ContentStore,
	searchIndex SearchIndex,
	taskQueue TaskQueue,
	logger *zap.Logger,
	uploadLimit int,
) *uploadService {
	return &uploadService{
		assetRepo:   assetRepo,
		quotaRepo:   quotaRepo,
		store:       store,
		searchIndex: searchIndex,
		taskQueue:   taskQueue,
		logger:      logger,
		uploadLimit: uploadLimit,
	}
}

// Upload runs the ingestion pipeline for one submitted asset.
//
// Identical bytes are detected by content hash and never stored or counted
// twice: a duplicate returns the existing asset with IsDuplicate set and
// performs no writes. The quota is charged through an atomic conditional
// increment after the asset row exists; if the increment is refused the row
// and the stored content are compensated away, so the ledger can never
// exceed the ceiling. Search indexing is best-effort and never fails the
// upload.
func (s *uploadService) Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	identityKey := models.IdentityKey(req.IP, req.DeviceFingerprint)

	// Fast pre-check so over-quota submitters are rejected before any work.
	// The authoritative gate is the conditional increment below.
	count, err := s.quotaRepo.GetCount(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check upload quota: %w", err)
	}
	if count >= s.uploadLimit {
		return nil, models.ErrQuotaExceeded
	}

	digest := sha256.Sum256(req.Content)
	contentHash := hex.EncodeToString(digest[:])

	existing, err := s.assetRepo.GetByHash(ctx, contentHash)
	if err != nil && !errors.Is(err, models.ErrAssetNotFound) {
		return nil, fmt.Errorf("failed to check for duplicate: %w", err)
	}
	if existing != nil {
		s.logger.Info("duplicate upload detected",
			zap.String("asset_id", existing.ID),
			zap.String("content_hash", contentHash),
		)
		return duplicateResponse(existing), nil
	}

	storedName, size, err := s.storeContent(req, contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to store content: %w", err)
	}

	asset := &models.Asset{
		ID:               uuid.New().String(),
		ContentHash:      contentHash,
		StoredName:       storedName,
		OriginalFilename: req.OriginalFilename,
		Name:             displayName(req),
		Description:      req.Description,
		Tags:             req.Tags,
		Size:             size,
		ContentType:      req.ContentType,
		UploaderKey:      identityKey,
		UploaderIP:       req.IP,
		UploadedAt:       time.Now().UTC(),
		Processed:        false,
	}

	if err := s.assetRepo.Create(ctx, asset); err != nil {
		if errors.Is(err, models.ErrDuplicateDigest) {
			// A concurrent upload of the same bytes won the insert race.
			// Drop our orphaned file and return the winner.
			if delErr := s.store.Delete(storedName); delErr != nil {
				s.logger.Warn("failed to delete orphaned content after duplicate race",
					zap.String("stored_name", storedName), zap.Error(delErr))
			}
			winner, err := s.assetRepo.GetByHash(ctx, contentHash)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve duplicate winner: %w", err)
			}
			s.logger.Info("concurrent duplicate upload recovered",
				zap.String("asset_id", winner.ID),
				zap.String("content_hash", contentHash),
			)
			return duplicateResponse(winner), nil
		}
		// The content object is orphaned here; a garbage-collection sweep
		// over unreferenced objects reclaims it.
		return nil, fmt.Errorf("failed to create asset record: %w", err)
	}

	allowed, err := s.quotaRepo.TryIncrement(ctx, identityKey, s.uploadLimit)
	if err != nil {
		s.compensate(ctx, asset)
		return nil, fmt.Errorf("failed to increment upload quota: %w", err)
	}
	if !allowed {
		// Concurrent uploads from this identity claimed the last slot between
		// the pre-check and here. Undo the accepted asset.
		s.compensate(ctx, asset)
		return nil, models.ErrQuotaExceeded
	}

	if err := s.searchIndex.Upsert(ctx, searchDocument(asset)); err != nil {
		// Search is a best-effort projection; the asset stays accepted.
		s.logger.Warn("failed to index asset for search",
			zap.String("asset_id", asset.ID), zap.Error(err))
	}

	taskID, err := s.taskQueue.Enqueue(ctx, models.ProcessPayload{
		AssetID:    asset.ID,
		StoredName: asset.StoredName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue processing task: %w", err)
	}

	usedCount := count + 1
	if current, err := s.quotaRepo.GetCount(ctx, identityKey); err == nil {
		usedCount = current
	}

	s.logger.Info("asset accepted",
		zap.String("asset_id", asset.ID),
		zap.String("task_id", taskID),
		zap.String("content_hash", contentHash),
		zap.Int64("size", size),
	)

	return &models.UploadResponse{
		Message:     "Image uploaded successfully",
		IsDuplicate: false,
		AssetID:     asset.ID,
		Filename:    asset.StoredName,
		URL:         contentURL(asset.StoredName),
		TaskID:      taskID,
		FileHash:    contentHash,
		UploadsUsed: fmt.Sprintf("%d/%d", usedCount, s.uploadLimit),
		UploadedAt:  asset.UploadedAt,
	}, nil
}

// MyUploads lists all uploads attributed to the caller's identity together
// with quota usage
func (s *uploadService) MyUploads(ctx context.Context, ip, deviceFingerprint string) (*models.MyUploadsResponse, error) {
	identityKey := models.IdentityKey(ip, deviceFingerprint)

	assets, err := s.assetRepo.ListByUploader(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	count, err := s.quotaRepo.GetCount(ctx, identityKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload count: %w", err)
	}

	remaining := s.uploadLimit - count
	if remaining < 0 {
		remaining = 0
	}

	return &models.MyUploadsResponse{
		TotalUploads: len(assets),
		UploadsUsed:  fmt.Sprintf("%d/%d", count, s.uploadLimit),
		Remaining:    remaining,
		Images:       assets,
	}, nil
}

// Stats returns aggregate statistics over all assets
func (s *uploadService) Stats(ctx context.Context) (*models.AssetStats, error) {
	return s.assetRepo.Stats(ctx)
}

// UploadLimit returns the configured per-identity upload ceiling
func (s *uploadService) UploadLimit() int {
	return s.uploadLimit
}

// storeContent writes the payload under a derived stored-name, re-salting
// the name on a key collision. The store is append-only, so a taken key is
// never overwritten.
func (s *uploadService) storeContent(req *models.UploadRequest, contentHash string) (string, int64, error) {
	ext := filepath.Ext(req.OriginalFilename)
	storedName := storage.DeriveStoredName(time.Now(), contentHash, ext)

	for attempt := 0; ; attempt++ {
		size, err := s.store.Save(storedName, bytes.NewReader(req.Content))
		if err == nil {
			return storedName, size, nil
		}
		if !errors.Is(err, os.ErrExist) || attempt >= storedNameRetries {
			return "", 0, err
		}
		storedName = storage.ResaltStoredName(storedName)
	}
}

// compensate removes the asset row and its stored content after a refused or
// failed quota increment
func (s *uploadService) compensate(ctx context.Context, asset *models.Asset) {
	if err := s.assetRepo.DeleteByID(ctx, asset.ID); err != nil {
		s.logger.Error("failed to compensate asset row",
			zap.String("asset_id", asset.ID), zap.Error(err))
	}
	if err := s.store.Delete(asset.StoredName); err != nil {
		s.logger.Error("failed to compensate stored content",
			zap.String("stored_name", asset.StoredName), zap.Error(err))
	}
}

// displayName falls back to the original filename when no name was supplied
func displayName(req *models.UploadRequest) string {
	if req.Name != "" {
		return req.Name
	}
	return req.OriginalFilename
}

func duplicateResponse(asset *models.Asset) *models.UploadResponse {
	return &models.UploadResponse{
		Message:     "Image already exists (duplicate detected)",
		IsDuplicate: true,
		AssetID:     asset.ID,
		Filename:    asset.StoredName,
		URL:         contentURL(asset.StoredName),
		UploadedAt:  asset.UploadedAt,
	}
}

func searchDocument(asset *models.Asset) search.Document {
	return search.Document{
		ID:           asset.ID,
		Name:         asset.Name,
		Description:  asset.Description,
		Tags:         asset.Tags,
		URL:          contentURL(asset.StoredName),
		ThumbnailURL: contentURL(storage.ThumbnailKey(asset.StoredName)),
		ContentHash:  asset.ContentHash,
		UploadedAt:   asset.UploadedAt,
	}
}

func contentURL(storedName string) string {
	return "/images/" + storedName
}
