package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/internal/storage"
	"go.uber.org/zap"

	// register decoders beyond the ones imaging brings in itself
	_ "golang.org/x/image/webp"
)

// AssetRepository defines the slice of asset data access the processor needs
type AssetRepository interface {
	// GetByID retrieves an asset by its identifier.
	//
	// Returns models.ErrAssetNotFound together with "nil" value when no asset
	// matches.
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	// MarkProcessed flips the asset's processed flag.
	MarkProcessed(ctx context.Context, id string) error
}

// ContentStore defines the slice of content storage the processor needs
type ContentStore interface {
	// Open opens the content under key for reading.
	Open(key string) (io.ReadCloser, error)
	// Replace writes content under key, overwriting any previous content.
	Replace(key string, r io.Reader) (int64, error)
	// Delete removes the content under key; absent keys are not an error.
	Delete(key string) error
}

// ProgressPublisher publishes human-readable progress text for a running task
type ProgressPublisher interface {
	Publish(ctx context.Context, taskID, text string) error
}

// Processor validates stored content as a real image and derives its
// thumbnail. It runs inside the worker, after the upload has already been
// accepted and counted.
type Processor struct {
	assetRepo AssetRepository
	store     ContentStore
	progress  ProgressPublisher
	logger    *zap.Logger
	thumbSize int
}

// NewProcessor creates a new processor. "thumbSize" parameter is the bounding
// box, in pixels, thumbnails are fitted into.
func NewProcessor(assetRepo AssetRepository, store ContentStore, progress ProgressPublisher, logger *zap.Logger, thumbSize int) *Processor {
	return &Processor{
		assetRepo: assetRepo,
		store:     store,
		progress:  progress,
		logger:    logger,
		thumbSize: thumbSize,
	}
}

// Process runs post-acceptance processing for one asset: decode validation,
// dimension extraction and thumbnail generation.
//
// An asset deleted between enqueue and delivery, or one already processed by
// an earlier delivery, is skipped with a nil result. On any failure the
// stored content is removed (best effort) so unvalidated bytes cannot be
// served; content that fails to decode fails the task terminally with
// models.ErrInvalidImage. The asset row stays in place either way, marked
// unprocessed.
func (p *Processor) Process(ctx context.Context, taskID string, payload models.ProcessPayload) (*models.ProcessResult, error) {
	asset, err := p.assetRepo.GetByID(ctx, payload.AssetID)
	if err != nil {
		if errors.Is(err, models.ErrAssetNotFound) {
			p.logger.Info("asset gone before processing, skipping",
				zap.String("asset_id", payload.AssetID),
				zap.String("task_id", taskID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}

	if asset.Processed {
		// Re-delivered task for content that already validated. Nothing to
		// do, and above all nothing to delete.
		p.logger.Info("asset already processed, skipping",
			zap.String("asset_id", asset.ID),
			zap.String("task_id", taskID),
		)
		return nil, nil
	}

	p.publishProgress(ctx, taskID, "validating image")

	content, err := p.readContent(payload.StoredName)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored content: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		// The bytes were accepted on trust at upload time; now that they
		// failed validation the original is removed so it cannot be served.
		p.removeContent(asset.StoredName)
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	p.publishProgress(ctx, taskID, "generating thumbnail")

	thumbKey, err := p.writeThumbnail(img, format, payload.StoredName)
	if err != nil {
		p.removeContent(asset.StoredName)
		return nil, fmt.Errorf("failed to write thumbnail: %w", err)
	}

	if err := p.assetRepo.MarkProcessed(ctx, asset.ID); err != nil {
		p.removeContent(asset.StoredName)
		return nil, fmt.Errorf("failed to mark asset processed: %w", err)
	}

	p.logger.Info("asset processed",
		zap.String("asset_id", asset.ID),
		zap.String("task_id", taskID),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("format", format),
	)

	return &models.ProcessResult{
		AssetID:       asset.ID,
		Width:         width,
		Height:        height,
		Format:        format,
		ThumbnailPath: thumbKey,
	}, nil
}

func (p *Processor) readContent(storedName string) ([]byte, error) {
	rc, err := p.store.Open(storedName)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// writeThumbnail fits the image into the configured bounding box and stores
// it under the thumbnail key. Formats without an encoder (webp among them)
// fall back to PNG; the key keeps the original extension either way.
func (p *Processor) writeThumbnail(img image.Image, format, storedName string) (string, error) {
	thumb := imaging.Fit(img, p.thumbSize, p.thumbSize, imaging.Lanczos)

	encodeFormat, ok := encoderFor(format)
	if !ok {
		encodeFormat = imaging.PNG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, encodeFormat); err != nil {
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumbKey := storage.ThumbnailKey(storedName)
	if _, err := p.store.Replace(thumbKey, &buf); err != nil {
		return "", err
	}
	return thumbKey, nil
}

// removeContent deletes stored content that failed processing, best effort
func (p *Processor) removeContent(storedName string) {
	if err := p.store.Delete(storedName); err != nil {
		p.logger.Error("failed to delete content after processing failure",
			zap.String("stored_name", storedName), zap.Error(err))
	}
}

func (p *Processor) publishProgress(ctx context.Context, taskID, text string) {
	if err := p.progress.Publish(ctx, taskID, text); err != nil {
		p.logger.Warn("failed to publish task progress",
			zap.String("task_id", taskID), zap.Error(err))
	}
}

func encoderFor(format string) (imaging.Format, bool) {
	switch format {
	case "jpeg":
		return imaging.JPEG, true
	case "png":
		return imaging.PNG, true
	case "gif":
		return imaging.GIF, true
	case "bmp":
		return imaging.BMP, true
	case "tiff":
		return imaging.TIFF, true
	default:
		return 0, false
	}
}
