package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/imagevault/backend/internal/models"
	"go.uber.org/zap"
)

// fingerprintHeader carries the optional client device fingerprint mixed into
// the submitter identity
const fingerprintHeader = "X-Device-Fingerprint"

// allowedExtensions is the whitelist of accepted upload file extensions
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// allowedContentTypes is the whitelist of accepted declared MIME types
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// UploadsService is the interface that wraps methods for upload business logic.
type UploadsService interface {
	// Method Upload runs the ingestion pipeline for one submitted asset.
	//
	// "req" parameter carries the raw content, caller-supplied metadata and
	// the submitter identity inputs (IP and device fingerprint).
	// Returns models.ErrQuotaExceeded when the submitter is at their upload
	// ceiling. A byte-identical re-upload succeeds with IsDuplicate set.
	Upload(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
	// Method MyUploads lists all uploads attributed to the caller's identity
	// together with quota usage.
	MyUploads(ctx context.Context, ip, deviceFingerprint string) (*models.MyUploadsResponse, error)
	// Method Stats returns aggregate statistics over all stored assets.
	Stats(ctx context.Context) (*models.AssetStats, error)
	// Method UploadLimit returns the configured per-identity upload ceiling.
	UploadLimit() int
}

// UploadsHandler handles HTTP requests for asset ingestion
type UploadsHandler struct {
	BaseHandler
	service     UploadsService
	maxFileSize int64
}

// NewUploadsHandler creates a new uploads handler
func NewUploadsHandler(svc UploadsService, maxFileSize int64, logger *zap.Logger) *UploadsHandler {
	return &UploadsHandler{
		service:     svc,
		maxFileSize: maxFileSize,
		BaseHandler: BaseHandler{logger: logger},
	}
}

// RegisterRoutes registers all uploads handler routes
func (h *UploadsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/upload", h.Upload)
	r.Get("/api/v1/my-uploads", h.MyUploads)
	r.Get("/api/v1/stats", h.Stats)
}

// Upload handles POST /api/v1/upload
func (h *UploadsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusRequestEntityTooLarge, "file too large or malformed multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		h.respondError(w, http.StatusBadRequest, "unsupported file extension")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType != "" && !allowedContentTypes[contentType] {
		h.respondError(w, http.StatusBadRequest, "unsupported content type")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("failed to read uploaded file", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}
	if len(content) == 0 {
		h.respondError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	req := &models.UploadRequest{
		Content:           content,
		OriginalFilename:  header.Filename,
		Name:              r.FormValue("name"),
		Description:       r.FormValue("description"),
		Tags:              parseTags(r.FormValue("tags")),
		ContentType:       contentType,
		IP:                clientIP(r),
		DeviceFingerprint: r.Header.Get(fingerprintHeader),
	}

	resp, err := h.service.Upload(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrQuotaExceeded) {
			h.respondError(w, http.StatusTooManyRequests, "upload limit reached")
			return
		}
		h.logger.Error("failed to process upload", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to process upload")
		return
	}

	status := http.StatusCreated
	if resp.IsDuplicate {
		status = http.StatusOK
	}
	h.respondJSON(w, status, resp)
}

// MyUploads handles GET /api/v1/my-uploads
func (h *UploadsHandler) MyUploads(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.MyUploads(r.Context(), clientIP(r), r.Header.Get(fingerprintHeader))
	if err != nil {
		h.logger.Error("failed to list uploads", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/v1/stats
func (h *UploadsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	h.respondJSON(w, http.StatusOK, stats)
}

// parseTags accepts either a JSON array ("[\"a\",\"b\"]") or a comma-separated
// list ("a, b"); blank entries are dropped
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			return normalizeTags(tags)
		}
	}
	return normalizeTags(strings.Split(raw, ","))
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// clientIP resolves the submitter address, preferring proxy headers over the
// raw connection address
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.Index(fwd, ","); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
