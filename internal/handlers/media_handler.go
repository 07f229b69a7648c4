package handlers

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/imagevault/backend/internal/storage"
	"go.uber.org/zap"
)

// FileStore is the interface that wraps content retrieval for serving.
type FileStore interface {
	// Method OpenFile opens the content under "key" parameter for serving.
	//
	// The returned error satisfies errors.Is(err, os.ErrNotExist) when the
	// key has no content.
	OpenFile(key string) (*os.File, error)
}

// MediaHandler serves stored originals and derived thumbnails
type MediaHandler struct {
	BaseHandler
	store FileStore
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(store FileStore, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		store:       store,
		BaseHandler: BaseHandler{logger: logger},
	}
}

// RegisterRoutes registers all media handler routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/images", func(r chi.Router) {
		r.Get("/thumbs/{storedName}", h.ServeThumbnail)
		r.Get("/{storedName}", h.ServeOriginal)
	})
}

// ServeOriginal handles GET /images/{storedName}
func (h *MediaHandler) ServeOriginal(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "storedName"))
}

// ServeThumbnail handles GET /images/thumbs/{storedName}
func (h *MediaHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storage.ThumbnailKey(chi.URLParam(r, "storedName")))
}

func (h *MediaHandler) serve(w http.ResponseWriter, r *http.Request, key string) {
	f, err := h.store.OpenFile(key)
	if err != nil {
		if os.IsNotExist(err) {
			h.respondError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("failed to open content", zap.String("key", key), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to open image")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.logger.Error("failed to stat content", zap.String("key", key), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to open image")
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
