package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/imagevault/backend/internal/search"
	"go.uber.org/zap"
)

// SearchService is the interface that wraps methods for asset search business logic.
type SearchService interface {
	// Method Search runs a relevance-ranked query over indexed assets.
	//
	// "text" parameter is matched fuzzily against names, descriptions and
	// tags; "limit" parameter caps the number of results, with a non-positive
	// value falling back to the default page size.
	Search(ctx context.Context, text string, limit int) ([]search.Document, error)
}

// SearchHandler handles HTTP requests for asset search
type SearchHandler struct {
	BaseHandler
	service SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(svc SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service:     svc,
		BaseHandler: BaseHandler{logger: logger},
	}
}

// RegisterRoutes registers all search handler routes
func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/search", h.Search)
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	docs, err := h.service.Search(r.Context(), query, limit)
	if err != nil {
		h.logger.Error("failed to search assets", zap.String("query", query), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to search assets")
		return
	}

	if docs == nil {
		docs = []search.Document{}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"total":   len(docs),
		"results": docs,
	})
}
