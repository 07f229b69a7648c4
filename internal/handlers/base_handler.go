package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// BaseHandler carries the pieces every handler shares: a logger and the
// JSON response helpers. Handlers embed it.
type BaseHandler struct {
	logger *zap.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondJSON writes "data" as the JSON body with the given status code
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.Int("status", status), zap.Error(err))
	}
}

// respondError writes a JSON error body with the given status code
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, errorResponse{Error: message})
}
