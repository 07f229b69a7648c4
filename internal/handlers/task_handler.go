package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/imagevault/backend/internal/models"
	"go.uber.org/zap"
)

// TasksService is the interface that wraps methods for task status business logic.
type TasksService interface {
	// Method Status reports the current lifecycle state of a processing task.
	//
	// "taskID" parameter is the identifier returned by the upload endpoint.
	// An identifier the queue has never seen reports with status "not_found"
	// rather than an error.
	Status(ctx context.Context, taskID string) (*models.TaskStatusResponse, error)
}

// TasksHandler handles HTTP requests for task status
type TasksHandler struct {
	BaseHandler
	service TasksService
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(svc TasksService, logger *zap.Logger) *TasksHandler {
	return &TasksHandler{
		service:     svc,
		BaseHandler: BaseHandler{logger: logger},
	}
}

// RegisterRoutes registers all tasks handler routes
func (h *TasksHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/status/{taskID}", h.Status)
}

// Status handles GET /api/v1/status/{taskID}
func (h *TasksHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.respondError(w, http.StatusBadRequest, "taskID parameter is required")
		return
	}

	resp, err := h.service.Status(r.Context(), taskID)
	if err != nil {
		h.logger.Error("failed to get task status", zap.String("task_id", taskID), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to get task status")
		return
	}

	status := http.StatusOK
	if resp.Status == models.TaskStatusNotFound {
		status = http.StatusNotFound
	}
	h.respondJSON(w, status, resp)
}
