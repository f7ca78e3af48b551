package handler

import (
	"log/slog"
	"net/http"

	"closingbinder/internal/domain/services"
	"closingbinder/internal/httputil"
)

// PublishHandler handles client binder publishing HTTP requests
type PublishHandler struct {
	publishService services.PublishService
	logger         *slog.Logger
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(publishService services.PublishService, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		publishService: publishService,
		logger:         logger,
	}
}

// Publish creates or refreshes the snapshot for a client
// POST /api/projects/{id}/publish
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.PublishRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}
	req.ProjectID = r.PathValue("id")
	req.UserID = userID

	snapshot, err := h.publishService.Publish(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, snapshot)
}

// ListPublished returns a project's snapshots with view counts
// GET /api/projects/{id}/publish
func (h *PublishHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	snapshots, err := h.publishService.ListPublished(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	type publishedView struct {
		Snapshot  any   `json:"binder"`
		ViewCount int64 `json:"view_count"`
	}
	views := make([]publishedView, 0, len(snapshots))
	for i := range snapshots {
		views = append(views, publishedView{
			Snapshot:  &snapshots[i],
			ViewCount: h.publishService.ViewCount(r.Context(), snapshots[i].ID),
		})
	}

	httputil.RespondJSON(w, http.StatusOK, views)
}

// Unpublish deactivates a snapshot
// DELETE /api/projects/{id}/publish/{binderID}
func (h *PublishHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	err := h.publishService.Unpublish(r.Context(), r.PathValue("binderID"), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
