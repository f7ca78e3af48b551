package handler

import (
	"io"
	"log/slog"
	"net/http"

	"closingbinder/internal/config"
	"closingbinder/internal/domain/services"
	"closingbinder/internal/httputil"
	"closingbinder/internal/uploads"
)

// UploadHandler feeds the upload queue from multipart requests
type UploadHandler struct {
	queue          *uploads.Manager
	projectService services.ProjectService
	logger         *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(queue *uploads.Manager, projectService services.ProjectService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		queue:          queue,
		projectService: projectService,
		logger:         logger,
	}
}

// Enqueue accepts a multipart batch of PDFs for a project
// POST /api/projects/{id}/uploads?section_id=...
func (h *UploadHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID := r.PathValue("id")

	// Ownership check before touching the body
	if _, err := h.projectService.GetProject(r.Context(), projectID, userID); err != nil {
		handleError(w, err)
		return
	}

	var sectionID *string
	if sid := r.URL.Query().Get("section_id"); sid != "" {
		sectionID = &sid
	}

	// Batch limit bounds memory; per-file size is checked by the queue
	r.Body = http.MaxBytesReader(w, r.Body, int64(config.MaxUploadBatch)*config.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer r.MultipartForm.RemoveAll()

	var files []uploads.IncomingFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "unreadable file in request")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "unreadable file in request")
			return
		}
		files = append(files, uploads.IncomingFile{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	if len(files) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "no files in request")
		return
	}

	result := h.queue.Add(projectID, sectionID, files)
	if result.Added == 0 && len(result.Errors) > 0 {
		httputil.RespondJSON(w, http.StatusBadRequest, result)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, result)
}

// Queue returns the current queue state
// GET /api/uploads
func (h *UploadHandler) Queue(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.queue.Snapshot())
}

// Retry requeues a failed item
// POST /api/uploads/{id}/retry
func (h *UploadHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	if err := h.queue.Retry(r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Remove drops a queued item that is not in flight
// DELETE /api/uploads/{id}
func (h *UploadHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	if err := h.queue.Remove(r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the queue, or only completed items with ?completed=true
// DELETE /api/uploads
func (h *UploadHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	if r.URL.Query().Get("completed") == "true" {
		h.queue.ClearCompleted()
	} else {
		h.queue.Clear()
	}

	w.WriteHeader(http.StatusNoContent)
}
