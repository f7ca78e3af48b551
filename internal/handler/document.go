package handler

import (
	"log/slog"
	"net/http"

	"closingbinder/internal/domain/services"
	"closingbinder/internal/httputil"
)

// DocumentHandler handles document metadata HTTP requests
type DocumentHandler struct {
	docService services.DocumentService
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService services.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// ListDocuments returns a project's documents
// GET /api/projects/{id}/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	docs, err := h.docService.ListDocuments(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document by ID
// GET /api/documents/{id}?project_id=...
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), r.PathValue("id"), projectID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument renames or moves a document
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}
	req.UserID = userID

	doc, err := h.docService.UpdateDocument(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ReorderDocuments rewrites ordering within one section scope
// PUT /api/documents/reorder
func (h *DocumentHandler) ReorderDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.ReorderDocumentsRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}
	req.UserID = userID

	if err := h.docService.ReorderDocuments(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteDocument removes a document and its stored object
// DELETE /api/documents/{id}?project_id=...
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	if err := h.docService.DeleteDocument(r.Context(), r.PathValue("id"), projectID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DownloadDocument redirects to a short-lived URL for the content
// GET /api/documents/{id}/download?project_id=...
func (h *DocumentHandler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), r.PathValue("id"), projectID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	url, err := h.docService.ResolveURL(r.Context(), doc)
	if err != nil {
		handleError(w, err)
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
