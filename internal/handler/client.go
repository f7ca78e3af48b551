package handler

import (
	"log/slog"
	"net/http"

	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/services"
	"closingbinder/internal/httputil"
)

// ClientHandler serves the unauthenticated client binder surface.
// Every route is gated by access code, not by JWT.
type ClientHandler struct {
	publishService services.PublishService
	binderService  services.BinderService
	docService     services.DocumentService
	logger         *slog.Logger
}

// NewClientHandler creates a new client binder handler
func NewClientHandler(
	publishService services.PublishService,
	binderService services.BinderService,
	docService services.DocumentService,
	logger *slog.Logger,
) *ClientHandler {
	return &ClientHandler{
		publishService: publishService,
		binderService:  binderService,
		docService:     docService,
		logger:         logger,
	}
}

// accessRequest carries the optional password for protected binders
type accessRequest struct {
	Password string `json:"password"`
}

// Access resolves an access code and returns the binder view
// POST /client-binder/{accessCode}
func (h *ClientHandler) Access(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			return
		}
	}

	snapshot, err := h.publishService.ResolveByAccessCode(r.Context(), r.PathValue("accessCode"), req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	h.publishService.RecordAccess(r.Context(), snapshot, services.AccessEvent{
		Action:     models.AccessActionView,
		RemoteAddr: clientIP(r),
		UserAgent:  r.UserAgent(),
	})

	httputil.RespondJSON(w, http.StatusOK, snapshot)
}

// Download assembles the published binder and streams the PDF
// POST /client-binder/{accessCode}/download
func (h *ClientHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			return
		}
	}

	snapshot, err := h.publishService.ResolveByAccessCode(r.Context(), r.PathValue("accessCode"), req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.binderService.AssembleSnapshot(r.Context(), snapshot)
	if err != nil {
		handleError(w, err)
		return
	}

	h.publishService.RecordAccess(r.Context(), snapshot, services.AccessEvent{
		Action:     models.AccessActionDownload,
		RemoteAddr: clientIP(r),
		UserAgent:  r.UserAgent(),
	})

	writePDF(w, result)
}

// Document resolves a single document from the frozen table of
// contents and returns a short-lived URL for it
// POST /client-binder/{accessCode}/documents/{docID}
func (h *ClientHandler) Document(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			return
		}
	}

	snapshot, err := h.publishService.ResolveByAccessCode(r.Context(), r.PathValue("accessCode"), req.Password)
	if err != nil {
		handleError(w, err)
		return
	}

	docID := r.PathValue("docID")
	if !snapshotContains(snapshot, docID) {
		httputil.RespondError(w, http.StatusNotFound, "document is not part of this binder")
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), docID, snapshot.ProjectID, "")
	if err != nil {
		handleError(w, err)
		return
	}

	url, err := h.docService.ResolveURL(r.Context(), doc)
	if err != nil {
		handleError(w, err)
		return
	}

	h.publishService.RecordAccess(r.Context(), snapshot, services.AccessEvent{
		DocumentID: &docID,
		Action:     models.AccessActionDocumentView,
		RemoteAddr: clientIP(r),
		UserAgent:  r.UserAgent(),
	})

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"url": url})
}

// snapshotContains checks the frozen table of contents for a document
func snapshotContains(snapshot *models.ClientBinder, docID string) bool {
	for _, entry := range snapshot.TableOfContentsData {
		if entry.Kind == models.TOCKindDocument && entry.DocumentID != nil && *entry.DocumentID == docID {
			return true
		}
	}
	return false
}
