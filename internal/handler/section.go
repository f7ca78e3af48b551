package handler

import (
	"log/slog"
	"net/http"

	"closingbinder/internal/domain/services"
	"closingbinder/internal/httputil"
)

// SectionHandler handles section HTTP requests
type SectionHandler struct {
	sectionService services.SectionService
	logger         *slog.Logger
}

// NewSectionHandler creates a new section handler
func NewSectionHandler(sectionService services.SectionService, logger *slog.Logger) *SectionHandler {
	return &SectionHandler{
		sectionService: sectionService,
		logger:         logger,
	}
}

// CreateSection creates a section or subsection
// POST /api/sections
func (h *SectionHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.CreateSectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}
	req.UserID = userID

	section, err := h.sectionService.CreateSection(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, section)
}

// ListSections returns a project's sections
// GET /api/projects/{id}/sections
func (h *SectionHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sections, err := h.sectionService.ListSections(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, sections)
}

// UpdateSection renames and/or reorders a section
// PATCH /api/sections/{id}
func (h *SectionHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.UpdateSectionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}
	req.UserID = userID

	section, err := h.sectionService.UpdateSection(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, section)
}

// DeleteSection removes a section
// DELETE /api/sections/{id}?project_id=...
func (h *SectionHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	if err := h.sectionService.DeleteSection(r.Context(), r.PathValue("id"), projectID, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
