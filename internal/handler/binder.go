package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"closingbinder/internal/binder"
	"closingbinder/internal/domain/services"
	"closingbinder/internal/handler/sse"
	"closingbinder/internal/httputil"
)

// BinderHandler handles binder assembly HTTP requests
type BinderHandler struct {
	binderService services.BinderService
	jobs          *JobRegistry
	logger        *slog.Logger
}

// NewBinderHandler creates a new binder handler
func NewBinderHandler(binderService services.BinderService, jobs *JobRegistry, logger *slog.Logger) *BinderHandler {
	return &BinderHandler{
		binderService: binderService,
		jobs:          jobs,
		logger:        logger,
	}
}

// GetTOC returns the numbered table of contents preview
// GET /api/projects/{id}/binder/toc
func (h *BinderHandler) GetTOC(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	entries, err := h.binderService.TOCPreview(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Download assembles the binder synchronously and streams the PDF
// GET /api/projects/{id}/binder/download
func (h *BinderHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	result, err := h.binderService.Assemble(r.Context(), r.PathValue("id"), userID, assembleOptions(r), nil)
	if err != nil {
		handleError(w, err)
		return
	}

	writePDF(w, result)
}

// StartBuild kicks off an asynchronous binder assembly
// POST /api/projects/{id}/binder/build
func (h *BinderHandler) StartBuild(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	projectID := r.PathValue("id")
	opts := assembleOptions(r)

	job := h.jobs.Start(projectID, userID, func(ctx context.Context, progress binder.ProgressFunc) (*binder.Result, error) {
		return h.binderService.Assemble(ctx, projectID, userID, opts, progress)
	})

	httputil.RespondJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

// Progress streams build milestones over SSE until the job finishes
// GET /api/binder/jobs/{id}/progress
func (h *BinderHandler) Progress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	job := h.jobs.Get(r.PathValue("id"))
	if job == nil || job.UserID != userID {
		httputil.RespondError(w, http.StatusNotFound, "build not found")
		return
	}

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	keepAlive := sse.NewTickerKeepAlive(10 * time.Second)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case ev := <-job.events:
			if err := writer.Event("progress", ev); err != nil {
				return
			}
		case <-job.done:
			// Flush any milestones still queued before the terminal event
			for {
				select {
				case ev := <-job.events:
					if err := writer.Event("progress", ev); err != nil {
						return
					}
					continue
				default:
				}
				break
			}

			result, buildErr, _ := job.outcome()
			if buildErr != nil {
				_ = writer.Event("error", map[string]string{"message": buildErr.Error()})
				return
			}
			_ = writer.Event("complete", map[string]any{
				"job_id":   job.ID,
				"filename": result.Filename,
				"pages":    result.TotalPages,
				"skipped":  result.Skipped,
			})
			return
		case <-stopped:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// Claim returns the finished PDF for a build job
// GET /api/binder/jobs/{id}/download
func (h *BinderHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	job := h.jobs.Get(r.PathValue("id"))
	if job == nil || job.UserID != userID {
		httputil.RespondError(w, http.StatusNotFound, "build not found")
		return
	}

	result, buildErr, finished := job.outcome()
	if !finished {
		httputil.RespondError(w, http.StatusConflict, "build still in progress")
		return
	}
	if buildErr != nil {
		handleError(w, buildErr)
		return
	}

	writePDF(w, result)
}

func assembleOptions(r *http.Request) services.AssembleOptions {
	opts := services.DefaultAssembleOptions()
	if v := r.URL.Query().Get("include_cover"); v != "" {
		opts.IncludeCover, _ = strconv.ParseBool(v)
	}
	if v := r.URL.Query().Get("include_toc"); v != "" {
		opts.IncludeTOC, _ = strconv.ParseBool(v)
	}
	return opts
}

func writePDF(w http.ResponseWriter, result *binder.Result) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.PDF)
}
