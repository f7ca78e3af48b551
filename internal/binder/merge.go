package binder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"closingbinder/internal/domain/models"
)

// ErrNoContent is returned when nothing at all could be assembled:
// no cover, no table of contents, and every document failed.
var ErrNoContent = errors.New("binder has no content to merge")

// PageEngine is the low level PDF backend (validation, page counting,
// concatenation, bookmarks). The pdfengine package provides the real
// implementation; tests substitute fakes.
type PageEngine interface {
	Validate(data []byte) error
	PageCount(data []byte) (int, error)
	Merge(parts [][]byte) ([]byte, error)
	AddBookmarks(data []byte, marks []Bookmark) ([]byte, error)
}

// CoverRenderer produces the cover page.
type CoverRenderer interface {
	Render(ctx context.Context, project *models.Project, logos []models.Logo) ([]byte, error)
}

// TOCRenderer produces the table of contents pages.
type TOCRenderer interface {
	Render(project *models.Project, entries []models.TOCEntry, withPages bool) ([]byte, error)
}

// SourceResolver fetches raw document bytes.
type SourceResolver interface {
	Fetch(ctx context.Context, doc *models.Document) ([]byte, error)
}

// Bookmark marks where a document starts in the merged output.
type Bookmark struct {
	Title     string
	StartPage int
	PageCount int
}

// SkippedDocument records a document that could not be included.
type SkippedDocument struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Reason     string `json:"reason"`
}

// Request carries everything needed to assemble a binder.
type Request struct {
	Project   *models.Project
	Logos     []models.Logo
	Sections  []models.Section
	Documents []models.Document

	// Entries, when set, is a frozen table of contents snapshot and
	// replaces the numbering pass (used when replaying a published
	// binder). Page numbers are still recomputed from live content.
	Entries []models.TOCEntry

	IncludeCover bool
	IncludeTOC   bool

	// Inline maps document IDs to raw PDF bytes that take precedence
	// over the document's storage path or URL.
	Inline map[string][]byte

	Progress ProgressFunc
}

// Result is the assembled binder.
type Result struct {
	PDF        []byte
	Filename   string
	Entries    []models.TOCEntry
	Skipped    []SkippedDocument
	TotalPages int
}

// Engine assembles cover, table of contents and documents into a
// single bookmarked PDF.
type Engine struct {
	pages  PageEngine
	cover  CoverRenderer
	toc    TOCRenderer
	source SourceResolver
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(pages PageEngine, cover CoverRenderer, toc TOCRenderer, source SourceResolver, logger *slog.Logger) *Engine {
	return &Engine{pages: pages, cover: cover, toc: toc, source: source, logger: logger, now: time.Now}
}

type fetchedDoc struct {
	entryIdx int
	data     []byte
	pages    int
}

// Build assembles the binder. Individual document failures are
// recorded in Result.Skipped rather than aborting the merge.
func (e *Engine) Build(ctx context.Context, req Request) (*Result, error) {
	notify := req.Progress
	notify.notify(5, "Preparing binder")

	entries := req.Entries
	if entries == nil {
		entries = BuildTOC(req.Sections, req.Documents)
	}

	docsByID := make(map[string]*models.Document, len(req.Documents))
	for i := range req.Documents {
		docsByID[req.Documents[i].ID] = &req.Documents[i]
	}

	result := &Result{}

	coverData := e.renderCover(ctx, req, result, notify)

	fetched, err := e.fetchDocuments(ctx, req, entries, docsByID, result, notify)
	if err != nil {
		return nil, err
	}

	notify.notify(65, "Building table of contents")

	coverPages := 0
	if coverData != nil {
		coverPages, err = e.pages.PageCount(coverData)
		if err != nil {
			return nil, fmt.Errorf("count cover pages: %w", err)
		}
	}

	tocData, tocPages, err := e.renderTOC(ctx, req, entries, fetched, coverPages)
	if err != nil {
		return nil, err
	}

	notify.notify(85, "Merging documents")

	var parts [][]byte
	if coverData != nil {
		parts = append(parts, coverData)
	}
	if tocData != nil {
		parts = append(parts, tocData)
	}
	for _, fd := range fetched {
		parts = append(parts, fd.data)
	}
	if len(parts) == 0 {
		return nil, ErrNoContent
	}

	merged, err := e.pages.Merge(parts)
	if err != nil {
		return nil, fmt.Errorf("merge binder: %w", err)
	}

	notify.notify(95, "Adding bookmarks")

	marks := bookmarksFor(entries, coverPages, tocPages)
	if len(marks) > 0 {
		bookmarked, err := e.pages.AddBookmarks(merged, marks)
		if err != nil {
			// A binder without bookmarks is still a binder
			e.logger.Warn("bookmark pass failed", "project_id", req.Project.ID, "error", err)
		} else {
			merged = bookmarked
		}
	}

	total, err := e.pages.PageCount(merged)
	if err != nil {
		return nil, fmt.Errorf("count merged pages: %w", err)
	}

	result.PDF = merged
	result.Filename = Filename(stringValue(req.Project.PropertyAddress), e.now())
	result.Entries = entries
	result.TotalPages = total

	notify.notify(100, "Complete")
	return result, nil
}

func (e *Engine) renderCover(ctx context.Context, req Request, result *Result, notify ProgressFunc) []byte {
	if !req.IncludeCover {
		return nil
	}
	notify.notify(15, "Rendering cover page")
	data, err := e.cover.Render(ctx, req.Project, req.Logos)
	if err != nil {
		e.logger.Warn("cover render failed, continuing without cover",
			"project_id", req.Project.ID, "error", err)
		return nil
	}
	return data
}

// fetchDocuments resolves, validates and counts every document entry,
// recording failures as skips. It mutates entries in place, setting
// PageCount on entries whose content was fetched.
func (e *Engine) fetchDocuments(ctx context.Context, req Request, entries []models.TOCEntry, docsByID map[string]*models.Document, result *Result, notify ProgressFunc) ([]fetchedDoc, error) {
	var docEntries []int
	for i := range entries {
		if entries[i].Kind == models.TOCKindDocument && entries[i].DocumentID != nil {
			docEntries = append(docEntries, i)
		}
	}

	fetched := make([]fetchedDoc, 0, len(docEntries))
	for n, idx := range docEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := &entries[idx]
		doc := docsByID[*entry.DocumentID]
		if doc == nil {
			result.Skipped = append(result.Skipped, SkippedDocument{
				DocumentID: *entry.DocumentID, Name: entry.Title, Reason: "document not found",
			})
			continue
		}

		data, err := e.resolve(ctx, req, doc)
		if err == nil {
			err = e.pages.Validate(data)
		}

		var pages int
		if err == nil {
			pages, err = e.pages.PageCount(data)
		}
		if err != nil {
			e.logger.Warn("skipping document", "document_id", doc.ID, "name", doc.Name, "error", err)
			result.Skipped = append(result.Skipped, SkippedDocument{
				DocumentID: doc.ID, Name: doc.Name, Reason: err.Error(),
			})
			continue
		}

		entry.PageCount = pages
		fetched = append(fetched, fetchedDoc{entryIdx: idx, data: data, pages: pages})

		if len(docEntries) > 0 {
			notify.notify(20+(n+1)*40/len(docEntries), fmt.Sprintf("Processing %s", doc.Name))
		}
	}
	return fetched, nil
}

func (e *Engine) resolve(ctx context.Context, req Request, doc *models.Document) ([]byte, error) {
	if data, ok := req.Inline[doc.ID]; ok {
		return data, nil
	}
	return e.source.Fetch(ctx, doc)
}

// renderTOC runs the two pass table of contents render: a draft pass
// measures how many pages the TOC itself occupies, start pages are
// assigned relative to cover plus TOC, then the final pass prints the
// page number column. The column is reserved in both passes so the
// draft page count holds for the final render.
func (e *Engine) renderTOC(ctx context.Context, req Request, entries []models.TOCEntry, fetched []fetchedDoc, coverPages int) ([]byte, int, error) {
	tocPages := 0
	var tocData []byte

	if req.IncludeTOC {
		draft, err := e.toc.Render(req.Project, entries, false)
		if err != nil {
			return nil, 0, fmt.Errorf("render table of contents: %w", err)
		}
		tocPages, err = e.pages.PageCount(draft)
		if err != nil {
			return nil, 0, fmt.Errorf("count table of contents pages: %w", err)
		}
		tocData = draft
	}

	assignPageNumbers(entries, fetched, coverPages+tocPages)

	if req.IncludeTOC {
		final, err := e.toc.Render(req.Project, entries, true)
		if err != nil {
			return nil, 0, fmt.Errorf("render table of contents: %w", err)
		}
		tocData = final
	}
	return tocData, tocPages, nil
}

// assignPageNumbers sets PageStart on fetched document entries in
// merge order, then lifts each section's start page to that of its
// first included descendant.
func assignPageNumbers(entries []models.TOCEntry, fetched []fetchedDoc, offset int) {
	page := offset + 1
	for _, fd := range fetched {
		entries[fd.entryIdx].PageStart = page
		page += fd.pages
	}

	for i := range entries {
		if entries[i].Kind == models.TOCKindDocument {
			continue
		}
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Kind != models.TOCKindDocument && entries[j].Indent <= entries[i].Indent {
				break
			}
			if entries[j].Kind == models.TOCKindDocument && entries[j].PageStart > 0 {
				entries[i].PageStart = entries[j].PageStart
				break
			}
		}
	}
}

// bookmarksFor builds the outline: cover, then table of contents, then
// every document that made it into the merge.
func bookmarksFor(entries []models.TOCEntry, coverPages, tocPages int) []Bookmark {
	var marks []Bookmark
	if coverPages > 0 {
		marks = append(marks, Bookmark{Title: "Cover Page", StartPage: 1, PageCount: coverPages})
	}
	if tocPages > 0 {
		marks = append(marks, Bookmark{Title: "Table of Contents", StartPage: coverPages + 1, PageCount: tocPages})
	}
	for _, entry := range entries {
		if entry.Kind != models.TOCKindDocument || entry.PageStart == 0 {
			continue
		}
		marks = append(marks, Bookmark{
			Title:     entry.Number + " " + entry.Title,
			StartPage: entry.PageStart,
			PageCount: entry.PageCount,
		})
	}
	return marks
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
