package binder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closingbinder/internal/domain/models"
)

// fakePages is an in-memory PageEngine. Page counts are tracked per
// byte blob so tests control pagination exactly.
type fakePages struct {
	counts    map[string]int
	merged    [][]byte
	bookmarks []Bookmark
}

func newFakePages() *fakePages {
	return &fakePages{counts: make(map[string]int)}
}

func (f *fakePages) blob(tag string, pages int) []byte {
	data := []byte("%PDF-" + tag)
	f.counts[string(data)] = pages
	return data
}

func (f *fakePages) Validate(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return errors.New("not a pdf")
	}
	return nil
}

func (f *fakePages) PageCount(data []byte) (int, error) {
	n, ok := f.counts[string(data)]
	if !ok {
		return 0, fmt.Errorf("unknown blob %q", data)
	}
	return n, nil
}

func (f *fakePages) Merge(parts [][]byte) ([]byte, error) {
	f.merged = parts
	total := 0
	for _, p := range parts {
		total += f.counts[string(p)]
	}
	return f.blob("merged", total), nil
}

func (f *fakePages) AddBookmarks(data []byte, marks []Bookmark) ([]byte, error) {
	f.bookmarks = marks
	return data, nil
}

// fakeCover renders a fixed one-page cover.
type fakeCover struct {
	pages *fakePages
	err   error
}

func (f *fakeCover) Render(ctx context.Context, project *models.Project, logos []models.Logo) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages.blob("cover", 1), nil
}

// fakeTOC renders a fixed one-page TOC and records both passes.
type fakeTOC struct {
	pages    *fakePages
	rendered []bool // withPages flag per call
	lastSeen []models.TOCEntry
}

func (f *fakeTOC) Render(project *models.Project, entries []models.TOCEntry, withPages bool) ([]byte, error) {
	f.rendered = append(f.rendered, withPages)
	f.lastSeen = append([]models.TOCEntry(nil), entries...)
	return f.pages.blob(fmt.Sprintf("toc-%d", len(f.rendered)), 1), nil
}

// fakeResolver serves documents from a map; missing IDs error.
type fakeResolver struct {
	content map[string][]byte
}

func (f *fakeResolver) Fetch(ctx context.Context, doc *models.Document) ([]byte, error) {
	data, ok := f.content[doc.ID]
	if !ok {
		return nil, fmt.Errorf("no content for %s", doc.ID)
	}
	return data, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(pages *fakePages, cover CoverRenderer, toc TOCRenderer, source SourceResolver) *Engine {
	e := NewEngine(pages, cover, toc, source, testLogger())
	e.now = func() time.Time { return time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC) }
	return e
}

func testProject() *models.Project {
	addr := "123 Main St"
	return &models.Project{ID: "p1", Title: "Smith Closing", PropertyAddress: &addr}
}

func TestEngineBuildFullBinder(t *testing.T) {
	pages := newFakePages()
	toc := &fakeTOC{pages: pages}
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("d1", 3),
		"d2": pages.blob("d2", 2),
	}}
	engine := testEngine(pages, &fakeCover{pages: pages}, toc, resolver)

	sections := []models.Section{section("s1", "Disclosures", 0)}
	documents := []models.Document{
		document("d1", "Doc One", strPtr("s1"), 0),
		document("d2", "Doc Two", strPtr("s1"), 1),
	}

	result, err := engine.Build(context.Background(), Request{
		Project:      testProject(),
		Sections:     sections,
		Documents:    documents,
		IncludeCover: true,
		IncludeTOC:   true,
	})
	require.NoError(t, err)

	// cover + toc + 2 docs merged in order
	require.Len(t, pages.merged, 4)
	assert.Equal(t, "%PDF-cover", string(pages.merged[0]))
	assert.Equal(t, "%PDF-d1", string(pages.merged[2]))
	assert.Equal(t, "%PDF-d2", string(pages.merged[3]))

	// Two-pass TOC render: draft without page numbers, final with
	assert.Equal(t, []bool{false, true}, toc.rendered)

	// Cover is page 1, TOC page 2, first document starts at page 3
	require.Len(t, result.Entries, 3)
	assert.Equal(t, 3, result.Entries[1].PageStart)
	assert.Equal(t, 3, result.Entries[1].PageCount)
	assert.Equal(t, 6, result.Entries[2].PageStart)
	assert.Equal(t, 2, result.Entries[2].PageCount)

	// Section row starts where its first document starts
	assert.Equal(t, 3, result.Entries[0].PageStart)

	// Outline covers the cover page, the TOC and every included document
	require.Len(t, pages.bookmarks, 4)
	assert.Equal(t, "Cover Page", pages.bookmarks[0].Title)
	assert.Equal(t, 1, pages.bookmarks[0].StartPage)
	assert.Equal(t, "Table of Contents", pages.bookmarks[1].Title)
	assert.Equal(t, 2, pages.bookmarks[1].StartPage)
	assert.Equal(t, "1.1 Doc One", pages.bookmarks[2].Title)
	assert.Equal(t, 3, pages.bookmarks[2].StartPage)
	assert.Equal(t, "1.2 Doc Two", pages.bookmarks[3].Title)
	assert.Equal(t, 6, pages.bookmarks[3].StartPage)

	assert.Equal(t, 7, result.TotalPages)
	assert.Equal(t, "123_Main_St_Binder_2026-08-30.pdf", result.Filename)
	assert.Empty(t, result.Skipped)
}

func TestEngineBuildSkipsFailedDocuments(t *testing.T) {
	pages := newFakePages()
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("d1", 2),
		// d2 missing on purpose
	}}
	engine := testEngine(pages, &fakeCover{pages: pages}, &fakeTOC{pages: pages}, resolver)

	documents := []models.Document{
		document("d1", "Good Doc", nil, 0),
		document("d2", "Broken Doc", nil, 1),
	}

	result, err := engine.Build(context.Background(), Request{
		Project:      testProject(),
		Documents:    documents,
		IncludeCover: true,
		IncludeTOC:   true,
	})
	require.NoError(t, err)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "d2", result.Skipped[0].DocumentID)
	assert.Equal(t, "Broken Doc", result.Skipped[0].Name)

	// Skipped document keeps its TOC row but gets no page number and
	// no bookmark
	assert.Equal(t, 0, result.Entries[1].PageStart)
	require.Len(t, pages.bookmarks, 3)
	assert.Equal(t, "Cover Page", pages.bookmarks[0].Title)
	assert.Equal(t, "Table of Contents", pages.bookmarks[1].Title)
	assert.Equal(t, "1 Good Doc", pages.bookmarks[2].Title)

	// Only cover, toc and the good document were merged
	assert.Len(t, pages.merged, 3)
}

func TestEngineBuildNoContent(t *testing.T) {
	pages := newFakePages()
	engine := testEngine(pages, &fakeCover{pages: pages}, &fakeTOC{pages: pages}, &fakeResolver{})

	_, err := engine.Build(context.Background(), Request{
		Project: testProject(),
		Documents: []models.Document{
			document("d1", "Gone", nil, 0),
		},
		IncludeCover: false,
		IncludeTOC:   false,
	})
	require.ErrorIs(t, err, ErrNoContent)
}

func TestEngineBuildContinuesWithoutCover(t *testing.T) {
	pages := newFakePages()
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("d1", 1),
	}}
	engine := testEngine(pages, &fakeCover{pages: pages, err: errors.New("photo host down")}, &fakeTOC{pages: pages}, resolver)

	result, err := engine.Build(context.Background(), Request{
		Project:      testProject(),
		Documents:    []models.Document{document("d1", "Doc", nil, 0)},
		IncludeCover: true,
		IncludeTOC:   true,
	})
	require.NoError(t, err)

	// Binder assembled toc + doc only; first doc starts right after TOC
	assert.Len(t, pages.merged, 2)
	assert.Equal(t, 2, result.Entries[0].PageStart)

	// No cover, so the outline starts with the TOC at page 1
	require.Len(t, pages.bookmarks, 2)
	assert.Equal(t, "Table of Contents", pages.bookmarks[0].Title)
	assert.Equal(t, 1, pages.bookmarks[0].StartPage)
}

func TestEngineBuildFrozenEntriesSkipNumbering(t *testing.T) {
	pages := newFakePages()
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("d1", 1),
	}}
	engine := testEngine(pages, &fakeCover{pages: pages}, &fakeTOC{pages: pages}, resolver)

	frozen := []models.TOCEntry{
		{Number: "1", Title: "Old Section", Kind: models.TOCKindSection},
		{Number: "1.1", Title: "Doc", Kind: models.TOCKindDocument, DocumentID: strPtr("d1"), Indent: 1},
	}

	result, err := engine.Build(context.Background(), Request{
		Project: testProject(),
		// Live structure deliberately differs from the snapshot
		Documents:    []models.Document{document("d1", "Renamed Doc", nil, 5)},
		Entries:      frozen,
		IncludeCover: true,
		IncludeTOC:   true,
	})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "Old Section", result.Entries[0].Title)
	assert.Equal(t, "1.1", result.Entries[1].Number)
	assert.Equal(t, 3, result.Entries[1].PageStart)
}

func TestEngineBuildInlineContentWins(t *testing.T) {
	pages := newFakePages()
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("stored", 9),
	}}
	engine := testEngine(pages, &fakeCover{pages: pages}, &fakeTOC{pages: pages}, resolver)

	inline := pages.blob("inline", 1)
	result, err := engine.Build(context.Background(), Request{
		Project:   testProject(),
		Documents: []models.Document{document("d1", "Doc", nil, 0)},
		Inline:    map[string][]byte{"d1": inline},
	})
	require.NoError(t, err)

	require.Len(t, pages.merged, 1)
	assert.Equal(t, "%PDF-inline", string(pages.merged[0]))
	assert.Equal(t, 1, result.TotalPages)
}

func TestEngineBuildProgressReachesCompletion(t *testing.T) {
	pages := newFakePages()
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("d1", 1),
	}}
	engine := testEngine(pages, &fakeCover{pages: pages}, &fakeTOC{pages: pages}, resolver)

	var percents []int
	_, err := engine.Build(context.Background(), Request{
		Project:      testProject(),
		Documents:    []models.Document{document("d1", "Doc", nil, 0)},
		IncludeCover: true,
		IncludeTOC:   true,
		Progress: func(percent int, step string) {
			percents = append(percents, percent)
		},
	})
	require.NoError(t, err)

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestEngineBuildCanceledContext(t *testing.T) {
	pages := newFakePages()
	resolver := &fakeResolver{content: map[string][]byte{
		"d1": pages.blob("d1", 1),
	}}
	engine := testEngine(pages, &fakeCover{pages: pages}, &fakeTOC{pages: pages}, resolver)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Build(ctx, Request{
		Project:   testProject(),
		Documents: []models.Document{document("d1", "Doc", nil, 0)},
	})
	require.ErrorIs(t, err, context.Canceled)
}
