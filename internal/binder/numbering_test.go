package binder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closingbinder/internal/domain/models"
)

func strPtr(s string) *string { return &s }

func section(id, name string, sortOrder int) models.Section {
	return models.Section{
		ID:          id,
		ProjectID:   "p1",
		Name:        name,
		SectionType: models.SectionTypeSection,
		SortOrder:   sortOrder,
	}
}

func subsection(id, name, parentID string, sortOrder int) models.Section {
	return models.Section{
		ID:              id,
		ProjectID:       "p1",
		Name:            name,
		SectionType:     models.SectionTypeSubsection,
		ParentSectionID: &parentID,
		SortOrder:       sortOrder,
	}
}

func document(id, name string, sectionID *string, sortOrder int) models.Document {
	return models.Document{
		ID:        id,
		ProjectID: "p1",
		SectionID: sectionID,
		Name:      name,
		SortOrder: sortOrder,
	}
}

func TestBuildTOCHierarchicalNumbering(t *testing.T) {
	sections := []models.Section{
		section("s1", "Disclosures", 0),
		section("s2", "Title", 1),
		subsection("s2a", "Survey", "s2", 0),
	}
	documents := []models.Document{
		document("dA", "Doc A", strPtr("s1"), 0),
		document("dB", "Doc B", strPtr("s1"), 1),
		document("dC", "Doc C", strPtr("s2a"), 0),
		document("dD", "Doc D", nil, 0),
	}

	entries := BuildTOC(sections, documents)
	require.Len(t, entries, 7)

	want := []struct {
		number string
		title  string
		kind   string
		indent int
	}{
		{"1", "Disclosures", models.TOCKindSection, 0},
		{"1.1", "Doc A", models.TOCKindDocument, 1},
		{"1.2", "Doc B", models.TOCKindDocument, 1},
		{"2", "Title", models.TOCKindSection, 0},
		{"2.1", "Survey", models.TOCKindSubsection, 1},
		{"2.1.1", "Doc C", models.TOCKindDocument, 2},
		{"3", "Doc D", models.TOCKindDocument, 0},
	}
	for i, w := range want {
		assert.Equal(t, w.number, entries[i].Number, "entry %d number", i)
		assert.Equal(t, w.title, entries[i].Title, "entry %d title", i)
		assert.Equal(t, w.kind, entries[i].Kind, "entry %d kind", i)
		assert.Equal(t, w.indent, entries[i].Indent, "entry %d indent", i)
	}
}

func TestBuildTOCDocumentsAndSubsectionsCountSeparately(t *testing.T) {
	sections := []models.Section{
		section("s1", "Closing", 0),
		subsection("s1a", "Lender", "s1", 0),
	}
	documents := []models.Document{
		document("d1", "Settlement Statement", strPtr("s1"), 0),
		document("d2", "Deed", strPtr("s1"), 1),
	}

	entries := BuildTOC(sections, documents)
	require.Len(t, entries, 4)

	// Direct documents and the subsection both start at .1 under the
	// same parent
	assert.Equal(t, "1.1", entries[1].Number)
	assert.Equal(t, "1.2", entries[2].Number)
	assert.Equal(t, "1.1", entries[3].Number)
	assert.Equal(t, models.TOCKindSubsection, entries[3].Kind)
}

func TestBuildTOCUnorganizedOnly(t *testing.T) {
	documents := []models.Document{
		document("d2", "Second", nil, 1),
		document("d1", "First", nil, 0),
	}

	entries := BuildTOC(nil, documents)
	require.Len(t, entries, 2)
	assert.Equal(t, "1", entries[0].Number)
	assert.Equal(t, "First", entries[0].Title)
	assert.Equal(t, "2", entries[1].Number)
	assert.Equal(t, "Second", entries[1].Title)
}

func TestBuildTOCEmpty(t *testing.T) {
	assert.Empty(t, BuildTOC(nil, nil))
}

func TestBuildTOCDeterministicOnTies(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []models.Document{
		{ID: "b", ProjectID: "p1", Name: "Beta", SortOrder: 0, UploadedAt: ts},
		{ID: "a", ProjectID: "p1", Name: "Alpha", SortOrder: 0, UploadedAt: ts},
	}

	first := BuildTOC(nil, docs)
	for i := 0; i < 10; i++ {
		again := BuildTOC(nil, docs)
		assert.Equal(t, first, again)
	}
	// Equal sort order and timestamp fall back to ID order
	assert.Equal(t, "Alpha", first[0].Title)
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "123_Main_St_Binder_2026-08-30.pdf",
		Filename("123 Main St.", now))
	assert.Equal(t, "45_Oak_Ave_Unit_2B_Binder_2026-08-30.pdf",
		Filename("  45 Oak Ave, Unit #2B  ", now))
	assert.Equal(t, "Closing_Binder_Binder_2026-08-30.pdf",
		Filename("", now))
	assert.Equal(t, "Closing_Binder_Binder_2026-08-30.pdf",
		Filename("!!!", now))
}
