// Package binder assembles the downloadable closing binder: numbered
// table of contents, rendered cover and TOC pages, and the merged PDF
// with a bookmark outline.
package binder

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"closingbinder/internal/domain/models"
)

// BuildTOC walks the section tree and assigns hierarchical numbering:
//
//   - top-level sections are numbered 1, 2, 3, ... in sort order
//   - subsections under section N are numbered N.1, N.2, ...
//   - documents directly under section N are numbered N.1, N.2, ...
//     (documents and subsections keep separate counters per parent)
//   - documents under subsection N.M are numbered N.M.1, N.M.2, ...
//   - unorganized documents trail, numbered continuing from the last
//     top-level section index (or from 1 when there are no sections)
//
// The result is deterministic for a fixed input tree: ties in sort_order
// break on creation time, then ID.
func BuildTOC(sections []models.Section, documents []models.Document) []models.TOCEntry {
	var top []models.Section
	subsByParent := make(map[string][]models.Section)
	for _, s := range sections {
		if s.SectionType == models.SectionTypeSubsection && s.ParentSectionID != nil {
			subsByParent[*s.ParentSectionID] = append(subsByParent[*s.ParentSectionID], s)
			continue
		}
		top = append(top, s)
	}

	sortSections(top)
	for _, subs := range subsByParent {
		sortSections(subs)
	}

	docsBySection := make(map[string][]models.Document)
	var unorganized []models.Document
	for _, d := range documents {
		if d.SectionID == nil || *d.SectionID == "" {
			unorganized = append(unorganized, d)
			continue
		}
		docsBySection[*d.SectionID] = append(docsBySection[*d.SectionID], d)
	}

	for _, docs := range docsBySection {
		sortDocuments(docs)
	}
	sortDocuments(unorganized)

	entries := make([]models.TOCEntry, 0, len(sections)+len(documents))

	for i, section := range top {
		number := fmt.Sprintf("%d", i+1)
		entries = append(entries, models.TOCEntry{
			Number: number,
			Title:  section.Name,
			Kind:   models.TOCKindSection,
		})

		for j, doc := range docsBySection[section.ID] {
			entries = append(entries, documentEntry(doc, fmt.Sprintf("%s.%d", number, j+1), 1))
		}

		for m, sub := range subsByParent[section.ID] {
			subNumber := fmt.Sprintf("%s.%d", number, m+1)
			entries = append(entries, models.TOCEntry{
				Number: subNumber,
				Title:  sub.Name,
				Kind:   models.TOCKindSubsection,
				Indent: 1,
			})

			for p, doc := range docsBySection[sub.ID] {
				entries = append(entries, documentEntry(doc, fmt.Sprintf("%s.%d", subNumber, p+1), 2))
			}
		}
	}

	// Unorganized documents continue the top-level numbering
	next := len(top) + 1
	for _, doc := range unorganized {
		entries = append(entries, documentEntry(doc, fmt.Sprintf("%d", next), 0))
		next++
	}

	return entries
}

func documentEntry(doc models.Document, number string, indent int) models.TOCEntry {
	id := doc.ID
	return models.TOCEntry{
		Number:     number,
		Title:      doc.Name,
		Kind:       models.TOCKindDocument,
		DocumentID: &id,
		Indent:     indent,
	}
}

func sortSections(sections []models.Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].SortOrder != sections[j].SortOrder {
			return sections[i].SortOrder < sections[j].SortOrder
		}
		if !sections[i].CreatedAt.Equal(sections[j].CreatedAt) {
			return sections[i].CreatedAt.Before(sections[j].CreatedAt)
		}
		return sections[i].ID < sections[j].ID
	})
}

func sortDocuments(docs []models.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].SortOrder != docs[j].SortOrder {
			return docs[i].SortOrder < docs[j].SortOrder
		}
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.Before(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

// Filename derives the download filename from the property address and
// date: non-alphanumerics stripped, spaces collapsed to underscores.
func Filename(propertyAddress string, now time.Time) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.TrimSpace(propertyAddress) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' && !lastSpace && b.Len() > 0:
			b.WriteByte('_')
			lastSpace = true
		}
	}

	base := strings.TrimSuffix(b.String(), "_")
	if base == "" {
		base = "Closing_Binder"
	}

	return fmt.Sprintf("%s_Binder_%s.pdf", base, now.Format("2006-01-02"))
}
