package binder

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/go-pdf/fpdf"

	"closingbinder/internal/binder/layouts"
	"closingbinder/internal/domain/models"
)

const (
	tocIndentStep = 20.0
	tocNumberCol  = 64.0
	tocPageCol    = 48.0
)

// TOCPDF renders the table of contents. The page number column is
// reserved whether or not numbers are printed, so a draft render and
// the final render always paginate identically.
type TOCPDF struct {
	themes *layouts.Registry
	theme  string
	logger *slog.Logger
}

func NewTOCRenderer(themes *layouts.Registry, theme string, logger *slog.Logger) *TOCPDF {
	return &TOCPDF{themes: themes, theme: theme, logger: logger}
}

// Render produces the TOC pages. When withPages is false the page
// number column is left blank (used for the draft pass that measures
// how many pages the TOC itself occupies).
func (r *TOCPDF) Render(project *models.Project, entries []models.TOCEntry, withPages bool) ([]byte, error) {
	themeName := r.theme
	if v, ok := project.CoverPageData["theme"].(string); ok && v != "" {
		themeName = v
	}
	theme := r.themes.Get(themeName)

	pdf := fpdf.New("P", "pt", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(theme.Margin, theme.Margin, theme.Margin)
	pdf.SetAutoPageBreak(true, theme.Margin)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*theme.Margin

	pdf.SetFont(theme.Font, "B", theme.HeadingSize)
	pdf.CellFormat(contentW, theme.HeadingSize+8, tr("Table of Contents"), "", 1, "C", false, 0, "")
	pdf.SetFont(theme.Font, "", theme.BodySize)
	pdf.CellFormat(contentW, theme.LineHeight, tr(project.Title), "", 1, "C", false, 0, "")
	pdf.Ln(theme.LineHeight)

	if len(entries) == 0 {
		pdf.Ln(theme.LineHeight * 2)
		pdf.SetFont(theme.Font, "I", theme.BodySize)
		pdf.CellFormat(contentW, theme.LineHeight, tr("No Documents Found"), "", 1, "C", false, 0, "")
		return output(pdf)
	}

	// Unorganized documents trail the section tree at indent 0; give
	// them a heading so they don't read as stray sections.
	additionalShown := false

	for _, entry := range entries {
		if entry.Kind == models.TOCKindDocument && entry.Indent == 0 && !additionalShown {
			pdf.Ln(theme.LineHeight / 2)
			pdf.SetFont(theme.Font, "B", theme.BodySize)
			pdf.CellFormat(contentW, theme.LineHeight, tr("Additional Documents"), "", 1, "L", false, 0, "")
			additionalShown = true
		}

		switch entry.Kind {
		case models.TOCKindSection:
			pdf.SetFont(theme.Font, "B", theme.BodySize)
		case models.TOCKindSubsection:
			pdf.SetFont(theme.Font, "B", theme.SmallSize+1)
		default:
			pdf.SetFont(theme.Font, "", theme.BodySize)
		}

		indent := float64(entry.Indent) * tocIndentStep
		titleW := contentW - indent - tocNumberCol - tocPageCol

		pdf.SetX(theme.Margin + indent)
		pdf.CellFormat(tocNumberCol, theme.LineHeight, tr(entry.Number), "", 0, "L", false, 0, "")
		pdf.CellFormat(titleW, theme.LineHeight, tr(entry.Title), "", 0, "L", false, 0, "")

		page := ""
		if withPages && entry.PageStart > 0 {
			page = fmt.Sprintf("%d", entry.PageStart)
		}
		pdf.CellFormat(tocPageCol, theme.LineHeight, page, "", 1, "R", false, 0, "")
	}

	return output(pdf)
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render table of contents: %w", err)
	}
	return buf.Bytes(), nil
}
