package binder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"closingbinder/internal/binder/layouts"
	"closingbinder/internal/domain/models"
)

// maxImageBytes caps how much of a photo/logo response is read.
const maxImageBytes = 10 << 20

// CoverPDF renders the single-page binder cover from project metadata.
// Every block is optional: an absent field or a failed image download
// removes that block without failing the render.
type CoverPDF struct {
	themes *layouts.Registry
	theme  string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewCoverRenderer creates a cover renderer using the named theme as
// default; projects can override via cover_page_data["theme"].
func NewCoverRenderer(themes *layouts.Registry, theme string, logger *slog.Logger) *CoverPDF {
	return &CoverPDF{
		themes: themes,
		theme:  theme,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		now:    time.Now,
	}
}

// Render produces the cover page PDF.
func (r *CoverPDF) Render(ctx context.Context, project *models.Project, logos []models.Logo) ([]byte, error) {
	themeName := r.theme
	if v, ok := project.CoverPageData["theme"].(string); ok && v != "" {
		themeName = v
	}
	theme := r.themes.Get(themeName)

	pdf := fpdf.New("P", "pt", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(theme.Margin, theme.Margin, theme.Margin)
	pdf.SetAutoPageBreak(false, theme.Margin)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	contentW := pageW - 2*theme.Margin

	pdf.SetY(theme.Margin + 40)
	pdf.SetFont(theme.Font, "B", theme.TitleSize)
	pdf.MultiCell(contentW, theme.TitleSize+6, tr(project.Title), "", "C", false)
	pdf.Ln(theme.LineHeight)

	if project.PropertyAddress != nil && *project.PropertyAddress != "" {
		pdf.SetFont(theme.Font, "", theme.HeadingSize)
		pdf.MultiCell(contentW, theme.HeadingSize+4, tr(*project.PropertyAddress), "", "C", false)
		pdf.Ln(theme.LineHeight / 2)
	}

	if project.PropertyDescription != nil && *project.PropertyDescription != "" {
		pdf.SetFont(theme.Font, "I", theme.BodySize)
		pdf.MultiCell(contentW, theme.LineHeight, tr(*project.PropertyDescription), "", "C", false)
		pdf.Ln(theme.LineHeight / 2)
	}

	if project.CoverPhotoURL != nil && *project.CoverPhotoURL != "" {
		r.drawImage(ctx, pdf, *project.CoverPhotoURL, "cover_photo",
			theme.PhotoMaxWidth, theme.PhotoMaxHeight, pageW)
		pdf.Ln(theme.LineHeight)
	}

	r.drawTransactionDetails(pdf, tr, theme, contentW, project)
	r.drawParticipants(pdf, tr, theme, contentW, project)
	r.drawLogos(ctx, pdf, theme, pageW, pageH, logos)

	pdf.SetFont(theme.Font, "", theme.SmallSize)
	pdf.SetXY(theme.Margin, pageH-theme.Margin+10)
	pdf.CellFormat(contentW, theme.SmallSize+2,
		tr("Generated "+r.now().Format("January 2, 2006")), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render cover page: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *CoverPDF) drawTransactionDetails(pdf *fpdf.Fpdf, tr func(string) string, theme *layouts.Theme, contentW float64, project *models.Project) {
	var lines []string
	if project.PurchasePrice != nil {
		lines = append(lines, "Purchase Price: "+formatMoney(*project.PurchasePrice))
	}
	if project.ClosingDate != nil {
		lines = append(lines, "Closing Date: "+project.ClosingDate.Format("January 2, 2006"))
	}
	if project.LoanAmount != nil {
		lines = append(lines, "Loan Amount: "+formatMoney(*project.LoanAmount))
	}
	if len(lines) == 0 {
		return
	}

	pdf.Ln(theme.LineHeight / 2)
	pdf.SetFont(theme.Font, "B", theme.BodySize)
	for _, line := range lines {
		pdf.CellFormat(contentW, theme.LineHeight, tr(line), "", 1, "C", false, 0, "")
	}
}

func (r *CoverPDF) drawParticipants(pdf *fpdf.Fpdf, tr func(string) string, theme *layouts.Theme, contentW float64, project *models.Project) {
	rows := []struct {
		label string
		value *string
	}{
		{"Buyer", project.BuyerName},
		{"Seller", project.SellerName},
		{"Attorney", project.AttorneyName},
		{"Lender", project.LenderName},
		{"Title Company", project.TitleCompanyName},
		{"Escrow Agent", project.EscrowAgentName},
	}

	var present int
	for _, row := range rows {
		if row.value != nil && *row.value != "" {
			present++
		}
	}
	if present == 0 {
		return
	}

	pdf.Ln(theme.LineHeight)
	pdf.SetFont(theme.Font, "", theme.BodySize)
	for _, row := range rows {
		if row.value == nil || *row.value == "" {
			continue
		}
		pdf.CellFormat(contentW, theme.LineHeight, tr(row.label+": "+*row.value), "", 1, "C", false, 0, "")
	}
}

// drawLogos renders up to three logos side by side, centered above the
// bottom margin, each scaled to the theme's logo height.
func (r *CoverPDF) drawLogos(ctx context.Context, pdf *fpdf.Fpdf, theme *layouts.Theme, pageW, pageH float64, logos []models.Logo) {
	type placed struct {
		name  string
		width float64
	}

	var row []placed
	var totalW float64
	const gap = 24.0

	for i, logo := range logos {
		if i >= 3 {
			break
		}
		// Keyed by slice index: positions are not guaranteed unique and
		// fpdf silently reuses the first image registered under a name
		name := fmt.Sprintf("logo_%d", i)
		info := r.registerImage(ctx, pdf, logo.LogoURL, name)
		if info == nil {
			continue
		}
		w := info.Width() * theme.LogoHeight / info.Height()
		row = append(row, placed{name: name, width: w})
		totalW += w
	}

	if len(row) == 0 {
		return
	}
	totalW += gap * float64(len(row)-1)

	x := (pageW - totalW) / 2
	y := pageH - theme.Margin - theme.LogoHeight - 20
	for _, p := range row {
		pdf.ImageOptions(p.name, x, y, p.width, theme.LogoHeight, false, fpdf.ImageOptions{}, 0, "")
		x += p.width + gap
	}
}

// drawImage fetches and centers an image scaled into the given bounds.
func (r *CoverPDF) drawImage(ctx context.Context, pdf *fpdf.Fpdf, url, name string, maxW, maxH, pageW float64) {
	info := r.registerImage(ctx, pdf, url, name)
	if info == nil {
		return
	}

	w, h := info.Width(), info.Height()
	scale := 1.0
	if w > maxW {
		scale = maxW / w
	}
	if h*scale > maxH {
		scale = maxH / h
	}
	w, h = w*scale, h*scale

	pdf.ImageOptions(name, (pageW-w)/2, pdf.GetY(), w, h, false, fpdf.ImageOptions{}, 0, "")
	pdf.SetY(pdf.GetY() + h)
}

// registerImage downloads an image and registers it with the document.
// Any failure logs a warning and returns nil; callers skip the image.
func (r *CoverPDF) registerImage(ctx context.Context, pdf *fpdf.Fpdf, url, name string) *fpdf.ImageInfoType {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		r.logger.Warn("image request failed", "url", url, "error", err)
		return nil
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("image fetch failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("image fetch failed", "url", url, "status", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		r.logger.Warn("image read failed", "url", url, "error", err)
		return nil
	}

	imageType := imageTypeFor(resp.Header.Get("Content-Type"), data)
	if imageType == "" {
		r.logger.Warn("unsupported image type", "url", url)
		return nil
	}

	info := pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if pdf.Err() {
		r.logger.Warn("image decode failed", "url", url, "error", pdf.Error())
		// Clear the error so one broken image doesn't poison the page
		pdf.ClearError()
		return nil
	}
	return info
}

func imageTypeFor(contentType string, data []byte) string {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	switch {
	case strings.Contains(contentType, "png"):
		return "PNG"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "JPG"
	case strings.Contains(contentType, "gif"):
		return "GIF"
	default:
		return ""
	}
}

// formatMoney renders a dollar amount with thousands separators.
func formatMoney(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return sign + "$" + b.String() + frac
}
