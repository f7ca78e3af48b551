package binder

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closingbinder/internal/binder/layouts"
	"closingbinder/internal/domain/models"
)

func renderLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func renderThemes(t *testing.T) *layouts.Registry {
	t.Helper()
	themes, err := layouts.NewRegistry()
	require.NoError(t, err)
	return themes
}

func fullProject() *models.Project {
	addr := "123 Main St, Springfield"
	desc := "Single family residence on a corner lot."
	price := 450000.0
	loan := 360000.0
	closing := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	buyer := "Jane Smith"
	seller := "Bob Jones"
	return &models.Project{
		ID:                  "p1",
		UserID:              "u1",
		Title:               "Smith Closing",
		PropertyAddress:     &addr,
		PropertyDescription: &desc,
		PurchasePrice:       &price,
		LoanAmount:          &loan,
		ClosingDate:         &closing,
		BuyerName:           &buyer,
		SellerName:          &seller,
	}
}

func TestCoverRenderProducesPDF(t *testing.T) {
	r := NewCoverRenderer(renderThemes(t), "default", renderLogger())

	out, err := r.Render(context.Background(), fullProject(), nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestCoverRenderMinimalProject(t *testing.T) {
	r := NewCoverRenderer(renderThemes(t), "default", renderLogger())

	// Only a title; every optional block is skipped
	out, err := r.Render(context.Background(), &models.Project{ID: "p1", Title: "Bare"}, nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestCoverRenderUnknownThemeFallsBack(t *testing.T) {
	r := NewCoverRenderer(renderThemes(t), "no-such-theme", renderLogger())

	out, err := r.Render(context.Background(), fullProject(), nil)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestCoverRenderLogosSharingPositionBothEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		img := image.NewGray(image.Rect(0, 0, 4, 4))
		w.Header().Set("Content-Type", "image/png")
		require.NoError(t, png.Encode(w, img))
	}))
	defer srv.Close()

	r := NewCoverRenderer(renderThemes(t), "default", renderLogger())

	// Duplicate positions must not collapse into one image
	logos := []models.Logo{
		{ID: "l1", LogoURL: srv.URL + "/one.png", LogoPosition: 1},
		{ID: "l2", LogoURL: srv.URL + "/two.png", LogoPosition: 1},
	}

	out, err := r.Render(context.Background(), fullProject(), logos)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, 2, bytes.Count(out, []byte("/Subtype /Image")))
}

func TestTOCRenderProducesPDF(t *testing.T) {
	r := NewTOCRenderer(renderThemes(t), "default", renderLogger())

	docID := "d1"
	entries := []models.TOCEntry{
		{Number: "1", Title: "Disclosures", Kind: models.TOCKindSection, Indent: 0, PageStart: 3},
		{Number: "1.1", Title: "Deed", Kind: models.TOCKindDocument, DocumentID: &docID, Indent: 1, PageStart: 3, PageCount: 2},
		{Number: "2", Title: "Extra Agreement", Kind: models.TOCKindDocument, Indent: 0, PageStart: 5, PageCount: 1},
	}

	withPages, err := r.Render(fullProject(), entries, true)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(withPages, []byte("%PDF")))

	draft, err := r.Render(fullProject(), entries, false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(draft, []byte("%PDF")))
}

func TestTOCRenderEmptyEntries(t *testing.T) {
	r := NewTOCRenderer(renderThemes(t), "default", renderLogger())

	out, err := r.Render(fullProject(), nil, false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
