// Package pdfengine backs the binder merge engine with pdfcpu.
package pdfengine

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"closingbinder/internal/binder"
)

// Engine implements binder.PageEngine on top of pdfcpu, operating on
// in-memory PDFs throughout.
type Engine struct {
	conf *model.Configuration
}

func New() *Engine {
	conf := model.NewDefaultConfiguration()
	// Real world closing documents are frequently produced by scanners
	// and office tools that bend the PDF spec
	conf.ValidationMode = model.ValidationRelaxed
	return &Engine{conf: conf}
}

func (e *Engine) Validate(data []byte) error {
	if err := api.Validate(bytes.NewReader(data), e.conf); err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	return nil
}

func (e *Engine) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), e.conf)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

func (e *Engine) Merge(parts [][]byte) ([]byte, error) {
	if len(parts) == 1 {
		return parts[0], nil
	}

	readers := make([]io.ReadSeeker, len(parts))
	for i, part := range parts {
		readers[i] = bytes.NewReader(part)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, e.conf); err != nil {
		return nil, fmt.Errorf("merge pdfs: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) AddBookmarks(data []byte, marks []binder.Bookmark) ([]byte, error) {
	bms := make([]pdfcpu.Bookmark, 0, len(marks))
	for _, m := range marks {
		bm := pdfcpu.Bookmark{Title: m.Title, PageFrom: m.StartPage}
		if m.PageCount > 0 {
			bm.PageThru = m.StartPage + m.PageCount - 1
		}
		bms = append(bms, bm)
	}

	var buf bytes.Buffer
	if err := api.AddBookmarks(bytes.NewReader(data), &buf, bms, true, e.conf); err != nil {
		return nil, fmt.Errorf("add bookmarks: %w", err)
	}
	return buf.Bytes(), nil
}
