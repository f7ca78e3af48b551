package binder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
)

var pdfMagic = []byte("%PDF-")

// Fetcher resolves document content for the merge engine. The storage
// path is tried first; on failure the external URL is tried, so a
// bucket outage does not skip documents the URL can still serve.
type Fetcher struct {
	store  domain.ObjectStore
	client *http.Client
}

func NewFetcher(store domain.ObjectStore) *Fetcher {
	return &Fetcher{
		store:  store,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch returns the raw PDF bytes for a document, verifying the PDF
// magic bytes before handing them to the merge step. The first source
// that succeeds wins; all failures are reported together.
func (f *Fetcher) Fetch(ctx context.Context, doc *models.Document) ([]byte, error) {
	var errs []error

	if doc.StoragePath != nil && *doc.StoragePath != "" {
		data, err := f.fromStorage(ctx, *doc.StoragePath)
		if err == nil {
			if bytes.HasPrefix(data, pdfMagic) {
				return data, nil
			}
			err = fmt.Errorf("object %s is not a PDF", *doc.StoragePath)
		}
		errs = append(errs, err)
	}

	if doc.FileURL != nil && *doc.FileURL != "" {
		data, err := f.fromURL(ctx, *doc.FileURL)
		if err == nil {
			if bytes.HasPrefix(data, pdfMagic) {
				return data, nil
			}
			err = fmt.Errorf("fetch %s: not a PDF", *doc.FileURL)
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("document %s has no storage path or file URL", doc.ID)
	}
	return nil, errors.Join(errs...)
}

func (f *Fetcher) fromStorage(ctx context.Context, path string) ([]byte, error) {
	data, err := f.store.Download(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return data, nil
}

func (f *Fetcher) fromURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}
