package binder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closingbinder/internal/domain/models"
)

// fetchStore serves objects from a map; missing keys error.
type fetchStore struct {
	objects map[string][]byte
	err     error
}

func (s *fetchStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	return "", errors.New("not implemented")
}

func (s *fetchStore) Download(ctx context.Context, key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

func (s *fetchStore) Remove(ctx context.Context, key string) error { return nil }

func (s *fetchStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", errors.New("not implemented")
}

func pdfBytes(tag string) []byte {
	return []byte("%PDF-1.7 " + tag)
}

func TestFetchPrefersStoragePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("URL should not be fetched when storage succeeds")
	}))
	defer srv.Close()

	store := &fetchStore{objects: map[string][]byte{
		"projects/p1/documents/x.pdf": pdfBytes("from storage"),
	}}
	f := NewFetcher(store)

	path := "projects/p1/documents/x.pdf"
	url := srv.URL + "/x.pdf"
	data, err := f.Fetch(context.Background(), &models.Document{
		ID: "d1", StoragePath: &path, FileURL: &url,
	})
	require.NoError(t, err)
	assert.Equal(t, pdfBytes("from storage"), data)
}

func TestFetchFallsBackToURLOnStorageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBytes("from url"))
	}))
	defer srv.Close()

	store := &fetchStore{err: errors.New("bucket unavailable")}
	f := NewFetcher(store)

	path := "projects/p1/documents/x.pdf"
	url := srv.URL + "/x.pdf"
	data, err := f.Fetch(context.Background(), &models.Document{
		ID: "d1", StoragePath: &path, FileURL: &url,
	})
	require.NoError(t, err)
	assert.Equal(t, pdfBytes("from url"), data)
}

func TestFetchFallsBackWhenStorageObjectIsNotPDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdfBytes("from url"))
	}))
	defer srv.Close()

	store := &fetchStore{objects: map[string][]byte{
		"projects/p1/documents/x.pdf": []byte("<html>not a pdf</html>"),
	}}
	f := NewFetcher(store)

	path := "projects/p1/documents/x.pdf"
	url := srv.URL + "/x.pdf"
	data, err := f.Fetch(context.Background(), &models.Document{
		ID: "d1", StoragePath: &path, FileURL: &url,
	})
	require.NoError(t, err)
	assert.Equal(t, pdfBytes("from url"), data)
}

func TestFetchReportsAllSourceFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := &fetchStore{err: errors.New("bucket unavailable")}
	f := NewFetcher(store)

	path := "projects/p1/documents/x.pdf"
	url := srv.URL + "/x.pdf"
	_, err := f.Fetch(context.Background(), &models.Document{
		ID: "d1", StoragePath: &path, FileURL: &url,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Contains(t, err.Error(), "status 500")
}

func TestFetchRejectsDocumentWithoutSources(t *testing.T) {
	f := NewFetcher(&fetchStore{})

	_, err := f.Fetch(context.Background(), &models.Document{ID: "d1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no storage path or file URL")
}
