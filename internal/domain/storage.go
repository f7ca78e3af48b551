package domain

import (
	"context"
	"io"
	"time"
)

// ObjectStore abstracts the S3-compatible bucket holding uploaded PDFs.
// Keys are opaque to callers; the upload queue mints them.
type ObjectStore interface {
	// Upload stores an object and returns a public URL for it
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)

	// Download fetches an object's bytes
	Download(ctx context.Context, key string) ([]byte, error)

	// Remove deletes an object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error

	// PresignedURL returns a time-limited download URL for an object
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
