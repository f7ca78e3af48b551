package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
)

// fakeStore records uploads and can be told to fail.
type fakeStore struct {
	mu       sync.Mutex
	uploaded []string
	removed  []string

	failNext int32 // number of upcoming Upload calls to fail

	inFlight      int32
	maxConcurrent int32
}

func (s *fakeStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		max := atomic.LoadInt32(&s.maxConcurrent)
		if n <= max || atomic.CompareAndSwapInt32(&s.maxConcurrent, max, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	if atomic.AddInt32(&s.failNext, -1) >= 0 {
		return "", errors.New("bucket unavailable")
	}
	atomic.AddInt32(&s.failNext, 1)

	s.mu.Lock()
	s.uploaded = append(s.uploaded, key)
	s.mu.Unlock()
	return "https://bucket.test/" + key, nil
}

func (s *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	s.removed = append(s.removed, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://bucket.test/presigned/" + key, nil
}

// fakeDocs implements DocumentRepository over a slice.
type fakeDocs struct {
	mu          sync.Mutex
	created     []models.Document
	failCreates int32
}

func (d *fakeDocs) Create(ctx context.Context, doc *models.Document) error {
	if atomic.AddInt32(&d.failCreates, -1) >= 0 {
		return errors.New("insert failed")
	}
	atomic.AddInt32(&d.failCreates, 1)

	d.mu.Lock()
	doc.ID = uuid.NewString()
	d.created = append(d.created, *doc)
	d.mu.Unlock()
	return nil
}

func (d *fakeDocs) GetByID(ctx context.Context, id, projectID string) (*models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.created {
		if d.created[i].ID == id {
			doc := d.created[i]
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (d *fakeDocs) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.Document
	for _, doc := range d.created {
		if doc.ProjectID == projectID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *fakeDocs) ListByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	return nil, nil
}

func (d *fakeDocs) NextSortOrder(ctx context.Context, projectID string, sectionID *string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := 0
	for _, doc := range d.created {
		if doc.ProjectID != projectID {
			continue
		}
		if (doc.SectionID == nil) != (sectionID == nil) {
			continue
		}
		if doc.SectionID != nil && sectionID != nil && *doc.SectionID != *sectionID {
			continue
		}
		if doc.SortOrder >= next {
			next = doc.SortOrder + 1
		}
	}
	return next, nil
}

func (d *fakeDocs) Update(ctx context.Context, doc *models.Document) error { return nil }

func (d *fakeDocs) Delete(ctx context.Context, id, projectID string) error { return nil }

func pdf(name string) IncomingFile {
	return IncomingFile{
		Name:        name,
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.7 test content"),
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeStore, *fakeDocs) {
	t.Helper()
	store := &fakeStore{}
	docs := &fakeDocs{}
	m := NewManager(store, docs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.sleep = func(time.Duration) {} // no real backoff in tests
	return m, store, docs
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func allSettled(m *Manager) bool {
	for _, item := range m.Snapshot() {
		if item.Status != StatusCompleted && item.Status != StatusFailed {
			return false
		}
	}
	return true
}

func TestAddRejectsInvalidFiles(t *testing.T) {
	m, _, _ := newTestManager(t)

	result := m.Add("p1", nil, []IncomingFile{
		pdf("good.pdf"),
		{Name: "image.png", ContentType: "image/png", Data: []byte("%PDF-")},
		{Name: "empty.pdf", ContentType: "application/pdf", Data: nil},
		{Name: "fake.pdf", ContentType: "application/pdf", Data: []byte("MZ not a pdf")},
	})

	assert.Equal(t, 1, result.Added)
	require.Len(t, result.Errors, 3)
	assert.Equal(t, "image.png", result.Errors[0].Name)
	assert.Equal(t, "empty.pdf", result.Errors[1].Name)
	assert.Equal(t, "fake.pdf", result.Errors[2].Name)
}

func TestAddRejectsOversizedBatch(t *testing.T) {
	m, _, _ := newTestManager(t)

	files := make([]IncomingFile, 21)
	for i := range files {
		files[i] = pdf(fmt.Sprintf("doc-%d.pdf", i))
	}

	result := m.Add("p1", nil, files)
	assert.Zero(t, result.Added)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Reason, "exceeds")
	assert.Empty(t, m.Snapshot())
}

func TestQueueUploadsSequentially(t *testing.T) {
	m, store, docs := newTestManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	var files []IncomingFile
	for i := 0; i < 5; i++ {
		files = append(files, pdf(fmt.Sprintf("doc-%d.pdf", i)))
	}
	result := m.Add("p1", nil, files)
	require.Equal(t, 5, result.Added)

	waitFor(t, func() bool { return allSettled(m) })

	for _, item := range m.Snapshot() {
		assert.Equal(t, StatusCompleted, item.Status)
		assert.Equal(t, 100, item.Progress)
		assert.NotEmpty(t, item.DocumentID)
	}

	// Single drain goroutine: never more than one upload in flight
	assert.Equal(t, int32(1), atomic.LoadInt32(&store.maxConcurrent))
	assert.Len(t, store.uploaded, 5)

	// Sort order assigned sequentially within the unorganized scope
	docs.mu.Lock()
	defer docs.mu.Unlock()
	for i, doc := range docs.created {
		assert.Equal(t, i, doc.SortOrder)
	}
}

func TestInitialUploadGetsSingleAttempt(t *testing.T) {
	m, store, _ := newTestManager(t)
	atomic.StoreInt32(&store.failNext, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Add("p1", nil, []IncomingFile{pdf("doc.pdf")})
	waitFor(t, func() bool { return allSettled(m) })

	items := m.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, StatusFailed, items[0].Status)
	assert.Zero(t, items[0].RetryCount)
	assert.Contains(t, items[0].Error, "store bytes")
}

func TestRetryMakesBoundedAttempts(t *testing.T) {
	m, store, _ := newTestManager(t)
	// Fail the initial attempt plus all retry attempts
	atomic.StoreInt32(&store.failNext, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Add("p1", nil, []IncomingFile{pdf("doc.pdf")})
	waitFor(t, func() bool { return allSettled(m) })

	id := m.Snapshot()[0].ID
	require.NoError(t, m.Retry(id))
	waitFor(t, func() bool { return allSettled(m) })

	items := m.Snapshot()
	assert.Equal(t, StatusFailed, items[0].Status)
	assert.Equal(t, 3, items[0].RetryCount)

	// Retrying an item that is not failed is rejected
	atomic.StoreInt32(&store.failNext, 0)
	require.NoError(t, m.Retry(id))
	waitFor(t, func() bool { return allSettled(m) })
	err := m.Retry(id)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestMetadataFailureRollsBackObject(t *testing.T) {
	m, store, docs := newTestManager(t)
	atomic.StoreInt32(&docs.failCreates, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Add("p1", nil, []IncomingFile{pdf("doc.pdf")})
	waitFor(t, func() bool { return allSettled(m) })

	items := m.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, StatusFailed, items[0].Status)
	assert.Contains(t, items[0].Error, "store metadata")

	// The stored object was rolled back, leaving no orphan
	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.uploaded, 1)
	require.Len(t, store.removed, 1)
	assert.Equal(t, store.uploaded[0], store.removed[0])
}

func TestRemoveAndClear(t *testing.T) {
	m, _, _ := newTestManager(t)
	// Drain never started: items stay pending

	m.Add("p1", nil, []IncomingFile{pdf("a.pdf"), pdf("b.pdf"), pdf("c.pdf")})
	items := m.Snapshot()
	require.Len(t, items, 3)

	require.NoError(t, m.Remove(items[0].ID))
	assert.Len(t, m.Snapshot(), 2)

	err := m.Remove("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	m.Clear()
	assert.Empty(t, m.Snapshot())
}

func TestClearCompletedKeepsFailures(t *testing.T) {
	m, store, _ := newTestManager(t)
	atomic.StoreInt32(&store.failNext, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	m.Add("p1", nil, []IncomingFile{pdf("bad.pdf")})
	waitFor(t, func() bool { return allSettled(m) })
	m.Add("p1", nil, []IncomingFile{pdf("good.pdf")})
	waitFor(t, func() bool { return allSettled(m) })

	m.ClearCompleted()
	items := m.Snapshot()
	require.Len(t, items, 1)
	assert.Equal(t, StatusFailed, items[0].Status)
	assert.Equal(t, "bad.pdf", items[0].Name)
}
