// Package uploads implements the in-memory upload queue feeding a
// project's document pool. Items drain strictly sequentially - one
// storage write at a time - which throttles the backend and keeps
// progress reporting coherent. Queue state is ephemeral; nothing here
// is persisted.
package uploads

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"closingbinder/internal/config"
	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/repositories"
)

// Status of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IncomingFile is a candidate upload handed to Add.
type IncomingFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Item is one tracked upload. Data is held until the item completes,
// so failed items stay retryable.
type Item struct {
	ID         string  `json:"id"`
	ProjectID  string  `json:"project_id"`
	SectionID  *string `json:"section_id,omitempty"`
	Name       string  `json:"name"`
	Size       int64   `json:"size"`
	Status     Status  `json:"status"`
	Progress   int     `json:"progress"`
	Error      string  `json:"error,omitempty"`
	RetryCount int     `json:"retry_count"`
	DocumentID string  `json:"document_id,omitempty"`

	data []byte
}

// FileError reports why a single file was rejected at Add time.
type FileError struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// AddResult summarizes an Add call.
type AddResult struct {
	Added  int         `json:"added"`
	Errors []FileError `json:"errors,omitempty"`
}

// Manager owns the queue and its single drain goroutine.
type Manager struct {
	store  domain.ObjectStore
	docs   repositories.DocumentRepository
	logger *slog.Logger

	// sleep is swappable so tests don't wait out real backoff
	sleep func(time.Duration)

	mu    sync.Mutex
	items []*Item
	wake  chan struct{}
}

// NewManager creates a queue manager. Call Start to begin draining.
func NewManager(store domain.ObjectStore, docs repositories.DocumentRepository, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		docs:   docs,
		logger: logger,
		sleep:  time.Sleep,
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the drain goroutine. It exits when ctx is canceled.
func (m *Manager) Start(ctx context.Context) {
	go m.drain(ctx)
}

// Add validates and enqueues a batch of files. Invalid files are
// rejected individually; valid ones enter the queue in pending state.
// Batches over the limit are rejected outright.
func (m *Manager) Add(projectID string, sectionID *string, files []IncomingFile) AddResult {
	var result AddResult

	if len(files) > config.MaxUploadBatch {
		result.Errors = append(result.Errors, FileError{
			Reason: fmt.Sprintf("batch of %d exceeds the %d-file limit", len(files), config.MaxUploadBatch),
		})
		return result
	}

	m.mu.Lock()
	for _, f := range files {
		if err := ValidateFile(f); err != nil {
			result.Errors = append(result.Errors, FileError{Name: f.Name, Reason: err.Error()})
			continue
		}

		m.items = append(m.items, &Item{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			SectionID: sectionID,
			Name:      f.Name,
			Size:      int64(len(f.Data)),
			Status:    StatusPending,
			data:      f.Data,
		})
		result.Added++
	}
	m.mu.Unlock()

	if result.Added > 0 {
		m.signal()
	}

	return result
}

// Retry re-attempts a single failed item. The drain goroutine runs up to
// MaxUploadRetries attempts with exponential backoff before surfacing
// failure again.
func (m *Manager) Retry(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.items {
		if item.ID != id {
			continue
		}
		if item.Status != StatusFailed {
			return fmt.Errorf("upload %s is not in failed state: %w", id, domain.ErrValidation)
		}
		item.Status = StatusRetrying
		item.Progress = 0
		item.Error = ""
		m.signal()
		return nil
	}

	return fmt.Errorf("upload %s: %w", id, domain.ErrNotFound)
}

// Remove drops an item from the queue. In-flight items cannot be removed.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, item := range m.items {
		if item.ID != id {
			continue
		}
		if item.Status == StatusUploading {
			return fmt.Errorf("upload %s is in flight: %w", id, domain.ErrConflict)
		}
		m.items = append(m.items[:i], m.items[i+1:]...)
		return nil
	}

	return fmt.Errorf("upload %s: %w", id, domain.ErrNotFound)
}

// Clear drops every item that is not currently in flight.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, item := range m.items {
		if item.Status == StatusUploading {
			kept = append(kept, item)
		}
	}
	m.items = kept
}

// ClearCompleted drops completed items only.
func (m *Manager) ClearCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.items[:0]
	for _, item := range m.items {
		if item.Status != StatusCompleted {
			kept = append(kept, item)
		}
	}
	m.items = kept
}

// Snapshot returns a copy of the queue for status endpoints.
func (m *Manager) Snapshot() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		copied := *item
		copied.data = nil
		snapshot = append(snapshot, copied)
	}
	return snapshot
}

func (m *Manager) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// drain processes queued items one at a time until ctx is canceled.
func (m *Manager) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			item := m.takeNext()
			if item == nil {
				break
			}
			m.process(ctx, item)
		}
	}
}

// takeNext claims the first pending or retrying item. Claiming happens
// under the lock so an item is never visible as claimable twice.
func (m *Manager) takeNext() *Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.items {
		switch item.Status {
		case StatusPending:
			item.Status = StatusUploading
			item.Progress = 5
			return item
		case StatusRetrying:
			return item
		}
	}
	return nil
}

// process runs one upload. Plain uploads get a single attempt; retrying
// items get MaxUploadRetries attempts with 1s/2s/4s backoff.
func (m *Manager) process(ctx context.Context, item *Item) {
	retrying := m.status(item) == StatusRetrying
	attempts := 1
	if retrying {
		attempts = config.MaxUploadRetries
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			m.sleep(time.Duration(1<<(i-1)) * time.Second)
		}

		m.bumpRetryCount(item, retrying)
		err = m.uploadOne(ctx, item)
		if err == nil {
			m.complete(item)
			return
		}

		m.logger.Warn("upload attempt failed",
			"upload_id", item.ID,
			"name", item.Name,
			"attempt", i+1,
			"error", err,
		)
	}

	m.fail(item, err)
}

// uploadOne stores the bytes then inserts the metadata row as one logical
// unit: a metadata failure rolls the stored object back so no orphan is
// left in the bucket.
func (m *Manager) uploadOne(ctx context.Context, item *Item) error {
	key := fmt.Sprintf("projects/%s/documents/%s_%s", item.ProjectID, uuid.NewString()[:8], objectName(item.Name))

	fileURL, err := m.store.Upload(ctx, key, bytes.NewReader(item.data), item.Size, "application/pdf")
	if err != nil {
		return fmt.Errorf("store bytes: %w", err)
	}
	m.setProgress(item, 60)

	sortOrder, err := m.docs.NextSortOrder(ctx, item.ProjectID, item.SectionID)
	if err == nil {
		doc := &models.Document{
			ProjectID:   item.ProjectID,
			SectionID:   item.SectionID,
			Name:        item.Name,
			SortOrder:   sortOrder,
			StoragePath: &key,
			FileURL:     &fileURL,
			FileSize:    item.Size,
			ContentType: "application/pdf",
		}
		if err = m.docs.Create(ctx, doc); err == nil {
			m.setDocumentID(item, doc.ID)
			return nil
		}
	}

	// Roll back the stored object to avoid an orphan
	if rmErr := m.store.Remove(ctx, key); rmErr != nil {
		m.logger.Error("orphan rollback failed", "key", key, "error", rmErr)
	}
	return fmt.Errorf("store metadata: %w", err)
}

func (m *Manager) status(item *Item) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return item.Status
}

func (m *Manager) setProgress(item *Item, progress int) {
	m.mu.Lock()
	item.Progress = progress
	m.mu.Unlock()
}

func (m *Manager) setDocumentID(item *Item, docID string) {
	m.mu.Lock()
	item.DocumentID = docID
	m.mu.Unlock()
}

func (m *Manager) bumpRetryCount(item *Item, isRetry bool) {
	if !isRetry {
		return
	}
	m.mu.Lock()
	item.RetryCount++
	m.mu.Unlock()
}

func (m *Manager) complete(item *Item) {
	m.mu.Lock()
	item.Status = StatusCompleted
	item.Progress = 100
	item.Error = ""
	item.data = nil
	m.mu.Unlock()

	m.logger.Info("upload completed",
		"upload_id", item.ID,
		"name", item.Name,
		"document_id", item.DocumentID,
	)
}

func (m *Manager) fail(item *Item, err error) {
	m.mu.Lock()
	item.Status = StatusFailed
	if err != nil {
		item.Error = err.Error()
	}
	m.mu.Unlock()
}
