package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/services"
	"closingbinder/internal/repository/redisstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memProjects is an in-memory ProjectRepository.
type memProjects struct {
	projects map[string]*models.Project
}

func newMemProjects(projects ...*models.Project) *memProjects {
	m := &memProjects{projects: make(map[string]*models.Project)}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *memProjects) Create(ctx context.Context, p *models.Project) error {
	p.ID = uuid.NewString()
	m.projects[p.ID] = p
	return nil
}

func (m *memProjects) GetByID(ctx context.Context, id, userID string) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok || (userID != "" && p.UserID != userID) {
		return nil, &domain.NotFoundError{Message: "project not found"}
	}
	return p, nil
}

func (m *memProjects) List(ctx context.Context, userID string) ([]models.Project, error) {
	var out []models.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memProjects) Update(ctx context.Context, p *models.Project) error { return nil }

func (m *memProjects) Delete(ctx context.Context, id, userID string) error {
	delete(m.projects, id)
	return nil
}

// memSections is an in-memory SectionRepository.
type memSections struct {
	sections []models.Section
}

func (m *memSections) Create(ctx context.Context, s *models.Section) error {
	s.ID = uuid.NewString()
	m.sections = append(m.sections, *s)
	return nil
}

func (m *memSections) GetByID(ctx context.Context, id, projectID string) (*models.Section, error) {
	for i := range m.sections {
		if m.sections[i].ID == id && m.sections[i].ProjectID == projectID {
			s := m.sections[i]
			return &s, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "section not found"}
}

func (m *memSections) ListByProject(ctx context.Context, projectID string) ([]models.Section, error) {
	var out []models.Section
	for _, s := range m.sections {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSections) Update(ctx context.Context, s *models.Section) error { return nil }

func (m *memSections) Delete(ctx context.Context, id, projectID string) error { return nil }

// memDocuments is an in-memory DocumentRepository.
type memDocuments struct {
	docs []models.Document
}

func (m *memDocuments) Create(ctx context.Context, d *models.Document) error {
	d.ID = uuid.NewString()
	m.docs = append(m.docs, *d)
	return nil
}

func (m *memDocuments) GetByID(ctx context.Context, id, projectID string) (*models.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			d := m.docs[i]
			return &d, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "document not found"}
}

func (m *memDocuments) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	var out []models.Document
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memDocuments) ListByIDs(ctx context.Context, ids []string) ([]models.Document, error) {
	var out []models.Document
	for _, id := range ids {
		for _, d := range m.docs {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (m *memDocuments) NextSortOrder(ctx context.Context, projectID string, sectionID *string) (int, error) {
	return len(m.docs), nil
}

func (m *memDocuments) Update(ctx context.Context, d *models.Document) error {
	for i := range m.docs {
		if m.docs[i].ID == d.ID {
			m.docs[i] = *d
			return nil
		}
	}
	return &domain.NotFoundError{Message: "document not found"}
}

func (m *memDocuments) Delete(ctx context.Context, id, projectID string) error { return nil }

// memBinders is an in-memory BinderRepository.
type memBinders struct {
	binders []*models.ClientBinder
}

func (m *memBinders) Create(ctx context.Context, b *models.ClientBinder) error {
	b.ID = uuid.NewString()
	m.binders = append(m.binders, b)
	return nil
}

func (m *memBinders) GetByProjectAndClient(ctx context.Context, projectID, clientEmail string) (*models.ClientBinder, error) {
	for _, b := range m.binders {
		if b.ProjectID == projectID && b.ClientEmail == clientEmail {
			return b, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "binder not found"}
}

func (m *memBinders) GetByAccessCode(ctx context.Context, accessCode string) (*models.ClientBinder, error) {
	for _, b := range m.binders {
		if b.AccessCode == accessCode {
			return b, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "binder not found"}
}

func (m *memBinders) ListByProject(ctx context.Context, projectID string) ([]models.ClientBinder, error) {
	var out []models.ClientBinder
	for _, b := range m.binders {
		if b.ProjectID == projectID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *memBinders) Update(ctx context.Context, b *models.ClientBinder) error {
	for i := range m.binders {
		if m.binders[i].ID == b.ID {
			m.binders[i] = b
			return nil
		}
	}
	return &domain.NotFoundError{Message: "binder not found"}
}

func (m *memBinders) Delete(ctx context.Context, id string) error { return nil }

// memAccessLog records entries, optionally failing.
type memAccessLog struct {
	entries []models.AccessLogEntry
	fail    bool
}

func (m *memAccessLog) Record(ctx context.Context, e *models.AccessLogEntry) error {
	if m.fail {
		return assert.AnError
	}
	m.entries = append(m.entries, *e)
	return nil
}

func newPublishFixture(t *testing.T) (services.PublishService, *memBinders, *memAccessLog) {
	t.Helper()

	project := &models.Project{ID: "p1", UserID: "u1", Title: "Smith Closing"}
	projects := newMemProjects(project)

	sections := &memSections{sections: []models.Section{
		{ID: "s1", ProjectID: "p1", Name: "Disclosures", SectionType: models.SectionTypeSection},
	}}
	sid := "s1"
	docs := &memDocuments{docs: []models.Document{
		{ID: "d1", ProjectID: "p1", SectionID: &sid, Name: "Deed"},
	}}

	binders := &memBinders{}
	accessLog := &memAccessLog{}
	tracker := redisstore.New("", "", 0, testLogger())

	svc := NewPublishService(binders, projects, sections, docs, accessLog, tracker, testLogger())
	return svc, binders, accessLog
}

func TestPublishFreezesTOCAndMintsAccessCode(t *testing.T) {
	svc, binders, _ := newPublishFixture(t)

	snapshot, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID:   "p1",
		UserID:      "u1",
		ClientEmail: "Client@Example.com",
	})
	require.NoError(t, err)

	assert.Len(t, snapshot.AccessCode, 8)
	assert.Equal(t, snapshot.AccessCode, strings.ToUpper(snapshot.AccessCode))
	assert.Equal(t, "client@example.com", snapshot.ClientEmail)
	assert.True(t, snapshot.IsPublished)
	assert.True(t, snapshot.IsActive)
	assert.False(t, snapshot.PasswordProtected)

	// Frozen structure: section row plus its document
	require.Len(t, snapshot.TableOfContentsData, 2)
	assert.Equal(t, "1", snapshot.TableOfContentsData[0].Number)
	assert.Equal(t, "1.1", snapshot.TableOfContentsData[1].Number)

	assert.Len(t, binders.binders, 1)
}

func TestRepublishKeepsAccessCode(t *testing.T) {
	svc, binders, _ := newPublishFixture(t)

	first, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "client@example.com",
	})
	require.NoError(t, err)
	firstID, firstCode := first.ID, first.AccessCode

	exp := time.Now().Add(24 * time.Hour)
	second, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "client@example.com",
		ExpiresAt: &exp,
	})
	require.NoError(t, err)

	assert.Equal(t, firstID, second.ID)
	assert.Equal(t, firstCode, second.AccessCode)
	require.NotNil(t, second.ExpiresAt)
	assert.Len(t, binders.binders, 1)
}

func TestPublishRejectsBadEmail(t *testing.T) {
	svc, _, _ := newPublishFixture(t)

	_, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "not-an-email",
	})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestResolveByAccessCodeGating(t *testing.T) {
	svc, binders, _ := newPublishFixture(t)

	snapshot, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "client@example.com",
	})
	require.NoError(t, err)

	got, err := svc.ResolveByAccessCode(context.Background(), snapshot.AccessCode, "")
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, got.ID)

	// Lowercase input is normalized
	_, err = svc.ResolveByAccessCode(context.Background(), strings.ToLower(snapshot.AccessCode), "")
	require.NoError(t, err)

	// Unknown code
	_, err = svc.ResolveByAccessCode(context.Background(), "NOPE1234", "")
	assert.True(t, domain.IsNotFound(err))

	// Deactivated binder resolves as not found
	binders.binders[0].IsActive = false
	_, err = svc.ResolveByAccessCode(context.Background(), snapshot.AccessCode, "")
	assert.True(t, domain.IsNotFound(err))
	binders.binders[0].IsActive = true

	// Expired binder is gone, not missing
	past := time.Now().Add(-time.Hour)
	binders.binders[0].ExpiresAt = &past
	_, err = svc.ResolveByAccessCode(context.Background(), snapshot.AccessCode, "")
	var gone *domain.GoneError
	assert.ErrorAs(t, err, &gone)
}

func TestResolveByAccessCodePassword(t *testing.T) {
	svc, _, _ := newPublishFixture(t)

	password := "hunter2"
	snapshot, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "client@example.com",
		Password: &password,
	})
	require.NoError(t, err)
	assert.True(t, snapshot.PasswordProtected)
	require.NotNil(t, snapshot.AccessPassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*snapshot.AccessPassword), []byte(password)))

	_, err = svc.ResolveByAccessCode(context.Background(), snapshot.AccessCode, "wrong")
	var unauthorized *domain.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorized)

	got, err := svc.ResolveByAccessCode(context.Background(), snapshot.AccessCode, password)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, got.ID)
}

func TestUnpublishDeactivates(t *testing.T) {
	svc, binders, _ := newPublishFixture(t)

	snapshot, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "client@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Unpublish(context.Background(), snapshot.ID, "p1", "u1"))
	assert.False(t, binders.binders[0].IsActive)

	err = svc.Unpublish(context.Background(), "missing", "p1", "u1")
	assert.True(t, domain.IsNotFound(err))
}

func TestRecordAccessSurvivesLogFailure(t *testing.T) {
	svc, _, accessLog := newPublishFixture(t)
	accessLog.fail = true

	snapshot, err := svc.Publish(context.Background(), &services.PublishRequest{
		ProjectID: "p1", UserID: "u1", ClientEmail: "client@example.com",
	})
	require.NoError(t, err)

	// Must not panic or error even when the log sink is down
	svc.RecordAccess(context.Background(), snapshot, services.AccessEvent{
		Action:     models.AccessActionView,
		RemoteAddr: "203.0.113.9",
		UserAgent:  "test",
	})
}
