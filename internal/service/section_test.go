package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closingbinder/internal/domain"
	"closingbinder/internal/domain/models"
	"closingbinder/internal/domain/services"
)

func newSectionFixture(t *testing.T) (services.SectionService, *memSections) {
	t.Helper()
	projects := newMemProjects(&models.Project{ID: "p1", UserID: "u1", Title: "Smith Closing"})
	sections := &memSections{}
	return NewSectionService(sections, projects, testLogger()), sections
}

func TestCreateSectionAssignsNextSortOrder(t *testing.T) {
	svc, _ := newSectionFixture(t)
	ctx := context.Background()

	first, err := svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Disclosures",
		SectionType: models.SectionTypeSection,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, first.SortOrder)

	second, err := svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Title",
		SectionType: models.SectionTypeSection,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, second.SortOrder)

	// Subsections count ordering within their own parent, not globally
	sub, err := svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Survey",
		SectionType:     models.SectionTypeSubsection,
		ParentSectionID: &first.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, sub.SortOrder)
}

func TestCreateSectionNestingRules(t *testing.T) {
	svc, _ := newSectionFixture(t)
	ctx := context.Background()

	parent, err := svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Disclosures",
		SectionType: models.SectionTypeSection,
	})
	require.NoError(t, err)

	sub, err := svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Survey",
		SectionType:     models.SectionTypeSubsection,
		ParentSectionID: &parent.ID,
	})
	require.NoError(t, err)

	// Subsection without a parent
	_, err = svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Orphan",
		SectionType: models.SectionTypeSubsection,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Subsection under a subsection
	_, err = svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Too Deep",
		SectionType:     models.SectionTypeSubsection,
		ParentSectionID: &sub.ID,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Top-level section with a parent
	_, err = svc.CreateSection(ctx, &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "Confused",
		SectionType:     models.SectionTypeSection,
		ParentSectionID: &parent.ID,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateSectionRejectsBlankName(t *testing.T) {
	svc, _ := newSectionFixture(t)

	_, err := svc.CreateSection(context.Background(), &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "u1", Name: "   ",
		SectionType: models.SectionTypeSection,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateSectionScopedToOwner(t *testing.T) {
	svc, _ := newSectionFixture(t)

	_, err := svc.CreateSection(context.Background(), &services.CreateSectionRequest{
		ProjectID: "p1", UserID: "someone-else", Name: "Disclosures",
		SectionType: models.SectionTypeSection,
	})
	assert.True(t, domain.IsNotFound(err))
}
