package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository"
)

func TestGetCandidateNotFound(t *testing.T) {
	s := New()
	_, err := s.GetCandidate(context.Background(), "p1", "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsertCandidatePreservesInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"c3", "c1", "c2"} {
		require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Author: domain.Author{ID: id}}))
	}
	all, err := s.ListCandidates(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c3", "c1", "c2"}, []string{all[0].Author.ID, all[1].Author.ID, all[2].Author.ID})
}

func TestUpsertCandidateOverwritesWithoutDuplicatingOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Author: domain.Author{ID: "c1"}}))
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Author: domain.Author{ID: "c1", Name: "Updated"}}))

	all, err := s.ListCandidates(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Updated", all[0].Author.Name)
}

func TestGetCandidateReturnsACopyNotAnAlias(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Author: domain.Author{ID: "c1", Name: "Original"}}))

	got, err := s.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	got.Author.Name = "Mutated"

	again, err := s.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Author.Name, "mutating a returned candidate must not leak into the store")
}

func TestListCandidatesByRoleFilters(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Role: domain.RoleCandidate, Author: domain.Author{ID: "c1"}}))
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Role: domain.RoleShortlisted, Author: domain.Author{ID: "c2"}}))

	shortlisted, err := s.ListCandidatesByRole(ctx, "p1", domain.RoleShortlisted)
	require.NoError(t, err)
	require.Len(t, shortlisted, 1)
	assert.Equal(t, "c2", shortlisted[0].Author.ID)
}

func TestCreateShortlistPromotesReferencedCandidates(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Role: domain.RoleCandidate, Author: domain.Author{ID: "c1"}}))

	require.NoError(t, s.CreateShortlist(ctx, &domain.Shortlist{ID: "sl1", ProcessID: "p1", Name: "Finalists", AuthorIDs: []string{"c1"}}))

	c, err := s.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleShortlisted, c.Role, "creating a shortlist must promote its referenced candidates")
}

func TestSetAndClearValidationRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertCandidate(ctx, &domain.Candidate{ProcessID: "p1", Author: domain.Author{ID: "c1"}}))
	require.NoError(t, s.SetValidationRecord(ctx, "p1", "c1", &domain.ValidationRecord{Passed: true}))

	c, err := s.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	require.NotNil(t, c.Validation)
	assert.True(t, c.Validation.Passed)

	require.NoError(t, s.ClearValidationRecords(ctx, "p1"))
	c, err = s.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	assert.Nil(t, c.Validation)
}

func TestUpdateProcessNotFound(t *testing.T) {
	s := New()
	err := s.UpdateProcess(context.Background(), &domain.Process{ID: "missing"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetAuthorNotFound(t *testing.T) {
	s := New()
	_, err := s.GetAuthor(context.Background(), "jane author")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsertAuthorMergesAcrossProcesses(t *testing.T) {
	s := New()
	ctx := context.Background()

	a1 := domain.NewAuthor("PUBMED-abc", "Jane Author")
	a1.PublicationCount = 5
	a1.ResearchAreas.Add("oncology")
	merged, err := s.UpsertAuthor(ctx, "jane author", a1)
	require.NoError(t, err)
	assert.Equal(t, 5, merged.PublicationCount)

	// A second process searches for the same author via a different
	// adapter; the shared record must grow, not reset.
	a2 := domain.NewAuthor("ELSEVIER-xyz", "Jane Author")
	a2.PublicationCount = 3
	a2.ResearchAreas.Add("genomics")
	merged, err = s.UpsertAuthor(ctx, "jane author", a2)
	require.NoError(t, err)
	assert.Equal(t, 5, merged.PublicationCount, "MAX across processes, not SUM or overwrite")
	assert.True(t, merged.ResearchAreas.Contains("oncology"))
	assert.True(t, merged.ResearchAreas.Contains("genomics"))
	assert.Equal(t, "PUBMED-abc", merged.ID, "the first-stored id is stable across later merges")

	stored, err := s.GetAuthor(ctx, "jane author")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.PublicationCount)
}

func TestAffiliationRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	aff := domain.Affiliation{InstitutionName: "State University", Country: "US"}
	require.NoError(t, s.UpsertAffiliation(ctx, &aff))

	got, err := s.GetAffiliation(ctx, aff.Key())
	require.NoError(t, err)
	assert.Equal(t, "State University", got.InstitutionName)

	all, err := s.ListAffiliations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
