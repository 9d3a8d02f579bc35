package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository/memory"
	"github.com/Saaimurugan/manuscript-match-core/pkg/clock"
)

func newFixture(t *testing.T) (*memory.Store, *Pipeline) {
	t.Helper()
	repo := memory.New()
	pipeline := New(repo, clock.Fixed{At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	return repo, pipeline
}

func metadataWithAuthor(name, email, institution string) *domain.ManuscriptMetadata {
	author := domain.NewAuthor("manuscript-author-1", name)
	author.Email = email
	return domain.NewManuscriptMetadata(
		"Test manuscript", "abstract",
		[]domain.Author{*author},
		[]domain.Affiliation{{InstitutionName: institution, Country: "US"}},
		nil,
	)
}

func TestManuscriptAuthorConflict(t *testing.T) {
	repo, pipeline := newFixture(t)
	ctx := context.Background()

	metadata := metadataWithAuthor("Jane Q. Author", "jane@example.com", "State University")

	candidate := domain.Candidate{
		ProcessID: "p1",
		Role:      domain.RoleCandidate,
		Author:    *domain.NewAuthor("c1", "Jane Q. Author"),
	}
	candidate.Author.Email = "jane@example.com"
	candidate.Author.PublicationCount = 10
	require.NoError(t, repo.UpsertCandidate(ctx, &candidate))

	summary, err := pipeline.Run(ctx, "p1", metadata, config.DefaultValidationConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCandidates)

	stored, err := repo.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	require.NotNil(t, stored.Validation)
	assert.False(t, stored.Validation.Passed)
	assert.True(t, stored.Validation.HasConflict(domain.ConflictManuscriptAuthor))
}

func TestPublicationThresholdBoundary(t *testing.T) {
	repo, pipeline := newFixture(t)
	ctx := context.Background()
	metadata := metadataWithAuthor("Someone Else", "someone@example.com", "Other University")

	cfg := config.DefaultValidationConfig() // maxRetractions: 0

	candidate := domain.Candidate{
		ProcessID: "p1",
		Role:      domain.RoleCandidate,
		Author:    *domain.NewAuthor("c1", "Unrelated Candidate"),
	}
	candidate.Author.PublicationCount = cfg.MinPublications
	candidate.Author.Retractions = cfg.MaxRetractions // inclusive boundary: exactly maxRetractions PASSES
	require.NoError(t, repo.UpsertCandidate(ctx, &candidate))

	_, err := pipeline.Run(ctx, "p1", metadata, cfg)
	require.NoError(t, err)

	stored, err := repo.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	assert.True(t, stored.Validation.Passed, "retractions == maxRetractions must pass (inclusive boundary)")
}

// TestPublicationThresholdMessageMatchesScenario4 reproduces spec.md §8
// scenario 4's literal expected step message: a candidate with 2
// publications against a minimum of 5.
func TestPublicationThresholdMessageMatchesScenario4(t *testing.T) {
	repo, pipeline := newFixture(t)
	ctx := context.Background()
	metadata := metadataWithAuthor("Someone Else", "someone@example.com", "Other University")

	cfg := config.DefaultValidationConfig()
	cfg.MinPublications = 5

	candidate := domain.Candidate{
		ProcessID: "p1",
		Role:      domain.RoleCandidate,
		Author:    *domain.NewAuthor("c1", "Unrelated Candidate"),
	}
	candidate.Author.PublicationCount = 2
	require.NoError(t, repo.UpsertCandidate(ctx, &candidate))

	_, err := pipeline.Run(ctx, "p1", metadata, cfg)
	require.NoError(t, err)

	stored, err := repo.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	require.NotNil(t, stored.Validation)
	require.False(t, stored.Validation.Passed)

	var step *domain.StepResult
	for i := range stored.Validation.Steps {
		if stored.Validation.Steps[i].StepName == "Publication Threshold Check" {
			step = &stored.Validation.Steps[i]
		}
	}
	require.NotNil(t, step)
	assert.Equal(t, "Publication count (2) below minimum (5)", step.Message)
}

func TestInstitutionalConflictSimilarity(t *testing.T) {
	repo, pipeline := newFixture(t)
	ctx := context.Background()
	metadata := metadataWithAuthor("Someone Else", "someone@example.com", "Stanford University")

	candidate := domain.Candidate{
		ProcessID: "p1",
		Role:      domain.RoleCandidate,
		Author:    *domain.NewAuthor("c1", "Unrelated Candidate"),
	}
	candidate.Author.PublicationCount = 10
	candidate.Author.Affiliations = []domain.Affiliation{{InstitutionName: "Stanford College"}}
	require.NoError(t, repo.UpsertCandidate(ctx, &candidate))

	_, err := pipeline.Run(ctx, "p1", metadata, config.DefaultValidationConfig())
	require.NoError(t, err)

	stored, err := repo.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	assert.True(t, stored.Validation.HasConflict(domain.ConflictInstitutional))
}

func TestRevalidateReproducesOutcome(t *testing.T) {
	repo, pipeline := newFixture(t)
	ctx := context.Background()
	metadata := metadataWithAuthor("Someone Else", "someone@example.com", "Other University")

	candidate := domain.Candidate{
		ProcessID: "p1",
		Role:      domain.RoleCandidate,
		Author:    *domain.NewAuthor("c1", "Unrelated Candidate"),
	}
	candidate.Author.PublicationCount = 10
	require.NoError(t, repo.UpsertCandidate(ctx, &candidate))

	cfg := config.DefaultValidationConfig()
	_, err := pipeline.Run(ctx, "p1", metadata, cfg)
	require.NoError(t, err)

	first, err := repo.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	require.NotNil(t, first.Validation)

	_, err = pipeline.Revalidate(ctx, "p1", metadata, cfg)
	require.NoError(t, err)

	second, err := repo.GetCandidate(ctx, "p1", "c1")
	require.NoError(t, err)
	require.NotNil(t, second.Validation)
	assert.Equal(t, first.Validation.Passed, second.Validation.Passed, "re-running with the same config must produce an equal outcome")
}
