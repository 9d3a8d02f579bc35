package recommendation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository/memory"
)

func seedCandidate(t *testing.T, repo *memory.Store, id, name string, pubs, trials, retractions int, validated bool, areas ...string) {
	t.Helper()
	a := domain.NewAuthor(id, name)
	a.PublicationCount = pubs
	a.ClinicalTrials = trials
	a.Retractions = retractions
	for _, area := range areas {
		a.ResearchAreas.Add(area)
	}
	c := &domain.Candidate{ProcessID: "p1", Role: domain.RoleCandidate, Author: *a}
	if validated {
		c.Validation = &domain.ValidationRecord{Passed: true}
	}
	require.NoError(t, repo.UpsertCandidate(context.Background(), c))
}

func TestScoreFormula(t *testing.T) {
	repo := memory.New()
	// 10 publications -> min(20,40)=20; 3 trials -> min(15,20)=15; validated +20;
	// 1 retraction -> -10; 2 areas -> min(4,10)=4. Total = 20+15+20-10+4 = 49.
	seedCandidate(t, repo, "c1", "Jane Author", 10, 3, 1, true, "oncology", "genomics")

	q := New(repo)
	scored, err := q.GetValidatedCandidates(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, 49, scored[0].RelevanceScore)
}

func TestScoreFloorsAtZero(t *testing.T) {
	repo := memory.New()
	seedCandidate(t, repo, "c1", "Heavy Retractor", 0, 0, 10, false)

	q := New(repo)
	scored, err := q.GetValidatedCandidates(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, 0, scored[0].RelevanceScore, "relevance score must clamp at 0, never go negative")
}

func TestGetRecommendationsFiltersByCountry(t *testing.T) {
	repo := memory.New()
	seedCandidate(t, repo, "c1", "US Author", 5, 0, 0, false)
	seedCandidate(t, repo, "c2", "CA Author", 5, 0, 0, false)

	ctx := context.Background()
	_ = repo // affiliations set separately below
	c1, _ := repo.GetCandidate(ctx, "p1", "c1")
	c1.Author.Affiliations = []domain.Affiliation{{Country: "US"}}
	require.NoError(t, repo.UpsertCandidate(ctx, c1))
	c2, _ := repo.GetCandidate(ctx, "p1", "c2")
	c2.Author.Affiliations = []domain.Affiliation{{Country: "CA"}}
	require.NoError(t, repo.UpsertCandidate(ctx, c2))

	q := New(repo)
	resp, err := q.GetRecommendations(ctx, "p1", Filters{Countries: []string{"US"}}, Sort{}, Page{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "c1", resp.Items[0].Candidate.Author.ID)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, 1, resp.FilteredCount)
}

func TestGetRecommendationsPaginationClampsLimit(t *testing.T) {
	repo := memory.New()
	for i := 0; i < 5; i++ {
		seedCandidate(t, repo, string(rune('a'+i)), "Author "+string(rune('A'+i)), i, 0, 0, false)
	}
	q := New(repo)
	resp, err := q.GetRecommendations(context.Background(), "p1", Filters{}, Sort{}, Page{Number: 1, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxLimit, resp.Limit, "limit above maxLimit must clamp to maxLimit")

	resp, err = q.GetRecommendations(context.Background(), "p1", Filters{}, Sort{}, Page{Number: 0, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page, "page <= 0 must clamp to 1")
	assert.Equal(t, defaultLimit, resp.Limit, "limit <= 0 must default")
}

func TestGetRecommendationsSortByPublicationCountDescending(t *testing.T) {
	repo := memory.New()
	seedCandidate(t, repo, "c1", "Low", 2, 0, 0, false)
	seedCandidate(t, repo, "c2", "High", 9, 0, 0, false)

	q := New(repo)
	resp, err := q.GetRecommendations(context.Background(), "p1", Filters{}, Sort{Field: SortByPublicationCount, Direction: Descending}, Page{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "c2", resp.Items[0].Candidate.Author.ID)
	assert.Equal(t, "c1", resp.Items[1].Candidate.Author.ID)
}

func TestSuggestionsEmptyResult(t *testing.T) {
	min := 100
	out := suggestions(Filters{MinPublications: &min}, 0, 20)
	require.NotEmpty(t, out)
	assert.Equal(t, SuggestionRelaxPublications, out[0].Type)
	require.NotNil(t, out[0].SuggestedFilter.MinPublications)
}

func TestSuggestionsNotGeneratedWhenResultsAreHealthy(t *testing.T) {
	out := suggestions(Filters{}, 8, 20)
	assert.Empty(t, out, "a healthy, non-thin result set gets no suggestions")
}

func TestSuggestionsThinResult(t *testing.T) {
	min := 50
	out := suggestions(Filters{MinPublications: &min}, 3, 15)
	assert.NotEmpty(t, out, "filteredCount<5 and totalCount>10 counts as thin")
}

// TestSuggestionsScenario5 reproduces spec.md §8 scenario 5 literally: 15
// candidates total, a minPublications=18 filter matches none of them, and
// the expected relaxation suggests minPublications=13 (18-5).
func TestSuggestionsScenario5(t *testing.T) {
	repo := memory.New()
	for i := 0; i < 15; i++ {
		seedCandidate(t, repo, string(rune('a'+i)), "Author "+string(rune('A'+i)), 10, 0, 0, false)
	}
	min := 18
	q := New(repo)
	resp, err := q.GetRecommendations(context.Background(), "p1", Filters{MinPublications: &min}, Sort{}, Page{})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.FilteredCount)
	assert.Equal(t, 15, resp.TotalCount)

	require.NotEmpty(t, resp.Suggestions)
	var found *Suggestion
	for i := range resp.Suggestions {
		if resp.Suggestions[i].Type == SuggestionRelaxPublications {
			found = &resp.Suggestions[i]
		}
	}
	require.NotNil(t, found, "expected a relax_publications suggestion")
	require.NotNil(t, found.SuggestedFilter.MinPublications)
	assert.Equal(t, 13, *found.SuggestedFilter.MinPublications)
}

func TestGetFilterOptionsEmptySetReturnsZeroRanges(t *testing.T) {
	repo := memory.New()
	q := New(repo)
	opts, err := q.GetFilterOptions(context.Background(), "empty-process")
	require.NoError(t, err)
	assert.Equal(t, Range{}, opts.PublicationRange)
	assert.Empty(t, opts.Countries)
}

func TestGetFilterOptionsComputesRanges(t *testing.T) {
	repo := memory.New()
	seedCandidate(t, repo, "c1", "A", 2, 1, 0, false)
	seedCandidate(t, repo, "c2", "B", 9, 4, 1, false)

	q := New(repo)
	opts, err := q.GetFilterOptions(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, Range{Min: 2, Max: 9}, opts.PublicationRange)
	assert.Equal(t, Range{Min: 0, Max: 1}, opts.RetractionRange)
	assert.Equal(t, Range{Min: 1, Max: 4}, opts.ClinicalTrialRange)
}
