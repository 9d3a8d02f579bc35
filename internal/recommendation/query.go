// Package recommendation implements the RecommendationQuery (spec.md §4.6):
// filter/sort/paginate over validated candidates, transparent relevance
// scoring, and suggestion generation.
package recommendation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository"
	"github.com/Saaimurugan/manuscript-match-core/pkg/sets"
)

// SortField names the columns getRecommendations can sort by.
type SortField string

const (
	SortByName             SortField = "name"
	SortByPublicationCount SortField = "publicationCount"
	SortByClinicalTrials   SortField = "clinicalTrials"
	SortByRetractions      SortField = "retractions"
	SortByCountry          SortField = "country"
	SortByInstitution      SortField = "institution"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

// Sort is the caller's requested ordering; a zero value means "use the
// spec's default ordering".
type Sort struct {
	Field     SortField
	Direction SortDirection
}

// Filters is the ANDed filter set from spec.md §4.6. All fields are
// optional; a nil/zero field applies no constraint.
type Filters struct {
	MinPublications *int
	MaxRetractions   *int
	MinClinicalTrials *int
	Countries        []string
	Institutions     []string
	ResearchAreas    []string
	OnlyValidated    bool
	ExcludeConflicts []domain.ConflictKind
}

// Page is the 1-based page request.
type Page struct {
	Number int
	Limit  int
}

const defaultLimit = 20
const maxLimit = 100

// Scored is a validated candidate enriched with query-time computed fields.
type Scored struct {
	Candidate          domain.Candidate
	RelevanceScore     int
	PrimaryAffiliation *domain.Affiliation
}

// Response is what getRecommendations returns.
type Response struct {
	Items          []Scored
	TotalCount     int
	FilteredCount  int
	AppliedFilters Filters
	SortOptions    Sort
	Suggestions    []Suggestion
	Page           int
	Limit          int
}

// SuggestionType names the kind of filter relaxation a Suggestion proposes.
type SuggestionType string

const (
	SuggestionRelaxPublications SuggestionType = "relax_publications"
	SuggestionRelaxRetractions  SuggestionType = "relax_retractions"
	SuggestionDropCountries     SuggestionType = "drop_countries"
	SuggestionDropInstitutions  SuggestionType = "drop_institutions"
)

// SuggestedFilter carries the single relaxed field a Suggestion proposes;
// only the field matching the Suggestion's Type is non-nil.
type SuggestedFilter struct {
	MinPublications *int
	MaxRetractions  *int
}

// Suggestion is a programmatically actionable relaxation of the current
// filter set, offered when getRecommendations' result is empty or thin
// (spec.md §4.6 / §8 scenario 5).
type Suggestion struct {
	Type            SuggestionType
	Message         string
	SuggestedFilter SuggestedFilter
}

// FilterOptions is what getFilterOptions returns.
type FilterOptions struct {
	Countries         []string
	Institutions      []string
	ResearchAreas     []string
	PublicationRange  Range
	RetractionRange   Range
	ClinicalTrialRange Range
}

// Range is an inclusive [Min, Max] bound.
type Range struct {
	Min int
	Max int
}

// Query implements the RecommendationQuery operations against a repository.
type Query struct {
	repo repository.Port
}

// New builds a Query backed by repo.
func New(repo repository.Port) *Query {
	return &Query{repo: repo}
}

// GetValidatedCandidates returns every candidate in processID enriched with
// relevanceScore and primaryAffiliation, regardless of validation outcome.
// It returns every CANDIDATE-role row, including ones the pipeline has not
// run on yet (their Validation is nil).
func (q *Query) GetValidatedCandidates(ctx context.Context, processID string) ([]Scored, error) {
	candidates, err := q.repo.ListCandidatesByRole(ctx, processID, domain.RoleCandidate)
	if err != nil {
		return nil, err
	}
	out := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, score(c))
	}
	return out, nil
}

func score(c domain.Candidate) Scored {
	a := c.Author
	points := min(a.PublicationCount*2, 40)
	points += min(a.ClinicalTrials*5, 20)
	if c.Validation != nil && c.Validation.Passed {
		points += 20
	}
	points -= a.Retractions * 10
	points += min(a.ResearchAreas.Size()*2, 10)
	points += min(a.MeshTerms.Size(), 10)
	if points < 0 {
		points = 0
	}

	var primary *domain.Affiliation
	if len(a.Affiliations) > 0 {
		first := a.Affiliations[0]
		primary = &first
	}

	return Scored{Candidate: c, RelevanceScore: points, PrimaryAffiliation: primary}
}

// GetRecommendations filters, sorts, and paginates processID's validated
// candidates per spec.md §4.6.
func (q *Query) GetRecommendations(ctx context.Context, processID string, filters Filters, srt Sort, page Page) (*Response, error) {
	all, err := q.GetValidatedCandidates(ctx, processID)
	if err != nil {
		return nil, err
	}
	total := len(all)

	filtered := lo.Filter(all, func(s Scored, _ int) bool { return matches(s, filters) })

	sortScored(filtered, srt)

	limit := page.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	pageNum := page.Number
	if pageNum <= 0 {
		pageNum = 1
	}

	start := (pageNum - 1) * limit
	var pageItems []Scored
	if start < len(filtered) {
		end := start + limit
		if end > len(filtered) {
			end = len(filtered)
		}
		pageItems = filtered[start:end]
	}

	return &Response{
		Items:          pageItems,
		TotalCount:     total,
		FilteredCount:  len(filtered),
		AppliedFilters: filters,
		SortOptions:    srt,
		Suggestions:    suggestions(filters, len(filtered), total),
		Page:           pageNum,
		Limit:          limit,
	}, nil
}

func matches(s Scored, f Filters) bool {
	a := s.Candidate.Author
	if f.MinPublications != nil && a.PublicationCount < *f.MinPublications {
		return false
	}
	if f.MaxRetractions != nil && a.Retractions > *f.MaxRetractions {
		return false
	}
	if f.MinClinicalTrials != nil && a.ClinicalTrials < *f.MinClinicalTrials {
		return false
	}
	if len(f.Countries) > 0 && !anyAffiliationMatches(a.Affiliations, f.Countries, func(aff domain.Affiliation) string { return aff.Country }) {
		return false
	}
	if len(f.Institutions) > 0 && !anyAffiliationSubstringMatches(a.Affiliations, f.Institutions) {
		return false
	}
	if len(f.ResearchAreas) > 0 && !anyResearchAreaSubstringMatches(a.ResearchAreas, f.ResearchAreas) {
		return false
	}
	if f.OnlyValidated && (s.Candidate.Validation == nil || !s.Candidate.Validation.Passed) {
		return false
	}
	if len(f.ExcludeConflicts) > 0 && s.Candidate.Validation != nil {
		for _, k := range f.ExcludeConflicts {
			if s.Candidate.Validation.HasConflict(k) {
				return false
			}
		}
	}
	return true
}

func anyAffiliationMatches(affs []domain.Affiliation, values []string, field func(domain.Affiliation) string) bool {
	for _, aff := range affs {
		for _, v := range values {
			if strings.EqualFold(field(aff), v) {
				return true
			}
		}
	}
	return false
}

func anyAffiliationSubstringMatches(affs []domain.Affiliation, values []string) bool {
	for _, aff := range affs {
		name := strings.ToLower(aff.InstitutionName)
		for _, v := range values {
			v = strings.ToLower(v)
			if strings.Contains(name, v) || strings.Contains(v, name) {
				return true
			}
		}
	}
	return false
}

func anyResearchAreaSubstringMatches(areas sets.Set[string], values []string) bool {
	for area := range areas.Iter() {
		lower := strings.ToLower(area)
		for _, v := range values {
			v = strings.ToLower(v)
			if strings.Contains(lower, v) || strings.Contains(v, lower) {
				return true
			}
		}
	}
	return false
}

func sortScored(items []Scored, srt Sort) {
	if srt.Field == "" {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].RelevanceScore != items[j].RelevanceScore {
				return items[i].RelevanceScore > items[j].RelevanceScore
			}
			if items[i].Candidate.Author.PublicationCount != items[j].Candidate.Author.PublicationCount {
				return items[i].Candidate.Author.PublicationCount > items[j].Candidate.Author.PublicationCount
			}
			return items[i].Candidate.Author.ID < items[j].Candidate.Author.ID
		})
		return
	}

	less := func(i, j int) bool {
		a, b := items[i].Candidate.Author, items[j].Candidate.Author
		switch srt.Field {
		case SortByName:
			return a.Name < b.Name
		case SortByPublicationCount:
			return a.PublicationCount < b.PublicationCount
		case SortByClinicalTrials:
			return a.ClinicalTrials < b.ClinicalTrials
		case SortByRetractions:
			return a.Retractions < b.Retractions
		case SortByCountry:
			return primaryField(a, func(aff domain.Affiliation) string { return aff.Country }) < primaryField(b, func(aff domain.Affiliation) string { return aff.Country })
		case SortByInstitution:
			return primaryField(a, func(aff domain.Affiliation) string { return aff.InstitutionName }) < primaryField(b, func(aff domain.Affiliation) string { return aff.InstitutionName })
		default:
			return a.ID < b.ID
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if less(i, j) {
			return true
		}
		if less(j, i) {
			return false
		}
		return items[i].Candidate.Author.ID < items[j].Candidate.Author.ID // stable tiebreak by id
	})
	if srt.Direction == Descending {
		reverse(items)
	}
}

func primaryField(a domain.Author, field func(domain.Affiliation) string) string {
	if len(a.Affiliations) == 0 {
		return ""
	}
	return field(a.Affiliations[0])
}

func reverse(items []Scored) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

// suggestions implements spec.md §4.6's suggestion generation rules,
// populated only when the result set is empty, or thin relative to the
// total.
func suggestions(f Filters, filteredCount, totalCount int) []Suggestion {
	thin := filteredCount < 5 && totalCount > 10
	if filteredCount != 0 && !thin {
		return nil
	}

	var out []Suggestion
	if f.MinPublications != nil && *f.MinPublications > 0 {
		floor := 0
		if thin {
			floor = 3
		}
		suggested := *f.MinPublications - 5
		if suggested < floor {
			suggested = floor
		}
		out = append(out, Suggestion{
			Type:            SuggestionRelaxPublications,
			Message:         fmt.Sprintf("lower minPublications to %d", suggested),
			SuggestedFilter: SuggestedFilter{MinPublications: &suggested},
		})
	}
	if f.MaxRetractions != nil && *f.MaxRetractions < 2 {
		relaxed := 2
		out = append(out, Suggestion{
			Type:            SuggestionRelaxRetractions,
			Message:         "raise maxRetractions to 2",
			SuggestedFilter: SuggestedFilter{MaxRetractions: &relaxed},
		})
	}
	if len(f.Countries) > 0 {
		out = append(out, Suggestion{Type: SuggestionDropCountries, Message: "drop the countries constraint"})
	}
	if thin && len(f.Institutions) > 0 {
		out = append(out, Suggestion{Type: SuggestionDropInstitutions, Message: "drop the institutions constraint"})
	}
	return out
}

// GetFilterOptions returns sorted unique facet values and numeric ranges
// across every candidate in processID.
func (q *Query) GetFilterOptions(ctx context.Context, processID string) (*FilterOptions, error) {
	candidates, err := q.repo.ListCandidatesByRole(ctx, processID, domain.RoleCandidate)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &FilterOptions{}, nil
	}

	countries := sets.NewHashSet[string]()
	institutions := sets.NewHashSet[string]()
	areas := sets.NewHashSet[string]()

	pubRange := Range{Min: candidates[0].Author.PublicationCount, Max: candidates[0].Author.PublicationCount}
	retRange := Range{Min: candidates[0].Author.Retractions, Max: candidates[0].Author.Retractions}
	ctRange := Range{Min: candidates[0].Author.ClinicalTrials, Max: candidates[0].Author.ClinicalTrials}

	for _, c := range candidates {
		a := c.Author
		for _, aff := range a.Affiliations {
			if aff.Country != "" {
				countries.Add(strings.ToLower(aff.Country))
			}
			if aff.InstitutionName != "" {
				institutions.Add(strings.ToLower(aff.InstitutionName))
			}
		}
		for area := range a.ResearchAreas.Iter() {
			areas.Add(strings.ToLower(area))
		}
		pubRange = expand(pubRange, a.PublicationCount)
		retRange = expand(retRange, a.Retractions)
		ctRange = expand(ctRange, a.ClinicalTrials)
	}

	return &FilterOptions{
		Countries:          sets.SortedStrings(countries),
		Institutions:       sets.SortedStrings(institutions),
		ResearchAreas:      sets.SortedStrings(areas),
		PublicationRange:   pubRange,
		RetractionRange:    retRange,
		ClinicalTrialRange: ctRange,
	}, nil
}

func expand(r Range, v int) Range {
	if v < r.Min {
		r.Min = v
	}
	if v > r.Max {
		r.Max = v
	}
	return r
}
