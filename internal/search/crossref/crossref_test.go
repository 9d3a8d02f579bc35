package crossref

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/search"
	"github.com/Saaimurugan/manuscript-match-core/pkg/sets"
)

const worksBody = `{"message":{"total-results":1,"items":[
	{"DOI":"10.1/x","title":["A study"],"container-title":["Journal of Testing"],
	 "author":[{"given":"J","family":"Author","affiliation":[{"name":"Testing Institute"}]}]}
]}}`

func TestNewRequiresSourceAndMember(t *testing.T) {
	_, err := New(&Options{})
	assert.Error(t, err)
}

func TestSearchAuthorsParsesCrossrefResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("filter"), MemberWiley)
		w.Write([]byte(worksBody))
	}))
	defer srv.Close()

	a, err := New(&Options{Source: "WILEY", MemberID: MemberWiley, ContactEmail: "test@example.com"})
	require.NoError(t, err)
	a.baseURL = srv.URL

	terms := &domain.SearchTerms{Keywords: sets.NewHashSet[string](), MeshTerms: sets.NewHashSet[string](), BooleanQuery: map[string]string{}}
	terms.Keywords.Add("oncology")

	result, err := a.SearchAuthors(t.Context(), terms, search.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "J Author", result.Candidates[0].Author.Name)
	assert.True(t, result.Candidates[0].Author.ResearchAreas.Contains("Journal of Testing"))
}

func TestGetAuthorProfileUnsupported(t *testing.T) {
	a, err := New(&Options{Source: "TAYLOR_FRANCIS", MemberID: MemberTaylorFrancis})
	require.NoError(t, err)
	_, err = a.GetAuthorProfile(t.Context(), "some-id")
	assert.Error(t, err)
}
