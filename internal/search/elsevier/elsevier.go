// Package elsevier implements the search.Adapter contract against the
// Elsevier Scopus search API (spec.md §6).
package elsevier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/resilience"
	"github.com/Saaimurugan/manuscript-match-core/internal/search"
	"github.com/Saaimurugan/manuscript-match-core/pkg/xsync"
)

const sourceName = "ELSEVIER"

const (
	searchURL    = "https://api.elsevier.com/content/search/scopus"
	rateInterval = 1000 * time.Millisecond
	hardCeiling  = 200 // spec.md §6: Elsevier ≤ 200
)

// Adapter queries Scopus's search endpoint. Instantiable only with an API
// key, per spec.md §6 ("elsevierApiKey required for Elsevier adapter to be
// instantiable").
type Adapter struct {
	httpClient *http.Client
	apiKey     string
	userAgent  string
	contact    string
	maxResults int
	limiter    *xsync.Limiter
	layer      *resilience.Layer[*search.AdapterResult]
	history    *resilience.History
	baseURL    string // overridable by tests; defaults to searchURL
}

// Options configures a new Adapter.
type Options struct {
	HTTPClient    *http.Client
	APIKey        string
	UserAgent     string
	ContactEmail  string
	MaxResults    int
	Concurrency   int
	RetryConfig   config.RetryConfig
	CircuitConfig config.CircuitConfig
	Timeout       time.Duration
}

// New builds an Elsevier adapter from opt. Returns an error if opt.APIKey is
// empty — the adapter cannot be instantiated without one.
func New(opt *Options) (*Adapter, error) {
	if opt == nil || strings.TrimSpace(opt.APIKey) == "" {
		return nil, corerr.New(corerr.ValidationInput, "elsevier adapter requires an API key")
	}
	client := opt.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxResults := opt.MaxResults
	if maxResults <= 0 || maxResults > hardCeiling {
		maxResults = hardCeiling
	}
	concurrency := opt.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	history := resilience.NewHistory(512)
	return &Adapter{
		httpClient: client,
		apiKey:     opt.APIKey,
		userAgent:  defaultString(opt.UserAgent, "manuscript-match-core/1.0"),
		contact:    opt.ContactEmail,
		maxResults: maxResults,
		limiter:    xsync.NewLimiter(concurrency),
		layer:      resilience.NewLayer[*search.AdapterResult](sourceName, rateInterval, timeout, opt.RetryConfig, opt.CircuitConfig, history),
		history:    history,
		baseURL:    searchURL,
	}, nil
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Source identifies this adapter.
func (a *Adapter) Source() string { return sourceName }

// SearchAuthors builds a Scopus query from terms and runs it.
func (a *Adapter) SearchAuthors(ctx context.Context, terms *domain.SearchTerms, opts search.SearchOptions) (*search.AdapterResult, error) {
	query := a.buildQuery(terms)
	return a.runQuery(ctx, query, opts)
}

// SearchByName issues an author-name restricted query.
func (a *Adapter) SearchByName(ctx context.Context, name string, opts search.SearchOptions) ([]domain.Candidate, error) {
	query := fmt.Sprintf("AUTH(%s)", name)
	res, err := a.runQuery(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

// SearchByEmail is unsupported: Scopus does not index author email.
func (a *Adapter) SearchByEmail(ctx context.Context, email string) ([]domain.Candidate, error) {
	return nil, nil
}

// GetAuthorProfile fetches a single author profile by Scopus author id (the
// upstream id recorded as Author.SourceRecordID on candidates this adapter
// has already returned — not the opaque Candidate.ID).
func (a *Adapter) GetAuthorProfile(ctx context.Context, id string) (*domain.Candidate, error) {
	if strings.TrimSpace(id) == "" {
		return nil, corerr.New(corerr.ValidationInput, "id is required")
	}
	res, err := a.runQuery(ctx, fmt.Sprintf("AU-ID(%s)", id), search.SearchOptions{MaxResults: 1})
	if err != nil {
		return nil, err
	}
	if len(res.Candidates) == 0 {
		return nil, nil
	}
	return &res.Candidates[0], nil
}

func (a *Adapter) buildQuery(terms *domain.SearchTerms) string {
	if q, ok := terms.BooleanQuery[sourceName]; ok && q != "" {
		return q
	}
	var clauses []string
	for kw := range terms.Keywords.Iter() {
		clauses = append(clauses, fmt.Sprintf("TITLE-ABS-KEY(%s)", kw))
	}
	return strings.Join(clauses, " OR ")
}

func (a *Adapter) runQuery(ctx context.Context, query string, opts search.SearchOptions) (*search.AdapterResult, error) {
	a.limiter.Acquire()
	defer a.limiter.Release()

	start := time.Now()
	maxResults := opts.MaxResults
	if maxResults <= 0 || maxResults > a.maxResults {
		maxResults = a.maxResults
	}

	result, err := a.layer.Call(ctx, "GET", a.baseURL, func(ctx context.Context) (*search.AdapterResult, error) {
		return a.search(ctx, query, opts.Offset, maxResults)
	})
	if result != nil {
		result.ElapsedMS = time.Since(start).Milliseconds()
	}
	return result, err
}

type scopusResponse struct {
	SearchResults struct {
		TotalResults string `json:"opensearch:totalResults"`
		Entry        []struct {
			DcIdentifier string `json:"dc:identifier"`
			DcCreator    string `json:"dc:creator"`
			AffilName    string `json:"affiliation,omitempty"`
			SubjectArea  []struct {
				Name string `json:"$"`
			} `json:"subject-area,omitempty"`
		} `json:"entry"`
	} `json:"search-results"`
}

func (a *Adapter) search(ctx context.Context, query string, offset, limit int) (*search.AdapterResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("start", strconv.Itoa(offset))
	q.Set("count", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "building request", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s (mailto:%s)", a.userAgent, a.contact))
	req.Header.Set("X-ELS-APIKey", a.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "elsevier request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "reading elsevier response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, corerr.RateLimitedWithRetryAfter("elsevier rate limited", retryAfter)
	case resp.StatusCode >= 500:
		return nil, corerr.New(corerr.UpstreamServer, fmt.Sprintf("elsevier server error: %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, corerr.New(corerr.UpstreamClient, fmt.Sprintf("elsevier client error: %d", resp.StatusCode))
	}

	var parsed scopusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, corerr.Wrap(corerr.Parse, "elsevier response", err)
	}

	total, _ := strconv.Atoi(parsed.SearchResults.TotalResults)

	byName := map[string]*domain.Author{}
	var order []string
	for _, e := range parsed.SearchResults.Entry {
		name := e.DcCreator
		key := domain.NormalizedName(name)
		if key == "" {
			continue
		}
		author, seen := byName[key]
		if !seen {
			author = domain.NewAuthor(search.SyntheticCandidateID(sourceName, name, e.DcIdentifier), name)
			author.SourceRecordID = e.DcIdentifier
			byName[key] = author
			order = append(order, key)
		}
		author.PublicationCount++
		for _, subj := range e.SubjectArea {
			if subj.Name != "" {
				author.ResearchAreas.Add(subj.Name)
			}
		}
		if e.AffilName != "" {
			author.Affiliations = append(author.Affiliations, domain.Affiliation{
				ID:              search.SyntheticAffiliationID(e.AffilName),
				InstitutionName: e.AffilName,
			})
		}
	}

	candidates := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, domain.Candidate{Author: *byName[key]})
	}

	return &search.AdapterResult{
		Source:     sourceName,
		Candidates: candidates,
		TotalFound: total,
		HasMore:    offset+len(parsed.SearchResults.Entry) < total,
		NextOffset: offset + len(parsed.SearchResults.Entry),
	}, nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return 0
}
