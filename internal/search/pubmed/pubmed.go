// Package pubmed implements the search.Adapter contract against the NCBI
// E-utilities (esearch + esummary) endpoints (spec.md §6).
package pubmed

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

const sourceName = "PUBMED"

const (
	esearchURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	esummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
	rateInterval = 334 * time.Millisecond
)

// Adapter queries PubMed's esearch+esummary pair. One Adapter instance is
// one circuit breaker and one rate limiter, shared across all calls —
// mirroring the single-instance-per-database contract in spec.md §4.1.
type Adapter struct {
	httpClient  *http.Client
	apiKey      string
	userAgent   string
	contact     string
	maxResults  int
	limiter     *xsync.Limiter
	layer       *resilience.Layer[*search.AdapterResult]
	history     *resilience.History
	esearchBase  string // overridable by tests; defaults to esearchURL
	esummaryBase string // overridable by tests; defaults to esummaryURL
}

// Options configures a new Adapter.
type Options struct {
	HTTPClient    *http.Client
	APIKey        string
	UserAgent     string
	ContactEmail  string
	MaxResults    int // hard ceiling; spec.md §6 default is 100, unbounded by PubMed itself
	Concurrency   int
	RetryConfig   config.RetryConfig
	CircuitConfig config.CircuitConfig
	Timeout       time.Duration
}

// New builds a PubMed adapter from opt, filling unset fields with spec
// defaults.
func New(opt *Options) *Adapter {
	if opt == nil {
		opt = &Options{}
	}
	client := opt.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxResults := opt.MaxResults
	if maxResults <= 0 {
		maxResults = 100
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
		httpClient:   client,
		apiKey:       opt.APIKey,
		userAgent:    defaultString(opt.UserAgent, "manuscript-match-core/1.0"),
		contact:      opt.ContactEmail,
		maxResults:   maxResults,
		limiter:      xsync.NewLimiter(concurrency),
		layer:        resilience.NewLayer[*search.AdapterResult](sourceName, rateInterval, timeout, opt.RetryConfig, opt.CircuitConfig, history),
		history:      history,
		esearchBase:  esearchURL,
		esummaryBase: esummaryURL,
	}
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Source identifies this adapter in SearchStatus and BooleanQuery maps.
func (a *Adapter) Source() string { return sourceName }

// SearchAuthors builds a PubMed query from terms (preferring a caller
// pre-built booleanQuery), runs it through the resilience layer, and
// normalises the esummary response into candidates.
func (a *Adapter) SearchAuthors(ctx context.Context, terms *domain.SearchTerms, opts search.SearchOptions) (*search.AdapterResult, error) {
	query := a.buildQuery(terms)
	return a.runQuery(ctx, query, opts)
}

// SearchByName issues a field-hinted author-name query.
func (a *Adapter) SearchByName(ctx context.Context, name string, opts search.SearchOptions) ([]domain.Candidate, error) {
	query := fmt.Sprintf("%s[Author]", name)
	res, err := a.runQuery(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

// SearchByEmail is unsupported: PubMed does not index author email.
func (a *Adapter) SearchByEmail(ctx context.Context, email string) ([]domain.Candidate, error) {
	return nil, nil
}

// GetAuthorProfile fetches a single record by its PubMed UID (the upstream
// id recorded as Author.SourceRecordID on candidates this adapter has
// already returned — not the opaque Candidate.ID).
func (a *Adapter) GetAuthorProfile(ctx context.Context, id string) (*domain.Candidate, error) {
	if strings.TrimSpace(id) == "" {
		return nil, corerr.New(corerr.ValidationInput, "id is required")
	}
	result, err := a.layer.Call(ctx, "GET", a.esummaryBase, func(ctx context.Context) (*search.AdapterResult, error) {
		return a.esummary(ctx, []string{id})
	})
	if err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, nil
	}
	return &result.Candidates[0], nil
}

func (a *Adapter) buildQuery(terms *domain.SearchTerms) string {
	if q, ok := terms.BooleanQuery[sourceName]; ok && q != "" {
		return q
	}
	var clauses []string
	for kw := range terms.Keywords.Iter() {
		clauses = append(clauses, fmt.Sprintf("%s[Title/Abstract]", kw))
	}
	for mesh := range terms.MeshTerms.Iter() {
		clauses = append(clauses, fmt.Sprintf("%s[MeSH Terms]", mesh))
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

	result, err := a.layer.Call(ctx, "GET", a.esearchBase, func(ctx context.Context) (*search.AdapterResult, error) {
		ids, total, err := a.esearchIDs(ctx, query, opts.Offset, maxResults)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return &search.AdapterResult{Source: sourceName, TotalFound: total}, nil
		}
		r, err := a.esummary(ctx, ids)
		if err != nil {
			return nil, err
		}
		r.TotalFound = total
		r.HasMore = opts.Offset+len(ids) < total
		if r.HasMore {
			r.NextOffset = opts.Offset + len(ids)
		}
		return r, nil
	})
	if result != nil {
		result.ElapsedMS = time.Since(start).Milliseconds()
	}
	return result, err
}

type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (a *Adapter) esearchIDs(ctx context.Context, query string, offset, limit int) ([]string, int, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("term", query)
	q.Set("retstart", strconv.Itoa(offset))
	q.Set("retmax", strconv.Itoa(limit))
	q.Set("retmode", "json")
	if a.apiKey != "" {
		q.Set("api_key", a.apiKey)
	}

	body, err := a.doGet(ctx, a.esearchBase, q)
	if err != nil {
		return nil, 0, err
	}
	var parsed esearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, 0, corerr.Wrap(corerr.Parse, "pubmed esearch response", err)
	}
	total, _ := strconv.Atoi(parsed.ESearchResult.Count)
	return parsed.ESearchResult.IDList, total, nil
}

type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryDocSummary struct {
	UID     string `json:"uid"`
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	FullJournalName string `json:"fulljournalname"`
	PubDate         string `json:"pubdate"`
}

func (a *Adapter) esummary(ctx context.Context, ids []string) (*search.AdapterResult, error) {
	q := url.Values{}
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(ids, ","))
	q.Set("retmode", "json")
	if a.apiKey != "" {
		q.Set("api_key", a.apiKey)
	}

	body, err := a.doGet(ctx, a.esummaryBase, q)
	if err != nil {
		return nil, err
	}
	var parsed esummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, corerr.Wrap(corerr.Parse, "pubmed esummary response", err)
	}

	// Aggregation rule (spec.md §4.1): within one query, accumulate
	// publicationCount and union researchAreas per (familyName, givenName).
	byName := map[string]*domain.Author{}
	var order []string
	for _, id := range ids {
		raw, ok := parsed.Result[id]
		if !ok {
			continue
		}
		var doc esummaryDocSummary
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		for _, au := range doc.Authors {
			key := domain.NormalizedName(au.Name)
			if key == "" {
				continue
			}
			author, seen := byName[key]
			if !seen {
				author = domain.NewAuthor(search.SyntheticCandidateID(sourceName, au.Name, doc.UID), au.Name)
				author.SourceRecordID = doc.UID
				byName[key] = author
				order = append(order, key)
			}
			author.PublicationCount++
			if doc.FullJournalName != "" {
				author.ResearchAreas.Add(doc.FullJournalName)
			}
		}
	}

	candidates := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, domain.Candidate{Author: *byName[key]})
	}
	return &search.AdapterResult{Source: sourceName, Candidates: candidates}, nil
}

func (a *Adapter) doGet(ctx context.Context, base string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "building request", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s (mailto:%s)", a.userAgent, a.contact))

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "pubmed request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "reading pubmed response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, corerr.RateLimitedWithRetryAfter("pubmed rate limited", retryAfter)
	case resp.StatusCode >= 500:
		return nil, corerr.New(corerr.UpstreamServer, fmt.Sprintf("pubmed server error: %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, corerr.New(corerr.UpstreamClient, fmt.Sprintf("pubmed client error: %d", resp.StatusCode))
	}
	return body, nil
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
