// Package crossref implements the search.Adapter contract against the
// Crossref works endpoint, filtered by publisher member id (spec.md §6).
// The same implementation backs both the WILEY ("311") and TAYLOR_FRANCIS
// ("301") sources — New takes the member id and source name as parameters
// rather than hard-coding either.
package crossref

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

// Member ids named in spec.md §6.
const (
	MemberWiley          = "311"
	MemberTaylorFrancis  = "301"
)

const (
	worksURL     = "https://api.crossref.org/works"
	rateInterval = 1000 * time.Millisecond
	hardCeiling  = 1000 // spec.md §6: Crossref ≤ 1000
)

// Adapter queries Crossref's works endpoint scoped to one publisher member.
type Adapter struct {
	source     string
	memberID   string
	httpClient *http.Client
	userAgent  string
	contact    string
	maxResults int
	limiter    *xsync.Limiter
	layer      *resilience.Layer[*search.AdapterResult]
	history    *resilience.History
	baseURL    string // overridable by tests; defaults to worksURL
}

// Options configures a new Adapter.
type Options struct {
	Source        string // "WILEY" or "TAYLOR_FRANCIS"
	MemberID      string // MemberWiley or MemberTaylorFrancis
	HTTPClient    *http.Client
	UserAgent     string
	ContactEmail  string
	MaxResults    int
	Concurrency   int
	RetryConfig   config.RetryConfig
	CircuitConfig config.CircuitConfig
	Timeout       time.Duration
}

// New builds a Crossref adapter scoped to one publisher member.
func New(opt *Options) (*Adapter, error) {
	if opt == nil || opt.Source == "" || opt.MemberID == "" {
		return nil, corerr.New(corerr.ValidationInput, "crossref adapter requires Source and MemberID")
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
		source:     opt.Source,
		memberID:   opt.MemberID,
		httpClient: client,
		userAgent:  defaultString(opt.UserAgent, "manuscript-match-core/1.0"),
		contact:    opt.ContactEmail,
		maxResults: maxResults,
		limiter:    xsync.NewLimiter(concurrency),
		layer:      resilience.NewLayer[*search.AdapterResult](opt.Source, rateInterval, timeout, opt.RetryConfig, opt.CircuitConfig, history),
		history:    history,
		baseURL:    worksURL,
	}, nil
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Source identifies this adapter ("WILEY" or "TAYLOR_FRANCIS").
func (a *Adapter) Source() string { return a.source }

// SearchAuthors builds a Crossref query from terms and runs it.
func (a *Adapter) SearchAuthors(ctx context.Context, terms *domain.SearchTerms, opts search.SearchOptions) (*search.AdapterResult, error) {
	query := a.buildQuery(terms)
	return a.runQuery(ctx, query, opts)
}

// SearchByName issues an author-name restricted query.
func (a *Adapter) SearchByName(ctx context.Context, name string, opts search.SearchOptions) ([]domain.Candidate, error) {
	query := fmt.Sprintf("author:%s", name)
	res, err := a.runQuery(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	return res.Candidates, nil
}

// SearchByEmail is unsupported: Crossref works records do not index author
// email.
func (a *Adapter) SearchByEmail(ctx context.Context, email string) ([]domain.Candidate, error) {
	return nil, nil
}

// GetAuthorProfile is unsupported: Crossref's works endpoint has no
// dedicated per-author profile lookup; callers should use SearchByName.
func (a *Adapter) GetAuthorProfile(ctx context.Context, id string) (*domain.Candidate, error) {
	return nil, corerr.New(corerr.NotFound, a.source+" does not support profile lookup by id")
}

func (a *Adapter) buildQuery(terms *domain.SearchTerms) string {
	if q, ok := terms.BooleanQuery[a.source]; ok && q != "" {
		return q
	}
	var clauses []string
	for kw := range terms.Keywords.Iter() {
		clauses = append(clauses, fmt.Sprintf("title:%s OR abstract:%s", kw, kw))
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

type crossrefResponse struct {
	Message struct {
		TotalResults int `json:"total-results"`
		Items        []struct {
			DOI     string `json:"DOI"`
			Title   []string `json:"title"`
			Author  []struct {
				Given       string `json:"given"`
				Family      string `json:"family"`
				Affiliation []struct {
					Name string `json:"name"`
				} `json:"affiliation"`
			} `json:"author"`
			ContainerTitle []string `json:"container-title"`
		} `json:"items"`
	} `json:"message"`
}

func (a *Adapter) search(ctx context.Context, query string, offset, limit int) (*search.AdapterResult, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("filter", "member:"+a.memberID)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("rows", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "building request", err)
	}
	req.Header.Set("User-Agent", fmt.Sprintf("%s (mailto:%s)", a.userAgent, a.contact))
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, a.source+" request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, corerr.Wrap(corerr.Network, "reading "+a.source+" response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, corerr.RateLimitedWithRetryAfter(a.source+" rate limited", retryAfter)
	case resp.StatusCode >= 500:
		return nil, corerr.New(corerr.UpstreamServer, fmt.Sprintf("%s server error: %d", a.source, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, corerr.New(corerr.UpstreamClient, fmt.Sprintf("%s client error: %d", a.source, resp.StatusCode))
	}

	var parsed crossrefResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, corerr.Wrap(corerr.Parse, a.source+" response", err)
	}

	byName := map[string]*domain.Author{}
	var order []string
	for _, item := range parsed.Message.Items {
		journal := ""
		if len(item.ContainerTitle) > 0 {
			journal = item.ContainerTitle[0]
		}
		for _, au := range item.Author {
			name := strings.TrimSpace(au.Given + " " + au.Family)
			key := domain.NormalizedName(name)
			if key == "" {
				continue
			}
			author, seen := byName[key]
			if !seen {
				author = domain.NewAuthor(search.SyntheticCandidateID(a.source, name, item.DOI), name)
				byName[key] = author
				order = append(order, key)
			}
			author.PublicationCount++
			if journal != "" {
				author.ResearchAreas.Add(journal)
			}
			for _, aff := range au.Affiliation {
				if aff.Name == "" {
					continue
				}
				author.Affiliations = append(author.Affiliations, domain.Affiliation{
					ID:              search.SyntheticAffiliationID(aff.Name),
					InstitutionName: aff.Name,
				})
			}
		}
	}

	candidates := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, domain.Candidate{Author: *byName[key]})
	}

	total := parsed.Message.TotalResults
	return &search.AdapterResult{
		Source:     a.source,
		Candidates: candidates,
		TotalFound: total,
		HasMore:    offset+len(parsed.Message.Items) < total,
		NextOffset: offset + len(parsed.Message.Items),
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
