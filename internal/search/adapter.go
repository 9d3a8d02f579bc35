// Package search defines the DatabaseAdapter contract (spec.md §4.1) and
// the registry the orchestrator dispatches against. Concrete adapters live
// in the pubmed, elsevier, and crossref subpackages.
package search

import (
	"context"
	"time"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
)

// SortHint tells an adapter how to order results when the upstream source
// supports it; adapters that don't support a hint fall back to their
// default ordering.
type SortHint string

const (
	SortRelevance SortHint = "relevance"
	SortDate      SortHint = "date"
	SortCitations SortHint = "citations"
)

// SearchOptions carries per-call tuning handed to every adapter method.
type SearchOptions struct {
	MaxResults int // capped per-source by the adapter's hard ceiling
	Offset     int
	DateFrom   *time.Time
	DateTo     *time.Time
	SortHint   SortHint
}

// AdapterResult is what searchAuthors returns: a page of normalised
// candidates plus enough metadata for the orchestrator to report progress
// and, if the caller wants, page further.
type AdapterResult struct {
	Source      string
	Candidates  []domain.Candidate
	TotalFound  int
	ElapsedMS   int64
	HasMore     bool
	NextOffset  int
}

// Adapter is the contract every federated database integration implements.
// Implementations must not exceed their configured concurrency (enforced
// internally, not by the orchestrator) and must surface errors tagged with
// an internal/corerr.Kind rather than an ad hoc error string.
type Adapter interface {
	// Source is the stable identifier used as a SearchStatus/BooleanQuery
	// map key ("PUBMED", "ELSEVIER", "WILEY", "TAYLOR_FRANCIS").
	Source() string

	SearchAuthors(ctx context.Context, terms *domain.SearchTerms, opts SearchOptions) (*AdapterResult, error)
	SearchByName(ctx context.Context, name string, opts SearchOptions) ([]domain.Candidate, error)
	SearchByEmail(ctx context.Context, email string) ([]domain.Candidate, error)
	GetAuthorProfile(ctx context.Context, id string) (*domain.Candidate, error)
}

// Registry is the set of adapters enabled for a given deployment, keyed by
// Source().
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a Registry from a list of adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Source()] = a
	}
	return r
}

// Enabled returns the adapters active for sources, in the order sources
// lists them. Unknown sources are silently skipped — the caller already
// validated enabledDatabases against the configuration surface.
func (r *Registry) Enabled(sources []string) []Adapter {
	out := make([]Adapter, 0, len(sources))
	for _, s := range sources {
		if a, ok := r.adapters[s]; ok {
			out = append(out, a)
		}
	}
	return out
}

// All returns every registered adapter regardless of enablement, used by
// SearchByName when the caller does not restrict to a subset.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}
