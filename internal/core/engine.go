// Package core wires the four subsystems (search orchestrator, aggregator,
// validation pipeline, recommendation query) and the repository port behind
// the single Core API described in spec.md §6: the one injection point
// every upstream collaborator (HTTP layer, CLI, tests) depends on.
package core

import (
	"context"

	"github.com/google/uuid"

	"github.com/Saaimurugan/manuscript-match-core/internal/aggregator"
	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/corerr"
	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/orchestrator"
	"github.com/Saaimurugan/manuscript-match-core/internal/recommendation"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository"
	"github.com/Saaimurugan/manuscript-match-core/internal/search"
	"github.com/Saaimurugan/manuscript-match-core/internal/validation"
	"github.com/Saaimurugan/manuscript-match-core/pkg/clock"
)

// Engine is the Core API facade. Constructed once per deployment with a
// concrete repository.Port, clock.Clock, and search.Registry — the
// injectable-collaborator pattern the spec's design notes require in place
// of process-global singletons.
type Engine struct {
	repo         repository.Port
	clock        clock.Clock
	orchestrator *orchestrator.Orchestrator
	aggregator   *aggregator.Aggregator
	pipeline     *validation.Pipeline
	query        *recommendation.Query
	cfg          config.Config
}

// Options configures a new Engine.
type Options struct {
	Repository repository.Port
	Registry   *search.Registry
	Clock      clock.Clock
	Config     config.Config
}

// New builds an Engine from opt, wiring every subsystem against the same
// repository and clock.
func New(opt *Options) *Engine {
	c := opt.Clock
	if c == nil {
		c = clock.System{}
	}
	agg := aggregator.New(opt.Repository)
	return &Engine{
		repo:  opt.Repository,
		clock: c,
		orchestrator: orchestrator.New(&orchestrator.Options{
			Registry:    opt.Registry,
			Clock:       c,
			TaskTimeout: opt.Config.Search.SearchTimeout(),
			OnCandidates: func(ctx context.Context, processID string, candidates []domain.Candidate) {
				// Merge errors are not surfaced to the caller: StartSearch
				// already returned, and adapter failures never escalate past
				// the orchestrator per spec.md §7. A merge failure here is
				// discarded and is not recorded anywhere.
				_ = agg.Merge(ctx, processID, candidates)
			},
		}),
		aggregator: agg,
		pipeline:   validation.New(opt.Repository, c),
		query:      recommendation.New(opt.Repository),
		cfg:        opt.Config,
	}
}

// StartSearch enqueues a federated search for processID against the
// configured databases. It returns immediately with the freshly-initialised
// SearchStatus; each adapter's candidates are merged into the repository by
// the Aggregator as that adapter's task completes.
func (e *Engine) StartSearch(ctx context.Context, processID string, terms *domain.SearchTerms) *domain.SearchStatus {
	return e.orchestrator.StartSearch(ctx, processID, terms, e.cfg.Search.EnabledDatabases)
}

// GetSearchStatus returns processID's current SearchStatus, or nil if no
// search has been started.
func (e *Engine) GetSearchStatus(processID string) *domain.SearchStatus {
	return e.orchestrator.GetStatus(processID)
}

// ClearSearchStatus cancels any in-flight search for processID and forgets
// its status.
func (e *Engine) ClearSearchStatus(processID string) {
	e.orchestrator.ClearStatus(processID)
}

// SearchByName runs a synchronous manual search across sources (or every
// registered adapter if sources is empty), deduplicated by name.
func (e *Engine) SearchByName(ctx context.Context, name string, sources []string) ([]domain.Candidate, error) {
	if name == "" {
		return nil, corerr.New(corerr.ValidationInput, "name must not be empty")
	}
	return e.orchestrator.SearchByName(ctx, name, sources)
}

// ValidateProcessAuthors runs the ValidationPipeline for processID using
// cfg, falling back to the engine's default validation configuration if cfg
// is nil.
func (e *Engine) ValidateProcessAuthors(ctx context.Context, processID string, metadata *domain.ManuscriptMetadata, cfg *config.ValidationConfig) (validation.Summary, error) {
	effective := e.cfg.Validation
	if cfg != nil {
		effective = *cfg
	}
	return e.pipeline.Run(ctx, processID, metadata, effective)
}

// RevalidateProcessAuthors clears and re-runs validation for processID.
func (e *Engine) RevalidateProcessAuthors(ctx context.Context, processID string, metadata *domain.ManuscriptMetadata, cfg config.ValidationConfig) (validation.Summary, error) {
	return e.pipeline.Revalidate(ctx, processID, metadata, cfg)
}

// GetRecommendations filters/sorts/paginates processID's validated
// candidates.
func (e *Engine) GetRecommendations(ctx context.Context, processID string, filters recommendation.Filters, srt recommendation.Sort, page recommendation.Page) (*recommendation.Response, error) {
	return e.query.GetRecommendations(ctx, processID, filters, srt, page)
}

// GetFilterOptions returns the facet values and ranges usable by UI filters
// for processID.
func (e *Engine) GetFilterOptions(ctx context.Context, processID string) (*recommendation.FilterOptions, error) {
	return e.query.GetFilterOptions(ctx, processID)
}

// CreateShortlist persists a named, ordered shortlist and idempotently
// promotes each referenced candidate's role to SHORTLISTED.
func (e *Engine) CreateShortlist(ctx context.Context, processID, name string, authorIDs []string) (*domain.Shortlist, error) {
	if name == "" {
		return nil, corerr.New(corerr.ValidationInput, "shortlist name must not be empty")
	}
	sl := &domain.Shortlist{
		ID:        uuid.NewString(),
		ProcessID: processID,
		Name:      name,
		AuthorIDs: authorIDs,
	}
	if err := e.repo.CreateShortlist(ctx, sl); err != nil {
		return nil, err
	}
	return sl, nil
}
