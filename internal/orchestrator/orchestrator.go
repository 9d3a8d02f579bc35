// Package orchestrator implements the SearchOrchestrator (spec.md §4.3):
// concurrent fan-out of one adapter task per enabled database, serialised
// SearchStatus updates, per-task timeout, and clean cancellation.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/search"
	"github.com/Saaimurugan/manuscript-match-core/pkg/clock"
	"github.com/Saaimurugan/manuscript-match-core/pkg/safe"
)

// inflight bundles one process's SearchStatus with the mutex guarding it
// and the cancel func abandoning its in-flight tasks, so a single map entry
// covers everything ClearStatus needs to tear down.
type inflight struct {
	mu     sync.Mutex
	status *domain.SearchStatus
	cancel context.CancelFunc
}

// Orchestrator is the SearchOrchestrator. One instance is shared across all
// processes; per-process state lives in its statuses map.
type Orchestrator struct {
	registry     *search.Registry
	clock        clock.Clock
	taskTimeout  time.Duration
	onCandidates func(ctx context.Context, processID string, candidates []domain.Candidate)

	mu       sync.Mutex
	statuses map[string]*inflight
}

// Options configures a new Orchestrator.
type Options struct {
	Registry    *search.Registry
	Clock       clock.Clock
	TaskTimeout time.Duration // default 300s, per spec.md §4.3
	// OnCandidates is invoked once per adapter task that completes
	// successfully with at least one candidate (a task that returns none
	// does not call it), handing its normalised candidates to the caller (the
	// Aggregator, in production) for merging into the process's persisted
	// candidate set. It runs outside the status mutex, so a slow merge
	// never blocks GetStatus/ClearStatus callers.
	OnCandidates func(ctx context.Context, processID string, candidates []domain.Candidate)
}

// New builds an Orchestrator from opt.
func New(opt *Options) *Orchestrator {
	timeout := opt.TaskTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	c := opt.Clock
	if c == nil {
		c = clock.System{}
	}
	return &Orchestrator{
		registry:     opt.Registry,
		clock:        c,
		taskTimeout:  timeout,
		onCandidates: opt.OnCandidates,
		statuses:     make(map[string]*inflight),
	}
}

// StartSearch enqueues one task per adapter in sources, initialises
// SearchStatus to SEARCHING, and returns immediately — the tasks run in the
// background under ctx.
func (o *Orchestrator) StartSearch(ctx context.Context, processID string, terms *domain.SearchTerms, sources []string) *domain.SearchStatus {
	adapters := o.registry.Enabled(sources)
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Source())
	}

	status := domain.NewSearchStatus(processID, names, o.clock.Now())
	status.State = domain.OverallSearching

	taskCtx, cancel := context.WithCancel(ctx)
	entry := &inflight{status: status, cancel: cancel}

	o.mu.Lock()
	if prev, ok := o.statuses[processID]; ok {
		prev.cancel()
	}
	o.statuses[processID] = entry
	o.mu.Unlock()

	for _, a := range adapters {
		a := a
		entry.mu.Lock()
		entry.status.Progress[a.Source()].State = domain.SourceSearching
		entry.status.Progress[a.Source()].StartTime = o.clock.Now()
		entry.mu.Unlock()

		safe.GoNamed(a.Source(), func() {
			o.runTask(taskCtx, entry, a, terms)
		}, func(err error) {
			o.failTask(entry, a.Source(), err)
		})
	}

	return status
}

// failTask marks a source's progress slot as errored after its task
// goroutine panicked, so a malformed upstream response surfaces as a
// terminal SourceError instead of leaving that source stuck in SEARCHING
// forever.
func (o *Orchestrator) failTask(entry *inflight, source string, panicErr error) {
	entry.mu.Lock()
	defer entry.mu.Unlock()
	slot := entry.status.Progress[source]
	slot.State = domain.SourceError
	slot.Error = panicErr.Error()
	slot.EndTime = o.clock.Now()
	slot.Percent = 100
	if entry.status.AllTerminal() {
		entry.status.State = domain.OverallCompleted
		entry.status.EndTime = o.clock.Now()
	}
}

func (o *Orchestrator) runTask(ctx context.Context, entry *inflight, a search.Adapter, terms *domain.SearchTerms) {
	callCtx, cancel := context.WithTimeout(ctx, o.taskTimeout)
	defer cancel()

	result, err := a.SearchAuthors(callCtx, terms, search.SearchOptions{})

	select {
	case <-ctx.Done():
		// Cancelled (ClearStatus called mid-flight): abandon without writing.
		return
	default:
	}

	processID := func() string {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		slot := entry.status.Progress[a.Source()]
		slot.EndTime = o.clock.Now()
		slot.Percent = 100
		if err != nil {
			slot.State = domain.SourceError
			slot.Error = err.Error()
		} else {
			slot.State = domain.SourceCompleted
			slot.AuthorsFound = len(result.Candidates)
			entry.status.TotalAuthorsFound += len(result.Candidates)
		}
		if entry.status.AllTerminal() {
			entry.status.State = domain.OverallCompleted
			entry.status.EndTime = o.clock.Now()
		}
		return entry.status.ProcessID
	}()

	if err == nil && o.onCandidates != nil && len(result.Candidates) > 0 {
		o.onCandidates(ctx, processID, result.Candidates)
	}
}

// GetStatus returns a snapshot of processID's SearchStatus, or nil if no
// search was ever started for it.
func (o *Orchestrator) GetStatus(processID string) *domain.SearchStatus {
	o.mu.Lock()
	entry, ok := o.statuses[processID]
	o.mu.Unlock()
	if !ok {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	snapshot := *entry.status
	progress := make(map[string]*domain.SourceProgress, len(entry.status.Progress))
	for k, v := range entry.status.Progress {
		p := *v
		progress[k] = &p
	}
	snapshot.Progress = progress
	return &snapshot
}

// ClearStatus cancels any in-flight tasks for processID and removes its
// status entry. In-flight tasks observe cancellation at their next
// suspension point (the resilience layer's rate-limit wait, or the
// request's context check) and abandon work without writing to the status.
func (o *Orchestrator) ClearStatus(processID string) {
	o.mu.Lock()
	entry, ok := o.statuses[processID]
	delete(o.statuses, processID)
	o.mu.Unlock()
	if ok {
		entry.cancel()
	}
}

// SearchByName runs a synchronous search across the given adapters (or
// every registered adapter if sources is empty), deduplicating results by
// case-folded name and keeping the highest-publicationCount record per
// spec.md §4.3's manual-search dedup rule.
func (o *Orchestrator) SearchByName(ctx context.Context, name string, sources []string) ([]domain.Candidate, error) {
	var adapters []search.Adapter
	if len(sources) == 0 {
		adapters = o.registry.All()
	} else {
		adapters = o.registry.Enabled(sources)
	}

	results := make([][]domain.Candidate, len(adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range adapters {
		i, a := i, a
		g.Go(func() error {
			candidates, err := a.SearchByName(gctx, name, search.SearchOptions{})
			if err != nil {
				// Partial failure tolerance applies here too: one adapter's
				// error does not abort the others' results.
				return nil
			}
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	return dedupeByName(results), nil
}

// dedupeByName applies spec.md §4.3's manual-search dedup rule: group by
// case-folded name, then fold each group down to one candidate keeping the
// highest publicationCount and the union of affiliations.
func dedupeByName(perAdapter [][]domain.Candidate) []domain.Candidate {
	flat := lo.Filter(lo.Flatten(perAdapter), func(c domain.Candidate, _ int) bool {
		return domain.NormalizedName(c.Author.Name) != ""
	})

	order := lo.UniqBy(flat, func(c domain.Candidate) string { return domain.NormalizedName(c.Author.Name) })
	groups := lo.GroupBy(flat, func(c domain.Candidate) string { return domain.NormalizedName(c.Author.Name) })

	return lo.Map(order, func(first domain.Candidate, _ int) domain.Candidate {
		key := domain.NormalizedName(first.Author.Name)
		return lo.Reduce(groups[key][1:], foldCandidate, groups[key][0])
	})
}

func foldCandidate(best domain.Candidate, next domain.Candidate, _ int) domain.Candidate {
	merged := lo.UniqBy(
		append(append([]domain.Affiliation{}, best.Author.Affiliations...), next.Author.Affiliations...),
		func(a domain.Affiliation) string { return a.Key() },
	)
	if next.Author.PublicationCount > best.Author.PublicationCount {
		next.Author.Affiliations = merged
		return next
	}
	best.Author.Affiliations = merged
	return best
}
