// Package aggregator implements the Aggregator (spec.md §4.4): dedup/merge
// of candidates produced by a single adapter run into a process's persisted
// candidate set.
package aggregator

import (
	"context"
	"sync"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository"
)

// Aggregator merges adapter output into a process's candidate set via the
// repository. One instance is shared across all processes; per-key
// serialisation is done through keyLocks rather than a single global mutex,
// so unrelated (processId, matchingKey) merges don't contend.
type Aggregator struct {
	repo repository.Port

	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// New builds an Aggregator backed by repo.
func New(repo repository.Port) *Aggregator {
	return &Aggregator{repo: repo, keyLocks: make(map[string]*sync.Mutex)}
}

func (a *Aggregator) lockFor(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		a.keyLocks[key] = l
	}
	return l
}

// Merge folds candidates (produced by one adapter's search) into
// processID's persisted candidate set, serialised per (processID,
// matchingKey) so concurrent adapter completions targeting the same author
// never race.
func (a *Aggregator) Merge(ctx context.Context, processID string, candidates []domain.Candidate) error {
	for _, incoming := range candidates {
		incoming.ProcessID = processID
		matchKey := domain.MatchingKey(&incoming.Author)
		lockKey := processID + "|" + matchKey

		mu := a.lockFor(lockKey)
		mu.Lock()
		err := a.mergeOne(ctx, processID, matchKey, incoming)
		mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// mergeOne first folds incoming into the shared, process-independent author
// table (spec.md §3: authors are shared across processes, and mutation of
// their metrics must be monotonic), then upserts the process-scoped
// candidate using that merged record — so the candidate written here
// reflects everything every process had learned about the author as of this
// merge, not just what this one call observed. Candidates of other
// processes are not touched.
func (a *Aggregator) mergeOne(ctx context.Context, processID, matchKey string, incoming domain.Candidate) error {
	if incoming.Author.ID == "" {
		incoming.Author.ID = matchKey
	}
	sharedAuthor, err := a.repo.UpsertAuthor(ctx, matchKey, &incoming.Author)
	if err != nil {
		return err
	}
	for i := range sharedAuthor.Affiliations {
		if err := a.repo.UpsertAffiliation(ctx, &sharedAuthor.Affiliations[i]); err != nil {
			return err
		}
	}

	existing, err := a.findByMatchKey(ctx, processID, matchKey)
	if err != nil {
		return err
	}
	if existing == nil {
		return a.repo.UpsertCandidate(ctx, &domain.Candidate{
			ProcessID: processID,
			Author:    *sharedAuthor,
			Role:      domain.RoleCandidate,
		})
	}

	existing.Author = *sharedAuthor
	return a.repo.UpsertCandidate(ctx, existing)
}

func (a *Aggregator) findByMatchKey(ctx context.Context, processID, matchKey string) (*domain.Candidate, error) {
	all, err := a.repo.ListCandidates(ctx, processID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if domain.MatchingKey(&all[i].Author) == matchKey {
			return &all[i], nil
		}
	}
	return nil, nil
}
