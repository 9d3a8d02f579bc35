// Package memory is an in-memory, mutex-guarded implementation of
// repository.Port, used by tests and the demo binary (cmd/reviewcore-probe)
// in place of a real persistence engine.
package memory

import (
	"context"
	"sync"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository"
)

type candidateKey struct {
	processID string
	authorID  string
}

// Store is an in-memory repository.Port.
type Store struct {
	mu          sync.Mutex
	processes   map[string]*domain.Process
	candidates  map[candidateKey]*domain.Candidate
	// candidateOrder preserves per-process insertion order for
	// ListCandidates/ListCandidatesByRole, mirroring how a real store would
	// return rows in insertion order absent an explicit ORDER BY.
	candidateOrder map[string][]string
	shortlists     map[string]*domain.Shortlist

	// authors is the shared, process-independent table keyed by
	// domain.MatchingKey (spec.md §3): the same upstream individual's
	// record, merged monotonically across every process that encounters
	// them.
	authors map[string]*domain.Author

	affiliations     map[string]*domain.Affiliation
	affiliationOrder []string
}

// New builds an empty Store.
func New() *Store {
	return &Store{
		processes:      make(map[string]*domain.Process),
		candidates:     make(map[candidateKey]*domain.Candidate),
		candidateOrder: make(map[string][]string),
		shortlists:     make(map[string]*domain.Shortlist),
		authors:        make(map[string]*domain.Author),
		affiliations:   make(map[string]*domain.Affiliation),
	}
}

func (s *Store) CreateProcess(ctx context.Context, p *domain.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.processes[p.ID] = &cp
	return nil
}

func (s *Store) GetProcess(ctx context.Context, id string) (*domain.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.processes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProcess(ctx context.Context, p *domain.Process) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	s.processes[p.ID] = &cp
	return nil
}

func (s *Store) UpsertCandidate(ctx context.Context, c *domain.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := candidateKey{c.ProcessID, c.Author.ID}
	cp := *c
	if _, exists := s.candidates[key]; !exists {
		s.candidateOrder[c.ProcessID] = append(s.candidateOrder[c.ProcessID], c.Author.ID)
	}
	s.candidates[key] = &cp
	return nil
}

func (s *Store) GetCandidate(ctx context.Context, processID, authorID string) (*domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateKey{processID, authorID}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCandidates(ctx context.Context, processID string) ([]domain.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Candidate, 0, len(s.candidateOrder[processID]))
	for _, authorID := range s.candidateOrder[processID] {
		if c, ok := s.candidates[candidateKey{processID, authorID}]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Store) ListCandidatesByRole(ctx context.Context, processID string, role domain.Role) ([]domain.Candidate, error) {
	all, _ := s.ListCandidates(ctx, processID)
	out := make([]domain.Candidate, 0, len(all))
	for _, c := range all {
		if c.Role == role {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) UpdateCandidateRole(ctx context.Context, processID, authorID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateKey{processID, authorID}]
	if !ok {
		return repository.ErrNotFound
	}
	c.Role = role
	return nil
}

func (s *Store) SetValidationRecord(ctx context.Context, processID, authorID string, record *domain.ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateKey{processID, authorID}]
	if !ok {
		return repository.ErrNotFound
	}
	c.Validation = record
	return nil
}

func (s *Store) ClearValidationRecords(ctx context.Context, processID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, authorID := range s.candidateOrder[processID] {
		if c, ok := s.candidates[candidateKey{processID, authorID}]; ok {
			c.Validation = nil
		}
	}
	return nil
}

func (s *Store) CreateShortlist(ctx context.Context, sl *domain.Shortlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sl
	s.shortlists[sl.ID] = &cp
	for _, authorID := range sl.AuthorIDs {
		if c, ok := s.candidates[candidateKey{sl.ProcessID, authorID}]; ok {
			c.Role = domain.RoleShortlisted
		}
	}
	return nil
}

func (s *Store) GetShortlist(ctx context.Context, id string) (*domain.Shortlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.shortlists[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *sl
	return &cp, nil
}

func (s *Store) ListShortlists(ctx context.Context, processID string) ([]domain.Shortlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Shortlist, 0)
	for _, sl := range s.shortlists {
		if sl.ProcessID == processID {
			out = append(out, *sl)
		}
	}
	return out, nil
}

func (s *Store) UpsertAuthor(ctx context.Context, key string, incoming *domain.Author) (*domain.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := *incoming
	if existing, ok := s.authors[key]; ok {
		merged = domain.MergeAuthor(*existing, *incoming)
	}
	cp := merged
	s.authors[key] = &cp
	out := merged
	return &out, nil
}

func (s *Store) GetAuthor(ctx context.Context, key string) (*domain.Author, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authors[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) UpsertAffiliation(ctx context.Context, a *domain.Affiliation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := a.Key()
	if _, exists := s.affiliations[key]; !exists {
		s.affiliationOrder = append(s.affiliationOrder, key)
	}
	cp := *a
	s.affiliations[key] = &cp
	return nil
}

func (s *Store) GetAffiliation(ctx context.Context, key string) (*domain.Affiliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.affiliations[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAffiliations(ctx context.Context) ([]domain.Affiliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Affiliation, 0, len(s.affiliationOrder))
	for _, key := range s.affiliationOrder {
		if a, ok := s.affiliations[key]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

var _ repository.Port = (*Store)(nil)
