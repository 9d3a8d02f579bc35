// Package repository defines the RepositoryPort (spec.md §2/§6): the opaque
// persistence interface the core depends on. The persistence engine itself
// is out of scope; this package only defines the contract and, in its
// memory subpackage, an in-memory implementation for tests and the demo
// binary.
package repository

import (
	"context"
	"errors"

	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
)

// ErrNotFound is returned by any lookup that finds nothing, letting callers
// distinguish "not found" from a genuine storage failure via errors.Is.
var ErrNotFound = errors.New("repository: not found")

// Port is the persistence surface the core consumes. Every method is
// context-aware so a real implementation can honour cancellation/timeouts;
// the in-memory implementation ignores ctx beyond that contract.
type Port interface {
	CreateProcess(ctx context.Context, p *domain.Process) error
	GetProcess(ctx context.Context, id string) (*domain.Process, error)
	UpdateProcess(ctx context.Context, p *domain.Process) error

	// UpsertCandidate inserts c if (c.ProcessID, c.Author.ID) is new,
	// otherwise replaces the existing record — the Aggregator's merge unit.
	UpsertCandidate(ctx context.Context, c *domain.Candidate) error
	GetCandidate(ctx context.Context, processID, authorID string) (*domain.Candidate, error)
	ListCandidates(ctx context.Context, processID string) ([]domain.Candidate, error)
	// ListCandidatesByRole returns every candidate in processID with the
	// given role, in insertion order.
	ListCandidatesByRole(ctx context.Context, processID string, role domain.Role) ([]domain.Candidate, error)
	// UpdateCandidateRole sets a single candidate's role. Nothing in the core
	// calls it: CreateShortlist promotes shortlisted candidates itself, and
	// the validation pipeline does not change roles.
	UpdateCandidateRole(ctx context.Context, processID, authorID string, role domain.Role) error

	// SetValidationRecord attaches (or replaces) a candidate's
	// ValidationRecord in one write. It replaces the record only: the
	// candidate's role is not changed, and there is no combined
	// role-and-record update.
	SetValidationRecord(ctx context.Context, processID, authorID string, record *domain.ValidationRecord) error
	// ClearValidationRecords removes every ValidationRecord for processID,
	// the first step of revalidation (spec.md §4.5).
	ClearValidationRecords(ctx context.Context, processID string) error

	CreateShortlist(ctx context.Context, s *domain.Shortlist) error
	GetShortlist(ctx context.Context, id string) (*domain.Shortlist, error)
	ListShortlists(ctx context.Context, processID string) ([]domain.Shortlist, error)

	// Author records are shared across every process (spec.md §3), keyed by
	// domain.MatchingKey rather than by process. UpsertAuthor merges incoming
	// into whatever is already stored for key via domain.MergeAuthor and
	// persists (and returns) the merged record, giving the Aggregator a
	// monotonic, cross-process view of each individual's accumulated metrics.
	UpsertAuthor(ctx context.Context, key string, incoming *domain.Author) (*domain.Author, error)
	GetAuthor(ctx context.Context, key string) (*domain.Author, error)

	// Affiliation records are likewise shared, keyed by domain.Affiliation.Key().
	UpsertAffiliation(ctx context.Context, a *domain.Affiliation) error
	GetAffiliation(ctx context.Context, key string) (*domain.Affiliation, error)
	ListAffiliations(ctx context.Context) ([]domain.Affiliation, error)
}
