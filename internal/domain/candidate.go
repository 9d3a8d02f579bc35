package domain

import "time"

// Role is a Candidate's current standing within a Process.
type Role string

const (
	RoleManuscriptAuthor Role = "MANUSCRIPT_AUTHOR"
	RoleCandidate        Role = "CANDIDATE"
	RoleShortlisted       Role = "SHORTLISTED"
)

// ConflictKind enumerates the reasons a candidate can be disqualified.
type ConflictKind string

const (
	ConflictManuscriptAuthor    ConflictKind = "MANUSCRIPT_AUTHOR"
	ConflictCoAuthor            ConflictKind = "CO_AUTHOR"
	ConflictInstitutional       ConflictKind = "INSTITUTIONAL"
	ConflictRecentCollaboration ConflictKind = "RECENT_COLLABORATION"
)

// StepResult records the outcome of a single validation step. All steps run
// for every candidate regardless of earlier failures, so the UI can surface
// every reason at once.
type StepResult struct {
	StepName string
	Passed   bool
	Message  string
	Details  map[string]any
}

// PublicationMetrics are the derived counters attached to a ValidationRecord.
type PublicationMetrics struct {
	TotalPublications  int
	RecentPublications int // floor(publicationCount * 0.3): a documented placeholder, see spec.md §9
}

// ValidationRecord is the outcome of running the ValidationPipeline against
// a single Candidate. It is nil until validation has run at least once for
// that candidate.
type ValidationRecord struct {
	Passed           bool
	Conflicts        map[ConflictKind]struct{}
	RetractionFlags  []string
	Metrics          PublicationMetrics
	Steps            []StepResult
	ValidatedAt      time.Time
}

// HasConflict reports whether k was raised during validation.
func (v *ValidationRecord) HasConflict(k ConflictKind) bool {
	if v == nil {
		return false
	}
	_, ok := v.Conflicts[k]
	return ok
}

// AddConflict records a conflict kind, initialising the set on first use.
func (v *ValidationRecord) AddConflict(k ConflictKind) {
	if v.Conflicts == nil {
		v.Conflicts = map[ConflictKind]struct{}{}
	}
	v.Conflicts[k] = struct{}{}
}

// Candidate binds an Author to a Process with a role and, once validation
// has run, a ValidationRecord. The pair (ProcessID, AuthorID) is unique
// within a Process's candidate set.
type Candidate struct {
	ProcessID  string
	Author     Author
	Role       Role
	Validation *ValidationRecord
}
