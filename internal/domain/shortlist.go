package domain

// Shortlist is a named, ordered selection of candidates produced as the
// output of a process. Mutating a shortlist updates the corresponding
// Candidate's role to SHORTLISTED idempotently (enforced by the repository,
// not this struct).
type Shortlist struct {
	ID        string
	ProcessID string
	Name      string
	AuthorIDs []string
}

// ReviewerCount is the invariant the spec requires to always equal
// len(AuthorIDs).
func (s *Shortlist) ReviewerCount() int {
	return len(s.AuthorIDs)
}
