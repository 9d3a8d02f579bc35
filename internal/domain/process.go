package domain

import "time"

// Step is a Process's position in the reviewer-finding workflow.
type Step string

const (
	StepUpload               Step = "UPLOAD"
	StepMetadataExtraction   Step = "METADATA_EXTRACTION"
	StepKeywordEnhancement   Step = "KEYWORD_ENHANCEMENT"
	StepDatabaseSearch       Step = "DATABASE_SEARCH"
	StepManualSearch         Step = "MANUAL_SEARCH"
	StepValidation           Step = "VALIDATION"
	StepRecommendations      Step = "RECOMMENDATIONS"
	StepShortlist            Step = "SHORTLIST"
	StepExport               Step = "EXPORT"
)

// stepOrder fixes the monotonic ordering a Process advances through;
// regressions are only allowed through explicit revalidation, never through
// Advance.
var stepOrder = []Step{
	StepUpload, StepMetadataExtraction, StepKeywordEnhancement,
	StepDatabaseSearch, StepManualSearch, StepValidation,
	StepRecommendations, StepShortlist, StepExport,
}

func stepIndex(s Step) int {
	for i, candidate := range stepOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// Status is the coarse-grained process status surfaced to callers.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusProcessing Status = "PROCESSING"
	StatusSearching  Status = "SEARCHING"
	StatusValidating Status = "VALIDATING"
	StatusCompleted  Status = "COMPLETED"
	StatusError      Status = "ERROR"
)

// Process is the unit of work: a manuscript moving through reviewer
// discovery, validation, and shortlisting.
type Process struct {
	ID        string
	OwnerID   string
	Title     string
	Step      Step
	Status    Status
	Metadata  ManuscriptMetadata
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAdvanceTo reports whether moving from p.Step to next respects the
// monotonic step ordering invariant (next must not precede the current
// step). Regressions must go through an explicit revalidation path instead
// of Advance.
func (p *Process) CanAdvanceTo(next Step) bool {
	cur, want := stepIndex(p.Step), stepIndex(next)
	if cur < 0 || want < 0 {
		return false
	}
	return want >= cur
}

// Advance moves the process to next and bumps UpdatedAt, refusing to move
// backwards in the step order.
func (p *Process) Advance(next Step, now time.Time) bool {
	if !p.CanAdvanceTo(next) {
		return false
	}
	p.Step = next
	p.UpdatedAt = now
	return true
}
