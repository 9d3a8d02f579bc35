// Package validation implements the ValidationPipeline (spec.md §4.5): five
// ordered conflict-of-interest and quality-gating steps run against every
// CANDIDATE-role candidate in a process. No step short-circuits the others;
// the co-author and institutional steps run only when enabled in the config.
package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Saaimurugan/manuscript-match-core/internal/config"
	"github.com/Saaimurugan/manuscript-match-core/internal/domain"
	"github.com/Saaimurugan/manuscript-match-core/internal/repository"
	"github.com/Saaimurugan/manuscript-match-core/pkg/clock"
	"github.com/Saaimurugan/manuscript-match-core/pkg/sets"
)

const (
	nameSimilarityThreshold        = 0.9
	institutionSimilarityThreshold = 0.8
	recentPublicationsFactor       = 0.3
)

// Pipeline runs the ValidationPipeline against one process's candidates.
type Pipeline struct {
	repo  repository.Port
	clock clock.Clock
}

// New builds a Pipeline backed by repo.
func New(repo repository.Port, c clock.Clock) *Pipeline {
	if c == nil {
		c = clock.System{}
	}
	return &Pipeline{repo: repo, clock: c}
}

// Summary is the aggregate counters returned after a run (spec.md §4.5).
type Summary struct {
	TotalCandidates     int
	ValidatedCandidates int
}

// Run validates every CANDIDATE-role candidate in processID against
// manuscript metadata, under cfg's thresholds.
func (p *Pipeline) Run(ctx context.Context, processID string, metadata *domain.ManuscriptMetadata, cfg config.ValidationConfig) (Summary, error) {
	candidates, err := p.repo.ListCandidatesByRole(ctx, processID, domain.RoleCandidate)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{TotalCandidates: len(candidates)}
	now := p.clock.Now()

	for _, c := range candidates {
		record := p.validateOne(&c.Author, metadata, cfg, now)
		if err := p.repo.SetValidationRecord(ctx, processID, c.Author.ID, record); err != nil {
			return summary, err
		}
		summary.ValidatedCandidates++
	}
	return summary, nil
}

// Revalidate clears every existing ValidationRecord for processID, then
// re-runs with cfg — spec.md §4.5's revalidation contract: observers
// relying on previous outcomes must accept monotonic replacement.
func (p *Pipeline) Revalidate(ctx context.Context, processID string, metadata *domain.ManuscriptMetadata, cfg config.ValidationConfig) (Summary, error) {
	if err := p.repo.ClearValidationRecords(ctx, processID); err != nil {
		return Summary{}, err
	}
	return p.Run(ctx, processID, metadata, cfg)
}

func (p *Pipeline) validateOne(author *domain.Author, metadata *domain.ManuscriptMetadata, cfg config.ValidationConfig, now time.Time) *domain.ValidationRecord {
	record := &domain.ValidationRecord{ValidatedAt: now}

	steps := []domain.StepResult{
		manuscriptAuthorStep(author, metadata, record),
	}
	if cfg.CheckCoAuthorConflicts {
		steps = append(steps, coAuthorStep(author, metadata, record))
	}
	if cfg.CheckInstitutionalConflicts {
		steps = append(steps, institutionalStep(author, metadata, record))
	}
	steps = append(steps, publicationThresholdStep(author, cfg))
	steps = append(steps, retractionStep(author, cfg, record))

	record.Steps = steps
	record.Metrics = domain.PublicationMetrics{
		TotalPublications:  author.PublicationCount,
		RecentPublications: int(math.Floor(float64(author.PublicationCount) * recentPublicationsFactor)),
	}

	record.Passed = true
	for _, s := range steps {
		if !s.Passed {
			record.Passed = false
			break
		}
	}
	return record
}

// manuscriptAuthorStep fails if the candidate matches any manuscript author
// by well-formed email equality, or by case-folded exact name equality, or
// by normalised name-similarity above threshold.
func manuscriptAuthorStep(author *domain.Author, metadata *domain.ManuscriptMetadata, record *domain.ValidationRecord) domain.StepResult {
	for _, ma := range metadata.Authors {
		if matchesManuscriptAuthor(author, &ma) {
			record.AddConflict(domain.ConflictManuscriptAuthor)
			return domain.StepResult{
				StepName: "Manuscript Author Check",
				Passed:   false,
				Message:  fmt.Sprintf("candidate matches manuscript author %q", ma.Name),
			}
		}
	}
	return domain.StepResult{StepName: "Manuscript Author Check", Passed: true}
}

func matchesManuscriptAuthor(candidate, manuscriptAuthor *domain.Author) bool {
	ck, mk := domain.EmailKey(candidate.Email), domain.EmailKey(manuscriptAuthor.Email)
	if ck != "" && mk != "" {
		return ck == mk
	}
	cn, mn := domain.NormalizedName(candidate.Name), domain.NormalizedName(manuscriptAuthor.Name)
	if cn == mn {
		return true
	}
	return nameSimilarity(cn, mn) > nameSimilarityThreshold
}

// coAuthorStep flags CO_AUTHOR when researchAreas overlap any manuscript
// author's researchAreas by at least 2 distinct terms — the heuristic
// named in spec.md §4.5; real co-authorship lookup is a documented future
// extension, not implemented here.
func coAuthorStep(author *domain.Author, metadata *domain.ManuscriptMetadata, record *domain.ValidationRecord) domain.StepResult {
	for _, ma := range metadata.Authors {
		if sets.IntersectionSize(author.ResearchAreas, ma.ResearchAreas) >= 2 {
			record.AddConflict(domain.ConflictCoAuthor)
			return domain.StepResult{
				StepName: "Co-author Conflict Check",
				Passed:   false,
				Message:  fmt.Sprintf("overlapping research areas with manuscript author %q", ma.Name),
			}
		}
	}
	return domain.StepResult{StepName: "Co-author Conflict Check", Passed: true}
}

// institutionalStep fails when any candidate affiliation matches any
// manuscript affiliation by case-folded equality or stopword-stripped
// similarity above threshold.
func institutionalStep(author *domain.Author, metadata *domain.ManuscriptMetadata, record *domain.ValidationRecord) domain.StepResult {
	for _, ca := range author.Affiliations {
		for _, ma := range metadata.Affiliations {
			if strings.EqualFold(ca.InstitutionName, ma.InstitutionName) {
				record.AddConflict(domain.ConflictInstitutional)
				return domain.StepResult{
					StepName: "Institutional Conflict Check",
					Passed:   false,
					Message:  fmt.Sprintf("candidate affiliation %q matches manuscript affiliation", ca.InstitutionName),
				}
			}
			if institutionSimilarity(ca.InstitutionName, ma.InstitutionName) > institutionSimilarityThreshold {
				record.AddConflict(domain.ConflictInstitutional)
				return domain.StepResult{
					StepName: "Institutional Conflict Check",
					Passed:   false,
					Message:  fmt.Sprintf("candidate affiliation %q is similar to manuscript affiliation %q", ca.InstitutionName, ma.InstitutionName),
				}
			}
		}
	}
	return domain.StepResult{StepName: "Institutional Conflict Check", Passed: true}
}

// publicationThresholdStep enumerates every sub-failure in its message, per
// spec.md §4.5.
func publicationThresholdStep(author *domain.Author, cfg config.ValidationConfig) domain.StepResult {
	var reasons []string
	if author.PublicationCount < cfg.MinPublications {
		reasons = append(reasons, fmt.Sprintf("Publication count (%d) below minimum (%d)", author.PublicationCount, cfg.MinPublications))
	}
	if author.Retractions > cfg.MaxRetractions {
		reasons = append(reasons, fmt.Sprintf("Retraction count (%d) above maximum (%d)", author.Retractions, cfg.MaxRetractions))
	}
	if len(reasons) > 0 {
		return domain.StepResult{StepName: "Publication Threshold Check", Passed: false, Message: strings.Join(reasons, "; ")}
	}
	return domain.StepResult{StepName: "Publication Threshold Check", Passed: true}
}

// retractionStep always runs, independent of step 4's outcome, so
// retractionFlags are surfaced even when the threshold step already failed.
func retractionStep(author *domain.Author, cfg config.ValidationConfig, record *domain.ValidationRecord) domain.StepResult {
	if author.Retractions > cfg.MaxRetractions {
		record.RetractionFlags = append(record.RetractionFlags, fmt.Sprintf("%d retraction(s) exceed limit of %d", author.Retractions, cfg.MaxRetractions))
		return domain.StepResult{
			StepName: "Retraction Check",
			Passed:   false,
			Message:  fmt.Sprintf("retractions %d > maxRetractions %d", author.Retractions, cfg.MaxRetractions),
		}
	}
	return domain.StepResult{StepName: "Retraction Check", Passed: true}
}
