package domain

import (
	"strings"

	"github.com/samber/lo"

	"github.com/Saaimurugan/manuscript-match-core/pkg/sets"
)

// Affiliation models an institution a manuscript author or candidate is
// associated with. Id is either sourced from an upstream database or
// synthesised deterministically from InstitutionName by the adapter that
// produced the record.
type Affiliation struct {
	ID              string
	InstitutionName string
	Department      string
	Address         string
	Country         string
}

// Key returns the case-folded (institutionName, country) pair the
// Aggregator uses to union affiliations across sources.
func (a Affiliation) Key() string {
	return strings.ToLower(strings.TrimSpace(a.InstitutionName)) + "|" + strings.ToLower(strings.TrimSpace(a.Country))
}

// Author is the unified shape for both manuscript authors and search
// candidates.
type Author struct {
	ID   string
	Name string
	// SourceRecordID is the upstream database's own identifier for this
	// record (a PubMed UID, a Scopus author id, ...), distinct from ID
	// (which is this system's opaque, hash-derived dedup key). Adapters use
	// it to resolve GetAuthorProfile calls back to the same upstream
	// record without having to reverse ID.
	SourceRecordID    string
	Email             string
	Affiliations      []Affiliation
	PublicationCount  int
	ClinicalTrials    int
	Retractions       int
	ResearchAreas     sets.Set[string]
	MeshTerms         sets.Set[string]
}

// NewAuthor returns an Author with empty-but-non-nil research area/MeSH
// sets, so callers never need a nil check before calling Add/Union.
func NewAuthor(id, name string) *Author {
	return &Author{
		ID:            id,
		Name:          name,
		ResearchAreas: sets.NewHashSet[string](),
		MeshTerms:     sets.NewHashSet[string](),
	}
}

// NormalizedName trims surrounding whitespace, collapses internal runs of
// whitespace, and case-folds — the normalisation the spec requires before
// any name-based matching key is computed.
func NormalizedName(name string) string {
	fields := strings.Fields(name)
	return strings.ToLower(strings.Join(fields, " "))
}

// IsWellFormedEmail reports whether addr looks like a real mailbox address
// and, per spec.md §9's open question, is not an ORCID-synthesised
// placeholder of the form "<orcid>@orcid.org". Such addresses must never be
// used as a manuscript-author matching key.
func IsWellFormedEmail(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	if strings.HasSuffix(strings.ToLower(addr), "@orcid.org") {
		return false
	}
	at := strings.IndexByte(addr, '@')
	if at <= 0 || at == len(addr)-1 {
		return false
	}
	local, domain := addr[:at], addr[at+1:]
	if strings.ContainsAny(local, " \t\r\n") {
		return false
	}
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}

// EmailKey returns the case-folded email to use as a matching key, or ""
// if addr is not well-formed (callers must then fall back to name
// matching).
func EmailKey(addr string) string {
	if !IsWellFormedEmail(addr) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// MatchingKey computes the Aggregator's collision key for an author record:
// the well-formed email if present, else the normalised full name. It also
// doubles as the shared, process-independent author table's primary key
// (repository.Port.UpsertAuthor/GetAuthor), since the same upstream
// individual is the same collision target everywhere.
func MatchingKey(a *Author) string {
	if key := EmailKey(a.Email); key != "" {
		return key
	}
	return NormalizedName(a.Name)
}

// MergeAuthor folds incoming into existing using the collision rules spec.md
// §4.4 requires: MAX for counters (cross-source/cross-process counts
// overlap, so summing double-counts), union for research areas/MeSH terms,
// and affiliation union keyed by case-folded (institutionName, country).
// Because MAX only ever grows and union only ever adds entries, repeated
// merges are monotonic — required by spec.md §3 for the shared author table,
// where the same individual's record accumulates across every process that
// searches for them, never regressing.
func MergeAuthor(existing, incoming Author) Author {
	existing.PublicationCount = max(existing.PublicationCount, incoming.PublicationCount)
	existing.ClinicalTrials = max(existing.ClinicalTrials, incoming.ClinicalTrials)
	existing.Retractions = max(existing.Retractions, incoming.Retractions)

	existing.ResearchAreas = sets.Union(existing.ResearchAreas, incoming.ResearchAreas)
	existing.MeshTerms = sets.Union(existing.MeshTerms, incoming.MeshTerms)

	existing.Affiliations = unionAffiliations(existing.Affiliations, incoming.Affiliations)

	if existing.Email == "" {
		existing.Email = incoming.Email
	}
	if existing.SourceRecordID == "" {
		existing.SourceRecordID = incoming.SourceRecordID
	}
	return existing
}

func unionAffiliations(a, b []Affiliation) []Affiliation {
	byKey := make(map[string]Affiliation, len(a)+len(b))
	var order []string
	for _, aff := range lo.Flatten([][]Affiliation{a, b}) {
		key := aff.Key()
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = aff
	}
	out := make([]Affiliation, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}
