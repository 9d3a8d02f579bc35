package domain

import (
	"strings"

	"github.com/Saaimurugan/manuscript-match-core/pkg/sets"
)

// ManuscriptMetadata is the extracted metadata that seeds a search. It is
// produced by an external extractor (out of scope for this module) and
// consumed by the SearchOrchestrator and ValidationPipeline.
type ManuscriptMetadata struct {
	Title               string
	Authors             []Author
	Affiliations        []Affiliation
	Abstract            string
	Keywords            sets.Set[string] // ordered, unique after case-fold
	PrimaryFocusArea    string
	SecondaryFocusAreas []string
}

// NewManuscriptMetadata returns metadata with the keyword set pre-built
// from raw (un-casefolded, possibly duplicated) input, preserving first
// occurrence order as required by the spec's "ordered, unique after
// case-fold" contract.
func NewManuscriptMetadata(title, abstract string, authors []Author, affiliations []Affiliation, keywords []string) *ManuscriptMetadata {
	kw := sets.NewLinkedSet[string]()
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			kw.Add(k)
		}
	}
	return &ManuscriptMetadata{
		Title:        title,
		Authors:      authors,
		Affiliations: affiliations,
		Abstract:     abstract,
		Keywords:     kw,
	}
}

// SearchTerms is the neutral query handed to every DatabaseAdapter.
type SearchTerms struct {
	Keywords     sets.Set[string]
	MeshTerms    sets.Set[string]
	BooleanQuery map[string]string // per-database pre-built query, keyed by Source
}

// NewSearchTermsFromMetadata builds SearchTerms from manuscript metadata
// when the caller has not pre-built per-database boolean queries.
func NewSearchTermsFromMetadata(m *ManuscriptMetadata) *SearchTerms {
	mesh := sets.NewHashSet[string]()
	return &SearchTerms{
		Keywords:     m.Keywords.Clone(),
		MeshTerms:    mesh,
		BooleanQuery: map[string]string{},
	}
}
