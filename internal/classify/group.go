package classify

import (
	"github.com/omnisearch/omnisearch/internal/partition"
	"github.com/omnisearch/omnisearch/internal/session"
)

// Group buckets sources by their classified category, preserving order
// within each bucket.
func Group(sources []session.Source) map[SourceCategory][]session.Source {
	grouped := make(map[SourceCategory][]session.Source)
	for _, s := range sources {
		cat := Classify(s.URI)
		grouped[cat] = append(grouped[cat], s)
	}
	return grouped
}

// ForSection filters sources down to the subset relevant to a focused
// section tab: Research shows papers, Applications shows code and tools,
// Ecosystem shows everything else. The overview tab shows all sources to
// give broad context.
func ForSection(sources []session.Source, sec partition.Section) []session.Source {
	if sec == partition.SectionOverview || sec == "" {
		return sources
	}

	var want SourceCategory
	switch sec {
	case partition.SectionResearch:
		want = Paper
	case partition.SectionApplications:
		want = App
	case partition.SectionEcosystem:
		want = General
	default:
		return sources
	}

	out := make([]session.Source, 0, len(sources))
	for _, s := range sources {
		if Classify(s.URI) == want {
			out = append(out, s)
		}
	}
	return out
}
