// Package partition splits a single model answer into labeled sections for
// tabbed display. The model is prompted to emit three numbered second-level
// headers (Applications, Research, Ecosystem) after free-form overview text;
// Split maps the resulting segments positionally.
package partition

import (
	"regexp"
	"strings"
)

// Section names one tab of a partitioned answer.
type Section string

const (
	SectionOverview     Section = "overview"
	SectionApplications Section = "applications"
	SectionResearch     Section = "research"
	SectionEcosystem    Section = "ecosystem"
)

// sectionMarker matches the numbered headers the model is instructed to emit,
// tolerating variations like "## 1 " or "## 1." in the output.
var sectionMarker = regexp.MustCompile(`\n?##\s*\d+\.?\s+`)

// Sections holds the four ordered slices of a partitioned answer.
// Any field may be empty; Split never fails.
type Sections struct {
	Overview     string `json:"overview"`
	Applications string `json:"applications"`
	Research     string `json:"research"`
	Ecosystem    string `json:"ecosystem"`
}

// Split partitions markdown text on the numbered header markers. Segment 0
// is the overview; segments 1-3 map positionally to applications, research,
// and ecosystem. Missing segments yield empty strings. Whitespace at segment
// boundaries is trimmed.
func Split(markdown string) Sections {
	parts := sectionMarker.Split(markdown, -1)

	get := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	return Sections{
		Overview:     get(0),
		Applications: get(1),
		Research:     get(2),
		Ecosystem:    get(3),
	}
}

// Parsed reports whether the text contained the expected structure. When it
// returns false the caller should render the raw text as a single flowing
// block instead of tabs. A partially-structured answer (only one of the two
// leading sections present) still counts as parsed.
func (s Sections) Parsed() bool {
	return s.Applications != "" || s.Research != ""
}

// Get returns the named section's text, or "" for an unknown section.
func (s Sections) Get(sec Section) string {
	switch sec {
	case SectionOverview:
		return s.Overview
	case SectionApplications:
		return s.Applications
	case SectionResearch:
		return s.Research
	case SectionEcosystem:
		return s.Ecosystem
	}
	return ""
}
