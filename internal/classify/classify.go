// Package classify buckets citation URIs into semantic source categories
// by domain matching. Classification is total: any URI that matches neither
// domain list falls back to General.
package classify

import "strings"

// SourceCategory is the semantic bucket a citation URI belongs to.
type SourceCategory string

const (
	Paper   SourceCategory = "paper"
	App     SourceCategory = "app"
	General SourceCategory = "general"
)

// paperDomains covers academic, preprint, and indexing sites.
var paperDomains = []string{
	"arxiv.org", "biorxiv.org", "medrxiv.org", "ieee.org", "acm.org",
	"nature.com", "science.org", "springer.com", "sciencedirect.com",
	"ncbi.nlm.nih.gov", "semanticscholar.org", "researchgate.net",
}

// appDomains covers code hosting, package registries, and developer communities.
var appDomains = []string{
	"github.com", "gitlab.com", "huggingface.co", "producthunt.com",
	"pypi.org", "npmjs.com", "sourceforge.net", "stackoverflow.com",
	"dev.to", "vercel.com", "netlify.com",
}

// Classify maps a URI to its source category. Paper domains win over App
// domains; malformed URIs simply fail both lists and classify as General.
func Classify(uri string) SourceCategory {
	lower := strings.ToLower(uri)
	for _, d := range paperDomains {
		if strings.Contains(lower, d) {
			return Paper
		}
	}
	for _, d := range appDomains {
		if strings.Contains(lower, d) {
			return App
		}
	}
	return General
}
