// Package export renders a session to a portable document. Export is a
// best-effort boundary: a failed export never touches session state.
package export

import (
	"fmt"
	"io"

	"github.com/omnisearch/omnisearch/internal/session"
)

// Exporter renders one session to a writer in a specific format.
type Exporter interface {
	Export(s session.Session, w io.Writer) error
	Extension() string
}

// NewExporter returns the exporter for a format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "md", "markdown", "":
		return &MarkdownExporter{}, nil
	case "json":
		return &JSONExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: md, json)", format)
	}
}
