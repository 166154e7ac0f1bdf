package export

import (
	"encoding/json"
	"io"

	"github.com/omnisearch/omnisearch/internal/session"
)

// JSONExporter emits the full session state as indented JSON.
type JSONExporter struct{}

func (e *JSONExporter) Extension() string { return "json" }

func (e *JSONExporter) Export(s session.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
