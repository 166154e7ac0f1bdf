package export

import (
	"fmt"
	"io"

	"github.com/omnisearch/omnisearch/internal/classify"
	"github.com/omnisearch/omnisearch/internal/partition"
	"github.com/omnisearch/omnisearch/internal/session"
)

// MarkdownExporter renders a session as a readable Markdown document.
type MarkdownExporter struct{}

func (e *MarkdownExporter) Extension() string { return "md" }

func (e *MarkdownExporter) Export(s session.Session, w io.Writer) error {
	fmt.Fprintf(w, "# %s\n\n", s.Title)
	fmt.Fprintf(w, "**Category:** %s  \n", s.Category)
	fmt.Fprintf(w, "**Mode:** %s  \n", s.Mode)
	fmt.Fprintf(w, "**Updated:** %s\n\n", s.UpdatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "---\n\n")

	if s.Mode == session.ModeChat {
		return e.exportChat(s, w)
	}
	return e.exportSearch(s, w)
}

func (e *MarkdownExporter) exportSearch(s session.Session, w io.Writer) error {
	if s.Result == nil {
		fmt.Fprintln(w, "_No results yet._")
		return nil
	}

	sections := partition.Split(s.Result.MarkdownText)
	if !sections.Parsed() {
		// Unstructured answer: flat render.
		fmt.Fprintf(w, "%s\n\n", s.Result.MarkdownText)
	} else {
		if sections.Overview != "" {
			fmt.Fprintf(w, "## Overview\n\n%s\n\n", sections.Overview)
		}
		if sections.Applications != "" {
			fmt.Fprintf(w, "## Applications & Tools\n\n%s\n\n", sections.Applications)
		}
		if sections.Research != "" {
			fmt.Fprintf(w, "## Research & Papers\n\n%s\n\n", sections.Research)
		}
		if sections.Ecosystem != "" {
			fmt.Fprintf(w, "## Ecosystem & News\n\n%s\n\n", sections.Ecosystem)
		}
	}

	writeReferences(w, s.Result.Sources)
	return nil
}

func (e *MarkdownExporter) exportChat(s session.Session, w io.Writer) error {
	if len(s.Messages) == 0 {
		fmt.Fprintln(w, "_No messages yet._")
		return nil
	}

	for i, msg := range s.Messages {
		author := "You"
		if msg.Role == session.RoleModel {
			author = "Assistant"
		}
		fmt.Fprintf(w, "**%s** (%s):\n\n%s\n\n", author, msg.Timestamp.Format("15:04:05"), msg.Text)
		if len(msg.Sources) > 0 {
			for _, src := range msg.Sources {
				fmt.Fprintf(w, "- [%s](%s)\n", src.Title, src.URI)
			}
			fmt.Fprintln(w)
		}
		if i < len(s.Messages)-1 {
			fmt.Fprintf(w, "---\n\n")
		}
	}
	return nil
}

func writeReferences(w io.Writer, sources []session.Source) {
	if len(sources) == 0 {
		return
	}

	fmt.Fprintf(w, "## References\n\n")
	grouped := classify.Group(sources)
	writeGroup(w, "Research Papers", grouped[classify.Paper])
	writeGroup(w, "Applications & Code", grouped[classify.App])
	writeGroup(w, "General Sources", grouped[classify.General])
}

func writeGroup(w io.Writer, title string, items []session.Source) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "### %s\n\n", title)
	for _, src := range items {
		fmt.Fprintf(w, "- [%s](%s)\n", src.Title, src.URI)
	}
	fmt.Fprintln(w)
}
