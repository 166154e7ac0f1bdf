package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/omnisearch/omnisearch/internal/session"
)

func searchSession() session.Session {
	return session.Session{
		ID:       "s1",
		Title:    "vector databases",
		Mode:     session.ModeSearch,
		Category: session.CategoryGeneral,
		Status:   session.StatusSuccess,
		Query:    "vector databases",
		Result: &session.SearchResult{
			MarkdownText: "Intro text.\n## 1. Apps\nAppOne\n## 2. Research\nPaperOne\n## 3. News\nNewsOne",
			Sources: []session.Source{
				{Title: "Paper", URI: "https://arxiv.org/abs/1"},
				{Title: "Repo", URI: "https://github.com/x"},
				{Title: "Article", URI: "https://example.com/a"},
			},
		},
		UpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"md", "md", false},
		{"markdown", "md", false},
		{"", "md", false},
		{"json", "json", false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		exp, err := NewExporter(tt.format)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewExporter(%q) should fail", tt.format)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewExporter(%q): %v", tt.format, err)
			continue
		}
		if exp.Extension() != tt.wantExt {
			t.Errorf("NewExporter(%q).Extension() = %q, want %q", tt.format, exp.Extension(), tt.wantExt)
		}
	}
}

func TestMarkdownExportStructuredSearch(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(searchSession(), &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"# vector databases",
		"## Overview",
		"Intro text.",
		"## Applications & Tools",
		"## Research & Papers",
		"## Ecosystem & News",
		"## References",
		"### Research Papers",
		"[Paper](https://arxiv.org/abs/1)",
		"### Applications & Code",
		"[Repo](https://github.com/x)",
		"### General Sources",
		"[Article](https://example.com/a)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q\n%s", want, out)
		}
	}
}

func TestMarkdownExportUnstructuredSearch(t *testing.T) {
	s := searchSession()
	s.Result.MarkdownText = "Just a flat answer with no numbered sections."

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(s, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "Just a flat answer") {
		t.Error("flat answer missing from export")
	}
	if strings.Contains(out, "## Overview") {
		t.Error("unstructured answers must not get section headers")
	}
}

func TestMarkdownExportEmptySearch(t *testing.T) {
	s := searchSession()
	s.Result = nil

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(s, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "_No results yet._") {
		t.Errorf("empty session export = %q", buf.String())
	}
}

func TestMarkdownExportChat(t *testing.T) {
	s := session.Session{
		ID:    "c1",
		Title: "a chat",
		Mode:  session.ModeChat,
		Messages: []session.ChatMessage{
			{Role: session.RoleUser, Text: "question?", Timestamp: time.Now()},
			{Role: session.RoleModel, Text: "answer.", Timestamp: time.Now(),
				Sources: []session.Source{{Title: "Src", URI: "https://s"}}},
		},
	}

	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(s, &buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if !strings.Contains(out, "**You**") || !strings.Contains(out, "**Assistant**") {
		t.Errorf("chat export missing turn labels:\n%s", out)
	}
	if !strings.Contains(out, "[Src](https://s)") {
		t.Error("chat export missing source link")
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONExporter{}).Export(searchSession(), &buf); err != nil {
		t.Fatal(err)
	}

	var got session.Session
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if got.ID != "s1" || got.Result == nil || len(got.Result.Sources) != 3 {
		t.Errorf("round-trip lost data: %+v", got)
	}
}
