package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omnisearch/omnisearch/internal/classify"
	"github.com/omnisearch/omnisearch/internal/partition"
	"github.com/omnisearch/omnisearch/internal/session"
)

// View is the render-ready projection of a session: partitioned sections,
// the parsed flag that selects tabbed vs. flat rendering, and sources
// grouped by category plus filtered to the focused section.
type View struct {
	SessionID string             `json:"session_id"`
	Status    session.Status     `json:"status"`
	Error     string             `json:"error,omitempty"`
	Ready     bool               `json:"ready"`
	Parsed    bool               `json:"parsed"`
	Section   partition.Section  `json:"section"`
	Sections  partition.Sections `json:"sections"`
	Sources   []session.Source   `json:"sources"`
	Grouped   groupedSources     `json:"grouped"`
}

type groupedSources struct {
	Paper   []session.Source `json:"paper"`
	App     []session.Source `json:"app"`
	General []session.Source `json:"general"`
}

// BuildView derives a View from a session snapshot. For chat sessions the
// latest model turn is projected. Derivation happens on every call; nothing
// is cached.
func BuildView(s session.Session, sec partition.Section) View {
	v := View{
		SessionID: s.ID,
		Status:    s.Status,
		Error:     s.Error,
		Section:   sec,
		Sources:   []session.Source{},
	}

	text, sources, ok := resultOf(s)
	if !ok {
		return v
	}
	v.Ready = true

	v.Sections = partition.Split(text)
	v.Parsed = v.Sections.Parsed()

	grouped := classify.Group(sources)
	v.Grouped = groupedSources{
		Paper:   orEmpty(grouped[classify.Paper]),
		App:     orEmpty(grouped[classify.App]),
		General: orEmpty(grouped[classify.General]),
	}
	v.Sources = orEmpty(classify.ForSection(sources, sec))
	return v
}

// resultOf picks the renderable answer: the attached result in search mode,
// the most recent model turn in chat mode.
func resultOf(s session.Session) (text string, sources []session.Source, ok bool) {
	if s.Mode == session.ModeChat {
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if s.Messages[i].Role == session.RoleModel {
				return s.Messages[i].Text, s.Messages[i].Sources, true
			}
		}
		return "", nil, false
	}
	if s.Result == nil {
		return "", nil, false
	}
	return s.Result.MarkdownText, s.Result.Sources, true
}

func orEmpty(in []session.Source) []session.Source {
	if in == nil {
		return []session.Source{}
	}
	return in
}

func handleView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Store.Get(chi.URLParam(r, "id"))
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}

		sec := partition.Section(r.URL.Query().Get("section"))
		switch sec {
		case "", partition.SectionOverview, partition.SectionApplications,
			partition.SectionResearch, partition.SectionEcosystem:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid section %q", sec)
			return
		}
		if sec == "" {
			sec = partition.SectionOverview
		}

		writeJSON(w, http.StatusOK, BuildView(s, sec))
	}
}
