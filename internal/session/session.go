// Package session holds the research session domain model and the in-memory
// multi-session store. A session is one independently-tracked search or chat
// context; its status follows a strict Idle/Loading/Success/Error machine
// driven by the orchestrator.
package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the referenced session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when a session already has a request in flight.
	ErrBusy = errors.New("session request already in flight")
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Mode selects between a single query/result pair and a running transcript.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeChat   Mode = "chat"
)

// ParseMode validates a mode string. Empty defaults to search.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSearch, ModeChat:
		return Mode(s), nil
	case "":
		return ModeSearch, nil
	}
	return "", fmt.Errorf("invalid mode %q", s)
}

// Category is the fixed domain filter applied to model queries.
type Category string

const (
	CategoryGeneral   Category = "General"
	CategoryHealth    Category = "Health"
	CategoryEmotion   Category = "Emotion"
	CategoryBusiness  Category = "Business"
	CategoryEducation Category = "Education"
	CategoryCreative  Category = "Creative"
)

// Categories lists all valid categories in display order.
var Categories = []Category{
	CategoryGeneral, CategoryHealth, CategoryEmotion,
	CategoryBusiness, CategoryEducation, CategoryCreative,
}

// ParseCategory validates a category string. Empty defaults to General.
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryGeneral, nil
	}
	for _, c := range Categories {
		if Category(s) == c {
			return c, nil
		}
	}
	return "", fmt.Errorf("invalid category %q", s)
}

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Source is a grounding citation returned alongside a model answer.
// URI is the deduplication key.
type Source struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri"`
}

// DedupeSources removes duplicate URIs, keeping first-appearance order.
// Sources without a URI are dropped; missing titles get a generic label.
func DedupeSources(in []Source) []Source {
	seen := make(map[string]bool, len(in))
	out := make([]Source, 0, len(in))
	for _, s := range in {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		if s.Title == "" {
			s.Title = "Web Source"
		}
		out = append(out, s)
	}
	return out
}

// SearchResult is the answer of one completed model call. It is immutable
// once attached to a session.
type SearchResult struct {
	MarkdownText string   `json:"markdown_text"`
	Sources      []Source `json:"sources"`
}

// ChatMessage is one turn in a chat-mode session.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Sources   []Source  `json:"sources,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one independently-tracked search or chat context.
// Search mode uses Query/Result; chat mode uses Messages.
type Session struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Mode      Mode          `json:"mode"`
	Category  Category      `json:"category"`
	Status    Status        `json:"status"`
	Query     string        `json:"query,omitempty"`
	Result    *SearchResult `json:"result,omitempty"`
	Messages  []ChatMessage `json:"messages,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func defaultTitle(mode Mode) string {
	if mode == ModeChat {
		return "New Chat"
	}
	return "New Search"
}

// snapshot returns a deep copy safe to hand outside the store lock.
func (s *Session) snapshot() Session {
	out := *s
	if s.Result != nil {
		r := *s.Result
		r.Sources = append([]Source(nil), s.Result.Sources...)
		out.Result = &r
	}
	if s.Messages != nil {
		out.Messages = make([]ChatMessage, len(s.Messages))
		for i, m := range s.Messages {
			m.Sources = append([]Source(nil), m.Sources...)
			out.Messages[i] = m
		}
	}
	return out
}
