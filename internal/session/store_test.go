package session

import (
	"errors"
	"testing"
)

func TestNewStoreBootstrapsActiveSession(t *testing.T) {
	st := NewStore(ModeSearch)

	active := st.Active()
	if active.ID == "" {
		t.Fatal("bootstrap session has no ID")
	}
	if active.Mode != ModeSearch {
		t.Errorf("mode = %q, want search", active.Mode)
	}
	if active.Status != StatusIdle {
		t.Errorf("status = %q, want idle", active.Status)
	}
	if active.Title != "New Search" {
		t.Errorf("title = %q, want New Search", active.Title)
	}
	if active.Category != CategoryGeneral {
		t.Errorf("category = %q, want General", active.Category)
	}
	if len(st.List()) != 1 {
		t.Errorf("expected exactly one session, got %d", len(st.List()))
	}
}

func TestCreateMakesNewSessionActive(t *testing.T) {
	st := NewStore(ModeSearch)
	first := st.Active()

	second := st.Create(ModeChat)

	if st.Active().ID != second.ID {
		t.Errorf("active = %s, want newly created %s", st.Active().ID, second.ID)
	}
	if second.ID == first.ID {
		t.Error("new session reused an existing ID")
	}
	if second.Title != "New Chat" {
		t.Errorf("chat title = %q, want New Chat", second.Title)
	}

	list := st.List()
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("list not in creation order: %v", list)
	}
}

func TestCloseLastSessionResetsInPlace(t *testing.T) {
	st := NewStore(ModeSearch)
	orig := st.Active()

	err := st.Update(orig.ID, func(s *Session) {
		s.Status = StatusSuccess
		s.Query = "golang"
		s.Title = "golang"
		s.Result = &SearchResult{MarkdownText: "answer"}
		s.Error = ""
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := st.Close(orig.ID); err != nil {
		t.Fatal(err)
	}

	got := st.Active()
	if got.ID != orig.ID {
		t.Errorf("sole-session close must preserve identity: got %s, want %s", got.ID, orig.ID)
	}
	if !got.CreatedAt.Equal(orig.CreatedAt) {
		t.Error("sole-session close must preserve creation time")
	}
	if got.Status != StatusIdle || got.Query != "" || got.Result != nil || got.Title != "New Search" {
		t.Errorf("session not reset: %+v", got)
	}
	if len(st.List()) != 1 {
		t.Errorf("store must never be empty, got %d sessions", len(st.List()))
	}
}

func TestCloseActiveFallsBackToMostRecent(t *testing.T) {
	st := NewStore(ModeSearch)
	first := st.Active()
	second := st.Create(ModeSearch)
	third := st.Create(ModeSearch)

	if err := st.Close(third.ID); err != nil {
		t.Fatal(err)
	}

	if st.Active().ID != second.ID {
		t.Errorf("active = %s, want most recently created %s", st.Active().ID, second.ID)
	}

	// Closing a non-active session leaves the active unchanged.
	if err := st.Close(first.ID); err != nil {
		t.Fatal(err)
	}
	if st.Active().ID != second.ID {
		t.Errorf("active changed after closing inactive session")
	}
}

func TestCloseUnknownSession(t *testing.T) {
	st := NewStore(ModeSearch)
	if err := st.Close("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSwitchActive(t *testing.T) {
	st := NewStore(ModeSearch)
	first := st.Active()
	st.Create(ModeSearch)

	if err := st.SwitchActive(first.ID); err != nil {
		t.Fatal(err)
	}
	if st.Active().ID != first.ID {
		t.Errorf("active = %s, want %s", st.Active().ID, first.ID)
	}

	if err := st.SwitchActive("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateUnknownSession(t *testing.T) {
	st := NewStore(ModeSearch)
	err := st.Update("nope", func(s *Session) {})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestBeginAttemptTransitionsToLoading(t *testing.T) {
	st := NewStore(ModeSearch)
	id := st.Active().ID

	// Seed a stale error and result from a previous attempt.
	st.Update(id, func(s *Session) {
		s.Status = StatusError
		s.Error = "previous failure"
		s.Result = &SearchResult{MarkdownText: "stale"}
	})

	snap, err := st.BeginAttempt(id)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != StatusLoading {
		t.Errorf("status = %q, want loading", snap.Status)
	}
	if snap.Error != "" {
		t.Errorf("starting an attempt must clear the error, got %q", snap.Error)
	}
	if snap.Result != nil {
		t.Error("search mode must clear the previous result on a new attempt")
	}
}

func TestBeginAttemptChatKeepsTranscript(t *testing.T) {
	st := NewStore(ModeChat)
	id := st.Active().ID

	st.Update(id, func(s *Session) {
		s.Messages = []ChatMessage{{ID: "m1", Role: RoleUser, Text: "hi"}}
	})

	snap, err := st.BeginAttempt(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Messages) != 1 {
		t.Errorf("chat attempt must keep the transcript, got %d messages", len(snap.Messages))
	}
}

func TestBeginAttemptWhileLoading(t *testing.T) {
	st := NewStore(ModeSearch)
	id := st.Active().ID

	if _, err := st.BeginAttempt(id); err != nil {
		t.Fatal(err)
	}
	if _, err := st.BeginAttempt(id); !errors.Is(err, ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestBeginAttemptUnknownSession(t *testing.T) {
	st := NewStore(ModeSearch)
	if _, err := st.BeginAttempt("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	st := NewStore(ModeSearch)
	id := st.Active().ID

	st.Update(id, func(s *Session) {
		s.Result = &SearchResult{
			MarkdownText: "answer",
			Sources:      []Source{{Title: "A", URI: "https://a"}},
		}
	})

	snap, _ := st.Get(id)
	snap.Result.MarkdownText = "mutated"
	snap.Result.Sources[0].Title = "mutated"

	fresh, _ := st.Get(id)
	if fresh.Result.MarkdownText != "answer" || fresh.Result.Sources[0].Title != "A" {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestDedupeSources(t *testing.T) {
	in := []Source{
		{Title: "First", URI: "https://a"},
		{Title: "Dup", URI: "https://a"},
		{Title: "", URI: "https://b"},
		{Title: "NoURI", URI: ""},
		{Title: "Last", URI: "https://c"},
	}

	got := DedupeSources(in)

	if len(got) != 3 {
		t.Fatalf("got %d sources, want 3: %v", len(got), got)
	}
	if got[0].URI != "https://a" || got[0].Title != "First" {
		t.Errorf("first occurrence must win: %v", got[0])
	}
	if got[1].Title != "Web Source" {
		t.Errorf("missing title should get generic label, got %q", got[1].Title)
	}
	if got[2].URI != "https://c" {
		t.Errorf("order not preserved: %v", got)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeSearch {
		t.Errorf("empty mode should default to search, got %q, %v", m, err)
	}
	if m, err := ParseMode("chat"); err != nil || m != ModeChat {
		t.Errorf("ParseMode(chat) = %q, %v", m, err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Error("expected error for invalid mode")
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(""); err != nil || c != CategoryGeneral {
		t.Errorf("empty category should default to General, got %q, %v", c, err)
	}
	for _, c := range Categories {
		if got, err := ParseCategory(string(c)); err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("Sports"); err == nil {
		t.Error("expected error for unknown category")
	}
}
