package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the in-memory collection of sessions. It is never empty and
// always has exactly one active session. All mutation goes through Update
// or BeginAttempt, which operate on the latest stored state under the lock,
// so interleaved completions from concurrent requests never observe or
// overwrite each other partially.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // creation order, oldest first
	activeID string
}

// NewStore creates a store bootstrapped with one idle session of the given
// mode, which becomes active.
func NewStore(mode Mode) *Store {
	st := &Store{sessions: make(map[string]*Session)}
	st.Create(mode)
	return st
}

func newSession(mode Mode) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New().String(),
		Title:     defaultTitle(mode),
		Mode:      mode,
		Category:  CategoryGeneral,
		Status:    StatusIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Create appends a new idle session and makes it active.
func (st *Store) Create(mode Mode) Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := newSession(mode)
	st.sessions[s.ID] = s
	st.order = append(st.order, s.ID)
	st.activeID = s.ID
	return s.snapshot()
}

// Close removes a session. Closing the last remaining session resets it in
// place instead, preserving its identity. Closing the active session
// activates the most recently created remaining session.
func (st *Store) Close(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}

	if len(st.sessions) == 1 {
		// Sole session: clear fields but keep ID and creation time.
		s.Title = defaultTitle(s.Mode)
		s.Category = CategoryGeneral
		s.Status = StatusIdle
		s.Query = ""
		s.Result = nil
		s.Messages = nil
		s.Error = ""
		s.UpdatedAt = time.Now().UTC()
		return nil
	}

	delete(st.sessions, id)
	for i, oid := range st.order {
		if oid == id {
			st.order = append(st.order[:i], st.order[i+1:]...)
			break
		}
	}
	if st.activeID == id {
		st.activeID = st.order[len(st.order)-1]
	}
	return nil
}

// SwitchActive makes the given session active.
func (st *Store) SwitchActive(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	st.activeID = id
	return nil
}

// Active returns a snapshot of the currently active session.
func (st *Store) Active() Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[st.activeID].snapshot()
}

// Get returns a snapshot of the session with the given ID.
func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s.snapshot(), nil
}

// List returns snapshots of all sessions in creation order.
func (st *Store) List() []Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := make([]Session, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, st.sessions[id].snapshot())
	}
	return out
}

// Update applies fn to the latest stored state of the session under the
// store lock. It is the single mutation primitive: fn must not block and
// must not retain the *Session past the call. Returns ErrNotFound if the
// session has been closed, which is how stale completions are discarded.
func (st *Store) Update(id string, fn func(*Session)) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(s)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// BeginAttempt atomically transitions the session into Loading, clearing a
// previous error and, in search mode, the previous result. It returns
// ErrBusy while a request is already in flight, which is the re-entrancy
// guard for duplicate submits: the guard lives here, not in any interface
// layer, so headless callers get the same guarantee.
func (st *Store) BeginAttempt(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Status == StatusLoading {
		return Session{}, ErrBusy
	}

	s.Status = StatusLoading
	s.Error = ""
	if s.Mode == ModeSearch {
		s.Result = nil
	}
	s.UpdatedAt = time.Now().UTC()
	return s.snapshot(), nil
}
