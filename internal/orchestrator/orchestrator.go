// Package orchestrator coordinates model requests against the session store:
// it enforces the status transitions, guards against duplicate submits, and
// merges asynchronous completions back into sessions. At most one request is
// outstanding per session; requests for different sessions are independent.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omnisearch/omnisearch/internal/history"
	"github.com/omnisearch/omnisearch/internal/session"
)

// Fixed user-facing failure messages. The underlying cause is logged, never
// shown raw to the user.
const (
	searchFailedMsg = "Failed to retrieve search results. Please verify your API key and network connection."
	chatFailedMsg   = "Failed to get a response. Please try again."
)

// Querier is the external model collaborator.
type Querier interface {
	Search(ctx context.Context, query string, cat session.Category) (*session.SearchResult, error)
	Chat(ctx context.Context, text string, cat session.Category, history []session.ChatMessage) (*session.SearchResult, error)
}

// Recorder persists completed interactions to the history log.
type Recorder interface {
	Save(ctx context.Context, rec history.Record) error
}

// Orchestrator owns the request lifecycle for all sessions.
type Orchestrator struct {
	store    *session.Store
	querier  Querier
	recorder Recorder // optional; nil disables the history log
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates an Orchestrator. recorder may be nil.
func New(store *session.Store, querier Querier, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		store:    store,
		querier:  querier,
		recorder: recorder,
		logger:   slog.Default(),
	}
}

// Wait blocks until all in-flight model requests have completed. Used for
// graceful shutdown; new submissions during Wait are not prevented.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Submit starts a search for a session. Blank queries and sessions with a
// request already in flight are silently ignored. The session transitions to
// Loading immediately; the model call runs asynchronously and resolves to
// Success or Error.
func (o *Orchestrator) Submit(ctx context.Context, id, query string, cat session.Category) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	if _, err := o.store.BeginAttempt(id); err != nil {
		if errors.Is(err, session.ErrBusy) {
			return nil
		}
		return err
	}

	if err := o.store.Update(id, func(s *session.Session) {
		s.Query = query
		s.Category = cat
		s.Title = query
	}); err != nil {
		return err
	}

	o.wg.Add(1)
	// The call must outlive the submitting request; completion is merged
	// against the latest store state and dropped if the session is gone.
	callCtx := context.WithoutCancel(ctx)
	go func() {
		defer o.wg.Done()
		result, err := o.querier.Search(callCtx, query, cat)
		o.completeSearch(callCtx, id, query, cat, result, err)
	}()
	return nil
}

func (o *Orchestrator) completeSearch(ctx context.Context, id, query string, cat session.Category, result *session.SearchResult, callErr error) {
	var updateErr error
	if callErr != nil {
		o.logger.Warn("search request failed", "session_id", id, "error", callErr)
		updateErr = o.store.Update(id, func(s *session.Session) {
			s.Status = session.StatusError
			s.Error = searchFailedMsg
		})
	} else {
		updateErr = o.store.Update(id, func(s *session.Session) {
			s.Status = session.StatusSuccess
			s.Result = result
		})
	}

	if errors.Is(updateErr, session.ErrNotFound) {
		// Session closed while the request was outstanding; drop the result.
		o.logger.Debug("discarding completion for closed session", "session_id", id)
		return
	}

	o.record(ctx, id, session.ModeSearch, cat, query, result, callErr)
}

// SendMessage sends one chat turn for a session. The user message is
// appended synchronously, before the model call resolves, so the transcript
// shows the turn right away; a failed call never rolls it back.
func (o *Orchestrator) SendMessage(ctx context.Context, id, text string, cat session.Category) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if _, err := o.store.BeginAttempt(id); err != nil {
		if errors.Is(err, session.ErrBusy) {
			return nil
		}
		return err
	}

	var prior []session.ChatMessage
	if err := o.store.Update(id, func(s *session.Session) {
		s.Category = cat
		if len(s.Messages) == 0 {
			s.Title = text
		}
		prior = append([]session.ChatMessage(nil), s.Messages...)
		s.Messages = append(s.Messages, session.ChatMessage{
			ID:        uuid.New().String(),
			Role:      session.RoleUser,
			Text:      text,
			Timestamp: time.Now().UTC(),
		})
	}); err != nil {
		return err
	}

	o.wg.Add(1)
	callCtx := context.WithoutCancel(ctx)
	go func() {
		defer o.wg.Done()
		result, err := o.querier.Chat(callCtx, text, cat, prior)
		o.completeChat(callCtx, id, text, cat, result, err)
	}()
	return nil
}

func (o *Orchestrator) completeChat(ctx context.Context, id, text string, cat session.Category, result *session.SearchResult, callErr error) {
	var updateErr error
	if callErr != nil {
		o.logger.Warn("chat request failed", "session_id", id, "error", callErr)
		updateErr = o.store.Update(id, func(s *session.Session) {
			s.Status = session.StatusError
			s.Error = chatFailedMsg
		})
	} else {
		updateErr = o.store.Update(id, func(s *session.Session) {
			s.Status = session.StatusSuccess
			s.Messages = append(s.Messages, session.ChatMessage{
				ID:        uuid.New().String(),
				Role:      session.RoleModel,
				Text:      result.MarkdownText,
				Sources:   result.Sources,
				Timestamp: time.Now().UTC(),
			})
		})
	}

	if errors.Is(updateErr, session.ErrNotFound) {
		o.logger.Debug("discarding completion for closed session", "session_id", id)
		return
	}

	o.record(ctx, id, session.ModeChat, cat, text, result, callErr)
}

// ChangeCategory updates a session's category. In search mode, a session
// that already holds a successful result is automatically resubmitted under
// the new category; the resubmission decision reads the store's current
// snapshot, never state captured earlier. Chat sessions only apply the new
// category to subsequent turns.
func (o *Orchestrator) ChangeCategory(ctx context.Context, id string, cat session.Category) error {
	if err := o.store.Update(id, func(s *session.Session) {
		s.Category = cat
	}); err != nil {
		return err
	}

	s, err := o.store.Get(id)
	if err != nil {
		return err
	}
	if s.Mode == session.ModeSearch && s.Status == session.StatusSuccess && strings.TrimSpace(s.Query) != "" {
		return o.Submit(ctx, id, s.Query, cat)
	}
	return nil
}

// record writes the interaction to the history log. Log failures are
// reported but never affect session state.
func (o *Orchestrator) record(ctx context.Context, id string, mode session.Mode, cat session.Category, query string, result *session.SearchResult, callErr error) {
	if o.recorder == nil {
		return
	}

	rec := history.Record{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		SessionID: id,
		Mode:      string(mode),
		Category:  string(cat),
		Query:     query,
		Status:    "success",
	}
	if callErr != nil {
		rec.Status = "error"
	} else {
		rec.ResponseText = result.MarkdownText
		if b, err := json.Marshal(result.Sources); err == nil {
			rec.SourcesJSON = string(b)
		}
	}

	if err := o.recorder.Save(ctx, rec); err != nil {
		o.logger.Warn("failed to record interaction", "session_id", id, "error", err)
	}
}
