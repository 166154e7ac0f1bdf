// Package history persists an audit log of completed research interactions.
// Sessions themselves are in-memory only; the log is what survives restarts.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Record is one completed (or failed) model interaction.
type Record struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	SessionID    string    `json:"session_id"`
	Mode         string    `json:"mode"`
	Category     string    `json:"category"`
	Query        string    `json:"query"`
	ResponseText string    `json:"response_text"`
	SourcesJSON  string    `json:"sources_json"` // JSON array stored as text
	Status       string    `json:"status"`       // "success" or "error"
}

// Store persists interaction records. Both the SQLite and Postgres
// implementations satisfy it.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	ListRecent(ctx context.Context, limit, offset int) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Purge(ctx context.Context) error
	Close() error
}
