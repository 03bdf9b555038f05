// Package store persists the last-used sheet source per session and a
// history of load attempts.
//
// Two implementations are provided: Postgres (pgxpool) for deployments with
// a database, and Memory for single-process use and tests.
package store

import (
	"context"
	"time"
)

// LoadRecord is one load attempt.
type LoadRecord struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"-"`
	Source     string    `json:"source"`
	SheetID    string    `json:"sheetId"`
	Strategy   string    `json:"strategy,omitempty"`
	Rows       int       `json:"rows"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"durationMs"`
	ClientIP   string    `json:"-"`
	UserAgent  string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Succeeded reports whether the attempt installed a dataset.
func (r LoadRecord) Succeeded() bool {
	return r.Error == ""
}

// Store is the persistence boundary used by the service layer.
type Store interface {
	// SaveSource remembers the raw source string a session last loaded.
	SaveSource(ctx context.Context, sessionID, source string) error

	// LastSource returns the saved source, or "" if none is saved.
	LastSource(ctx context.Context, sessionID string) (string, error)

	// ClearSource forgets the saved source. Clearing a missing entry is not an error.
	ClearSource(ctx context.Context, sessionID string) error

	// RecordLoad appends a load attempt and returns it with ID and CreatedAt set.
	RecordLoad(ctx context.Context, rec LoadRecord) (LoadRecord, error)

	// RecentLoads returns up to limit attempts for a session, newest first.
	RecentLoads(ctx context.Context, sessionID string, limit int) ([]LoadRecord, error)

	// PurgeLoads deletes attempts created before cutoff and returns how many were removed.
	PurgeLoads(ctx context.Context, cutoff time.Time) (int64, error)
}
