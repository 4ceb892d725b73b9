// Package store holds the gateway's external collaborators: the read-only
// API key store, the journal entry persistence engine (reached through
// stored procedures), and the best-effort audit sink.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrKeyNotFound = errors.New("api key not found")

// APIKey is the key store's view of a credential. The gateway never writes
// keys; they are issued out-of-band and invalidated by RevokedAt/ExpiresAt.
type APIKey struct {
	KeyID     string
	UserID    uuid.UUID
	KeyHash   string
	Scopes    []string
	RevokedAt *time.Time
	ExpiresAt *time.Time
}

// Entry is a single journal entry. Date is a calendar day (YYYY-MM-DD);
// there is at most one entry per user per day.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Date      string    `json:"date"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditRecord is one request outcome. Writes are attempted exactly once per
// completed request and failures are swallowed by the caller.
type AuditRecord struct {
	RequestID  string
	UserID     uuid.UUID
	KeyID      string
	IP         string
	Method     string
	Path       string
	Status     string
	StatusCode int
	DurationMS int64
	InputHash  string
}

type KeyStore interface {
	// Lookup resolves a key id. Returns ErrKeyNotFound for unknown ids.
	Lookup(ctx context.Context, keyID string) (APIKey, error)
}

type EntryStore interface {
	GetEntries(ctx context.Context, userID uuid.UUID, startDate, endDate string, limit int) ([]Entry, error)
	UpsertEntry(ctx context.Context, userID uuid.UUID, date, content string) (Entry, error)
	SearchJournal(ctx context.Context, userID uuid.UUID, query string, limit int) ([]Entry, error)
}

type AuditSink interface {
	InsertAuditLog(ctx context.Context, rec AuditRecord) error
}
