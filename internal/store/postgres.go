package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres reaches the journal backend through stored procedures; the
// gateway treats them as atomic and already scoped to user_id.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Lookup(ctx context.Context, keyID string) (APIKey, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	k := APIKey{KeyID: keyID}
	err := p.db.QueryRow(ctx, `
		select user_id, key_hash, scopes, revoked_at, expires_at
		from api_keys
		where key_id = $1
	`, keyID).Scan(&k.UserID, &k.KeyHash, &k.Scopes, &k.RevokedAt, &k.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrKeyNotFound
	}
	if err != nil {
		return APIKey{}, err
	}
	return k, nil
}

func (p *Postgres) GetEntries(ctx context.Context, userID uuid.UUID, startDate, endDate string, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := p.db.Query(ctx, `
		select id, entry_date, content, created_at, updated_at
		from get_entries($1, $2, $3, $4)
	`, userID, startDate, endDate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows, userID)
}

func (p *Postgres) UpsertEntry(ctx context.Context, userID uuid.UUID, date, content string) (Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	e := Entry{UserID: userID}
	var entryDate time.Time
	err := p.db.QueryRow(ctx, `
		select id, entry_date, content, created_at, updated_at
		from upsert_entry($1, $2, $3)
	`, userID, date, content).Scan(&e.ID, &entryDate, &e.Content, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}
	e.Date = entryDate.Format("2006-01-02")
	return e, nil
}

func (p *Postgres) SearchJournal(ctx context.Context, userID uuid.UUID, query string, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	rows, err := p.db.Query(ctx, `
		select id, entry_date, content, created_at, updated_at
		from search_journal($1, $2, $3)
	`, userID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows, userID)
}

func (p *Postgres) InsertAuditLog(ctx context.Context, rec AuditRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.db.Exec(ctx, `
		select insert_audit_log($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.RequestID, nullableUUID(rec.UserID), nullableString(rec.KeyID), rec.IP,
		rec.Method, rec.Path, rec.Status, rec.StatusCode, rec.DurationMS,
		nullableString(rec.InputHash))
	return err
}

func scanEntries(rows pgx.Rows, userID uuid.UUID) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			entryDate time.Time
		)
		if err := rows.Scan(&e.ID, &entryDate, &e.Content, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.UserID = userID
		e.Date = entryDate.Format("2006-01-02")
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
