package httpapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"journalgate/internal/store"
)

var (
	errSessionNotFound = errors.New("session not found")
	errCallBudget      = errors.New("tool call budget exceeded")
)

// mcpSession tracks one open streaming connection. Its scope set is copied
// from the originating credential at creation and is never re-widened by
// revalidation.
type mcpSession struct {
	id     string
	userID uuid.UUID
	keyID  string
	scopes []string

	createdAt         time.Time
	lastRevalidatedAt time.Time
	toolCalls         int
}

func (sess *mcpSession) hasScope(scope string) bool {
	for _, s := range sess.scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type heartbeatStatus int

const (
	heartbeatOK heartbeatStatus = iota
	heartbeatExpired
	heartbeatRevoked
)

// sessionTable is the shared session map. All mutation happens under the
// mutex; the key-store revalidation lookup runs outside it so one slow
// check never blocks other sessions.
type sessionTable struct {
	mu       sync.Mutex
	sessions map[string]*mcpSession

	keys            store.KeyStore
	timeout         time.Duration
	revalidateEvery time.Duration
	callBudget      int
	nowFn           func() time.Time
}

func newSessionTable(keys store.KeyStore, timeout, revalidateEvery time.Duration, callBudget int) *sessionTable {
	return &sessionTable{
		sessions:        map[string]*mcpSession{},
		keys:            keys,
		timeout:         timeout,
		revalidateEvery: revalidateEvery,
		callBudget:      callBudget,
		nowFn:           time.Now,
	}
}

func (t *sessionTable) create(ident *identity) *mcpSession {
	now := t.nowFn()
	sess := &mcpSession{
		id:                uuid.NewString(),
		userID:            ident.UserID,
		keyID:             ident.KeyID,
		scopes:            append([]string(nil), ident.Scopes...),
		createdAt:         now,
		lastRevalidatedAt: now,
	}
	t.mu.Lock()
	t.sessions[sess.id] = sess
	t.mu.Unlock()
	return sess
}

func (t *sessionTable) get(id string) (*mcpSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[id]
	return sess, ok
}

func (t *sessionTable) remove(id string) {
	t.mu.Lock()
	delete(t.sessions, id)
	t.mu.Unlock()
}

func (t *sessionTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// consumeCall counts one dispatched tool call, successful or not, and
// rejects once the cumulative count crosses the budget. The budget is
// independent of session expiry.
func (t *sessionTable) consumeCall(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[id]
	if !ok {
		return errSessionNotFound
	}
	sess.toolCalls++
	if sess.toolCalls > t.callBudget {
		return errCallBudget
	}
	return nil
}

// heartbeat drives one tick of the session state machine: wall-clock
// expiry first, then — only when the revalidation interval has elapsed —
// a re-check of the originating credential. Expired and revoked sessions
// are removed from the table before the status is returned.
func (t *sessionTable) heartbeat(ctx context.Context, id string) heartbeatStatus {
	t.mu.Lock()
	sess, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return heartbeatExpired
	}
	now := t.nowFn()
	if now.Sub(sess.createdAt) > t.timeout {
		delete(t.sessions, id)
		t.mu.Unlock()
		return heartbeatExpired
	}
	needsRevalidation := now.Sub(sess.lastRevalidatedAt) >= t.revalidateEvery
	keyID := sess.keyID
	t.mu.Unlock()

	if !needsRevalidation {
		return heartbeatOK
	}

	if !t.credentialStillValid(ctx, keyID, now) {
		t.remove(id)
		return heartbeatRevoked
	}

	t.mu.Lock()
	if sess, ok := t.sessions[id]; ok {
		sess.lastRevalidatedAt = now
	}
	t.mu.Unlock()
	return heartbeatOK
}

func (t *sessionTable) credentialStillValid(ctx context.Context, keyID string, now time.Time) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key, err := t.keys.Lookup(ctx, keyID)
	if errors.Is(err, store.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		// Transient store failure: keep the session, retry next interval.
		logError(ctx, "session revalidation lookup failed", err)
		return true
	}
	if key.RevokedAt != nil {
		return false
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(now) {
		return false
	}
	return true
}
