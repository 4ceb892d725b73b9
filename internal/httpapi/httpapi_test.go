package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"journalgate/internal/keys"
	"journalgate/internal/store"
)

const testSecret = "0123456789abcdef0123456789abcdef0123"

var testUserID = uuid.MustParse("5f1b0c9e-3a7d-4b2f-9c41-8e6a2d0f1b3c")

func testAPIKey(scopes ...string) store.APIKey {
	return store.APIKey{
		KeyID:   "testkey",
		UserID:  testUserID,
		KeyHash: keys.HashSecret(testSecret),
		Scopes:  scopes,
	}
}

func testCredential() string {
	return keys.Format("testkey", testSecret)
}

type stubKeyStore struct {
	mu      sync.Mutex
	key     store.APIKey
	err     error
	lookups int
}

func (s *stubKeyStore) Lookup(ctx context.Context, keyID string) (store.APIKey, error) {
	s.mu.Lock()
	s.lookups++
	s.mu.Unlock()
	if s.err != nil {
		return store.APIKey{}, s.err
	}
	if keyID != s.key.KeyID {
		return store.APIKey{}, store.ErrKeyNotFound
	}
	return s.key, nil
}

func (s *stubKeyStore) lookupCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups
}

type stubEntryStore struct {
	getFn    func(ctx context.Context, userID uuid.UUID, startDate, endDate string, limit int) ([]store.Entry, error)
	upsertFn func(ctx context.Context, userID uuid.UUID, date, content string) (store.Entry, error)
	searchFn func(ctx context.Context, userID uuid.UUID, query string, limit int) ([]store.Entry, error)
}

func (s *stubEntryStore) GetEntries(ctx context.Context, userID uuid.UUID, startDate, endDate string, limit int) ([]store.Entry, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, userID, startDate, endDate, limit)
}

func (s *stubEntryStore) UpsertEntry(ctx context.Context, userID uuid.UUID, date, content string) (store.Entry, error) {
	if s.upsertFn == nil {
		return store.Entry{UserID: userID, Date: date, Content: content}, nil
	}
	return s.upsertFn(ctx, userID, date, content)
}

func (s *stubEntryStore) SearchJournal(ctx context.Context, userID uuid.UUID, query string, limit int) ([]store.Entry, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, userID, query, limit)
}

type stubAuditSink struct {
	mu      sync.Mutex
	records []store.AuditRecord
	err     error
	written chan struct{}
}

func newStubAuditSink() *stubAuditSink {
	return &stubAuditSink{written: make(chan struct{}, 16)}
}

func (s *stubAuditSink) InsertAuditLog(ctx context.Context, rec store.AuditRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	err := s.err
	s.mu.Unlock()
	s.written <- struct{}{}
	return err
}

func (s *stubAuditSink) waitForRecord(timeout time.Duration) bool {
	select {
	case <-s.written:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *stubAuditSink) recorded() []store.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(ctx context.Context, entries []store.Entry) (string, error) {
	return s.summary, s.err
}

func testDeps(ks store.KeyStore, es store.EntryStore, sink store.AuditSink) Deps {
	return Deps{
		Keys:       ks,
		Entries:    es,
		Audit:      sink,
		Summarizer: &stubSummarizer{summary: "a quiet week"},

		PublicBaseURL: "http://gateway.test",

		ReadRequestsPerMinute:  120,
		WriteRequestsPerMinute: 60,

		SessionTimeout:    5 * time.Minute,
		SessionHeartbeat:  30 * time.Second,
		SessionRevalidate: time.Minute,
		SessionCallBudget: 20,
	}
}

func doRequest(h http.Handler, method, target, body string, authorized bool) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if authorized {
		r.Header.Set("Authorization", "Bearer "+testCredential())
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}
