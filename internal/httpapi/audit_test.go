package httpapi

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestAuditRecordsSuccessfulRequest(t *testing.T) {
	t.Parallel()

	sink := newStubAuditSink()
	ks := &stubKeyStore{key: testAPIKey(scopeReadEntries)}
	h := NewRouter(testDeps(ks, &stubEntryStore{}, sink))

	w := doRequest(h, http.MethodGet, "/v1/entries", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !sink.waitForRecord(2 * time.Second) {
		t.Fatal("audit record never written")
	}

	recs := sink.recorded()
	if len(recs) != 1 {
		t.Fatalf("got %d audit records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Method != http.MethodGet || rec.Path != "/v1/entries" {
		t.Fatalf("record = %+v, want GET /v1/entries", rec)
	}
	if rec.Status != "ok" || rec.StatusCode != http.StatusOK {
		t.Fatalf("outcome = %s/%d, want ok/200", rec.Status, rec.StatusCode)
	}
	if rec.UserID != testUserID || rec.KeyID != "testkey" {
		t.Fatalf("identity = %s/%s, want resolved identity", rec.UserID, rec.KeyID)
	}
	if rec.RequestID == "" {
		t.Fatal("record missing request id")
	}
	if rec.InputHash != "" {
		t.Fatal("GET request carried an input hash")
	}
}

func TestAuditRecordsRejectedRequest(t *testing.T) {
	t.Parallel()

	sink := newStubAuditSink()
	ks := &stubKeyStore{key: testAPIKey(scopeReadEntries)}
	h := NewRouter(testDeps(ks, &stubEntryStore{}, sink))

	w := doRequest(h, http.MethodGet, "/v1/entries", "", false)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !sink.waitForRecord(2 * time.Second) {
		t.Fatal("audit record never written for rejected request")
	}

	rec := sink.recorded()[0]
	if rec.Status != "unauthorized" || rec.StatusCode != http.StatusUnauthorized {
		t.Fatalf("outcome = %s/%d, want unauthorized/401", rec.Status, rec.StatusCode)
	}
	if rec.KeyID != "" {
		t.Fatalf("anonymous request carried key id %q", rec.KeyID)
	}
}

func TestAuditHashesWriteBody(t *testing.T) {
	t.Parallel()

	sink := newStubAuditSink()
	ks := &stubKeyStore{key: testAPIKey(scopeWriteEntries)}
	h := NewRouter(testDeps(ks, &stubEntryStore{}, sink))

	w := doRequest(h, http.MethodPost, "/v1/entries", `{"date":"2026-03-01","content":"hello"}`, true)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", w.Code, w.Body.String())
	}
	if !sink.waitForRecord(2 * time.Second) {
		t.Fatal("audit record never written")
	}

	rec := sink.recorded()[0]
	if len(rec.InputHash) != 64 {
		t.Fatalf("input hash = %q, want sha-256 hex digest", rec.InputHash)
	}
}

func TestAuditHashIgnoresKeyOrder(t *testing.T) {
	t.Parallel()

	a := hashBody([]byte(`{"date":"2026-03-01","content":"hello"}`))
	b := hashBody([]byte(`{"content":"hello","date":"2026-03-01"}`))
	if a != b {
		t.Fatal("equivalent JSON bodies hashed differently")
	}
	c := hashBody([]byte(`{"content":"other","date":"2026-03-01"}`))
	if a == c {
		t.Fatal("different bodies hashed identically")
	}
}

func TestAuditSinkFailureDoesNotAffectResponse(t *testing.T) {
	t.Parallel()

	sink := newStubAuditSink()
	sink.err = errors.New("sink down")
	ks := &stubKeyStore{key: testAPIKey(scopeReadEntries)}
	h := NewRouter(testDeps(ks, &stubEntryStore{}, sink))

	w := doRequest(h, http.MethodGet, "/v1/entries", "", true)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite sink failure", w.Code)
	}
	if !sink.waitForRecord(2 * time.Second) {
		t.Fatal("audit insert never attempted")
	}
}

func TestOutcomeForStatus(t *testing.T) {
	t.Parallel()

	cases := map[int]string{
		200: "ok",
		201: "ok",
		400: "bad_request",
		401: "unauthorized",
		403: "forbidden",
		404: "not_found",
		429: "rate_limited",
		500: "error",
	}
	for status, want := range cases {
		if got := outcomeForStatus(status); got != want {
			t.Errorf("outcomeForStatus(%d) = %q, want %q", status, got, want)
		}
	}
}
