package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"journalgate/internal/insights"
	"journalgate/internal/store"
)

const (
	scopeReadEntries  = "read:entries"
	scopeWriteEntries = "write:entries"
	scopeReadInsights = "read:insights"
)

type server struct {
	keys       store.KeyStore
	entries    store.EntryStore
	auditSink  store.AuditSink
	summarizer insights.Summarizer

	publicBaseURL string

	limiter        *rateLimiter
	sessions       *sessionTable
	heartbeatEvery time.Duration
	tools          []toolDefinition
}

// identity is the result of a successful credential resolution.
type identity struct {
	UserID uuid.UUID
	KeyID  string
	Scopes []string
}

func (id *identity) hasScope(scope string) bool {
	if id == nil {
		return false
	}
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type ctxKey string

const ctxIdentity ctxKey = "identity"

func identityFromCtx(ctx context.Context) (*identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(*identity)
	return id, ok && id != nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logError(context.Background(), "writeJSON encode failed", err)
	}
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func readJSONLimited(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := readJSON(r, dst); err != nil {
		writeProblem(w, r, http.StatusBadRequest, problemBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
