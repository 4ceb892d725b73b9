package httpapi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/go-chi/chi/v5/middleware"

	"journalgate/internal/store"
)

// identityRef is installed by the audit middleware before authentication
// runs and filled in by authMiddleware, so the outcome record can carry the
// resolved identity even though the response has already been written by
// the time the record is built.
type identityRef struct {
	id *identity
}

const ctxIdentityRef ctxKey = "identity_ref"

const maxAuditedBodyBytes = 1 << 20

func (s server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ref := &identityRef{}
		r = r.WithContext(context.WithValue(r.Context(), ctxIdentityRef, ref))

		inputHash := ""
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxAuditedBodyBytes+1))
			if err == nil && len(body) <= maxAuditedBodyBytes {
				inputHash = hashBody(body)
			}
			if err != nil {
				body = nil
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		sw := &statusCapturingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		rec := store.AuditRecord{
			RequestID:  middleware.GetReqID(r.Context()),
			IP:         clientIP(r),
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     outcomeForStatus(sw.status),
			StatusCode: sw.status,
			DurationMS: time.Since(start).Milliseconds(),
			InputHash:  inputHash,
		}
		if ref.id != nil {
			rec.UserID = ref.id.UserID
			rec.KeyID = ref.id.KeyID
		}

		// Fire-and-forget: the response never waits on the sink and sink
		// failures are swallowed. In-flight writes may be dropped at
		// process shutdown.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.auditSink.InsertAuditLog(ctx, rec); err != nil {
				logError(ctx, "audit insert failed", err)
			}
		}()
	})
}

// hashBody hashes the canonicalized JSON form so that equivalent bodies
// hash identically; non-JSON bodies are hashed as raw bytes.
func hashBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	canonical, err := jsoncanonicalizer.Transform(body)
	if err != nil {
		canonical = body
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

func outcomeForStatus(status int) string {
	switch {
	case status == 0:
		return "ok"
	case status < 400:
		return "ok"
	case status == http.StatusUnauthorized:
		return "unauthorized"
	case status == http.StatusForbidden:
		return "forbidden"
	case status == http.StatusTooManyRequests:
		return "rate_limited"
	case status == http.StatusNotFound:
		return "not_found"
	case status < 500:
		return "bad_request"
	default:
		return "error"
	}
}

func clientIP(r *http.Request) string {
	// RealIP middleware rewrites RemoteAddr when forwarding headers are
	// present; fall back to the raw address otherwise.
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
