package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newServer(d Deps) server {
	return server{
		keys:          d.Keys,
		entries:       d.Entries,
		auditSink:     d.Audit,
		summarizer:    d.Summarizer,
		publicBaseURL: d.PublicBaseURL,
		limiter: newRateLimiter(
			d.ReadRequestsPerMinute,
			d.WriteRequestsPerMinute,
			time.Minute,
		),
		sessions: newSessionTable(
			d.Keys,
			d.SessionTimeout,
			d.SessionRevalidate,
			d.SessionCallBudget,
		),
		heartbeatEvery: d.SessionHeartbeat,
		tools:          newToolRegistry(),
	}
}

// NewRouter assembles the gateway. Everything under /v1 is authenticated,
// rate limited, and audited; /healthz stays open for probes.
func NewRouter(d Deps) http.Handler {
	s := newServer(d)

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(serverErrorLoggerMiddleware)
	r.Use(corsMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeNotFound(w, req)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeNotFound(w, req)
	})

	r.Route("/v1", func(r chi.Router) {
		// Audit wraps authentication so rejected requests are recorded too.
		r.Use(s.auditMiddleware)
		r.Use(s.authMiddleware)
		r.Use(s.rateLimitMiddleware)

		r.With(s.requireScope(scopeReadEntries)).Get("/entries", s.handleListEntries)
		r.With(s.requireScope(scopeWriteEntries)).Post("/entries", s.handleCreateEntry)
		r.With(s.requireScope(scopeReadEntries)).Get("/search", s.handleSearch)

		r.Get("/mcp", s.handleMCPStream)
		r.Post("/mcp/message", s.handleMCPMessage)
	})

	return r
}
