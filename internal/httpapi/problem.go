package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
)

// problem is the uniform error body: a structured-problem shape with the
// request trace id embedded so callers can correlate with audit records.
type problem struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Detail  string `json:"detail"`
	TraceID string `json:"trace_id"`
}

type problemKind struct {
	typeURI string
	title   string
}

var (
	problemUnauthorized = problemKind{"/problems/unauthorized", "Unauthorized"}
	problemForbidden    = problemKind{"/problems/forbidden", "Forbidden"}
	problemBadRequest   = problemKind{"/problems/bad-request", "Bad Request"}
	problemRateLimited  = problemKind{"/problems/rate-limited", "Rate Limited"}
	problemNotFound     = problemKind{"/problems/not-found", "Not Found"}
	problemInternal     = problemKind{"/problems/internal", "Internal Error"}
)

func writeProblem(w http.ResponseWriter, r *http.Request, status int, kind problemKind, detail string) {
	writeJSON(w, status, problem{
		Type:    kind.typeURI,
		Title:   kind.title,
		Status:  status,
		Detail:  detail,
		TraceID: middleware.GetReqID(r.Context()),
	})
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusUnauthorized, problemUnauthorized, detail)
}

func writeForbidden(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusForbidden, problemForbidden, detail)
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, http.StatusBadRequest, problemBadRequest, detail)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	writeProblem(w, r, http.StatusTooManyRequests, problemRateLimited,
		"rate limit exceeded, retry after "+strconv.Itoa(retryAfterSeconds)+"s")
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, r, http.StatusNotFound, problemNotFound, "no such operation")
}

// writeInternal logs the real error server-side and returns a generic detail;
// collaborator error text never reaches the caller.
func writeInternal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logError(r.Context(), msg, err)
	writeProblem(w, r, http.StatusInternalServerError, problemInternal, "internal error")
}
