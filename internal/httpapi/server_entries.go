package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"journalgate/internal/sanitize"
	"journalgate/internal/store"
)

const (
	dateLayout      = "2006-01-02"
	maxRangeDays    = 90
	maxContentBytes = 100 * 1024
)

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil || t.Format(dateLayout) != s {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// dateRange validates a start/end pair, applying the last-30-days default
// when both are absent, and caps the span at maxDays.
func dateRange(startStr, endStr string, maxDays int) (start, end time.Time, err error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	if startStr == "" && endStr == "" {
		return now.AddDate(0, 0, -30), now, nil
	}
	if endStr == "" {
		end = now
	} else if end, err = parseDate(endStr); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if startStr == "" {
		start = end.AddDate(0, 0, -30)
	} else if start, err = parseDate(startStr); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, errors.New("start_date is after end_date")
	}
	if end.Sub(start) > time.Duration(maxDays)*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds %d days", maxDays)
	}
	return start, end, nil
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w, r, "missing bearer credential")
		return
	}

	start, end, err := dateRange(
		strings.TrimSpace(r.URL.Query().Get("start_date")),
		strings.TrimSpace(r.URL.Query().Get("end_date")),
		maxRangeDays,
	)
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	limit := clampInt(intQuery(r, "limit", 30), 1, 100)

	entries, err := s.entries.GetEntries(r.Context(), ident.UserID,
		start.Format(dateLayout), end.Format(dateLayout), limit)
	if err != nil {
		logError(r.Context(), "get entries failed", err)
		writeBadRequest(w, r, "journal backend reported a data error")
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":  entries,
		"has_more": len(entries) == limit,
	})
}

type upsertEntryRequest struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

func (s server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w, r, "missing bearer credential")
		return
	}

	var req upsertEntryRequest
	if !readJSONLimited(w, r, &req, 1<<20) {
		return
	}
	if req.Date == "" || req.Content == "" {
		writeBadRequest(w, r, "date and content are required")
		return
	}
	if _, err := parseDate(req.Date); err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}

	content := sanitize.Clean(req.Content)
	if len(content) > maxContentBytes {
		writeBadRequest(w, r, "content exceeds 100 KB")
		return
	}

	entry, err := s.entries.UpsertEntry(r.Context(), ident.UserID, req.Date, content)
	if err != nil {
		writeInternal(w, r, "upsert entry failed", err)
		return
	}

	w.Header().Set("Location", "/v1/entries?start_date="+url.QueryEscape(entry.Date)+"&end_date="+url.QueryEscape(entry.Date))
	writeJSON(w, http.StatusCreated, entry)
}

func (s server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ident, ok := identityFromCtx(r.Context())
	if !ok {
		writeUnauthorized(w, r, "missing bearer credential")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < 2 || len(q) > 200 {
		writeBadRequest(w, r, "query q must be between 2 and 200 characters")
		return
	}
	limit := clampInt(intQuery(r, "limit", 10), 1, 10)

	matches, err := s.entries.SearchJournal(r.Context(), ident.UserID, q, limit)
	if err != nil {
		writeInternal(w, r, "search failed", err)
		return
	}
	if matches == nil {
		matches = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matches": matches,
		"count":   len(matches),
	})
}
