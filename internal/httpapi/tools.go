package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"journalgate/internal/insights"
	"journalgate/internal/sanitize"
)

const (
	maxAppendBytes   = 5 * 1024
	maxSummarizeDays = 31
)

// toolDefinition is a static registry entry; the registry is fixed at
// process start.
type toolDefinition struct {
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	InputSchema   map[string]any `json:"inputSchema"`
	RequiredScope string         `json:"-"`
	RiskTier      string         `json:"-"`

	run func(ctx context.Context, s server, sess *mcpSession, args json.RawMessage) (any, error)
}

// toolInputError marks executor-side validation failures so the dispatcher
// can map them to an invalid-params protocol error instead of an internal
// one.
type toolInputError struct {
	msg string
}

func (e *toolInputError) Error() string { return e.msg }

func inputErrorf(format string, args ...any) error {
	return &toolInputError{msg: fmt.Sprintf(format, args...)}
}

func newToolRegistry() []toolDefinition {
	dateProp := map[string]any{"type": "string", "description": "Calendar day, YYYY-MM-DD"}
	return []toolDefinition{
		{
			Name:          "list_entries",
			Description:   "List journal entries in a date range.",
			RequiredScope: scopeReadEntries,
			RiskTier:      "low",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_date": dateProp,
					"end_date":   dateProp,
					"limit":      map[string]any{"type": "integer"},
				},
			},
			run: runListEntries,
		},
		{
			Name:          "append_entry",
			Description:   "Append text to the journal entry for a day, creating it if absent.",
			RequiredScope: scopeWriteEntries,
			RiskTier:      "medium",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date":    dateProp,
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"date", "content"},
			},
			run: runAppendEntry,
		},
		{
			Name:          "search_journal",
			Description:   "Search journal entries by text.",
			RequiredScope: scopeReadEntries,
			RiskTier:      "low",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"limit": map[string]any{"type": "integer"},
				},
				"required": []string{"query"},
			},
			run: runSearchJournal,
		},
		{
			Name:          "summarize_period",
			Description:   "Summarize journal entries over a period of up to 31 days.",
			RequiredScope: scopeReadInsights,
			RiskTier:      "medium",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start_date": dateProp,
					"end_date":   dateProp,
				},
				"required": []string{"start_date", "end_date"},
			},
			run: runSummarizePeriod,
		},
	}
}

func (s server) toolByName(name string) (toolDefinition, bool) {
	for _, t := range s.tools {
		if t.Name == name {
			return t, true
		}
	}
	return toolDefinition{}, false
}

// visibleTools returns the registry subset whose required scope is held by
// the session.
func (s server) visibleTools(sess *mcpSession) []toolDefinition {
	out := make([]toolDefinition, 0, len(s.tools))
	for _, t := range s.tools {
		if sess.hasScope(t.RequiredScope) {
			out = append(out, t)
		}
	}
	return out
}

func decodeToolArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return inputErrorf("invalid arguments: %v", err)
	}
	return nil
}

type listEntriesArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Limit     int    `json:"limit"`
}

func runListEntries(ctx context.Context, s server, sess *mcpSession, args json.RawMessage) (any, error) {
	var a listEntriesArgs
	if err := decodeToolArgs(args, &a); err != nil {
		return nil, err
	}
	start, end, err := dateRange(strings.TrimSpace(a.StartDate), strings.TrimSpace(a.EndDate), maxRangeDays)
	if err != nil {
		return nil, inputErrorf("%v", err)
	}
	limit := a.Limit
	if limit == 0 {
		limit = 30
	}
	limit = clampInt(limit, 1, 100)

	entries, err := s.entries.GetEntries(ctx, sess.userID, start.Format(dateLayout), end.Format(dateLayout), limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": entries, "count": len(entries)}, nil
}

type appendEntryArgs struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

func runAppendEntry(ctx context.Context, s server, sess *mcpSession, args json.RawMessage) (any, error) {
	var a appendEntryArgs
	if err := decodeToolArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Date == "" || a.Content == "" {
		return nil, inputErrorf("date and content are required")
	}
	if _, err := parseDate(a.Date); err != nil {
		return nil, inputErrorf("%v", err)
	}
	content := sanitize.Clean(a.Content)
	if len(content) > maxAppendBytes {
		return nil, inputErrorf("content exceeds 5 KB")
	}

	// Append to any existing entry for the day; the persistence engine
	// only exposes an upsert.
	existing, err := s.entries.GetEntries(ctx, sess.userID, a.Date, a.Date, 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 && existing[0].Content != "" {
		content = existing[0].Content + "\n\n" + content
	}
	if len(content) > maxContentBytes {
		return nil, inputErrorf("entry would exceed 100 KB")
	}

	entry, err := s.entries.UpsertEntry(ctx, sess.userID, a.Date, content)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

type searchJournalArgs struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func runSearchJournal(ctx context.Context, s server, sess *mcpSession, args json.RawMessage) (any, error) {
	var a searchJournalArgs
	if err := decodeToolArgs(args, &a); err != nil {
		return nil, err
	}
	q := strings.TrimSpace(a.Query)
	if len(q) < 2 || len(q) > 200 {
		return nil, inputErrorf("query must be between 2 and 200 characters")
	}
	limit := a.Limit
	if limit == 0 {
		limit = 10
	}
	limit = clampInt(limit, 1, 10)

	matches, err := s.entries.SearchJournal(ctx, sess.userID, q, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"matches": matches, "count": len(matches)}, nil
}

type summarizePeriodArgs struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func runSummarizePeriod(ctx context.Context, s server, sess *mcpSession, args json.RawMessage) (any, error) {
	var a summarizePeriodArgs
	if err := decodeToolArgs(args, &a); err != nil {
		return nil, err
	}
	if a.StartDate == "" || a.EndDate == "" {
		return nil, inputErrorf("start_date and end_date are required")
	}
	start, err := parseDate(a.StartDate)
	if err != nil {
		return nil, inputErrorf("%v", err)
	}
	end, err := parseDate(a.EndDate)
	if err != nil {
		return nil, inputErrorf("%v", err)
	}
	if start.After(end) {
		return nil, inputErrorf("start_date is after end_date")
	}
	if end.Sub(start) > maxSummarizeDays*24*time.Hour {
		return nil, inputErrorf("period exceeds %d days", maxSummarizeDays)
	}
	if s.summarizer == nil {
		return nil, insights.ErrNotConfigured
	}

	entries, err := s.entries.GetEntries(ctx, sess.userID, a.StartDate, a.EndDate, 100)
	if err != nil {
		return nil, err
	}
	summary, err := s.summarizer.Summarize(ctx, entries)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"summary":    summary,
		"start_date": a.StartDate,
		"end_date":   a.EndDate,
		"entries":    len(entries),
	}, nil
}
