package httpapi

import (
	"time"

	"journalgate/internal/insights"
	"journalgate/internal/store"
)

type Deps struct {
	Keys       store.KeyStore
	Entries    store.EntryStore
	Audit      store.AuditSink
	Summarizer insights.Summarizer

	PublicBaseURL string

	ReadRequestsPerMinute  int
	WriteRequestsPerMinute int

	SessionTimeout    time.Duration
	SessionHeartbeat  time.Duration
	SessionRevalidate time.Duration
	SessionCallBudget int
}
