package config

import "testing"

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("JOURNAL_DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without JOURNAL_DATABASE_URL")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JOURNAL_DATABASE_URL", "postgres://localhost/journal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr=%q, want :8080", cfg.HTTPAddr)
	}
	if cfg.ReadRequestsPerMinute != 120 || cfg.WriteRequestsPerMinute != 60 {
		t.Fatalf("rate defaults=(%d, %d), want (120, 60)", cfg.ReadRequestsPerMinute, cfg.WriteRequestsPerMinute)
	}
	if cfg.SessionTimeoutSeconds != 300 || cfg.SessionToolCallBudget != 20 {
		t.Fatalf("session defaults=(%d, %d), want (300, 20)", cfg.SessionTimeoutSeconds, cfg.SessionToolCallBudget)
	}
}

func TestLoadClampsOutOfRangeValues(t *testing.T) {
	t.Setenv("JOURNAL_DATABASE_URL", "postgres://localhost/journal")
	t.Setenv("JOURNAL_READ_REQUESTS_PER_MINUTE", "-5")
	t.Setenv("JOURNAL_SESSION_TIMEOUT_SECONDS", "1")
	t.Setenv("JOURNAL_SESSION_REVALIDATE_SECONDS", "5")
	t.Setenv("JOURNAL_SESSION_HEARTBEAT_SECONDS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.ReadRequestsPerMinute != 1 {
		t.Fatalf("ReadRequestsPerMinute=%d, want 1", cfg.ReadRequestsPerMinute)
	}
	if cfg.SessionTimeoutSeconds != 30 {
		t.Fatalf("SessionTimeoutSeconds=%d, want 30", cfg.SessionTimeoutSeconds)
	}
	// Revalidation can never fire more often than the heartbeat.
	if cfg.SessionRevalidateSeconds != 30 {
		t.Fatalf("SessionRevalidateSeconds=%d, want 30", cfg.SessionRevalidateSeconds)
	}
}
