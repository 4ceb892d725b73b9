package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL   string
	HTTPAddr      string
	PublicBaseURL string

	ReadRequestsPerMinute  int
	WriteRequestsPerMinute int

	SessionTimeoutSeconds    int
	SessionHeartbeatSeconds  int
	SessionRevalidateSeconds int
	SessionToolCallBudget    int

	OpenAIAPIKey string
	OpenAIModel  string
}

func Load() (Config, error) {
	// Optional: load local .env for development. Missing file is fine.
	_ = godotenv.Load()

	readLimit := getenvIntDefault("JOURNAL_READ_REQUESTS_PER_MINUTE", 120)
	if readLimit < 1 {
		readLimit = 1
	}
	writeLimit := getenvIntDefault("JOURNAL_WRITE_REQUESTS_PER_MINUTE", 60)
	if writeLimit < 1 {
		writeLimit = 1
	}

	sessionTimeout := getenvIntDefault("JOURNAL_SESSION_TIMEOUT_SECONDS", 300)
	if sessionTimeout < 30 {
		sessionTimeout = 30
	}
	heartbeat := getenvIntDefault("JOURNAL_SESSION_HEARTBEAT_SECONDS", 30)
	if heartbeat < 1 {
		heartbeat = 1
	}
	revalidate := getenvIntDefault("JOURNAL_SESSION_REVALIDATE_SECONDS", 60)
	if revalidate < heartbeat {
		revalidate = heartbeat
	}
	budget := getenvIntDefault("JOURNAL_SESSION_TOOL_CALL_BUDGET", 20)
	if budget < 1 {
		budget = 1
	}

	cfg := Config{
		DatabaseURL:   os.Getenv("JOURNAL_DATABASE_URL"),
		HTTPAddr:      getenvDefault("JOURNAL_HTTP_ADDR", ":8080"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("JOURNAL_PUBLIC_BASE_URL")), "/"),

		ReadRequestsPerMinute:  readLimit,
		WriteRequestsPerMinute: writeLimit,

		SessionTimeoutSeconds:    sessionTimeout,
		SessionHeartbeatSeconds:  heartbeat,
		SessionRevalidateSeconds: revalidate,
		SessionToolCallBudget:    budget,

		OpenAIAPIKey: strings.TrimSpace(os.Getenv("JOURNAL_OPENAI_API_KEY")),
		OpenAIModel:  getenvDefault("JOURNAL_OPENAI_MODEL", "gpt-4o-mini"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("JOURNAL_DATABASE_URL is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvIntDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
