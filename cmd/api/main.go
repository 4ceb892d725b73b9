package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"journalgate/internal/config"
	"journalgate/internal/db"
	"journalgate/internal/httpapi"
	"journalgate/internal/insights"
	"journalgate/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	pg := store.NewPostgres(pool)

	var summarizer insights.Summarizer
	if cfg.OpenAIAPIKey != "" {
		summarizer = insights.NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Keys:       pg,
			Entries:    pg,
			Audit:      pg,
			Summarizer: summarizer,

			PublicBaseURL: cfg.PublicBaseURL,

			ReadRequestsPerMinute:  cfg.ReadRequestsPerMinute,
			WriteRequestsPerMinute: cfg.WriteRequestsPerMinute,

			SessionTimeout:    time.Duration(cfg.SessionTimeoutSeconds) * time.Second,
			SessionHeartbeat:  time.Duration(cfg.SessionHeartbeatSeconds) * time.Second,
			SessionRevalidate: time.Duration(cfg.SessionRevalidateSeconds) * time.Second,
			SessionCallBudget: cfg.SessionToolCallBudget,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("gateway listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
