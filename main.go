// adaptiq serves the adaptive IQ assessment API: session delivery over
// PostgreSQL-backed item and session storage.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"adaptiq/adapters/api"
	"adaptiq/adapters/db/postgres/migrations"
	"adaptiq/adapters/postgres"
	"adaptiq/adapters/rng"
	"adaptiq/app"
	"adaptiq/internal"
	"adaptiq/internal/config"
	"adaptiq/internal/readiness"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	logger := internal.NewDefaultLogger()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.NewMigrator(db.DB).Up(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	items := postgres.NewItemRepository(db)
	sessions := postgres.NewSessionRepository(db)

	assessment := app.NewAssessmentService(items, sessions, rng.NewDeterministic(), cfg.CAT, logger)
	readinessEval := readiness.NewEvaluator(cfg.Readiness, items)

	// Refuse to start serving when the item pool cannot support CAT
	report, err := readinessEval.Evaluate(ctx)
	if err != nil {
		log.Fatalf("Readiness evaluation failed: %v", err)
	}
	if !report.Ready {
		logger.Warn("item pool is not ready for adaptive testing; sessions may exhaust early")
		for _, d := range report.Domains {
			for _, reason := range d.Reasons {
				logger.Warn("readiness: domain %s: %s", d.Domain, reason)
			}
		}
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewServer(assessment, readinessEval, logger).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("listening on :%s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Shutdown failed: %v", err)
	}
}
