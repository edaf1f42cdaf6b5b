// Command migrate applies the schema migrations and optionally seeds the
// items table with a synthetic calibrated bank for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"adaptiq/adapters/db/postgres/migrations"
	"adaptiq/adapters/postgres"
	"adaptiq/internal/simulation"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <up|status|seed> [items-per-domain]")
	}
	command := os.Args[1]

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	migrator := migrations.NewMigrator(db.DB)

	switch command {
	case "up":
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations applied")

	case "status":
		lines, err := migrator.Status(ctx)
		if err != nil {
			log.Fatalf("Status failed: %v", err)
		}
		for _, line := range lines {
			fmt.Println(line)
		}

	case "seed":
		perDomain := 50
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n < 1 {
				log.Fatalf("Invalid items-per-domain %q", os.Args[2])
			}
			perDomain = n
		}
		if err := migrator.Up(ctx); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		if err := seedItems(ctx, db, perDomain); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}

	default:
		log.Fatalf("Unknown command %q (want up, status, or seed)", command)
	}
}

// seedItems fills the items table with a deterministic calibrated bank
func seedItems(ctx context.Context, db *sqlx.DB, perDomain int) error {
	repo := postgres.NewItemRepository(db)
	bank := simulation.GenerateBank(simulation.BankConfig{
		ItemsPerDomain:     perDomain,
		Seed:               1,
		WithCalibrationSEs: true,
	})
	for _, item := range bank {
		if err := repo.UpsertItem(ctx, item); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d items (%d per domain)", len(bank), perDomain)
	return nil
}
