// Package migrations applies the embedded schema migrations in order.
// Each applied version is recorded with a content checksum so a modified
// migration file is detected instead of silently skipped.
package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
)

//go:embed *.sql
var migrationFS embed.FS

// Migrator handles database schema migrations
type Migrator struct {
	db *sql.DB
}

// NewMigrator creates a new migrator
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

type migrationFile struct {
	Version  string
	Name     string
	SQL      string
	Checksum string
}

// Up applies every pending migration in version order
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	files, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, file := range files {
		if checksum, ok := applied[file.Version]; ok {
			if checksum != file.Checksum {
				return fmt.Errorf("migration %s was modified after being applied", file.Version)
			}
			continue
		}
		if err := m.apply(ctx, file); err != nil {
			return fmt.Errorf("applying migration %s: %w", file.Version, err)
		}
	}
	return nil
}

// Status reports each migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]string, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	files, err := loadMigrations()
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(files))
	for _, file := range files {
		state := "pending"
		if _, ok := applied[file.Version]; ok {
			state = "applied"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s", file.Version, file.Name, state))
	}
	return lines, nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			checksum   TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, err
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, file migrationFile) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, file.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)",
		file.Version, file.Checksum); err != nil {
		return err
	}
	return tx.Commit()
}

// loadMigrations reads the embedded .sql files, named NNN_description.sql,
// sorted by version
func loadMigrations() ([]migrationFile, error) {
	entries, err := migrationFS.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var files []migrationFile
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, rest, found := strings.Cut(name, "_")
		if !found {
			return nil, fmt.Errorf("migration file %q does not match NNN_description.sql", name)
		}
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		files = append(files, migrationFile{
			Version:  version,
			Name:     strings.TrimSuffix(rest, ".sql"),
			SQL:      string(data),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(data)),
		})
	}
	if len(files) == 0 {
		return nil, errors.New("no embedded migration files found")
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}
