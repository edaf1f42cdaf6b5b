// Package postgres implements the persistence ports over PostgreSQL via
// sqlx. Rows map 1:1 onto the domain types; no ORM layer.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/ports"
)

// ItemRepository implements ports.ItemProviderPort for PostgreSQL
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new PostgreSQL item repository
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, domain, discrimination, difficulty, se_discrimination, se_difficulty, active, quality_flag`

// ListEligibleForUser returns selectable items the user has never been
// served, in id order so selection tie-breaks are stable
func (r *ItemRepository) ListEligibleForUser(ctx context.Context, userID core.UserID) ([]catalog.Item, error) {
	var items []catalog.Item
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+`
		FROM items i
		WHERE i.active = TRUE
		  AND i.quality_flag = 'normal'
		  AND i.discrimination > 0
		  AND NOT EXISTS (
			SELECT 1
			FROM responses r
			JOIN sessions s ON s.id = r.session_id
			WHERE s.user_id = $1 AND r.item_id = i.id
		  )
		ORDER BY i.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing eligible items for user %s: %w", userID, err)
	}
	return items, nil
}

// GetByID loads one item regardless of active state or quality flag
func (r *ItemRepository) GetByID(ctx context.Context, itemID core.ItemID) (catalog.Item, error) {
	var item catalog.Item
	err := r.db.GetContext(ctx, &item, `
		SELECT `+itemColumns+`
		FROM items
		WHERE id = $1
	`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Item{}, fmt.Errorf("%w: %s", core.ErrItemNotFound, itemID)
	}
	if err != nil {
		return catalog.Item{}, fmt.Errorf("loading item %s: %w", itemID, err)
	}
	return item, nil
}

// ListCalibrated returns every item carrying both calibration standard
// errors, including inactive and flagged items
func (r *ItemRepository) ListCalibrated(ctx context.Context) ([]catalog.Item, error) {
	var items []catalog.Item
	err := r.db.SelectContext(ctx, &items, `
		SELECT `+itemColumns+`
		FROM items
		WHERE se_discrimination IS NOT NULL
		  AND se_difficulty IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing calibrated items: %w", err)
	}
	return items, nil
}

// UpsertItem inserts or replaces one calibrated item. Used by seeding and
// calibration import, not by the serving path.
func (r *ItemRepository) UpsertItem(ctx context.Context, item catalog.Item) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO items (id, domain, discrimination, difficulty, se_discrimination, se_difficulty, active, quality_flag)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			domain = EXCLUDED.domain,
			discrimination = EXCLUDED.discrimination,
			difficulty = EXCLUDED.difficulty,
			se_discrimination = EXCLUDED.se_discrimination,
			se_difficulty = EXCLUDED.se_difficulty,
			active = EXCLUDED.active,
			quality_flag = EXCLUDED.quality_flag
	`, item.ID, item.Domain, item.Discrimination, item.Difficulty,
		item.SEDiscrim, item.SEDifficulty, item.Active, item.Quality)
	if err != nil {
		return fmt.Errorf("upserting item %s: %w", item.ID, err)
	}
	return nil
}

var _ ports.ItemProviderPort = (*ItemRepository)(nil)
