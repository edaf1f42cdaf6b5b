package ports

import (
	"context"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
)

// ItemProviderPort is the engine's view of the calibrated item pool.
// Implementations must be safe for concurrent readers; the engine never
// mutates the pool through this port.
type ItemProviderPort interface {
	// ListEligibleForUser returns the items eligible for CAT selection for a
	// user: active, quality flag normal, well-formed IRT parameters, and not
	// seen by this user in any prior session. Pure read.
	ListEligibleForUser(ctx context.Context, userID core.UserID) ([]catalog.Item, error)

	// GetByID returns a single item by id, including inactive or flagged
	// items (replay needs parameters for items no longer selectable).
	// Returns core.ErrItemNotFound when the item does not exist.
	GetByID(ctx context.Context, itemID core.ItemID) (catalog.Item, error)

	// ListCalibrated returns every item carrying calibration standard errors,
	// regardless of active state. Used by the readiness evaluator.
	ListCalibrated(ctx context.Context) ([]catalog.Item, error)
}
