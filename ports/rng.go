package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// SessionStream creates a deterministic RNG stream scoped to one session's
	// selection sequence. Randomesque sampling must draw from this stream so a
	// replayed session reproduces the same item sequence for the same seed.
	SessionStream(ctx context.Context, sessionID, stage string, baseSeed int64) (*rand.Rand, error)
}
