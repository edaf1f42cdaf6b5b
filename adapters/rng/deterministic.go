// Package rng provides the deterministic seeded-stream adapter. Stream
// seeds are derived by hashing the stream name into the base seed, so the
// same (name, seed) pair always reproduces the same draw sequence.
package rng

import (
	"context"
	"hash/fnv"
	"math/rand"

	"adaptiq/ports"
)

// Deterministic implements ports.RNGPort with FNV-derived stream seeds
type Deterministic struct{}

// NewDeterministic creates the adapter
func NewDeterministic() *Deterministic {
	return &Deterministic{}
}

// SeededStream implements ports.RNGPort
func (d *Deterministic) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(name, seed))), nil
}

// SessionStream implements ports.RNGPort
func (d *Deterministic) SessionStream(ctx context.Context, sessionID, stage string, baseSeed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(deriveSeed(sessionID+"/"+stage, baseSeed))), nil
}

func deriveSeed(name string, base int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64()) ^ base
}

var _ ports.RNGPort = (*Deterministic)(nil)
