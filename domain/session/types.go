package session

import (
	"fmt"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
)

// StopReason explains why an adaptive test terminated
type StopReason string

const (
	StopSEThreshold   StopReason = "se_threshold"
	StopMaxItems      StopReason = "max_items"
	StopThetaStable   StopReason = "theta_stable"
	StopPoolExhausted StopReason = "item_pool_exhausted"
)

// Response is one graded administration, stamped with its position in the log
type Response struct {
	Sequence  int                     `json:"sequence"`
	ItemID    core.ItemID             `json:"item_id"`
	Correct   bool                    `json:"correct"`
	Domain    catalog.CognitiveDomain `json:"domain"`
	TimeSpent *float64                `json:"time_spent_seconds,omitempty"`
}

// State is the purely in-memory fold over a session's response log.
// It is owned by the engine; persistence rows live with the collaborator.
// A State is not safe for concurrent use - callers serialise per session.
type State struct {
	SessionID  core.SessionID
	UserID     core.UserID
	PriorTheta float64

	Theta   float64
	ThetaSE float64

	Administered   []core.ItemID
	DomainCoverage catalog.DomainCoverage
	ThetaHistory   []float64
	CorrectCount   int

	StartedAt core.Timestamp

	Stopped    bool
	StopReason StopReason
	Finalized  bool
}

// NumItems returns the number of administered items
func (s *State) NumItems() int {
	return len(s.Administered)
}

// WasAdministered reports whether the item already appears in this session
func (s *State) WasAdministered(itemID core.ItemID) bool {
	for _, id := range s.Administered {
		if id == itemID {
			return true
		}
	}
	return false
}

// AdministeredSet returns the administered ids as a lookup set
func (s *State) AdministeredSet() map[core.ItemID]bool {
	set := make(map[core.ItemID]bool, len(s.Administered))
	for _, id := range s.Administered {
		set[id] = true
	}
	return set
}

// CheckInvariants verifies the structural invariants that must hold after
// every processed response. Returns the first violation found.
func (s *State) CheckInvariants() error {
	if len(s.ThetaHistory) != len(s.Administered) {
		return fmt.Errorf("theta history length %d != administered length %d",
			len(s.ThetaHistory), len(s.Administered))
	}
	if s.DomainCoverage.Total() != len(s.Administered) {
		return fmt.Errorf("domain coverage total %d != administered length %d",
			s.DomainCoverage.Total(), len(s.Administered))
	}
	seen := make(map[core.ItemID]bool, len(s.Administered))
	for _, id := range s.Administered {
		if seen[id] {
			return fmt.Errorf("duplicate administered item %s", id)
		}
		seen[id] = true
	}
	if len(s.Administered) >= 1 && s.ThetaSE <= 0 {
		return fmt.Errorf("theta SE %.6f must be positive after first response", s.ThetaSE)
	}
	for d, n := range s.DomainCoverage {
		if n < 0 {
			return fmt.Errorf("negative coverage %d for domain %s", n, d)
		}
	}
	return nil
}

// StepResult is returned by the engine after each processed response
type StepResult struct {
	Theta             float64
	ThetaSE           float64
	ItemsAdministered int
	ShouldStop        bool
	StopReason        StopReason
}

// DomainScore summarises performance within one cognitive domain
type DomainScore struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Pct     float64 `json:"pct"`
}

// FinalResult is produced exactly once when a session is finalized
type FinalResult struct {
	SessionID         core.SessionID
	Theta             float64
	ThetaSE           float64
	ItemsAdministered int
	CorrectCount      int
	DomainScores      map[catalog.CognitiveDomain]DomainScore
	StopReason        StopReason
}
