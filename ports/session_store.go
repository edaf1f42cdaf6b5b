package ports

import (
	"context"

	"adaptiq/domain/core"
	"adaptiq/domain/session"
)

// SessionRecord is the persistence-layer row for an adaptive session.
// The engine never treats it as authoritative state; state is rebuilt by
// folding the response log.
type SessionRecord struct {
	ID         core.SessionID `db:"id"`
	UserID     core.UserID    `db:"user_id"`
	PriorTheta float64        `db:"prior_theta"`
	Status     string         `db:"status"`
	StartedAt  core.Timestamp `db:"started_at"`

	FinalTheta   *float64 `db:"final_theta"`
	FinalThetaSE *float64 `db:"final_theta_se"`
	StopReason   *string  `db:"stop_reason"`
}

// SessionStorePort owns persistence of sessions and their append-only
// response logs. The engine consumes it for replay and final results.
type SessionStorePort interface {
	// CreateSession persists a fresh session row in the active state
	CreateSession(ctx context.Context, rec SessionRecord) error

	// GetSession loads a session row.
	// Returns core.ErrSessionNotFound when absent.
	GetSession(ctx context.Context, sessionID core.SessionID) (SessionRecord, error)

	// AppendResponse appends one graded response to the session's log.
	// Sequence numbers are assigned by the caller and must be dense and
	// strictly increasing per session.
	AppendResponse(ctx context.Context, sessionID core.SessionID, resp session.Response) error

	// ListResponses returns the ordered response log for a session
	ListResponses(ctx context.Context, sessionID core.SessionID) ([]session.Response, error)

	// MarkCompleted freezes the session row with its final estimates
	MarkCompleted(ctx context.Context, sessionID core.SessionID, result session.FinalResult) error

	// ListSeenItems returns every item id the user has been served across
	// all sessions, completed or not. Feeds the eligibility filter.
	ListSeenItems(ctx context.Context, userID core.UserID) (map[core.ItemID]bool, error)

	// LatestFinalTheta returns the final theta of the user's most recently
	// completed session, or (0, false) when none exists. Used as the prior.
	LatestFinalTheta(ctx context.Context, userID core.UserID) (float64, bool, error)
}
