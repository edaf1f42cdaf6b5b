package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/ports"
)

// SessionRepository implements ports.SessionStorePort for PostgreSQL
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession persists a fresh session row in the active state
func (r *SessionRepository) CreateSession(ctx context.Context, rec ports.SessionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, prior_theta, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.UserID, rec.PriorTheta, rec.Status, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("creating session %s: %w", rec.ID, err)
	}
	return nil
}

// GetSession loads a session row
func (r *SessionRepository) GetSession(ctx context.Context, sessionID core.SessionID) (ports.SessionRecord, error) {
	var rec ports.SessionRecord
	err := r.db.GetContext(ctx, &rec, `
		SELECT id, user_id, prior_theta, status, started_at, final_theta, final_theta_se, stop_reason
		FROM sessions
		WHERE id = $1
	`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.SessionRecord{}, fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return ports.SessionRecord{}, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	return rec, nil
}

// responseRow is the persistence shape of one log entry
type responseRow struct {
	Sequence  int      `db:"sequence"`
	ItemID    string   `db:"item_id"`
	Correct   bool     `db:"correct"`
	Domain    string   `db:"domain"`
	TimeSpent *float64 `db:"time_spent_seconds"`
}

// AppendResponse appends one graded response to the session's log. The
// (session_id, sequence) primary key rejects concurrent double-appends, and
// the (session_id, item_id) unique index rejects duplicate administrations.
func (r *SessionRepository) AppendResponse(ctx context.Context, sessionID core.SessionID, resp session.Response) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO responses (session_id, sequence, item_id, correct, domain, time_spent_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sessionID, resp.Sequence, resp.ItemID, resp.Correct, resp.Domain, resp.TimeSpent)
	if err != nil {
		return fmt.Errorf("appending response %d to session %s: %w", resp.Sequence, sessionID, err)
	}
	return nil
}

// ListResponses returns the ordered response log for a session
func (r *SessionRepository) ListResponses(ctx context.Context, sessionID core.SessionID) ([]session.Response, error) {
	var rows []responseRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT sequence, item_id, correct, domain, time_spent_seconds
		FROM responses
		WHERE session_id = $1
		ORDER BY sequence
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing responses for session %s: %w", sessionID, err)
	}

	log := make([]session.Response, len(rows))
	for i, row := range rows {
		log[i] = session.Response{
			Sequence:  row.Sequence,
			ItemID:    core.ItemID(row.ItemID),
			Correct:   row.Correct,
			Domain:    catalog.CognitiveDomain(row.Domain),
			TimeSpent: row.TimeSpent,
		}
	}
	return log, nil
}

// MarkCompleted freezes the session row with its final estimates
func (r *SessionRepository) MarkCompleted(ctx context.Context, sessionID core.SessionID, result session.FinalResult) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = 'completed',
		    final_theta = $2,
		    final_theta_se = $3,
		    stop_reason = $4,
		    completed_at = NOW()
		WHERE id = $1
	`, sessionID, result.Theta, result.ThetaSE, string(result.StopReason))
	if err != nil {
		return fmt.Errorf("completing session %s: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, sessionID)
	}
	return nil
}

// ListSeenItems returns every item id the user was served in any session
func (r *SessionRepository) ListSeenItems(ctx context.Context, userID core.UserID) (map[core.ItemID]bool, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT r.item_id
		FROM responses r
		JOIN sessions s ON s.id = r.session_id
		WHERE s.user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing seen items for user %s: %w", userID, err)
	}

	seen := make(map[core.ItemID]bool, len(ids))
	for _, id := range ids {
		seen[core.ItemID(id)] = true
	}
	return seen, nil
}

// LatestFinalTheta returns the final theta of the user's most recently
// completed session, or ok=false when the user has none
func (r *SessionRepository) LatestFinalTheta(ctx context.Context, userID core.UserID) (float64, bool, error) {
	var theta float64
	err := r.db.GetContext(ctx, &theta, `
		SELECT final_theta
		FROM sessions
		WHERE user_id = $1 AND status = 'completed' AND final_theta IS NOT NULL
		ORDER BY completed_at DESC
		LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("loading latest theta for user %s: %w", userID, err)
	}
	return theta, true, nil
}

var _ ports.SessionStorePort = (*SessionRepository)(nil)
