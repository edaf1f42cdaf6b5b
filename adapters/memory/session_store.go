package memory

import (
	"context"
	"sort"
	"sync"

	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/ports"
)

// SessionStore is an in-memory session and response-log store
type SessionStore struct {
	mu        sync.RWMutex
	sessions  map[core.SessionID]ports.SessionRecord
	logs      map[core.SessionID][]session.Response
	completed map[core.SessionID]session.FinalResult
	// completion order per user, newest last
	userOrder map[core.UserID][]core.SessionID
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:  make(map[core.SessionID]ports.SessionRecord),
		logs:      make(map[core.SessionID][]session.Response),
		completed: make(map[core.SessionID]session.FinalResult),
		userOrder: make(map[core.UserID][]core.SessionID),
	}
}

// CreateSession implements ports.SessionStorePort
func (s *SessionStore) CreateSession(ctx context.Context, rec ports.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[rec.ID]; exists {
		return core.NewValidationError("session_id", "session already exists")
	}
	s.sessions[rec.ID] = rec
	return nil
}

// GetSession implements ports.SessionStorePort
func (s *SessionStore) GetSession(ctx context.Context, sessionID core.SessionID) (ports.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return ports.SessionRecord{}, core.ErrSessionNotFound
	}
	return rec, nil
}

// AppendResponse implements ports.SessionStorePort
func (s *SessionStore) AppendResponse(ctx context.Context, sessionID core.SessionID, resp session.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return core.ErrSessionNotFound
	}
	s.logs[sessionID] = append(s.logs[sessionID], resp)
	return nil
}

// ListResponses implements ports.SessionStorePort
func (s *SessionStore) ListResponses(ctx context.Context, sessionID core.SessionID) ([]session.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, core.ErrSessionNotFound
	}
	log := make([]session.Response, len(s.logs[sessionID]))
	copy(log, s.logs[sessionID])
	sort.Slice(log, func(i, j int) bool { return log[i].Sequence < log[j].Sequence })
	return log, nil
}

// MarkCompleted implements ports.SessionStorePort
func (s *SessionStore) MarkCompleted(ctx context.Context, sessionID core.SessionID, result session.FinalResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return core.ErrSessionNotFound
	}
	if rec.Status == "completed" {
		return core.ErrSessionFinalized
	}

	theta := result.Theta
	thetaSE := result.ThetaSE
	reason := string(result.StopReason)
	rec.Status = "completed"
	rec.FinalTheta = &theta
	rec.FinalThetaSE = &thetaSE
	rec.StopReason = &reason

	s.sessions[sessionID] = rec
	s.completed[sessionID] = result
	s.userOrder[rec.UserID] = append(s.userOrder[rec.UserID], sessionID)
	return nil
}

// ListSeenItems implements ports.SessionStorePort
func (s *SessionStore) ListSeenItems(ctx context.Context, userID core.UserID) (map[core.ItemID]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[core.ItemID]bool)
	for id, rec := range s.sessions {
		if rec.UserID != userID {
			continue
		}
		for _, r := range s.logs[id] {
			seen[r.ItemID] = true
		}
	}
	return seen, nil
}

// LatestFinalTheta implements ports.SessionStorePort
func (s *SessionStore) LatestFinalTheta(ctx context.Context, userID core.UserID) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.userOrder[userID]
	if len(order) == 0 {
		return 0, false, nil
	}
	last := s.sessions[order[len(order)-1]]
	if last.FinalTheta == nil {
		return 0, false, nil
	}
	return *last.FinalTheta, true, nil
}

var _ ports.SessionStorePort = (*SessionStore)(nil)
