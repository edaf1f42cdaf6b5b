package app

import (
	"context"
	"fmt"
	"time"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/internal"
	"adaptiq/internal/config"
	"adaptiq/internal/engine"
	"adaptiq/internal/scoring"
	"adaptiq/internal/selector"
	"adaptiq/ports"
)

// AssessmentService orchestrates adaptive test delivery: session lifecycle,
// item serving, response grading, and final scoring. It holds no per-session
// state; every request rebuilds state by replaying the persisted log, so any
// instance can serve any request.
type AssessmentService struct {
	items    ports.ItemProviderPort
	store    ports.SessionStorePort
	rngPort  ports.RNGPort
	engine   *engine.Engine
	selector *selector.Selector
	cfg      config.CATConfig
	logger   *internal.Logger
}

// NewAssessmentService creates the service with its engine and selector
func NewAssessmentService(
	items ports.ItemProviderPort,
	store ports.SessionStorePort,
	rngPort ports.RNGPort,
	cfg config.CATConfig,
	logger *internal.Logger,
) *AssessmentService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &AssessmentService{
		items:    items,
		store:    store,
		rngPort:  rngPort,
		engine:   engine.New(cfg, logger),
		selector: selector.New(cfg),
		cfg:      cfg,
		logger:   logger.WithPrefix("assessment:"),
	}
}

// ServedItem is the client-facing view of an item to administer. IRT
// parameters never leave the server.
type ServedItem struct {
	ID     core.ItemID             `json:"id"`
	Domain catalog.CognitiveDomain `json:"domain"`
}

// Progress reports how far a session has advanced without exposing the
// running ability estimate. The current standard error and domain coverage
// are safe to reveal; theta itself is not.
type Progress struct {
	SessionID         core.SessionID         `json:"session_id"`
	Status            string                 `json:"status"`
	ItemsAdministered int                    `json:"items_administered"`
	MaxItems          int                    `json:"max_items"`
	DomainCoverage    catalog.DomainCoverage `json:"domain_coverage"`
	CurrentSE         float64                `json:"current_se"`
	ElapsedSeconds    float64                `json:"elapsed_seconds"`
}

// FinalReport is produced once when a session completes
type FinalReport struct {
	SessionID         core.SessionID                                  `json:"session_id"`
	Score             scoring.Score                                   `json:"score"`
	ItemsAdministered int                                             `json:"items_administered"`
	CorrectCount      int                                             `json:"correct_count"`
	DomainScores      map[catalog.CognitiveDomain]session.DomainScore `json:"domain_scores"`
	StopReason        session.StopReason                              `json:"stop_reason"`
}

// BeginSessionResult carries the new session id, the starting ability
// estimate, and the first item to serve
type BeginSessionResult struct {
	SessionID core.SessionID `json:"session_id"`
	Theta     float64        `json:"theta"`
	ThetaSE   float64        `json:"theta_se"`
	FirstItem ServedItem     `json:"first_item"`
}

// BeginSession starts an adaptive test for a user. The prior ability comes
// from the user's most recently completed session when one exists.
func (s *AssessmentService) BeginSession(ctx context.Context, userID core.UserID) (*BeginSessionResult, error) {
	prior, found, err := s.store.LatestFinalTheta(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading prior for user %s: %w", userID, err)
	}
	if !found {
		prior = 0
	}

	sessionID := core.NewSessionID()
	sess := s.engine.Initialize(userID, sessionID, prior)

	first, err := s.selectNext(ctx, sess)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, fmt.Errorf("no eligible items for user %s: %w", userID, core.ErrPoolExhausted)
	}

	rec := ports.SessionRecord{
		ID:         sessionID,
		UserID:     userID,
		PriorTheta: prior,
		Status:     "active",
		StartedAt:  sess.State.StartedAt,
	}
	if err := s.store.CreateSession(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	s.logger.Info("session %s started for user %s (prior theta %.3f)", sessionID, userID, prior)
	return &BeginSessionResult{
		SessionID: sessionID,
		Theta:     sess.State.Theta,
		ThetaSE:   sess.State.ThetaSE,
		FirstItem: *first,
	}, nil
}

// SubmitInput is one graded answer from the client
type SubmitInput struct {
	SessionID core.SessionID
	ItemID    core.ItemID
	Correct   bool
	TimeSpent *float64
}

// SubmitResult is either the next item to serve or the final report. Theta
// and ThetaSE carry the post-response estimate back to the collaborator.
type SubmitResult struct {
	Completed bool         `json:"completed"`
	NextItem  *ServedItem  `json:"next_item,omitempty"`
	Theta     float64      `json:"theta"`
	ThetaSE   float64      `json:"theta_se"`
	Progress  Progress     `json:"progress"`
	Final     *FinalReport `json:"final,omitempty"`
}

// SubmitResponse grades one answer. State is rebuilt from the persisted log,
// the response is processed and appended, and either the next item or the
// final report comes back. Completion is triggered by the stopping rules or
// by pool exhaustion.
func (s *AssessmentService) SubmitResponse(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	rec, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if rec.Status == "completed" {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionFinalized, in.SessionID)
	}

	log, err := s.store.ListResponses(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	sess, err := s.engine.Replay(ctx, s.items, rec.UserID, rec.ID, rec.PriorTheta, log)
	if err != nil {
		return nil, fmt.Errorf("replaying session %s: %w", in.SessionID, err)
	}

	// A session can be stopped but not yet marked completed if a prior
	// completion attempt failed mid-way. Finish it instead of erroring.
	if sess.State.Stopped {
		final, err := s.complete(ctx, sess, sess.State.StopReason)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			Completed: true,
			Theta:     sess.State.Theta,
			ThetaSE:   sess.State.ThetaSE,
			Progress:  s.progress(rec, "completed", sess.State),
			Final:     final,
		}, nil
	}

	item, err := s.items.GetByID(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	input := engine.ResponseInput{
		ItemID:    in.ItemID,
		Correct:   in.Correct,
		Domain:    item.Domain,
		TimeSpent: in.TimeSpent,
	}
	if item.HasValidParameters() {
		input.Discrimination = &item.Discrimination
		input.Difficulty = &item.Difficulty
	}

	step, err := s.engine.ProcessResponse(sess, input)
	if err != nil {
		return nil, err
	}

	logged := sess.Log()
	if err := s.store.AppendResponse(ctx, in.SessionID, logged[len(logged)-1]); err != nil {
		return nil, fmt.Errorf("persisting response: %w", err)
	}

	if step.ShouldStop {
		final, err := s.complete(ctx, sess, step.StopReason)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			Completed: true,
			Theta:     step.Theta,
			ThetaSE:   step.ThetaSE,
			Progress:  s.progress(rec, "completed", sess.State),
			Final:     final,
		}, nil
	}

	next, err := s.selectNext(ctx, sess)
	if err != nil {
		return nil, err
	}
	if next == nil {
		final, err := s.completeExhausted(ctx, sess)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{
			Completed: true,
			Theta:     step.Theta,
			ThetaSE:   step.ThetaSE,
			Progress:  s.progress(rec, "completed", sess.State),
			Final:     final,
		}, nil
	}

	return &SubmitResult{
		NextItem: next,
		Theta:    step.Theta,
		ThetaSE:  step.ThetaSE,
		Progress: s.progress(rec, "active", sess.State),
	}, nil
}

// GetProgress reports session progress without revealing the ability
// estimate. Coverage and the current standard error come from replaying the
// persisted log, the same fold every other request uses.
func (s *AssessmentService) GetProgress(ctx context.Context, sessionID core.SessionID) (*Progress, error) {
	rec, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	log, err := s.store.ListResponses(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess, err := s.engine.Replay(ctx, s.items, rec.UserID, rec.ID, rec.PriorTheta, log)
	if err != nil {
		return nil, fmt.Errorf("replaying session %s: %w", sessionID, err)
	}
	p := s.progress(rec, rec.Status, sess.State)
	return &p, nil
}

// GetResult returns the final report of a completed session
func (s *AssessmentService) GetResult(ctx context.Context, sessionID core.SessionID) (*FinalReport, error) {
	rec, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec.Status != "completed" || rec.FinalTheta == nil || rec.FinalThetaSE == nil {
		return nil, fmt.Errorf("session %s is not completed: %w", sessionID, core.ErrNotFound)
	}

	log, err := s.store.ListResponses(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess, err := s.engine.Replay(ctx, s.items, rec.UserID, rec.ID, rec.PriorTheta, log)
	if err != nil {
		return nil, err
	}

	reason := session.StopReason("")
	if rec.StopReason != nil {
		reason = session.StopReason(*rec.StopReason)
	}
	result, err := s.engine.Finalize(sess, reason)
	if err != nil {
		return nil, err
	}
	return s.report(result, *rec.FinalTheta, *rec.FinalThetaSE), nil
}

// selectNext picks the next item for the session, or nil when the pool is
// exhausted for this user
func (s *AssessmentService) selectNext(ctx context.Context, sess *engine.Session) (*ServedItem, error) {
	pool, err := s.items.ListEligibleForUser(ctx, sess.State.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing eligible items: %w", err)
	}
	seen, err := s.store.ListSeenItems(ctx, sess.State.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing seen items: %w", err)
	}

	// The administered count is part of the stream name so each step draws
	// an independent randomesque rank, while a retried request (same replayed
	// state) still lands on the same item.
	stage := fmt.Sprintf("select/%d", sess.State.NumItems())
	rng, err := s.rngPort.SessionStream(ctx, sess.State.SessionID.String(), stage, s.cfg.SelectionSeed)
	if err != nil {
		return nil, fmt.Errorf("deriving selection stream: %w", err)
	}

	item, ok := s.selector.SelectNext(pool, selector.Inputs{
		Theta:        sess.State.Theta,
		Administered: sess.State.AdministeredSet(),
		Coverage:     sess.State.DomainCoverage,
		SeenItems:    seen,
	}, rng)
	if !ok {
		return nil, nil
	}
	return &ServedItem{ID: item.ID, Domain: item.Domain}, nil
}

func (s *AssessmentService) complete(ctx context.Context, sess *engine.Session, reason session.StopReason) (*FinalReport, error) {
	result, err := s.engine.Finalize(sess, reason)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkCompleted(ctx, sess.State.SessionID, result); err != nil {
		return nil, fmt.Errorf("marking session completed: %w", err)
	}
	s.logger.Info("session %s completed after %d items: %s (theta %.3f, se %.3f)",
		sess.State.SessionID, result.ItemsAdministered, reason, result.Theta, result.ThetaSE)
	return s.report(result, result.Theta, result.ThetaSE), nil
}

func (s *AssessmentService) completeExhausted(ctx context.Context, sess *engine.Session) (*FinalReport, error) {
	if err := s.engine.StopExhausted(sess); err != nil {
		return nil, err
	}
	return s.complete(ctx, sess, session.StopPoolExhausted)
}

func (s *AssessmentService) report(result session.FinalResult, theta, thetaSE float64) *FinalReport {
	return &FinalReport{
		SessionID:         result.SessionID,
		Score:             scoring.FromEstimate(theta, thetaSE),
		ItemsAdministered: result.ItemsAdministered,
		CorrectCount:      result.CorrectCount,
		DomainScores:      result.DomainScores,
		StopReason:        result.StopReason,
	}
}

func (s *AssessmentService) progress(rec ports.SessionRecord, status string, state session.State) Progress {
	return Progress{
		SessionID:         rec.ID,
		Status:            status,
		ItemsAdministered: state.NumItems(),
		MaxItems:          s.cfg.MaxItems,
		DomainCoverage:    state.DomainCoverage.Clone(),
		CurrentSE:         state.ThetaSE,
		ElapsedSeconds:    time.Since(rec.StartedAt.Time()).Seconds(),
	}
}
