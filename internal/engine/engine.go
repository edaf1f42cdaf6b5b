// Package engine owns the per-session CAT state machine. It is the only
// component that mutates session state; a single session must be driven by
// one caller at a time, while distinct sessions are fully independent.
package engine

import (
	"math"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/internal"
	"adaptiq/internal/config"
	"adaptiq/internal/irt"
	"adaptiq/internal/stopping"
)

// Session couples the replayable state with the response-point history the
// EAP estimator folds over. The engine never assumes this in-memory object
// is authoritative; it is always re-derivable from (prior theta, log).
type Session struct {
	State  session.State
	points []irt.ResponsePoint
	log    []session.Response
}

// Log returns the ordered response log accumulated in this session
func (s *Session) Log() []session.Response {
	out := make([]session.Response, len(s.log))
	copy(out, s.log)
	return out
}

// Engine sequences ability updates and stopping decisions for sessions
type Engine struct {
	cfg       config.CATConfig
	estimator *irt.EAPEstimator
	stopper   *stopping.Evaluator
	logger    *internal.Logger
}

// New creates an engine with its estimator and stopping evaluator
func New(cfg config.CATConfig, logger *internal.Logger) *Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Engine{
		cfg:       cfg,
		estimator: irt.NewEAPEstimator(),
		stopper:   stopping.NewEvaluator(cfg),
		logger:    logger.WithPrefix("engine:"),
	}
}

// Initialize creates a fresh session at the prior ability estimate. It does
// not touch the pool and selects no item.
func (e *Engine) Initialize(userID core.UserID, sessionID core.SessionID, priorTheta float64) *Session {
	coverage := make(catalog.DomainCoverage, len(catalog.AllDomains()))
	for _, d := range catalog.AllDomains() {
		coverage[d] = 0
	}
	return &Session{
		State: session.State{
			SessionID:      sessionID,
			UserID:         userID,
			PriorTheta:     priorTheta,
			Theta:          priorTheta,
			ThetaSE:        1.0,
			Administered:   []core.ItemID{},
			DomainCoverage: coverage,
			ThetaHistory:   []float64{},
			StartedAt:      core.Now(),
		},
	}
}

// ResponseInput carries one graded administration into the engine.
// Discrimination and Difficulty are pointers because an item can reach the
// engine without calibration; nil triggers the neutral-default degradation.
type ResponseInput struct {
	ItemID         core.ItemID
	Correct        bool
	Domain         catalog.CognitiveDomain
	Discrimination *float64
	Difficulty     *float64
	TimeSpent      *float64
}

// neutral 2PL parameters recorded for items served without calibration
const (
	neutralDiscrimination = 1.0
	neutralDifficulty     = 0.0
)

// validParameters is the pointer-form twin of catalog.Item.HasValidParameters:
// both present, finite a > 0, finite b. NaN or infinite values must degrade
// to the neutral defaults rather than flow into the estimator.
func validParameters(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	if *a <= 0 || math.IsNaN(*a) || math.IsInf(*a, 0) {
		return false
	}
	if math.IsNaN(*b) || math.IsInf(*b, 0) {
		return false
	}
	return true
}

// ProcessResponse appends one graded response, re-estimates ability over the
// entire history, and evaluates the stopping rules. A response is never
// suppressed: calibration gaps degrade to neutral parameters so the sequence
// counters stay consistent.
func (e *Engine) ProcessResponse(s *Session, in ResponseInput) (session.StepResult, error) {
	if s.State.Finalized {
		return session.StepResult{}, core.ErrSessionFinalized
	}
	if s.State.Stopped {
		return session.StepResult{}, core.ErrSessionStopped
	}
	if _, err := catalog.ParseDomain(string(in.Domain)); err != nil {
		return session.StepResult{}, err
	}
	if s.State.WasAdministered(in.ItemID) {
		return session.StepResult{}, core.NewDuplicateResponseError(s.State.SessionID, in.ItemID)
	}

	a, b := neutralDiscrimination, neutralDifficulty
	if validParameters(in.Discrimination, in.Difficulty) {
		a, b = *in.Discrimination, *in.Difficulty
	} else {
		e.logger.Warn("item %s administered without valid IRT parameters, using neutral defaults", in.ItemID)
	}

	s.State.Administered = append(s.State.Administered, in.ItemID)
	s.State.DomainCoverage[in.Domain]++
	if in.Correct {
		s.State.CorrectCount++
	}
	s.points = append(s.points, irt.ResponsePoint{A: a, B: b, Correct: in.Correct})
	s.log = append(s.log, session.Response{
		Sequence:  len(s.log),
		ItemID:    in.ItemID,
		Correct:   in.Correct,
		Domain:    in.Domain,
		TimeSpent: in.TimeSpent,
	})

	theta, thetaSE := e.estimator.Estimate(s.State.PriorTheta, s.points)
	s.State.Theta = theta
	s.State.ThetaSE = thetaSE
	s.State.ThetaHistory = append(s.State.ThetaHistory, theta)

	decision, err := e.stopper.Evaluate(thetaSE, s.State.NumItems(), s.State.DomainCoverage, s.State.ThetaHistory)
	if err != nil {
		return session.StepResult{}, err
	}
	if decision.ShouldStop {
		s.State.Stopped = true
		s.State.StopReason = decision.Reason
		e.logger.Debug("session %s stopping after %d items: %s (se=%.3f)",
			s.State.SessionID, s.State.NumItems(), decision.Reason, thetaSE)
	}

	return session.StepResult{
		Theta:             theta,
		ThetaSE:           thetaSE,
		ItemsAdministered: s.State.NumItems(),
		ShouldStop:        decision.ShouldStop,
		StopReason:        decision.Reason,
	}, nil
}

// StopExhausted marks a session terminated because the selector found no
// eligible item. Graceful: not an error path for the session itself.
func (e *Engine) StopExhausted(s *Session) error {
	if s.State.Finalized {
		return core.ErrSessionFinalized
	}
	s.State.Stopped = true
	s.State.StopReason = session.StopPoolExhausted
	return nil
}

// Finalize freezes the session and produces the final result with per-domain
// scores. A second call is an error.
func (e *Engine) Finalize(s *Session, reason session.StopReason) (session.FinalResult, error) {
	if s.State.Finalized {
		return session.FinalResult{}, core.ErrSessionFinalized
	}
	s.State.Finalized = true
	s.State.Stopped = true
	s.State.StopReason = reason

	scores := make(map[catalog.CognitiveDomain]session.DomainScore)
	for _, r := range s.log {
		score := scores[r.Domain]
		score.Total++
		if r.Correct {
			score.Correct++
		}
		scores[r.Domain] = score
	}
	for d, score := range scores {
		if score.Total > 0 {
			score.Pct = float64(score.Correct) / float64(score.Total) * 100.0
		}
		scores[d] = score
	}

	return session.FinalResult{
		SessionID:         s.State.SessionID,
		Theta:             s.State.Theta,
		ThetaSE:           s.State.ThetaSE,
		ItemsAdministered: s.State.NumItems(),
		CorrectCount:      s.State.CorrectCount,
		DomainScores:      scores,
		StopReason:        reason,
	}, nil
}
