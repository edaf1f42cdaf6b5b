package engine

import (
	"context"
	"sort"

	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/internal/irt"
	"adaptiq/ports"
)

// Replay reconstructs a session's in-memory state by folding the persisted
// response log over a fresh initialisation. This is what lets "next
// question" and "progress" requests be served without session affinity.
//
// A response whose item has since become unavailable is logged and excluded
// from the ability update, but it still counts toward the administered
// sequence so the counters stay aligned with the persisted log.
func (e *Engine) Replay(ctx context.Context, items ports.ItemProviderPort, userID core.UserID, sessionID core.SessionID, priorTheta float64, log []session.Response) (*Session, error) {
	ordered := make([]session.Response, len(log))
	copy(ordered, log)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	s := e.Initialize(userID, sessionID, priorTheta)
	for _, r := range ordered {
		if s.State.WasAdministered(r.ItemID) {
			return nil, core.NewDuplicateResponseError(sessionID, r.ItemID)
		}

		hasPoint := false
		var point irt.ResponsePoint
		item, err := items.GetByID(ctx, r.ItemID)
		switch {
		case err != nil && core.IsNotFoundError(err):
			e.logger.Warn("replay: item %s missing from pool, response %d counted without ability update", r.ItemID, r.Sequence)
		case err != nil:
			return nil, err
		case !item.HasValidParameters():
			e.logger.Warn("replay: item %s has invalid IRT parameters, using neutral defaults", r.ItemID)
			point = irt.ResponsePoint{A: neutralDiscrimination, B: neutralDifficulty, Correct: r.Correct}
			hasPoint = true
		default:
			point = irt.ResponsePoint{A: item.Discrimination, B: item.Difficulty, Correct: r.Correct}
			hasPoint = true
		}

		s.State.Administered = append(s.State.Administered, r.ItemID)
		s.State.DomainCoverage[r.Domain]++
		if r.Correct {
			s.State.CorrectCount++
		}
		if hasPoint {
			s.points = append(s.points, point)
		}
		s.log = append(s.log, r)

		theta, thetaSE := e.estimator.Estimate(priorTheta, s.points)
		s.State.Theta = theta
		s.State.ThetaSE = thetaSE
		s.State.ThetaHistory = append(s.State.ThetaHistory, theta)
	}

	if s.State.NumItems() > 0 {
		decision, err := e.stopper.Evaluate(s.State.ThetaSE, s.State.NumItems(), s.State.DomainCoverage, s.State.ThetaHistory)
		if err != nil {
			return nil, err
		}
		if decision.ShouldStop {
			s.State.Stopped = true
			s.State.StopReason = decision.Reason
		}
	}

	return s, nil
}
