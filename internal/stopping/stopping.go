// Package stopping decides when an adaptive test may terminate. The
// evaluator is a pure function of the session's precision and coverage
// state; it never touches the pool or the clock.
package stopping

import (
	"math"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/internal/config"
)

// Details exposes each rule's intermediate state so callers can log the
// decision and tests can assert individual predicates.
type Details struct {
	NumItems         int     `json:"num_items"`
	ThetaSE          float64 `json:"theta_se"`
	MinItemsReached  bool    `json:"min_items_reached"`
	MaxItemsReached  bool    `json:"max_items_reached"`
	ContentBalanced  bool    `json:"content_balanced"`
	BalanceWaived    bool    `json:"balance_waived"`
	DomainsWithItems int     `json:"domains_with_items"`
	SEBelowThreshold bool    `json:"se_below_threshold"`
	DeltaTheta       float64 `json:"delta_theta"`
	HasDeltaTheta    bool    `json:"has_delta_theta"`
	ThetaStable      bool    `json:"theta_stable"`
}

// Decision is the outcome of one stopping evaluation
type Decision struct {
	ShouldStop bool
	Reason     session.StopReason
	Details    Details
}

// Evaluator applies the five stopping rules in strict priority order
type Evaluator struct {
	cfg config.CATConfig
}

// NewEvaluator creates an evaluator bound to a tunables bundle
func NewEvaluator(cfg config.CATConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Evaluate runs the rules in priority order; the first matching rule fires.
//
//  1. below the minimum item count nothing may stop the test
//  2. at the maximum item count the test always stops
//  3. unless content balance holds or is waived, the test continues
//  4. posterior SE strictly below threshold stops the test
//  5. a stable theta with moderate SE stops the test
func (e *Evaluator) Evaluate(thetaSE float64, numItems int, coverage catalog.DomainCoverage, thetaHistory []float64) (Decision, error) {
	if thetaSE < 0 || math.IsNaN(thetaSE) {
		return Decision{}, core.ErrInvalidStandardError
	}
	if numItems < 0 {
		return Decision{}, core.ErrNegativeItemCount
	}
	for _, n := range coverage {
		if n < 0 {
			return Decision{}, core.ErrNegativeCoverage
		}
	}

	details := Details{
		NumItems:         numItems,
		ThetaSE:          thetaSE,
		MinItemsReached:  numItems >= e.cfg.MinItems,
		MaxItemsReached:  numItems >= e.cfg.MaxItems,
		DomainsWithItems: coverage.DomainsWithItems(),
		SEBelowThreshold: thetaSE < e.cfg.SEThreshold,
	}

	details.ContentBalanced = e.contentBalanced(coverage)
	details.BalanceWaived = numItems >= e.cfg.ContentBalanceWaiverThreshold &&
		details.DomainsWithItems >= e.cfg.MinDomainsForWaiver

	if len(thetaHistory) >= 2 {
		details.HasDeltaTheta = true
		details.DeltaTheta = math.Abs(thetaHistory[len(thetaHistory)-1] - thetaHistory[len(thetaHistory)-2])
		details.ThetaStable = details.DeltaTheta < e.cfg.DeltaThetaThreshold &&
			thetaSE < e.cfg.SEStabilizationThreshold
	}

	// Rule 1: minimum items overrides everything
	if !details.MinItemsReached {
		return Decision{ShouldStop: false, Details: details}, nil
	}

	// Rule 2: maximum items overrides rules 3-5
	if details.MaxItemsReached {
		return Decision{ShouldStop: true, Reason: session.StopMaxItems, Details: details}, nil
	}

	// Rule 3: content balance guard
	if !details.ContentBalanced && !details.BalanceWaived {
		return Decision{ShouldStop: false, Details: details}, nil
	}

	// Rule 4: SE threshold (strict comparison; exactly equal continues)
	if details.SEBelowThreshold {
		return Decision{ShouldStop: true, Reason: session.StopSEThreshold, Details: details}, nil
	}

	// Rule 5: theta stabilisation
	if details.ThetaStable {
		return Decision{ShouldStop: true, Reason: session.StopThetaStable, Details: details}, nil
	}

	return Decision{ShouldStop: false, Details: details}, nil
}

// contentBalanced reports whether every target domain has reached its floor
func (e *Evaluator) contentBalanced(coverage catalog.DomainCoverage) bool {
	for domain := range e.cfg.DomainWeights {
		if coverage[domain] < e.cfg.MinItemsPerDomain {
			return false
		}
	}
	return true
}
