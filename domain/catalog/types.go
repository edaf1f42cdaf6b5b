package catalog

import (
	"fmt"
	"math"

	"adaptiq/domain/core"
)

// CognitiveDomain identifies one of the six content areas of the assessment
type CognitiveDomain string

const (
	DomainPattern CognitiveDomain = "pattern"
	DomainLogic   CognitiveDomain = "logic"
	DomainVerbal  CognitiveDomain = "verbal"
	DomainSpatial CognitiveDomain = "spatial"
	DomainMath    CognitiveDomain = "math"
	DomainMemory  CognitiveDomain = "memory"
)

// AllDomains lists the six cognitive domains in canonical order
func AllDomains() []CognitiveDomain {
	return []CognitiveDomain{
		DomainPattern,
		DomainLogic,
		DomainVerbal,
		DomainSpatial,
		DomainMath,
		DomainMemory,
	}
}

// ParseDomain validates a string as a cognitive domain
func ParseDomain(s string) (CognitiveDomain, error) {
	d := CognitiveDomain(s)
	switch d {
	case DomainPattern, DomainLogic, DomainVerbal, DomainSpatial, DomainMath, DomainMemory:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownDomain, s)
}

// QualityFlag marks the calibration quality status of an item
type QualityFlag string

const (
	QualityNormal  QualityFlag = "normal"
	QualityLow     QualityFlag = "low_quality"
	QualityRetired QualityFlag = "retired"
)

// Item is a calibrated test item under the 2PL model.
// Items are immutable once calibrated.
type Item struct {
	ID             core.ItemID     `json:"id" db:"id"`
	Domain         CognitiveDomain `json:"domain" db:"domain"`
	Discrimination float64         `json:"discrimination" db:"discrimination"` // a parameter
	Difficulty     float64         `json:"difficulty" db:"difficulty"`         // b parameter
	SEDiscrim      *float64        `json:"se_discrimination,omitempty" db:"se_discrimination"`
	SEDifficulty   *float64        `json:"se_difficulty,omitempty" db:"se_difficulty"`
	Active         bool            `json:"active" db:"active"`
	Quality        QualityFlag     `json:"quality_flag" db:"quality_flag"`
}

// HasValidParameters reports whether the 2PL parameters are present and well-formed:
// finite a > 0 and finite b.
func (it Item) HasValidParameters() bool {
	if it.Discrimination <= 0 {
		return false
	}
	if math.IsNaN(it.Discrimination) || math.IsInf(it.Discrimination, 0) {
		return false
	}
	if math.IsNaN(it.Difficulty) || math.IsInf(it.Difficulty, 0) {
		return false
	}
	return true
}

// Selectable reports whether the item may enter CAT selection at all
// (eligibility per session is the provider's concern)
func (it Item) Selectable() bool {
	return it.Active && it.Quality == QualityNormal && it.HasValidParameters()
}

// DomainWeights maps each target domain to its share of the test composition
type DomainWeights map[CognitiveDomain]float64

// DefaultDomainWeights returns the production test composition
func DefaultDomainWeights() DomainWeights {
	return DomainWeights{
		DomainPattern: 0.22,
		DomainLogic:   0.20,
		DomainVerbal:  0.19,
		DomainSpatial: 0.16,
		DomainMath:    0.13,
		DomainMemory:  0.10,
	}
}

// Validate checks that weights are non-negative and sum to 1 within tolerance
func (w DomainWeights) Validate() error {
	sum := 0.0
	for d, v := range w {
		if _, err := ParseDomain(string(d)); err != nil {
			return err
		}
		if v < 0 {
			return core.NewValidationError("domain_weights", fmt.Sprintf("weight for %s is negative", d))
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return core.NewValidationError("domain_weights", fmt.Sprintf("weights sum to %.6f, expected 1", sum))
	}
	return nil
}

// DomainCoverage counts administered items per cognitive domain
type DomainCoverage map[CognitiveDomain]int

// Total returns the sum of all domain counts
func (c DomainCoverage) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// DomainsWithItems counts domains with at least one administered item
func (c DomainCoverage) DomainsWithItems() int {
	n := 0
	for _, count := range c {
		if count > 0 {
			n++
		}
	}
	return n
}

// Clone returns an independent copy of the coverage map
func (c DomainCoverage) Clone() DomainCoverage {
	out := make(DomainCoverage, len(c))
	for d, n := range c {
		out[d] = n
	}
	return out
}
