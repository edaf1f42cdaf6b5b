// Package scoring converts latent ability estimates onto the conventional
// IQ metric (mean 100, SD 15) with percentile and confidence interval.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	iqMean = 100.0
	iqSD   = 15.0
	iqMin  = 40
	iqMax  = 200

	// theta SEs at or above this imply reliability too low for a
	// meaningful interval (reliability = 1 - SE^2 goes to zero)
	reliabilityFloorSE = 1.0
)

// IQFromTheta maps theta onto the IQ scale: round(100 + 15*theta),
// clamped to [40, 200]
func IQFromTheta(theta float64) int {
	iq := int(math.Round(iqMean + iqSD*theta))
	if iq < iqMin {
		return iqMin
	}
	if iq > iqMax {
		return iqMax
	}
	return iq
}

// PercentileFromIQ returns the percentile rank of an IQ score under the
// standard normal population model, in [0, 100]
func PercentileFromIQ(iq float64) float64 {
	return distuv.UnitNormal.CDF((iq-iqMean)/iqSD) * 100.0
}

// ConfidenceInterval is a symmetric interval on the IQ scale
type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// ConfidenceIntervalForIQ computes the interval IQ +/- z*15*thetaSE at the
// given confidence level. Returns ok=false when thetaSE is not finite or
// sits above the reliability floor; callers omit the interval then.
func ConfidenceIntervalForIQ(iq float64, thetaSE, level float64) (ConfidenceInterval, bool) {
	if math.IsNaN(thetaSE) || math.IsInf(thetaSE, 0) || thetaSE < 0 {
		return ConfidenceInterval{}, false
	}
	if thetaSE >= reliabilityFloorSE {
		return ConfidenceInterval{}, false
	}
	if level <= 0 || level >= 1 {
		return ConfidenceInterval{}, false
	}

	z := distuv.UnitNormal.Quantile((1.0 + level) / 2.0)
	seIQ := iqSD * thetaSE
	return ConfidenceInterval{
		Lower: iq - z*seIQ,
		Upper: iq + z*seIQ,
		Level: level,
	}, true
}

// Score is the full scoring-adapter output for a finished session
type Score struct {
	IQ                 int                 `json:"iq"`
	Percentile         float64             `json:"percentile"`
	ConfidenceInterval *ConfidenceInterval `json:"confidence_interval,omitempty"`
}

// FromEstimate builds the reportable score from a final (theta, thetaSE)
// pair at the standard 95% confidence level
func FromEstimate(theta, thetaSE float64) Score {
	iq := IQFromTheta(theta)
	score := Score{
		IQ:         iq,
		Percentile: PercentileFromIQ(float64(iq)),
	}
	if ci, ok := ConfidenceIntervalForIQ(float64(iq), thetaSE, 0.95); ok {
		score.ConfidenceInterval = &ci
	}
	return score
}
