package irt

import (
	"math"
	"testing"
)

func TestProbabilityStability(t *testing.T) {
	tests := []struct {
		name  string
		theta float64
		a     float64
		b     float64
		want  float64
		tol   float64
	}{
		{"at difficulty", 0.0, 1.0, 0.0, 0.5, 1e-12},
		{"one logit above", 1.0, 1.0, 0.0, 0.7310585786300049, 1e-12},
		{"one logit below", -1.0, 1.0, 0.0, 0.2689414213699951, 1e-12},
		{"high discrimination at b", 1.5, 2.5, 1.5, 0.5, 1e-12},
		{"extreme positive logit", 50.0, 2.0, 0.0, 1.0, 1e-9},
		{"extreme negative logit", -50.0, 2.0, 0.0, 0.0, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Probability(tt.theta, tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Probability(%v, %v, %v) = %v, want %v", tt.theta, tt.a, tt.b, got, tt.want)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Errorf("Probability must stay finite, got %v", got)
			}
		})
	}
}

func TestProbabilityFiniteAcrossRange(t *testing.T) {
	for theta := -100.0; theta <= 100.0; theta += 5.0 {
		p := Probability(theta, 2.5, 0.0)
		if math.IsNaN(p) || p < 0 || p > 1 {
			t.Fatalf("Probability(%v) out of range: %v", theta, p)
		}
	}
}

func TestFisherInformationPeak(t *testing.T) {
	// Maximised at theta == b with value a^2/4
	for _, a := range []float64{0.5, 1.0, 1.8, 2.5} {
		b := 0.7
		info, err := FisherInformation(b, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := a * a / 4.0
		if math.Abs(info-want) > 1e-12 {
			t.Errorf("peak information for a=%v: got %v, want %v", a, info, want)
		}
	}
}

func TestFisherInformationSymmetry(t *testing.T) {
	a, b := 1.4, -0.5
	for _, d := range []float64{0.1, 0.5, 1.0, 2.0, 3.0} {
		left, err := FisherInformation(b-d, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		right, err := FisherInformation(b+d, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(left-right) > 1e-12 {
			t.Errorf("information not symmetric at d=%v: left=%v right=%v", d, left, right)
		}
	}
}

func TestFisherInformationNonNegativeAndDecaying(t *testing.T) {
	a, b := 1.2, 0.0
	prev := math.Inf(1)
	for _, d := range []float64{0.0, 1.0, 2.0, 4.0, 8.0} {
		info, err := FisherInformation(b+d, a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info < 0 {
			t.Errorf("negative information at d=%v: %v", d, info)
		}
		if info > prev {
			t.Errorf("information should decay away from b: %v > %v at d=%v", info, prev, d)
		}
		prev = info
	}
}

func TestFisherInformationRejectsBadDiscrimination(t *testing.T) {
	for _, a := range []float64{0.0, -1.0, math.NaN()} {
		if _, err := FisherInformation(0.0, a, 0.0); err == nil {
			t.Errorf("expected error for a=%v", a)
		}
	}
}

func TestEAPEmptyHistoryReturnsPrior(t *testing.T) {
	est := NewEAPEstimator()
	for _, prior := range []float64{-1.5, 0.0, 2.0} {
		theta, se := est.Estimate(prior, nil)
		if theta != prior {
			t.Errorf("empty history theta = %v, want prior %v", theta, prior)
		}
		if se != 1.0 {
			t.Errorf("empty history SE = %v, want 1.0", se)
		}
	}
}

func TestEAPMovesWithResponses(t *testing.T) {
	est := NewEAPEstimator()

	allCorrect := make([]ResponsePoint, 0, 10)
	allWrong := make([]ResponsePoint, 0, 10)
	for i := 0; i < 10; i++ {
		// difficulties symmetric about zero so the two histories mirror exactly
		b := -0.9 + float64(i)*0.2
		allCorrect = append(allCorrect, ResponsePoint{A: 1.5, B: b, Correct: true})
		allWrong = append(allWrong, ResponsePoint{A: 1.5, B: b, Correct: false})
	}

	thetaUp, seUp := est.Estimate(0, allCorrect)
	thetaDown, seDown := est.Estimate(0, allWrong)

	if thetaUp <= 0.5 {
		t.Errorf("all-correct theta = %v, expected well above 0", thetaUp)
	}
	if thetaDown >= -0.5 {
		t.Errorf("all-wrong theta = %v, expected well below 0", thetaDown)
	}
	if seUp <= 0 || seUp >= 1.0 {
		t.Errorf("posterior SE after 10 responses = %v, expected in (0, 1)", seUp)
	}
	if math.Abs(thetaUp+thetaDown) > 0.05 {
		t.Errorf("mirror-image histories should give near-symmetric estimates: %v vs %v", thetaUp, thetaDown)
	}
	if math.Abs(seUp-seDown) > 1e-9 {
		t.Errorf("mirror-image histories should give identical SEs: %v vs %v", seUp, seDown)
	}
}

func TestEAPShrinksSEAsEvidenceAccumulates(t *testing.T) {
	est := NewEAPEstimator()

	var responses []ResponsePoint
	prevSE := 1.0
	for i := 0; i < 15; i++ {
		// Alternate outcomes near theta=0 to mimic a converging test
		responses = append(responses, ResponsePoint{A: 1.5, B: 0.0, Correct: i%2 == 0})
		_, se := est.Estimate(0, responses)
		if se >= prevSE {
			t.Fatalf("SE should shrink monotonically for balanced responses at b=0: item %d gave %v >= %v", i+1, se, prevSE)
		}
		prevSE = se
	}
	if prevSE >= 0.5 {
		t.Errorf("final SE after 15 informative items = %v, expected below 0.5", prevSE)
	}
}

func TestEAPLongHistoryStaysFinite(t *testing.T) {
	est := NewEAPEstimator()

	// 200 maximally surprising responses stress the log-space accumulation
	var responses []ResponsePoint
	for i := 0; i < 200; i++ {
		responses = append(responses, ResponsePoint{A: 2.5, B: 3.0, Correct: true})
	}
	theta, se := est.Estimate(0, responses)
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		t.Fatalf("theta not finite: %v", theta)
	}
	if math.IsNaN(se) || se <= 0 {
		t.Fatalf("SE not finite positive: %v", se)
	}
}
