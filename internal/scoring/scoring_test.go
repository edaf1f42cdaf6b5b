package scoring

import (
	"math"
	"testing"
)

func TestIQFromTheta(t *testing.T) {
	tests := []struct {
		theta float64
		want  int
	}{
		{0.0, 100},
		{1.0, 115},
		{-1.0, 85},
		{2.5, 138}, // round(137.5)
		{-2.0, 70},
		{10.0, 200},  // clamp high
		{-10.0, 40},  // clamp low
		{0.033, 100}, // rounds down
	}
	for _, tt := range tests {
		if got := IQFromTheta(tt.theta); got != tt.want {
			t.Errorf("IQFromTheta(%v) = %d, want %d", tt.theta, got, tt.want)
		}
	}
}

func TestPercentileFromIQ(t *testing.T) {
	if p := PercentileFromIQ(100); math.Abs(p-50.0) > 1e-9 {
		t.Errorf("IQ 100 percentile = %v, want 50", p)
	}
	if p := PercentileFromIQ(115); math.Abs(p-84.134474606) > 1e-6 {
		t.Errorf("IQ 115 percentile = %v, want ~84.13", p)
	}
	if p := PercentileFromIQ(85); math.Abs(p-15.865525394) > 1e-6 {
		t.Errorf("IQ 85 percentile = %v, want ~15.87", p)
	}
}

func TestConfidenceInterval(t *testing.T) {
	ci, ok := ConfidenceIntervalForIQ(110, 0.30, 0.95)
	if !ok {
		t.Fatal("expected interval for reliable SE")
	}
	// z for 95% is 1.959964; half-width = z * 15 * 0.30
	halfWidth := 1.9599639845 * 15.0 * 0.30
	if math.Abs(ci.Lower-(110-halfWidth)) > 1e-6 || math.Abs(ci.Upper-(110+halfWidth)) > 1e-6 {
		t.Errorf("interval (%v, %v) does not match half-width %v", ci.Lower, ci.Upper, halfWidth)
	}
}

func TestConfidenceIntervalOmitted(t *testing.T) {
	if _, ok := ConfidenceIntervalForIQ(100, math.NaN(), 0.95); ok {
		t.Error("NaN SE must omit the interval")
	}
	if _, ok := ConfidenceIntervalForIQ(100, math.Inf(1), 0.95); ok {
		t.Error("infinite SE must omit the interval")
	}
	if _, ok := ConfidenceIntervalForIQ(100, 1.0, 0.95); ok {
		t.Error("SE at the reliability floor must omit the interval")
	}
	if _, ok := ConfidenceIntervalForIQ(100, 0.2, 1.5); ok {
		t.Error("invalid confidence level must omit the interval")
	}
}

func TestFromEstimate(t *testing.T) {
	score := FromEstimate(1.0, 0.25)
	if score.IQ != 115 {
		t.Errorf("IQ = %d, want 115", score.IQ)
	}
	if score.ConfidenceInterval == nil {
		t.Fatal("expected a confidence interval at SE=0.25")
	}
	if score.ConfidenceInterval.Level != 0.95 {
		t.Errorf("level = %v, want 0.95", score.ConfidenceInterval.Level)
	}

	unreliable := FromEstimate(0.0, 1.0)
	if unreliable.ConfidenceInterval != nil {
		t.Error("unreliable estimate must omit the interval")
	}
}
