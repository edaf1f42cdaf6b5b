package readiness

import (
	"context"
	"fmt"
	"testing"

	"adaptiq/adapters/memory"
	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/internal/config"
)

func calibratedItem(id string, domain catalog.CognitiveDomain, b, seA, seB float64) catalog.Item {
	return catalog.Item{
		ID:             core.ItemID(id),
		Domain:         domain,
		Discrimination: 1.2,
		Difficulty:     b,
		SEDiscrim:      &seA,
		SEDifficulty:   &seB,
		Active:         true,
		Quality:        catalog.QualityNormal,
	}
}

// fullBank builds n well-calibrated items per domain spread across all bands
func fullBank(nPerDomain int) []catalog.Item {
	var bank []catalog.Item
	difficulties := []float64{-2.0, 0.0, 2.0} // one per band, cycled
	for _, d := range catalog.AllDomains() {
		for i := 0; i < nPerDomain; i++ {
			b := difficulties[i%3]
			bank = append(bank, calibratedItem(fmt.Sprintf("%s-%d", d, i), d, b, 0.2, 0.2))
		}
	}
	return bank
}

func testConfig() config.ReadinessConfig {
	return config.ReadinessConfig{
		MaxSEDiscrimination:         0.35,
		MaxSEDifficulty:             0.40,
		MinCalibratedItemsPerDomain: 9,
		MinItemsPerBand:             3,
	}
}

func TestAllDomainsReady(t *testing.T) {
	ev := NewEvaluator(testConfig(), memory.NewItemProvider(fullBank(9)))

	report, err := ev.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Ready {
		t.Fatalf("expected global readiness, got report %+v", report)
	}
	for _, d := range catalog.AllDomains() {
		dr := report.Domains[d]
		if !dr.Ready {
			t.Errorf("domain %s not ready: %v", d, dr.Reasons)
		}
		if dr.WellCalibrated != 9 {
			t.Errorf("domain %s well-calibrated = %d, want 9", d, dr.WellCalibrated)
		}
		if dr.Bands.Easy != 3 || dr.Bands.Medium != 3 || dr.Bands.Hard != 3 {
			t.Errorf("domain %s bands = %+v, want 3/3/3", d, dr.Bands)
		}
	}
}

func TestDomainMissingBandBlocksGlobalReadiness(t *testing.T) {
	bank := fullBank(9)
	// Strip every hard memory item
	filtered := bank[:0]
	for _, it := range bank {
		if it.Domain == catalog.DomainMemory && it.Difficulty > 1 {
			continue
		}
		filtered = append(filtered, it)
	}

	ev := NewEvaluator(testConfig(), memory.NewItemProvider(filtered))
	report, err := ev.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Ready {
		t.Fatal("global readiness must fail when one band is empty")
	}

	mem := report.Domains[catalog.DomainMemory]
	if mem.Ready {
		t.Error("memory domain must not be ready")
	}
	if len(mem.Reasons) == 0 {
		t.Error("failing domain must carry human-readable reasons")
	}
	if mem.Bands.Hard != 0 {
		t.Errorf("hard band = %d, want 0", mem.Bands.Hard)
	}

	// The other five domains remain individually ready
	for _, d := range catalog.AllDomains() {
		if d == catalog.DomainMemory {
			continue
		}
		if !report.Domains[d].Ready {
			t.Errorf("domain %s should stay ready", d)
		}
	}
}

func TestNoisyCalibrationExcluded(t *testing.T) {
	bank := fullBank(9)
	// Items with SEs above the gates must not count
	bank = append(bank,
		calibratedItem("noisy-a", catalog.DomainLogic, 0.0, 0.9, 0.2),
		calibratedItem("noisy-b", catalog.DomainLogic, 0.0, 0.2, 0.9),
	)
	// Items with no SEs at all never reach the calibrated list
	bank = append(bank, catalog.Item{
		ID: "uncalibrated", Domain: catalog.DomainLogic, Discrimination: 1.0, Difficulty: 0.0,
		Active: true, Quality: catalog.QualityNormal,
	})

	ev := NewEvaluator(testConfig(), memory.NewItemProvider(bank))
	report, err := ev.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := report.Domains[catalog.DomainLogic].WellCalibrated; got != 9 {
		t.Errorf("logic well-calibrated = %d, want 9 (noisy items excluded)", got)
	}
}

func TestInsufficientTotalBlocksDomain(t *testing.T) {
	cfg := testConfig()
	cfg.MinCalibratedItemsPerDomain = 50

	ev := NewEvaluator(cfg, memory.NewItemProvider(fullBank(9)))
	report, err := ev.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Ready {
		t.Fatal("readiness must fail when totals are short")
	}
	for _, d := range catalog.AllDomains() {
		if report.Domains[d].Ready {
			t.Errorf("domain %s should fail the total gate", d)
		}
	}
}
