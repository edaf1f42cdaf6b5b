package selector

import (
	"fmt"
	"math/rand"
	"testing"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/internal/config"
)

func testItem(id string, domain catalog.CognitiveDomain, a, b float64) catalog.Item {
	return catalog.Item{
		ID:             core.ItemID(id),
		Domain:         domain,
		Discrimination: a,
		Difficulty:     b,
		Active:         true,
		Quality:        catalog.QualityNormal,
	}
}

func deterministicConfig() config.CATConfig {
	cfg := config.DefaultCATConfig()
	cfg.RandomesqueK = 1
	return cfg
}

func TestDeterministicMostInformative(t *testing.T) {
	sel := New(deterministicConfig())
	pool := []catalog.Item{
		testItem("far", catalog.DomainLogic, 1.0, 3.0),
		testItem("near", catalog.DomainLogic, 1.0, 0.1),
		testItem("sharp-near", catalog.DomainLogic, 2.0, 0.0),
	}
	in := Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{}, Coverage: fullCoverage(1)}

	for i := 0; i < 5; i++ {
		got, ok := sel.SelectNext(pool, in, nil)
		if !ok {
			t.Fatal("expected a selection")
		}
		if got.ID != "sharp-near" {
			t.Fatalf("K=1 must pick the most informative item, got %s", got.ID)
		}
	}
}

func TestTieBrokenByIDAscending(t *testing.T) {
	sel := New(deterministicConfig())
	// Identical parameters give identical information
	pool := []catalog.Item{
		testItem("b-item", catalog.DomainMath, 1.5, 0.0),
		testItem("a-item", catalog.DomainMath, 1.5, 0.0),
	}
	in := Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{}, Coverage: fullCoverage(1)}

	got, ok := sel.SelectNext(pool, in, nil)
	if !ok || got.ID != "a-item" {
		t.Fatalf("tie must break by id ascending, got %v", got.ID)
	}
}

func TestFiltersAdministeredAndSeen(t *testing.T) {
	sel := New(deterministicConfig())
	pool := []catalog.Item{
		testItem("x", catalog.DomainVerbal, 2.0, 0.0),
		testItem("y", catalog.DomainVerbal, 1.5, 0.0),
		testItem("z", catalog.DomainVerbal, 1.0, 0.0),
	}
	in := Inputs{
		Theta:        0.0,
		Administered: map[core.ItemID]bool{"x": true},
		SeenItems:    map[core.ItemID]bool{"y": true},
		Coverage:     fullCoverage(1),
	}

	got, ok := sel.SelectNext(pool, in, nil)
	if !ok || got.ID != "z" {
		t.Fatalf("expected z after exclusions, got %v ok=%v", got.ID, ok)
	}
}

func TestFiltersInvalidParameters(t *testing.T) {
	sel := New(deterministicConfig())
	bad := testItem("bad", catalog.DomainSpatial, 0.0, 0.0) // non-positive a
	good := testItem("good", catalog.DomainSpatial, 0.8, 1.2)
	in := Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{}, Coverage: fullCoverage(1)}

	got, ok := sel.SelectNext([]catalog.Item{bad, good}, in, nil)
	if !ok || got.ID != "good" {
		t.Fatalf("invalid items must be dropped, got %v ok=%v", got.ID, ok)
	}
}

func TestEmptyPoolReturnsNone(t *testing.T) {
	sel := New(deterministicConfig())
	in := Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{"only": true}, Coverage: fullCoverage(0)}

	_, ok := sel.SelectNext([]catalog.Item{testItem("only", catalog.DomainLogic, 1.0, 0.0)}, in, nil)
	if ok {
		t.Fatal("exhausted pool must return none")
	}
}

func TestDeficientDomainIsServedFirst(t *testing.T) {
	sel := New(deterministicConfig())

	// memory has zero coverage; the sharper logic item would win on pure MFI
	pool := []catalog.Item{
		testItem("logic-sharp", catalog.DomainLogic, 2.5, 0.0),
		testItem("memory-dull", catalog.DomainMemory, 0.6, 1.5),
	}
	cov := fullCoverage(1)
	cov[catalog.DomainMemory] = 0

	got, ok := sel.SelectNext(pool, Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{}, Coverage: cov}, nil)
	if !ok || got.Domain != catalog.DomainMemory {
		t.Fatalf("deficient domain must be served first, got %v", got.ID)
	}
}

func TestContentBalanceFallsBackWhenDeficitUnservable(t *testing.T) {
	sel := New(deterministicConfig())

	// memory is deficient but no memory item exists; selection falls back
	pool := []catalog.Item{testItem("logic", catalog.DomainLogic, 1.2, 0.0)}
	cov := fullCoverage(1)
	cov[catalog.DomainMemory] = 0

	got, ok := sel.SelectNext(pool, Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{}, Coverage: cov}, nil)
	if !ok || got.ID != "logic" {
		t.Fatalf("expected fallback to full pool, got %v ok=%v", got.ID, ok)
	}
}

func TestRandomesqueSamplesWithinTopK(t *testing.T) {
	cfg := config.DefaultCATConfig() // K = 5
	sel := New(cfg)

	// Ten items with strictly decreasing information at theta=0
	pool := make([]catalog.Item, 0, 10)
	for i := 0; i < 10; i++ {
		b := float64(i) * 0.3
		pool = append(pool, testItem(fmt.Sprintf("item-%02d", i), catalog.DomainPattern, 1.5, b))
	}
	in := Inputs{Theta: 0.0, Administered: map[core.ItemID]bool{}, Coverage: fullCoverage(1)}

	rng := rand.New(rand.NewSource(7))
	picked := make(map[core.ItemID]int)
	for i := 0; i < 500; i++ {
		got, ok := sel.SelectNext(pool, in, rng)
		if !ok {
			t.Fatal("expected a selection")
		}
		picked[got.ID]++
	}

	// Only the five most informative items (smallest |b|) may appear
	topK := map[core.ItemID]bool{"item-00": true, "item-01": true, "item-02": true, "item-03": true, "item-04": true}
	for id := range picked {
		if !topK[id] {
			t.Errorf("item %s outside top-K was sampled", id)
		}
	}
	if len(picked) < 3 {
		t.Errorf("expected spread across the top-K, got %d distinct items", len(picked))
	}
}

func TestSequentialSelectionsNeverRepeat(t *testing.T) {
	sel := New(deterministicConfig())

	pool := make([]catalog.Item, 0, 12)
	for i := 0; i < 12; i++ {
		pool = append(pool, testItem(fmt.Sprintf("q-%02d", i), catalog.AllDomains()[i%6], 1.0+0.1*float64(i), -1.0+0.2*float64(i)))
	}

	administered := map[core.ItemID]bool{}
	cov := fullCoverage(0)
	seen := map[core.ItemID]bool{}
	for i := 0; i < 12; i++ {
		got, ok := sel.SelectNext(pool, Inputs{Theta: 0.3, Administered: administered, Coverage: cov}, nil)
		if !ok {
			t.Fatalf("pool exhausted early at step %d", i)
		}
		if seen[got.ID] {
			t.Fatalf("item %s repeated", got.ID)
		}
		seen[got.ID] = true
		administered[got.ID] = true
		cov[got.Domain]++
	}

	if _, ok := sel.SelectNext(pool, Inputs{Theta: 0.3, Administered: administered, Coverage: cov}, nil); ok {
		t.Fatal("pool must be exhausted after 12 selections")
	}
}

func fullCoverage(n int) catalog.DomainCoverage {
	cov := make(catalog.DomainCoverage)
	for _, d := range catalog.AllDomains() {
		cov[d] = n
	}
	return cov
}
