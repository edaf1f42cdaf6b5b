// Package selector picks the next item for an adaptive session: eligibility
// filtering, a hard content-balance constraint, maximum Fisher information
// ranking, and top-K randomesque sampling for exposure control.
package selector

import (
	"math/rand"
	"sort"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/internal/config"
	"adaptiq/internal/irt"
)

// Inputs carries the per-session state the selection depends on
type Inputs struct {
	Theta        float64
	Administered map[core.ItemID]bool
	Coverage     catalog.DomainCoverage
	// SeenItems optionally extends the exclusion set with items the
	// examinee saw outside this session
	SeenItems map[core.ItemID]bool
}

// Selector chooses items from an eligible pool under the configured
// constraints. Safe for concurrent use only when the supplied RNG is not
// shared across sessions.
type Selector struct {
	cfg config.CATConfig
}

// New creates a selector bound to a tunables bundle
func New(cfg config.CATConfig) *Selector {
	return &Selector{cfg: cfg}
}

// scored pairs a candidate with its Fisher information at the current theta
type scored struct {
	item catalog.Item
	info float64
}

// SelectNext returns the next item to administer, or ok=false when the pool
// is exhausted after filtering. With RANDOMESQUE_K == 1 the choice is fully
// deterministic given the inputs; otherwise rng picks uniformly from the
// top-K most informative candidates.
func (s *Selector) SelectNext(pool []catalog.Item, in Inputs, rng *rand.Rand) (catalog.Item, bool) {
	candidates := s.filter(pool, in)
	if len(candidates) == 0 {
		return catalog.Item{}, false
	}

	candidates = s.applyContentBalance(candidates, in.Coverage)

	ranked := make([]scored, 0, len(candidates))
	for _, it := range candidates {
		info, err := irt.FisherInformation(in.Theta, it.Discrimination, it.Difficulty)
		if err != nil {
			// invalid parameters are filtered above; skip defensively anyway
			continue
		}
		ranked = append(ranked, scored{item: it, info: info})
	}
	if len(ranked) == 0 {
		return catalog.Item{}, false
	}

	// Information descending, ties broken by id ascending so ranking is
	// reproducible across runs
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].info != ranked[j].info {
			return ranked[i].info > ranked[j].info
		}
		return ranked[i].item.ID < ranked[j].item.ID
	})

	k := s.cfg.RandomesqueK
	if k > len(ranked) {
		k = len(ranked)
	}
	if k <= 1 || rng == nil {
		return ranked[0].item, true
	}
	return ranked[rng.Intn(k)].item, true
}

// filter drops administered items, externally seen items, and items with
// missing or malformed IRT parameters, preserving pool order
func (s *Selector) filter(pool []catalog.Item, in Inputs) []catalog.Item {
	out := make([]catalog.Item, 0, len(pool))
	for _, it := range pool {
		if in.Administered[it.ID] {
			continue
		}
		if in.SeenItems != nil && in.SeenItems[it.ID] {
			continue
		}
		if !it.HasValidParameters() {
			continue
		}
		out = append(out, it)
	}
	return out
}

// applyContentBalance restricts candidates to deficient domains while any
// target domain sits below its floor. Restriction is best-effort: when no
// candidate serves a deficient domain the full filtered pool is kept.
func (s *Selector) applyContentBalance(candidates []catalog.Item, coverage catalog.DomainCoverage) []catalog.Item {
	deficient := make(map[catalog.CognitiveDomain]bool)
	for domain := range s.cfg.DomainWeights {
		if coverage[domain] < s.cfg.MinItemsPerDomain {
			deficient[domain] = true
		}
	}
	if len(deficient) == 0 {
		return candidates
	}

	restricted := make([]catalog.Item, 0, len(candidates))
	for _, it := range candidates {
		if deficient[it.Domain] {
			restricted = append(restricted, it)
		}
	}
	if len(restricted) == 0 {
		return candidates
	}
	return restricted
}
