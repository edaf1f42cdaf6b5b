// Package readiness decides whether the calibrated item pool can support
// adaptive testing: every domain needs enough well-calibrated items spread
// across the difficulty bands.
package readiness

import (
	"context"
	"fmt"

	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/internal/config"
	"adaptiq/ports"
)

// BandCounts buckets well-calibrated items into the three difficulty bands
type BandCounts struct {
	Easy   int `json:"easy"`   // b < -1
	Medium int `json:"medium"` // -1 <= b <= 1
	Hard   int `json:"hard"`   // b > 1
}

// DomainReadiness carries per-domain detail and failure reasons
type DomainReadiness struct {
	Domain         catalog.CognitiveDomain `json:"domain"`
	WellCalibrated int                     `json:"well_calibrated"`
	Bands          BandCounts              `json:"bands"`
	Ready          bool                    `json:"ready"`
	Reasons        []string                `json:"reasons,omitempty"`
}

// Report is the full readiness diagnostic
type Report struct {
	Ready       bool                                        `json:"ready"`
	Domains     map[catalog.CognitiveDomain]DomainReadiness `json:"domains"`
	GeneratedAt core.Timestamp                              `json:"generated_at"`
}

// Evaluator applies the calibration-quality gates to the item pool
type Evaluator struct {
	cfg   config.ReadinessConfig
	items ports.ItemProviderPort
}

// NewEvaluator creates an evaluator over an item provider
func NewEvaluator(cfg config.ReadinessConfig, items ports.ItemProviderPort) *Evaluator {
	return &Evaluator{cfg: cfg, items: items}
}

// Evaluate counts well-calibrated items per domain and band. Global
// readiness requires all six domains ready.
func (e *Evaluator) Evaluate(ctx context.Context) (Report, error) {
	calibrated, err := e.items.ListCalibrated(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing calibrated items: %w", err)
	}

	perDomain := make(map[catalog.CognitiveDomain]*DomainReadiness)
	for _, d := range catalog.AllDomains() {
		perDomain[d] = &DomainReadiness{Domain: d}
	}

	for _, it := range calibrated {
		dr, ok := perDomain[it.Domain]
		if !ok {
			continue
		}
		if !e.wellCalibrated(it) {
			continue
		}
		dr.WellCalibrated++
		switch {
		case it.Difficulty < -1:
			dr.Bands.Easy++
		case it.Difficulty > 1:
			dr.Bands.Hard++
		default:
			dr.Bands.Medium++
		}
	}

	report := Report{
		Ready:       true,
		Domains:     make(map[catalog.CognitiveDomain]DomainReadiness, len(perDomain)),
		GeneratedAt: core.Now(),
	}
	for _, d := range catalog.AllDomains() {
		dr := perDomain[d]
		dr.Ready = true

		if dr.WellCalibrated < e.cfg.MinCalibratedItemsPerDomain {
			dr.Ready = false
			dr.Reasons = append(dr.Reasons, fmt.Sprintf(
				"%d well-calibrated items, need %d", dr.WellCalibrated, e.cfg.MinCalibratedItemsPerDomain))
		}
		bands := []struct {
			name  string
			count int
		}{
			{"easy", dr.Bands.Easy},
			{"medium", dr.Bands.Medium},
			{"hard", dr.Bands.Hard},
		}
		for _, band := range bands {
			if band.count < e.cfg.MinItemsPerBand {
				dr.Ready = false
				dr.Reasons = append(dr.Reasons, fmt.Sprintf(
					"%d items in %s band, need %d", band.count, band.name, e.cfg.MinItemsPerBand))
			}
		}

		if !dr.Ready {
			report.Ready = false
		}
		report.Domains[d] = *dr
	}

	return report, nil
}

// wellCalibrated requires both standard errors present and within the gates
func (e *Evaluator) wellCalibrated(it catalog.Item) bool {
	if it.SEDiscrim == nil || it.SEDifficulty == nil {
		return false
	}
	return *it.SEDiscrim <= e.cfg.MaxSEDiscrimination && *it.SEDifficulty <= e.cfg.MaxSEDifficulty
}
