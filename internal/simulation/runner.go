package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"adaptiq/adapters/rng"
	"adaptiq/domain/catalog"
	"adaptiq/domain/core"
	"adaptiq/domain/session"
	"adaptiq/internal"
	"adaptiq/internal/config"
	"adaptiq/internal/engine"
	"adaptiq/internal/irt"
	"adaptiq/internal/selector"
)

// Config controls a Monte Carlo simulation run
type Config struct {
	NumExaminees   int
	ThetaMean      float64
	ThetaSD        float64
	ItemsPerDomain int
	Seed           int64
	CAT            config.CATConfig
	// Parallelism bounds the number of concurrently simulated examinees;
	// zero means GOMAXPROCS
	Parallelism int
}

// DefaultConfig returns a run sized for engine validation
func DefaultConfig() Config {
	return Config{
		NumExaminees:   500,
		ThetaMean:      0.0,
		ThetaSD:        1.0,
		ItemsPerDomain: 50,
		Seed:           42,
		CAT:            config.DefaultCATConfig(),
	}
}

// ExamineeResult captures one simulated test from start to termination
type ExamineeResult struct {
	Index             int
	TrueTheta         float64
	FinalTheta        float64
	Bias              float64
	FinalSE           float64
	ItemsAdministered int
	StopReason        session.StopReason
	Converged         bool
	DomainCoverage    catalog.DomainCoverage
}

// Runner executes simulated adaptive tests against a generated bank
type Runner struct {
	cfg     Config
	bank    []catalog.Item
	streams *rng.Deterministic
	logger  *internal.Logger
}

// NewRunner generates the item bank and prepares the run
func NewRunner(cfg Config, logger *internal.Logger) (*Runner, error) {
	if cfg.NumExaminees < 1 {
		return nil, fmt.Errorf("NumExaminees must be at least 1, got %d", cfg.NumExaminees)
	}
	if cfg.ThetaSD < 0 {
		return nil, fmt.Errorf("ThetaSD cannot be negative, got %v", cfg.ThetaSD)
	}
	if err := cfg.CAT.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	bank := GenerateBank(BankConfig{ItemsPerDomain: cfg.ItemsPerDomain, Seed: cfg.Seed})
	return &Runner{
		cfg:     cfg,
		bank:    bank,
		streams: rng.NewDeterministic(),
		logger:  logger.WithPrefix("sim:"),
	}, nil
}

// Bank exposes the generated item bank (tests assert its shape)
func (r *Runner) Bank() []catalog.Item {
	return r.bank
}

// Run simulates every examinee and aggregates the results. Examinees are
// independent sessions and run in parallel; each draws from its own
// deterministic RNG streams so results are reproducible for a given seed.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	// True abilities come from one dedicated stream so the cohort is
	// independent of per-examinee response noise
	abilityRNG, err := r.streams.SeededStream(ctx, "abilities", r.cfg.Seed)
	if err != nil {
		return nil, err
	}
	trueThetas := make([]float64, r.cfg.NumExaminees)
	for i := range trueThetas {
		trueThetas[i] = r.cfg.ThetaMean + r.cfg.ThetaSD*abilityRNG.NormFloat64()
	}

	results := make([]ExamineeResult, r.cfg.NumExaminees)

	g, gctx := errgroup.WithContext(ctx)
	limit := r.cfg.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(limit)

	for i := 0; i < r.cfg.NumExaminees; i++ {
		i := i
		g.Go(func() error {
			res, err := r.simulateExaminee(gctx, i, trueThetas[i])
			if err != nil {
				return fmt.Errorf("examinee %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := buildReport(r.cfg, results)
	r.logger.Info("simulated %d examinees: mean items %.1f, mean SE %.3f, convergence %.1f%%",
		r.cfg.NumExaminees, report.Aggregate.MeanItems, report.Aggregate.MeanSE, report.Aggregate.ConvergenceRate*100)
	return report, nil
}

// simulateExaminee runs one full adaptive test: select, answer with a
// Bernoulli draw at the 2PL probability, process, repeat until stopping.
func (r *Runner) simulateExaminee(ctx context.Context, index int, trueTheta float64) (ExamineeResult, error) {
	selRNG, err := r.streams.SessionStream(ctx, fmt.Sprintf("examinee-%d", index), "select", r.cfg.Seed)
	if err != nil {
		return ExamineeResult{}, err
	}
	respRNG, err := r.streams.SessionStream(ctx, fmt.Sprintf("examinee-%d", index), "respond", r.cfg.Seed)
	if err != nil {
		return ExamineeResult{}, err
	}

	eng := engine.New(r.cfg.CAT, r.logger)
	sel := selector.New(r.cfg.CAT)

	userID := core.UserID(fmt.Sprintf("sim-user-%d", index))
	sessionID := core.SessionID(fmt.Sprintf("sim-sess-%d", index))
	s := eng.Initialize(userID, sessionID, 0)

	reason := session.StopReason("")
	// Safety cap over the stopping rules: never loop past the pool size
	for step := 0; step < len(r.bank); step++ {
		item, ok := sel.SelectNext(r.bank, selector.Inputs{
			Theta:        s.State.Theta,
			Administered: s.State.AdministeredSet(),
			Coverage:     s.State.DomainCoverage,
		}, selRNG)
		if !ok {
			if err := eng.StopExhausted(s); err != nil {
				return ExamineeResult{}, err
			}
			reason = session.StopPoolExhausted
			break
		}

		correct := r.simulateResponse(respRNG, trueTheta, item)
		stepResult, err := eng.ProcessResponse(s, engine.ResponseInput{
			ItemID:         item.ID,
			Correct:        correct,
			Domain:         item.Domain,
			Discrimination: &item.Discrimination,
			Difficulty:     &item.Difficulty,
		})
		if err != nil {
			return ExamineeResult{}, err
		}
		if err := s.State.CheckInvariants(); err != nil {
			return ExamineeResult{}, fmt.Errorf("invariant violated after item %d: %w", step+1, err)
		}
		if stepResult.ShouldStop {
			reason = stepResult.StopReason
			break
		}
	}

	return ExamineeResult{
		Index:             index,
		TrueTheta:         trueTheta,
		FinalTheta:        s.State.Theta,
		Bias:              s.State.Theta - trueTheta,
		FinalSE:           s.State.ThetaSE,
		ItemsAdministered: s.State.NumItems(),
		StopReason:        reason,
		Converged:         s.State.ThetaSE < r.cfg.CAT.SEThreshold,
		DomainCoverage:    s.State.DomainCoverage.Clone(),
	}, nil
}

// simulateResponse draws a graded outcome from the examinee's true ability
func (r *Runner) simulateResponse(rngStream *rand.Rand, trueTheta float64, item catalog.Item) bool {
	p := irt.Probability(trueTheta, item.Discrimination, item.Difficulty)
	return rngStream.Float64() < p
}
