// Command simulate runs Monte Carlo validation of the adaptive engine
// against a synthetic item bank and prints the accuracy report.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"adaptiq/internal/config"
	"adaptiq/internal/simulation"
)

var (
	numExaminees   int     // Number of simulated examinees
	thetaMean      float64 // Mean of the true ability distribution
	thetaSD        float64 // SD of the true ability distribution
	itemsPerDomain int     // Synthetic bank size per cognitive domain
	seed           int64   // Base seed for every random stream
	parallelism    int     // Concurrent examinees; 0 means GOMAXPROCS
	logLevel       string  // Log verbosity level

	minConvergence float64 // Acceptance floor on SE convergence rate
	minBalance     float64 // Acceptance floor on content balance rate
	maxBandRMSE    float64 // Acceptance ceiling on per-band RMSE
)

var rootCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Monte Carlo validation of the adaptive testing engine",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate a cohort of examinees and report estimation accuracy",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := simulation.Config{
			NumExaminees:   numExaminees,
			ThetaMean:      thetaMean,
			ThetaSD:        thetaSD,
			ItemsPerDomain: itemsPerDomain,
			Seed:           seed,
			Parallelism:    parallelism,
			CAT:            config.DefaultCATConfig(),
		}

		logrus.Infof("Simulating %d examinees (theta ~ N(%.2f, %.2f), bank %d items/domain, seed %d)",
			cfg.NumExaminees, cfg.ThetaMean, cfg.ThetaSD, cfg.ItemsPerDomain, cfg.Seed)

		runner, err := simulation.NewRunner(cfg, nil)
		if err != nil {
			logrus.Fatalf("Invalid simulation config: %v", err)
		}
		report, err := runner.Run(context.Background())
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}

		report.Print(os.Stdout)

		failed := false
		if !report.ConvergedWithinBudget(minConvergence) {
			logrus.Errorf("Convergence rate below the %.0f%% acceptance floor", minConvergence*100)
			failed = true
		}
		if !report.BalancedOrWaived(minBalance) {
			logrus.Errorf("Content balance rate below the %.0f%% acceptance floor", minBalance*100)
			failed = true
		}
		if !report.RMSEBounded(maxBandRMSE) {
			logrus.Errorf("A difficulty band exceeds the %.2f RMSE ceiling", maxBandRMSE)
			failed = true
		}
		if failed {
			os.Exit(1)
		}
		logrus.Info("Simulation complete, acceptance checks passed.")
	},
}

func init() {
	runCmd.Flags().IntVar(&numExaminees, "examinees", 500, "number of simulated examinees")
	runCmd.Flags().Float64Var(&thetaMean, "theta-mean", 0.0, "mean of the true ability distribution")
	runCmd.Flags().Float64Var(&thetaSD, "theta-sd", 1.0, "standard deviation of the true ability distribution")
	runCmd.Flags().IntVar(&itemsPerDomain, "items-per-domain", 50, "synthetic bank size per domain")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "base seed for every random stream")
	runCmd.Flags().IntVar(&parallelism, "parallelism", 0, "concurrent examinees (0 = GOMAXPROCS)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "log verbosity (debug, info, warn, error)")
	runCmd.Flags().Float64Var(&minConvergence, "min-convergence", 0.0, "fail when the SE convergence rate falls below this ratio")
	runCmd.Flags().Float64Var(&minBalance, "min-balance", 0.0, "fail when the content balance rate falls below this ratio")
	runCmd.Flags().Float64Var(&maxBandRMSE, "max-band-rmse", 10.0, "fail when any ability band exceeds this RMSE")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
