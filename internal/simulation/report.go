package simulation

import (
	"fmt"
	"io"
	"math"

	"adaptiq/domain/session"
)

var stopReasonOrder = []session.StopReason{
	session.StopSEThreshold,
	session.StopThetaStable,
	session.StopMaxItems,
	session.StopPoolExhausted,
}

// Print writes the human-readable run summary. Layout follows the aggregate
// metrics first, then the per-band accuracy table.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Report ===")
	fmt.Fprintf(w, "Examinees            : %d\n", r.Aggregate.Examinees)
	fmt.Fprintf(w, "Item bank            : %d items/domain, seed %d\n", r.Config.ItemsPerDomain, r.Config.Seed)
	fmt.Fprintf(w, "Mean items           : %.2f (median %.1f, max allowed %d)\n",
		r.Aggregate.MeanItems, r.Aggregate.MedianItems, r.Config.CAT.MaxItems)
	fmt.Fprintf(w, "Mean final SE        : %.4f (threshold %.2f)\n", r.Aggregate.MeanSE, r.Config.CAT.SEThreshold)
	fmt.Fprintf(w, "Mean bias            : %+.4f\n", r.Aggregate.MeanBias)
	fmt.Fprintf(w, "RMSE                 : %.4f\n", r.Aggregate.RMSE)
	fmt.Fprintf(w, "True/est correlation : %.4f\n", r.Aggregate.Correlation)
	fmt.Fprintf(w, "Convergence rate     : %.1f%%\n", r.Aggregate.ConvergenceRate*100)
	fmt.Fprintf(w, "Balance rate         : %.1f%%\n", r.Aggregate.BalanceRate*100)

	fmt.Fprintln(w, "\nStop reasons:")
	for _, reason := range stopReasonOrder {
		if n, ok := r.Aggregate.StopReasons[reason]; ok {
			fmt.Fprintf(w, "  %-20s : %d (%.1f%%)\n", reason, n, float64(n)/float64(r.Aggregate.Examinees)*100)
		}
	}

	fmt.Fprintln(w, "\nAbility bands (true theta):")
	fmt.Fprintf(w, "  %-10s %-18s %6s %10s %8s %10s\n", "band", "range", "n", "bias", "rmse", "items")
	for _, b := range r.Bands {
		fmt.Fprintf(w, "  %-10s %-18s %6d %+10.4f %8.4f %10.2f\n",
			b.Band, bandRange(b), b.Examinees, b.MeanBias, b.RMSE, b.MeanItems)
	}
}

func bandRange(b BandMetrics) string {
	lo, hi := "-inf", "+inf"
	if !math.IsInf(b.Lo, -1) {
		lo = fmt.Sprintf("%.2f", b.Lo)
	}
	if !math.IsInf(b.Hi, 1) {
		hi = fmt.Sprintf("%.2f", b.Hi)
	}
	return fmt.Sprintf("[%s, %s)", lo, hi)
}
