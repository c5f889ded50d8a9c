// Package render writes finished MetricsReports for people and for plotting tools.
package render

import (
	"context"
	"fmt"
	"io"
	"strings"

	"picpic.bench/internal/core/domain"
)

var kindTitles = map[domain.ExecutorKind]string{
	domain.ExecutorProcess: "Process Pool",
	domain.ExecutorThread:  "Goroutine Pool",
}

// Table prints per-dataset result tables:
//
//	 Workers |   Time (s) |  Speedup | Efficiency
type Table struct {
	w io.Writer
}

func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

func (t *Table) Render(ctx context.Context, reports []domain.MetricsReport) error {
	for i := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.renderOne(&reports[i])
	}
	return nil
}

func (t *Table) renderOne(r *domain.MetricsReport) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(t.w, "\n%s\nDATASET: %s (%d images, run %s)\n%s\n", rule, r.Dataset, r.ItemCount, r.RunID, rule)

	fmt.Fprintf(t.w, "\n-- Sequential Baseline --\n")
	fmt.Fprintf(t.w, "Serial Time: %.4fs", r.SerialBaseline.ElapsedSeconds)
	if r.SerialBaseline.Failed > 0 {
		fmt.Fprintf(t.w, " (%d items skipped)", r.SerialBaseline.Failed)
	}
	fmt.Fprintln(t.w)

	for _, kind := range r.Kinds() {
		fmt.Fprintf(t.w, "\n-- %s --\n\n", title(kind))
		fmt.Fprintf(t.w, "%8s | %10s | %8s | %10s\n", "Workers", "Time (s)", "Speedup", "Efficiency")
		fmt.Fprintln(t.w, strings.Repeat("-", 46))
		for _, pt := range r.Measured[kind] {
			fmt.Fprintf(t.w, "%8d | %10.4f | %8.2f | %10.2f\n", pt.Workers, pt.ElapsedSeconds, pt.Speedup, pt.Efficiency)
		}

		model, ok := r.Models[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(t.w, "\nAmdahl's Law (%s): P = %.4f, best %.4fs at %d workers (speedup %.2f)\n",
			kind, model.ParallelFraction, model.BestSeconds, model.BestWorkers, model.ObservedSpeedup)
		fmt.Fprintf(t.w, "%8s | %12s | %10s | %11s\n", "Workers", "Exec Time", "SpeedUp", "Efficiency")
		fmt.Fprintln(t.w, strings.Repeat("-", 55))
		for _, p := range r.Predicted[kind] {
			fmt.Fprintf(t.w, "%8d | %12.3f | %10.3f | %11.3f\n", p.Workers, p.PredictedTime, p.PredictedSpeedup, p.PredictedEfficiency)
		}
	}

	if len(r.Errors) > 0 {
		fmt.Fprintf(t.w, "\n-- Errors --\n")
		for _, e := range r.Errors {
			fmt.Fprintf(t.w, "  %s\n", e)
		}
	}
}

func title(kind domain.ExecutorKind) string {
	if s, ok := kindTitles[kind]; ok {
		return s
	}
	return string(kind)
}
