// Package amdahl fits Amdahl's Law to a measured sweep and predicts scaling from the fit.
package amdahl

import (
	"math"

	"picpic.bench/internal/core/domain"
)

// EstimateParallelFraction back-solves P from one observed run. No speedup, or a
// single worker, yields P = 0.
func EstimateParallelFraction(baselineSeconds, bestSeconds float64, workers int) float64 {
	if baselineSeconds <= 0 || bestSeconds <= 0 || workers <= 1 {
		return 0
	}
	speedup := baselineSeconds / bestSeconds
	if speedup <= 1 {
		return 0
	}
	p := (1 - 1/speedup) / (1 - 1/float64(workers))
	return clamp(p, 0, 1)
}

// Speedup is the speedup Amdahl's Law predicts for parallel fraction p on w workers:
// the serial share 1-p runs unchanged, the parallel share p is split over w.
func Speedup(p float64, w int) float64 {
	if w < 1 {
		return 0
	}
	return 1 / ((1 - p) + p/float64(w))
}

// Predict returns the predicted series for the given worker counts, in input order.
func Predict(m domain.AmdahlModel, workers []int) []domain.Prediction {
	out := make([]domain.Prediction, 0, len(workers))
	for _, w := range workers {
		if w < 1 {
			continue
		}
		s := Speedup(m.ParallelFraction, w)
		out = append(out, domain.Prediction{
			Workers:             w,
			PredictedTime:       m.SerialBaselineSeconds / s,
			PredictedSpeedup:    s,
			PredictedEfficiency: s / float64(w),
		})
	}
	return out
}

// SelectBest returns the fastest result. Ties go to the smaller worker count.
func SelectBest(results []domain.ExecutionResult) (domain.ExecutionResult, bool) {
	if len(results) == 0 {
		return domain.ExecutionResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.ElapsedSeconds < best.ElapsedSeconds ||
			(r.ElapsedSeconds == best.ElapsedSeconds && r.Workers < best.Workers) {
			best = r
		}
	}
	return best, true
}

// Fit derives the model for one executor kind from its sweep.
func Fit(baselineSeconds float64, results []domain.ExecutionResult) (domain.AmdahlModel, error) {
	if baselineSeconds <= 0 || math.IsNaN(baselineSeconds) {
		return domain.AmdahlModel{}, domain.Newf(domain.KindModel, "amdahl_fit", "serial baseline must be positive, got %v", baselineSeconds)
	}
	best, ok := SelectBest(results)
	if !ok {
		return domain.AmdahlModel{}, domain.New(domain.KindModel, "amdahl_fit", "no measurements to fit")
	}
	if best.ElapsedSeconds <= 0 {
		return domain.AmdahlModel{}, domain.Newf(domain.KindModel, "amdahl_fit", "best time must be positive, got %v at %d workers", best.ElapsedSeconds, best.Workers)
	}

	return domain.AmdahlModel{
		ParallelFraction:      EstimateParallelFraction(baselineSeconds, best.ElapsedSeconds, best.Workers),
		SerialBaselineSeconds: baselineSeconds,
		BestWorkers:           best.Workers,
		BestSeconds:           best.ElapsedSeconds,
		ObservedSpeedup:       baselineSeconds / best.ElapsedSeconds,
	}, nil
}

// Measured annotates results with speedup and efficiency against the baseline.
func Measured(baselineSeconds float64, results []domain.ExecutionResult) []domain.MeasuredPoint {
	out := make([]domain.MeasuredPoint, 0, len(results))
	for _, r := range results {
		pt := domain.MeasuredPoint{ExecutionResult: r}
		if r.ElapsedSeconds > 0 && baselineSeconds > 0 {
			pt.Speedup = baselineSeconds / r.ElapsedSeconds
			pt.Efficiency = pt.Speedup / float64(max(r.Workers, 1))
		}
		out = append(out, pt)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
