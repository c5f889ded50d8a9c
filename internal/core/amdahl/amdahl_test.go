package amdahl

import (
	"errors"
	"math"
	"testing"

	"picpic.bench/internal/core/domain"
)

const eps = 1e-9

func approx(a, b float64) bool { return math.Abs(a-b) < eps }

func TestEstimateParallelFraction(t *testing.T) {
	tests := []struct {
		name     string
		baseline float64
		best     float64
		workers  int
		want     float64
	}{
		{"fitting example", 10.0, 2.5, 8, (1 - 0.25) / (1 - 0.125)},
		{"no speedup", 10.0, 10.0, 4, 0},
		{"slowdown", 10.0, 12.0, 4, 0},
		{"single worker", 10.0, 5.0, 1, 0},
		{"superlinear clamps", 10.0, 1.0, 4, 1},
		{"perfect scaling", 8.0, 2.0, 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateParallelFraction(tt.baseline, tt.best, tt.workers)
			if !approx(got, tt.want) {
				t.Errorf("P = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpeedup(t *testing.T) {
	p := EstimateParallelFraction(10, 2.5, 8)
	tests := []struct {
		name string
		p    float64
		w    int
		want float64
	}{
		{"fitted point", p, 8, 4},
		{"no parallel share", 0, 2, 1},
		{"no parallel share many workers", 0, 64, 1},
		{"fully parallel", 1, 8, 8},
		{"half parallel", 0.5, 2, 1 / (0.5 + 0.25)},
		{"one worker", 0.9, 1, 1},
		{"invalid workers", 0.9, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Speedup(tt.p, tt.w); !approx(got, tt.want) {
				t.Errorf("Speedup(%v, %d) = %v, want %v", tt.p, tt.w, got, tt.want)
			}
		})
	}
}

func TestFit_RoundTripAtFittingPoint(t *testing.T) {
	results := []domain.ExecutionResult{
		{Kind: domain.ExecutorProcess, Workers: 2, ElapsedSeconds: 6.0},
		{Kind: domain.ExecutorProcess, Workers: 4, ElapsedSeconds: 3.5},
		{Kind: domain.ExecutorProcess, Workers: 8, ElapsedSeconds: 2.5},
		{Kind: domain.ExecutorProcess, Workers: 16, ElapsedSeconds: 2.7},
	}
	m, err := Fit(10.0, results)
	if err != nil {
		t.Fatal(err)
	}
	if m.BestWorkers != 8 || m.BestSeconds != 2.5 {
		t.Fatalf("best = %d@%v, want 8@2.5", m.BestWorkers, m.BestSeconds)
	}
	if !approx(m.ObservedSpeedup, 4.0) {
		t.Errorf("observed speedup = %v", m.ObservedSpeedup)
	}
	if !approx(m.ParallelFraction, 0.8571428571428571) {
		t.Errorf("P = %v, want 0.857142...", m.ParallelFraction)
	}

	pred := Predict(m, []int{8})
	if len(pred) != 1 || !approx(pred[0].PredictedSpeedup, 4.0) {
		t.Fatalf("predictedSpeedup(8) = %+v, want 4.0", pred)
	}
	if !approx(pred[0].PredictedTime, 2.5) {
		t.Errorf("predictedTime(8) = %v, want 2.5", pred[0].PredictedTime)
	}
	if !approx(pred[0].PredictedEfficiency, 0.5) {
		t.Errorf("predictedEfficiency(8) = %v, want 0.5", pred[0].PredictedEfficiency)
	}
}

func TestPredict_DegenerateIsFlat(t *testing.T) {
	m, err := Fit(10.0, []domain.ExecutionResult{{Workers: 4, ElapsedSeconds: 10.0}})
	if err != nil {
		t.Fatal(err)
	}
	if m.ParallelFraction != 0 {
		t.Fatalf("P = %v, want 0", m.ParallelFraction)
	}
	for _, p := range Predict(m, []int{1, 2, 4, 8, 64}) {
		if !approx(p.PredictedSpeedup, 1) {
			t.Errorf("w=%d speedup = %v, want 1", p.Workers, p.PredictedSpeedup)
		}
		if !approx(p.PredictedTime, 10.0) {
			t.Errorf("w=%d time = %v, want 10", p.Workers, p.PredictedTime)
		}
		if !approx(p.PredictedEfficiency, 1/float64(p.Workers)) {
			t.Errorf("w=%d efficiency = %v", p.Workers, p.PredictedEfficiency)
		}
	}
}

func TestPredict_MonotoneAndBounded(t *testing.T) {
	m := domain.AmdahlModel{ParallelFraction: 0.9, SerialBaselineSeconds: 100}
	prev := 0.0
	for _, p := range Predict(m, []int{1, 2, 4, 8, 16, 1024}) {
		if p.PredictedSpeedup < prev {
			t.Errorf("speedup decreased at w=%d", p.Workers)
		}
		if p.PredictedSpeedup > 1/(1-0.9)+eps {
			t.Errorf("speedup %v exceeds Amdahl ceiling", p.PredictedSpeedup)
		}
		prev = p.PredictedSpeedup
	}
}

func TestPredict_SkipsNonPositiveWorkers(t *testing.T) {
	m := domain.AmdahlModel{ParallelFraction: 0.5, SerialBaselineSeconds: 1}
	if got := Predict(m, []int{0, -1, 2}); len(got) != 1 || got[0].Workers != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestSelectBest_TiesPreferFewerWorkers(t *testing.T) {
	results := []domain.ExecutionResult{
		{Workers: 8, ElapsedSeconds: 2.0},
		{Workers: 4, ElapsedSeconds: 2.0},
		{Workers: 16, ElapsedSeconds: 2.0},
		{Workers: 2, ElapsedSeconds: 3.0},
	}
	best, ok := SelectBest(results)
	if !ok || best.Workers != 4 {
		t.Errorf("best = %+v, want 4 workers", best)
	}
	if _, ok := SelectBest(nil); ok {
		t.Error("empty sweep must not select a best result")
	}
}

func TestFit_Errors(t *testing.T) {
	ok := []domain.ExecutionResult{{Workers: 2, ElapsedSeconds: 1}}
	cases := map[string]struct {
		baseline float64
		results  []domain.ExecutionResult
	}{
		"zero baseline":  {0, ok},
		"no results":     {1, nil},
		"zero best time": {1, []domain.ExecutionResult{{Workers: 2, ElapsedSeconds: 0}}},
	}
	for name, c := range cases {
		_, err := Fit(c.baseline, c.results)
		var de *domain.Error
		if !errors.As(err, &de) || de.Kind != domain.KindModel {
			t.Errorf("%s: expected model error, got %v", name, err)
		}
	}
}

func TestMeasured(t *testing.T) {
	pts := Measured(8, []domain.ExecutionResult{{Workers: 4, ElapsedSeconds: 4}})
	if len(pts) != 1 || !approx(pts[0].Speedup, 2) || !approx(pts[0].Efficiency, 0.5) {
		t.Errorf("got %+v", pts)
	}
}
