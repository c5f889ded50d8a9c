package render

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"picpic.bench/internal/core/domain"
)

func report() domain.MetricsReport {
	return domain.MetricsReport{
		RunID:          "run-1",
		Dataset:        "images_100",
		ItemCount:      100,
		Workers:        []int{2, 4},
		SerialBaseline: domain.ExecutionResult{Kind: domain.ExecutorSerial, Workers: 1, ElapsedSeconds: 10, Succeeded: 99, Failed: 1},
		Measured: map[domain.ExecutorKind][]domain.MeasuredPoint{
			domain.ExecutorProcess: {
				{ExecutionResult: domain.ExecutionResult{Kind: domain.ExecutorProcess, Workers: 2, ElapsedSeconds: 5.5}, Speedup: 1.818, Efficiency: 0.909},
				{ExecutionResult: domain.ExecutionResult{Kind: domain.ExecutorProcess, Workers: 4, ElapsedSeconds: 3.0}, Speedup: 3.333, Efficiency: 0.833},
			},
		},
		Models: map[domain.ExecutorKind]domain.AmdahlModel{
			domain.ExecutorProcess: {ParallelFraction: 0.9333, SerialBaselineSeconds: 10, BestWorkers: 4, BestSeconds: 3, ObservedSpeedup: 3.333},
		},
		Predicted: map[domain.ExecutorKind][]domain.Prediction{
			domain.ExecutorProcess: {{Workers: 8, PredictedTime: 1.83, PredictedSpeedup: 5.45, PredictedEfficiency: 0.68}},
		},
		Errors: []string{"thread@64: worker startup failure"},
	}
}

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTable(&buf).Render(context.Background(), []domain.MetricsReport{report()}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"DATASET: images_100 (100 images, run run-1)",
		"Serial Time: 10.0000s (1 items skipped)",
		"-- Process Pool --",
		"       4 |     3.0000 |     3.33 |       0.83",
		"P = 0.9333, best 3.0000s at 4 workers",
		"       8 |        1.830 |      5.450 |       0.680",
		"thread@64: worker startup failure",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Goroutine Pool") {
		t.Error("kinds without measurements must not be printed")
	}
}

func TestJSONFile_Render(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	if err := NewJSONFile(path).Render(context.Background(), []domain.MetricsReport{report()}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]domain.MetricsReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	r, ok := got["images_100"]
	if !ok {
		t.Fatalf("missing dataset key: %v", got)
	}
	if r.Models[domain.ExecutorProcess].BestWorkers != 4 || len(r.Measured[domain.ExecutorProcess]) != 2 {
		t.Errorf("unexpected report %+v", r)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}
