package gormdb

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"picpic.bench/internal/core/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleReport(runID, dataset string, threadSeconds float64) *domain.MetricsReport {
	serial := domain.ExecutionResult{Kind: domain.ExecutorSerial, Workers: 1, ElapsedSeconds: 8, Succeeded: 10}
	return &domain.MetricsReport{
		RunID:          runID,
		Dataset:        dataset,
		ItemCount:      10,
		Workers:        []int{2, 4},
		SerialBaseline: serial,
		Measured: map[domain.ExecutorKind][]domain.MeasuredPoint{
			domain.ExecutorThread: {
				{ExecutionResult: domain.ExecutionResult{Kind: domain.ExecutorThread, Workers: 2, ElapsedSeconds: threadSeconds, Succeeded: 10}, Speedup: 8 / threadSeconds, Efficiency: 4 / threadSeconds},
			},
			domain.ExecutorProcess: {
				{ExecutionResult: domain.ExecutionResult{Kind: domain.ExecutorProcess, Workers: 2, ElapsedSeconds: 5, Succeeded: 10}, Speedup: 1.6, Efficiency: 0.8},
			},
		},
		Models: map[domain.ExecutorKind]domain.AmdahlModel{
			domain.ExecutorThread: {ParallelFraction: 0.5, SerialBaselineSeconds: 8, BestWorkers: 2, BestSeconds: threadSeconds},
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestRepository_SaveGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := sampleReport("run-a", "images_100", 4)
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.Get(ctx, "run-a", "images_100")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestRepository_GetMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Get(context.Background(), "nope", "images_100")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_DuplicateRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Save(ctx, sampleReport("run-a", "d", 4)); err != nil {
		t.Fatal(err)
	}
	err := repo.Save(ctx, sampleReport("run-a", "d", 4))
	if !domain.IsKind(err, domain.KindStorage) {
		t.Fatalf("expected storage error for duplicate, got %v", err)
	}
}

func TestRepository_ListRunsAndHistory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, r := range []struct {
		run, dataset string
		thread       float64
	}{
		{"run-1", "images_100", 4},
		{"run-1", "images_5000", 40},
		{"run-2", "images_100", 3},
		{"run-3", "images_5000", 30},
	} {
		if err := repo.Save(ctx, sampleReport(r.run, r.dataset, r.thread)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := repo.ListRuns(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(all, []string{"run-3", "run-2", "run-1"}) {
		t.Errorf("all runs = %v", all)
	}

	small, err := repo.ListRuns(ctx, "images_100", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(small, []string{"run-2"}) {
		t.Errorf("images_100 runs = %v", small)
	}

	hist, err := repo.History(ctx, "images_100", domain.ExecutorThread, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 || hist[0].ElapsedSeconds != 4 || hist[1].ElapsedSeconds != 3 {
		t.Errorf("history = %+v", hist)
	}
}

func TestOpen_UnsupportedURL(t *testing.T) {
	_, err := Open("mysql://localhost/bench")
	if !domain.IsKind(err, domain.KindConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
