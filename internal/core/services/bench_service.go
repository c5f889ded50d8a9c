package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"picpic.bench/internal/core/amdahl"
	"picpic.bench/internal/core/dataset"
	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/harness"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
	"picpic.bench/internal/core/tracing"
)

// DatasetSource is one input directory to benchmark.
type DatasetSource struct {
	Name string
	Path string
}

type BenchOptions struct {
	// Workers is the sweep run for every parallel executor kind.
	Workers []int
	// Materialize writes every output once, untimed, into ResultsDir/<dataset>.
	Materialize bool
	ResultsDir  string
}

// BenchDeps wires the service. Serial is required; every sink may be nil.
type BenchDeps struct {
	Serial    ports.Executor
	Parallel  []ports.Executor
	Publisher ports.EventPublisher
	Archive   ports.ReportArchive
	Failures  ports.FailureLog
	Metrics   ports.MetricsRecorder
	Monitor   *HostMonitor
	Store     *ReportStore
}

type BenchService struct {
	deps    BenchDeps
	opts    BenchOptions
	harness *harness.Harness
	host    domain.HostInfo
	newID   func() string
}

func NewBenchService(deps BenchDeps, opts BenchOptions) (*BenchService, error) {
	if deps.Serial == nil {
		return nil, domain.New(domain.KindConfig, "new_bench_service", "serial executor is required")
	}
	for _, w := range opts.Workers {
		if err := domain.ValidateWorkerCount(w); err != nil {
			return nil, domain.Wrap(domain.KindConfig, "new_bench_service", "invalid worker sweep", err)
		}
	}
	if opts.Materialize && opts.ResultsDir == "" {
		return nil, domain.New(domain.KindConfig, "new_bench_service", "materialization needs a results directory")
	}
	return &BenchService{
		deps:    deps,
		opts:    opts,
		harness: harness.New(),
		newID:   uuid.NewString,
	}, nil
}

// SetHost records the host description copied into every report.
func (s *BenchService) SetHost(h domain.HostInfo) {
	s.host = h
}

// Run benchmarks every source in order. A missing dataset is skipped with a warning;
// only cancellation stops the run early, returning the reports finished so far.
func (s *BenchService) Run(ctx context.Context, sources []DatasetSource) ([]domain.MetricsReport, error) {
	runID := s.newID()
	ctx = logger.WithValue(ctx, logger.RunIDKey, runID)
	logger.InfoContext(ctx, "Benchmark started", "datasets", len(sources), "workers", s.opts.Workers)

	reports := make([]domain.MetricsReport, 0, len(sources))
	for _, src := range sources {
		report, err := s.RunDataset(ctx, runID, src)
		if errors.Is(err, domain.ErrDirectoryNotFound) {
			logger.WarnContext(ctx, "Skipping dataset: path not found", "dataset", src.Name, "path", src.Path)
			s.publish(ctx, domain.Event{Type: domain.EventDatasetSkipped, RunID: runID, Dataset: src.Name, Message: err.Error()})
			continue
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, *report)
	}

	logger.InfoContext(ctx, "Benchmark complete", "reports", len(reports))
	return reports, nil
}

// RunDataset measures one dataset: untimed materialization, serial baseline, the
// parallel sweep, then the Amdahl fit.
func (s *BenchService) RunDataset(ctx context.Context, runID string, src DatasetSource) (report *domain.MetricsReport, err error) {
	ctx = logger.WithValue(ctx, logger.DatasetKey, src.Name)
	ctx, span := tracing.StartSpan(ctx, "bench.dataset",
		attribute.String("bench.run_id", runID),
		attribute.String("bench.dataset", src.Name))
	defer func() { tracing.End(span, err) }()

	ds, err := dataset.Enumerate(src.Path, dataset.Options{Name: src.Name})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("bench.items", ds.Len()))
	logger.InfoContext(ctx, "Dataset enumerated", "items", ds.Len(), "path", src.Path)
	s.publish(ctx, domain.Event{Type: domain.EventDatasetStarted, RunID: runID, Dataset: src.Name})

	var problems []string

	if s.opts.Materialize {
		if err := s.materialize(ctx, src); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WarnContext(ctx, "Materialization failed", "error", err)
			problems = append(problems, fmt.Sprintf("materialize: %v", err))
		}
	}

	if ds.Len() == 0 {
		logger.WarnContext(ctx, "Dataset has no images, sweep skipped")
		problems = append(problems, "dataset has no images")
	}

	if s.deps.Monitor != nil {
		s.deps.Monitor.CheckIdle(ctx)
	}
	baseline, baseOutcome, err := s.measure(ctx, runID, s.deps.Serial, ds, 1)
	if err != nil {
		return nil, fmt.Errorf("serial baseline for %s: %w", src.Name, err)
	}

	measured := make(map[domain.ExecutorKind][]domain.MeasuredPoint)
	models := make(map[domain.ExecutorKind]domain.AmdahlModel)
	predicted := make(map[domain.ExecutorKind][]domain.Prediction)

	if ds.Len() > 0 {
		for _, ex := range s.deps.Parallel {
			results, errs := s.sweep(ctx, runID, ex, ds, baseOutcome)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			problems = append(problems, errs...)
			if len(results) == 0 {
				continue
			}

			kind := ex.Kind()
			measured[kind] = amdahl.Measured(baseline.ElapsedSeconds, results)
			model, err := amdahl.Fit(baseline.ElapsedSeconds, results)
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", kind, err))
				continue
			}
			models[kind] = model
			predicted[kind] = amdahl.Predict(model, s.opts.Workers)
			if s.deps.Metrics != nil {
				s.deps.Metrics.SetParallelFraction(src.Name, kind, model.ParallelFraction)
			}
			logger.InfoContext(ctx, "Amdahl fit", "executor", kind,
				"parallel_fraction", model.ParallelFraction,
				"best_workers", model.BestWorkers, "best_seconds", model.BestSeconds)
		}
	}

	report = &domain.MetricsReport{
		RunID:          runID,
		Dataset:        src.Name,
		ItemCount:      ds.Len(),
		Workers:        append([]int(nil), s.opts.Workers...),
		SerialBaseline: baseline,
		Measured:       measured,
		Models:         models,
		Predicted:      predicted,
		Errors:         problems,
		Host:           s.host,
		CreatedAt:      time.Now().UTC(),
	}

	if s.deps.Store != nil {
		s.deps.Store.Put(*report)
	}
	if s.deps.Archive != nil {
		if err := s.deps.Archive.Save(ctx, report); err != nil {
			logger.WarnContext(ctx, "Failed to archive report", "error", err)
		}
	}
	s.publish(ctx, domain.Event{Type: domain.EventReportReady, RunID: runID, Dataset: src.Name})
	return report, nil
}

// sweep runs every worker count of one executor kind, strictly one after another.
// A failed measurement is reported and the sweep moves on to the next count.
func (s *BenchService) sweep(ctx context.Context, runID string, ex ports.Executor, ds *domain.Dataset, baseline *domain.RunOutcome) ([]domain.ExecutionResult, []string) {
	var (
		results []domain.ExecutionResult
		errs    []string
	)
	for _, w := range s.opts.Workers {
		if ctx.Err() != nil {
			return results, errs
		}
		res, outcome, err := s.measure(ctx, runID, ex, ds, w)
		if err != nil {
			if ctx.Err() != nil {
				return results, errs
			}
			logger.ErrorContext(ctx, "Measurement failed", "executor", ex.Kind(), "workers", w, "error", err)
			errs = append(errs, fmt.Sprintf("%s@%d: %v", ex.Kind(), w, err))
			s.publish(ctx, domain.Event{Type: domain.EventMeasurementError, RunID: runID, Dataset: ds.Name, Message: err.Error(),
				Result: &domain.ExecutionResult{Kind: ex.Kind(), Workers: w}})
			continue
		}
		if msg := compareOutcomes(baseline, outcome); msg != "" {
			logger.WarnContext(ctx, "Output mismatch against serial baseline", "executor", ex.Kind(), "workers", w, "detail", msg)
			errs = append(errs, fmt.Sprintf("%s@%d: %s", ex.Kind(), w, msg))
		}
		results = append(results, res)
	}
	return results, errs
}

func (s *BenchService) measure(ctx context.Context, runID string, ex ports.Executor, ds *domain.Dataset, workers int) (res domain.ExecutionResult, outcome *domain.RunOutcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "bench.measure",
		attribute.String("bench.executor", string(ex.Kind())),
		attribute.Int("bench.workers", workers))
	defer func() { tracing.End(span, err) }()

	res, outcome, err = s.harness.Measure(ctx, ex, ds, workers)
	if err != nil {
		return res, nil, err
	}
	span.SetAttributes(attribute.Float64("bench.elapsed_seconds", res.ElapsedSeconds))

	logger.InfoContext(ctx, "Measured", "executor", res.Kind, "workers", workers,
		"seconds", res.ElapsedSeconds, "succeeded", res.Succeeded, "failed", res.Failed)

	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveMeasurement(ds.Name, res)
	}
	if s.deps.Failures != nil && len(outcome.Failures) > 0 {
		if err := s.deps.Failures.Record(ctx, runID, ds.Name, res, outcome.Failures); err != nil {
			logger.WarnContext(ctx, "Failed to record item failures", "error", err)
		}
	}
	r := res
	s.publish(ctx, domain.Event{Type: domain.EventMeasurement, RunID: runID, Dataset: ds.Name, Result: &r})
	return res, outcome, nil
}

func (s *BenchService) materialize(ctx context.Context, src DatasetSource) error {
	out := filepath.Join(s.opts.ResultsDir, src.Name)
	if err := dataset.PrepareOutputDir(out); err != nil {
		return err
	}
	mds, err := dataset.Enumerate(src.Path, dataset.Options{Name: src.Name, Persist: true, OutputDir: out})
	if err != nil {
		return err
	}

	start := time.Now()
	outcome, err := s.deps.Serial.Run(ctx, mds, 1)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Outputs materialized", "dir", out,
		"written", outcome.Succeeded(), "skipped", outcome.Failed(), "took", time.Since(start))
	return nil
}

// publish never fails the benchmark; sinks are best effort.
func (s *BenchService) publish(ctx context.Context, ev domain.Event) {
	if s.deps.Publisher == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := s.deps.Publisher.Publish(ctx, ev); err != nil {
		logger.DebugContext(ctx, "Event not published", "type", ev.Type, "error", err)
	}
}

// compareOutcomes checks the parallel pass produced exactly the serial outputs.
func compareOutcomes(want, got *domain.RunOutcome) string {
	if want == nil || got == nil {
		return ""
	}
	if want.Succeeded() != got.Succeeded() {
		return fmt.Sprintf("produced %d outputs, serial produced %d", got.Succeeded(), want.Succeeded())
	}
	for id, w := range want.Outputs {
		g, ok := got.Outputs[id]
		if !ok {
			return fmt.Sprintf("missing output for %s", id)
		}
		if g.Digest != w.Digest {
			return fmt.Sprintf("output for %s differs from serial", id)
		}
	}
	return ""
}
