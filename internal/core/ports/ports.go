package ports

import (
	"context"

	"picpic.bench/internal/core/domain"
)

// Transformer is the opaque, deterministic unit of work applied to each image.
type Transformer interface {
	Transform(raw []byte) ([]byte, error)
}

// TransformFunc adapts a plain function to Transformer
type TransformFunc func(raw []byte) ([]byte, error)

func (f TransformFunc) Transform(raw []byte) ([]byte, error) {
	return f(raw)
}

// Executor applies the transform to every item of a dataset.
// Item failures are reported in the outcome; a returned error means the pass itself failed.
type Executor interface {
	Kind() domain.ExecutorKind
	Run(ctx context.Context, ds *domain.Dataset, workers int) (*domain.RunOutcome, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

type ReportArchive interface {
	Save(ctx context.Context, report *domain.MetricsReport) error
	ListRuns(ctx context.Context, dataset string, limit int) ([]string, error)
	Get(ctx context.Context, runID, dataset string) (*domain.MetricsReport, error)
}

// Renderer consumes finished reports and never feeds back into the core.
type Renderer interface {
	Render(ctx context.Context, reports []domain.MetricsReport) error
}

// EventSource streams events published by a (possibly remote) benchmark run.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan domain.Event, error)
}

// FailureLog keeps the items a measurement skipped, keyed by run.
type FailureLog interface {
	Record(ctx context.Context, runID, dataset string, res domain.ExecutionResult, failures []domain.ItemFailure) error
}

// MetricsRecorder exports measurements to a metrics backend.
type MetricsRecorder interface {
	ObserveMeasurement(dataset string, res domain.ExecutionResult)
	SetParallelFraction(dataset string, kind domain.ExecutorKind, p float64)
}
