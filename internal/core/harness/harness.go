// Package harness times full executor passes over a dataset.
package harness

import (
	"context"
	"sync"
	"time"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
)

// Harness serialises measurements: a second Measure call blocks until the first has
// returned, so two configurations never share the CPU.
type Harness struct {
	mu sync.Mutex
}

func New() *Harness {
	return &Harness{}
}

// Measure times exactly one call to ex.Run. Elapsed time includes whatever the executor
// does inside Run, worker start-up and teardown included.
func (h *Harness) Measure(ctx context.Context, ex ports.Executor, ds *domain.Dataset, workers int) (domain.ExecutionResult, *domain.RunOutcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	outcome, err := ex.Run(ctx, ds, workers)
	elapsed := time.Since(start)

	if err != nil {
		return domain.ExecutionResult{}, nil, err
	}

	res := domain.ExecutionResult{
		Kind:           ex.Kind(),
		Workers:        workers,
		ElapsedSeconds: max(elapsed.Seconds(), 0),
		Succeeded:      outcome.Succeeded(),
		Failed:         outcome.Failed(),
	}
	logger.DebugContext(ctx, "Measurement complete",
		"executor", res.Kind, "workers", workers,
		"elapsed", elapsed, "succeeded", res.Succeeded, "failed", res.Failed)
	return res, outcome, nil
}
