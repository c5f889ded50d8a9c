package executor

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
)

// applyItem reads, transforms and optionally persists one work item.
func applyItem(ctx context.Context, tr ports.Transformer, item domain.WorkItem, timeout time.Duration) (domain.OutputRecord, error) {
	raw, err := os.ReadFile(item.SourcePath)
	if err != nil {
		return domain.OutputRecord{}, domain.Wrap(domain.KindItemDecodeFailure, "read_item", item.SourcePath, err)
	}

	out, err := transformWithTimeout(ctx, tr, raw, timeout)
	if err != nil {
		return domain.OutputRecord{}, err
	}

	rec := domain.OutputRecord{
		SourcePath: item.SourcePath,
		Digest:     xxhash.Sum64(out),
		Bytes:      len(out),
	}
	if item.PersistOutput && item.DestinationPath != "" {
		if err := os.WriteFile(item.DestinationPath, out, 0o644); err != nil {
			return domain.OutputRecord{}, domain.Wrap(domain.KindStorage, "persist_item", item.DestinationPath, err)
		}
		rec.DestinationPath = item.DestinationPath
	}
	return rec, nil
}

func safeTransform(tr ports.Transformer, raw []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return tr.Transform(raw)
}

// transformWithTimeout bounds a single transform. On timeout the transform goroutine
// is abandoned; it holds no shared state so it cannot corrupt the pass.
func transformWithTimeout(ctx context.Context, tr ports.Transformer, raw []byte, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		return safeTransform(tr, raw)
	}

	type result struct {
		out []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := safeTransform(tr, raw)
		ch <- result{out, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.out, r.err
	case <-timer.C:
		return nil, fmt.Errorf("transform exceeded item timeout of %s", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// recorder collects the outcome of a pass; safe for concurrent workers.
type recorder struct {
	kind    domain.ExecutorKind
	mu      sync.Mutex
	outcome *domain.RunOutcome
}

func newRecorder(kind domain.ExecutorKind, capacity int) *recorder {
	return &recorder{kind: kind, outcome: domain.NewRunOutcome(capacity)}
}

func (r *recorder) success(rec domain.OutputRecord) {
	r.mu.Lock()
	r.outcome.Outputs[rec.SourcePath] = rec
	r.mu.Unlock()
}

func (r *recorder) failure(source string, err error) {
	logger.Warn("Skipping item", "executor", r.kind, "source", source, "error", err)
	r.mu.Lock()
	r.outcome.Failures = append(r.outcome.Failures, domain.ItemFailure{SourcePath: source, Reason: err.Error()})
	r.mu.Unlock()
}

func (r *recorder) record(source string, rec domain.OutputRecord, err error) {
	if err != nil {
		r.failure(source, err)
		return
	}
	r.success(rec)
}

// finish returns the outcome with failures in a stable order.
func (r *recorder) finish() *domain.RunOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Slice(r.outcome.Failures, func(i, j int) bool {
		return r.outcome.Failures[i].SourcePath < r.outcome.Failures[j].SourcePath
	})
	return r.outcome
}
