package executor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/ports"
	"picpic.bench/internal/core/queue"
)

// Thread runs workers as goroutines in one address space. They share the transform
// and the task queue; each item owns a distinct destination so outputs never alias.
type Thread struct {
	transformer ports.Transformer
	itemTimeout time.Duration
}

func NewThread(tr ports.Transformer, itemTimeout time.Duration) *Thread {
	return &Thread{transformer: tr, itemTimeout: itemTimeout}
}

func (t *Thread) Kind() domain.ExecutorKind { return domain.ExecutorThread }

func (t *Thread) Run(ctx context.Context, ds *domain.Dataset, workers int) (*domain.RunOutcome, error) {
	if err := domain.ValidateWorkerCount(workers); err != nil {
		return nil, err
	}

	q := queue.New(ds)
	rec := newRecorder(domain.ExecutorThread, ds.Len())

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				task := q.Next()
				if task.Done {
					return nil
				}
				out, err := applyItem(gctx, t.transformer, task.Item, t.itemTimeout)
				rec.record(task.Item.SourcePath, out, err)
			}
		})
	}

	// join barrier: every worker has returned before the outcome is read
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rec.finish(), nil
}
