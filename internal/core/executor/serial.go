package executor

import (
	"context"
	"time"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/ports"
)

// Serial runs the transform over every item on the calling goroutine, in
// enumeration order. It is the baseline every speedup is computed against.
type Serial struct {
	transformer ports.Transformer
	itemTimeout time.Duration
}

func NewSerial(tr ports.Transformer, itemTimeout time.Duration) *Serial {
	return &Serial{transformer: tr, itemTimeout: itemTimeout}
}

func (s *Serial) Kind() domain.ExecutorKind { return domain.ExecutorSerial }

// Run ignores workers; there is always exactly one thread of control.
func (s *Serial) Run(ctx context.Context, ds *domain.Dataset, _ int) (*domain.RunOutcome, error) {
	rec := newRecorder(domain.ExecutorSerial, ds.Len())
	if ds == nil {
		return rec.finish(), nil
	}
	for _, item := range ds.Items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := applyItem(ctx, s.transformer, item, s.itemTimeout)
		rec.record(item.SourcePath, out, err)
	}
	return rec.finish(), nil
}
