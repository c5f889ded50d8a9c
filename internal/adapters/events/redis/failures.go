package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"picpic.bench/internal/core/domain"
)

const (
	failuresPrefix = "bench:failures:"
	failureTTL     = 7 * 24 * time.Hour
)

// FailureLog keeps skipped items per run in a sorted set (scored by record time)
// plus one metadata key per entry.
type FailureLog struct {
	client *redis.Client
}

type FailureEntry struct {
	RunID      string              `json:"run_id"`
	Dataset    string              `json:"dataset"`
	Executor   domain.ExecutorKind `json:"executor"`
	Workers    int                 `json:"workers"`
	SourcePath string              `json:"source_path"`
	Reason     string              `json:"reason"`
	RecordedAt time.Time           `json:"recorded_at"`
}

func NewFailureLog(client *redis.Client) *FailureLog {
	return &FailureLog{client: client}
}

func setKey(runID string) string { return failuresPrefix + runID }

func metaKey(runID, member string) string { return failuresPrefix + runID + ":meta:" + member }

func (e FailureEntry) member() string {
	return fmt.Sprintf("%s/%s/%d/%s", e.Dataset, e.Executor, e.Workers, e.SourcePath)
}

// Record stores every failure of one measurement.
func (l *FailureLog) Record(ctx context.Context, runID, dataset string, res domain.ExecutionResult, failures []domain.ItemFailure) error {
	if len(failures) == 0 {
		return nil
	}
	now := time.Now()
	pipe := l.client.TxPipeline()
	for _, f := range failures {
		entry := FailureEntry{
			RunID:      runID,
			Dataset:    dataset,
			Executor:   res.Kind,
			Workers:    res.Workers,
			SourcePath: f.SourcePath,
			Reason:     f.Reason,
			RecordedAt: now,
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal failure entry: %w", err)
		}
		m := entry.member()
		pipe.ZAdd(ctx, setKey(runID), redis.Z{Score: float64(now.UnixNano()), Member: m})
		pipe.Set(ctx, metaKey(runID, m), data, failureTTL)
	}
	pipe.Expire(ctx, setKey(runID), failureTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record failures: %w", err)
	}
	return nil
}

// List returns failures of a run, oldest first.
func (l *FailureLog) List(ctx context.Context, runID string, offset, limit int64) ([]*FailureEntry, error) {
	members, err := l.client.ZRange(ctx, setKey(runID), offset, offset+limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list failures: %w", err)
	}

	entries := make([]*FailureEntry, 0, len(members))
	for _, m := range members {
		data, err := l.client.Get(ctx, metaKey(runID, m)).Bytes()
		if err != nil {
			if err == redis.Nil {
				// metadata expired before the set
				continue
			}
			return nil, fmt.Errorf("failed to get failure entry: %w", err)
		}
		var entry FailureEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failure entry: %w", err)
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

// Count returns the number of failures recorded for a run.
func (l *FailureLog) Count(ctx context.Context, runID string) (int64, error) {
	n, err := l.client.ZCard(ctx, setKey(runID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}
	return n, nil
}
