package queue

import (
	"sync"

	"picpic.bench/internal/core/domain"
)

// Task is the tagged result of Next: either an item with its position, or done.
type Task struct {
	Seq  int
	Item domain.WorkItem
	Done bool
}

// TaskQueue hands out the items of one dataset to concurrent workers. Every item is
// handed out exactly once; once exhausted every caller receives a done task.
type TaskQueue struct {
	mu     sync.Mutex
	items  []domain.WorkItem
	cursor int
}

// New creates a queue over a snapshot of the dataset's items
func New(ds *domain.Dataset) *TaskQueue {
	items := make([]domain.WorkItem, ds.Len())
	if ds != nil {
		copy(items, ds.Items)
	}
	return &TaskQueue{items: items}
}

// Next assigns the next unassigned item to the caller.
func (q *TaskQueue) Next() Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursor >= len(q.items) {
		return Task{Done: true}
	}
	t := Task{Seq: q.cursor, Item: q.items[q.cursor]}
	q.cursor++
	return t
}
