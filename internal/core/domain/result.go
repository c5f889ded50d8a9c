package domain

import "sort"

type ExecutorKind string

const (
	ExecutorSerial  ExecutorKind = "serial"
	ExecutorProcess ExecutorKind = "process"
	ExecutorThread  ExecutorKind = "thread"
)

// ParallelKinds lists the executor kinds that take part in the worker sweep
var ParallelKinds = []ExecutorKind{ExecutorProcess, ExecutorThread}

// ExecutionResult is one timed pass of an executor over a dataset.
type ExecutionResult struct {
	Kind           ExecutorKind `json:"kind"`
	Workers        int          `json:"workers"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	Succeeded      int          `json:"succeeded"`
	Failed         int          `json:"failed"`
}

// OutputRecord identifies one successfully transformed item.
type OutputRecord struct {
	SourcePath      string `json:"source_path"`
	DestinationPath string `json:"destination_path,omitempty"`
	Digest          uint64 `json:"digest"`
	Bytes           int    `json:"bytes"`
}

// ItemFailure records a skipped item and why.
type ItemFailure struct {
	SourcePath string `json:"source_path"`
	Reason     string `json:"reason"`
}

// RunOutcome is what an executor produced over a full pass.
type RunOutcome struct {
	Outputs  map[string]OutputRecord `json:"outputs"` // keyed by source path
	Failures []ItemFailure           `json:"failures"`
}

func NewRunOutcome(capacity int) *RunOutcome {
	return &RunOutcome{Outputs: make(map[string]OutputRecord, capacity)}
}

// Succeeded returns the number of produced outputs
func (o *RunOutcome) Succeeded() int {
	if o == nil {
		return 0
	}
	return len(o.Outputs)
}

// Failed returns the number of skipped items
func (o *RunOutcome) Failed() int {
	if o == nil {
		return 0
	}
	return len(o.Failures)
}

// Identities returns the sorted source paths of every produced output.
func (o *RunOutcome) Identities() []string {
	if o == nil {
		return nil
	}
	ids := make([]string, 0, len(o.Outputs))
	for id := range o.Outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
