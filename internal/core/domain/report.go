package domain

import "time"

// AmdahlModel is the Amdahl's Law fit for one executor kind over one dataset.
type AmdahlModel struct {
	ParallelFraction      float64 `json:"parallel_fraction"`
	SerialBaselineSeconds float64 `json:"serial_baseline_seconds"`
	BestWorkers           int     `json:"best_workers"`
	BestSeconds           float64 `json:"best_seconds"`
	ObservedSpeedup       float64 `json:"observed_speedup"`
}

// Prediction is one point of a predicted series.
type Prediction struct {
	Workers             int     `json:"workers"`
	PredictedTime       float64 `json:"predicted_time"`
	PredictedSpeedup    float64 `json:"predicted_speedup"`
	PredictedEfficiency float64 `json:"predicted_efficiency"`
}

// MeasuredPoint is a measured result with speedup and efficiency relative to the serial baseline.
type MeasuredPoint struct {
	ExecutionResult
	Speedup    float64 `json:"speedup"`
	Efficiency float64 `json:"efficiency"`
}

type HostInfo struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	Platform     string `json:"platform"`
	LogicalCPUs  int    `json:"logical_cpus"`
	PhysicalCPUs int    `json:"physical_cpus"`
	CPUModel     string `json:"cpu_model"`
}

// MetricsReport aggregates everything measured for one dataset. It is handed whole
// to renderers and never mutated after assembly.
type MetricsReport struct {
	RunID          string                           `json:"run_id"`
	Dataset        string                           `json:"dataset"`
	ItemCount      int                              `json:"item_count"`
	Workers        []int                            `json:"workers"`
	SerialBaseline ExecutionResult                  `json:"serial_baseline"`
	Measured       map[ExecutorKind][]MeasuredPoint `json:"measured"`
	Models         map[ExecutorKind]AmdahlModel     `json:"models"`
	Predicted      map[ExecutorKind][]Prediction    `json:"predicted"`
	Errors         []string                         `json:"errors,omitempty"`
	Host           HostInfo                         `json:"host"`
	CreatedAt      time.Time                        `json:"created_at"`
}

// Kinds returns the executor kinds with measurements, in sweep order.
func (r *MetricsReport) Kinds() []ExecutorKind {
	kinds := make([]ExecutorKind, 0, len(ParallelKinds))
	for _, k := range ParallelKinds {
		if _, ok := r.Measured[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

type EventType string

const (
	EventDatasetStarted   EventType = "dataset_started"
	EventDatasetSkipped   EventType = "dataset_skipped"
	EventMeasurement      EventType = "measurement"
	EventMeasurementError EventType = "measurement_error"
	EventReportReady      EventType = "report_ready"
)

// Event is a progress notification emitted while a benchmark runs.
type Event struct {
	Type      EventType        `json:"type"`
	RunID     string           `json:"run_id"`
	Dataset   string           `json:"dataset"`
	Result    *ExecutionResult `json:"result,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
