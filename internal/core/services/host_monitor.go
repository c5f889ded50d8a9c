package services

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"

	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/logger"
)

const (
	defaultBusyThreshold = 25.0 // percent
	defaultSampleWindow  = 250 * time.Millisecond
)

// HostMonitor reports what the benchmark is running on and warns when the host is busy
// enough to skew a measurement.
type HostMonitor struct {
	busyThreshold float64
	sample        time.Duration
}

func NewHostMonitor() *HostMonitor {
	return &HostMonitor{busyThreshold: defaultBusyThreshold, sample: defaultSampleWindow}
}

// LogicalCPUs falls back to the Go runtime's view when gopsutil cannot read the host.
func (m *HostMonitor) LogicalCPUs(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

func (m *HostMonitor) Info(ctx context.Context) domain.HostInfo {
	info := domain.HostInfo{
		OS:          runtime.GOOS,
		LogicalCPUs: m.LogicalCPUs(ctx),
	}
	if h, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = h.Hostname
		info.OS = h.OS
		info.Platform = h.Platform + " " + h.PlatformVersion
	} else {
		logger.Debug("Host info unavailable", "error", err)
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCPUs = n
	}
	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	return info
}

// CheckIdle samples total CPU utilisation. It returns the sample and whether the host
// looked idle; a failed sample counts as idle.
func (m *HostMonitor) CheckIdle(ctx context.Context) (float64, bool) {
	pct, err := cpu.PercentWithContext(ctx, m.sample, false)
	if err != nil || len(pct) == 0 {
		return 0, true
	}
	if pct[0] > m.busyThreshold {
		logger.WarnContext(ctx, "Host is busy, measurements may be skewed", "cpu_percent", pct[0], "threshold", m.busyThreshold)
		return pct[0], false
	}
	return pct[0], true
}

// DefaultWorkerCounts returns powers of two from 2 up to logical, plus one
// oversubscribed count of 2x logical.
func DefaultWorkerCounts(logical int) []int {
	if logical < 1 {
		logical = 1
	}
	var out []int
	for w := 2; w <= logical; w *= 2 {
		out = append(out, w)
	}
	over := 2 * logical
	if len(out) == 0 || out[len(out)-1] != over {
		out = append(out, over)
	}
	return out
}
