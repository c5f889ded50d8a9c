package services

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Latency   string       `json:"latency,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Version    string                     `json:"version"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]ComponentHealth `json:"components"`
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type component struct {
	pinger   Pinger
	critical bool
}

// HealthService checks the optional sinks of the report server. A failing critical
// component makes the service unhealthy, any other one degraded.
type HealthService struct {
	components map[string]component
	version    string
}

func NewHealthService(version string) *HealthService {
	if version == "" {
		version = "0.0.1"
	}
	return &HealthService{
		components: make(map[string]component),
		version:    version,
	}
}

// Register adds a component. Nil pingers are ignored so callers can pass disabled sinks.
func (s *HealthService) Register(name string, p Pinger, critical bool) {
	if p == nil {
		return
	}
	s.components[name] = component{pinger: p, critical: critical}
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:     HealthStatusHealthy,
		Version:    s.version,
		CheckedAt:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	names := make([]string, 0, len(s.components))
	for name := range s.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := s.components[name]
		h := s.check(ctx, name, c.pinger)
		report.Components[name] = h
		if h.Status == HealthStatusHealthy {
			continue
		}
		if c.critical {
			report.Status = HealthStatusUnhealthy
		} else if report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}

	return report
}

func (s *HealthService) check(ctx context.Context, name string, p Pinger) ComponentHealth {
	start := time.Now()

	// Check connection with timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Ping(ctx); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("%s ping failed: %v", name, err),
			Latency:   time.Since(start).String(),
			CheckedAt: time.Now(),
		}
	}

	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Latency:   time.Since(start).String(),
		CheckedAt: time.Now(),
	}
}

// SimpleHealthCheck returns a simple health status for load balancers
func (s *HealthService) SimpleHealthCheck(ctx context.Context) (string, int) {
	report := s.CheckHealth(ctx)

	switch report.Status {
	case HealthStatusHealthy:
		return "ok", 200
	case HealthStatusDegraded:
		return "degraded", 200 // Still serving requests
	default:
		return "unhealthy", 503
	}
}
