package services

import (
	"sort"
	"sync"

	"picpic.bench/internal/core/domain"
)

// ReportStore holds the reports of the current process's run for the report server.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]domain.MetricsReport
}

func NewReportStore() *ReportStore {
	return &ReportStore{reports: make(map[string]domain.MetricsReport)}
}

func (s *ReportStore) Put(r domain.MetricsReport) {
	s.mu.Lock()
	s.reports[r.Dataset] = r
	s.mu.Unlock()
}

func (s *ReportStore) Get(dataset string) (domain.MetricsReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[dataset]
	return r, ok
}

// List returns reports ordered by dataset name.
func (s *ReportStore) List() []domain.MetricsReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MetricsReport, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dataset < out[j].Dataset })
	return out
}
