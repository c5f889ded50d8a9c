package services

import (
	"context"
	"reflect"
	"testing"
)

func TestDefaultWorkerCounts(t *testing.T) {
	tests := []struct {
		logical int
		want    []int
	}{
		{0, []int{2}},
		{1, []int{2}},
		{2, []int{2, 4}},
		{6, []int{2, 4, 12}},
		{8, []int{2, 4, 8, 16}},
		{16, []int{2, 4, 8, 16, 32}},
	}
	for _, tt := range tests {
		if got := DefaultWorkerCounts(tt.logical); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("DefaultWorkerCounts(%d) = %v, want %v", tt.logical, got, tt.want)
		}
	}
}

func TestHostMonitor_Info(t *testing.T) {
	m := NewHostMonitor()
	info := m.Info(context.Background())
	if info.LogicalCPUs < 1 {
		t.Errorf("logical cpus = %d", info.LogicalCPUs)
	}
	if info.OS == "" {
		t.Error("os should always be set")
	}
}
