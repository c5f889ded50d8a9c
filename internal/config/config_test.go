package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"DATASETS", "DATASETS_FILE", "WORKER_COUNTS", "ITEM_TIMEOUT", "MATERIALIZE", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Datasets, defaultDatasets) {
		t.Errorf("datasets = %+v", cfg.Datasets)
	}
	if cfg.WorkerCounts != nil {
		t.Errorf("worker counts = %v, want auto", cfg.WorkerCounts)
	}
	if cfg.ItemTimeout != 2*time.Minute {
		t.Errorf("item timeout = %v", cfg.ItemTimeout)
	}
	if !cfg.Materialize {
		t.Error("materialize should default to true")
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("log level = %v", cfg.LogLevel)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATASETS_FILE", "")
	t.Setenv("DATASETS", "small=/data/small,/data/large")
	t.Setenv("WORKER_COUNTS", "1, 2,8")
	t.Setenv("ITEM_TIMEOUT", "15s")
	t.Setenv("MATERIALIZE", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	want := []DatasetSpec{{Name: "small", Path: "/data/small"}, {Name: "large", Path: "/data/large"}}
	if !reflect.DeepEqual(cfg.Datasets, want) {
		t.Errorf("datasets = %+v", cfg.Datasets)
	}
	if !reflect.DeepEqual(cfg.WorkerCounts, []int{1, 2, 8}) {
		t.Errorf("worker counts = %v", cfg.WorkerCounts)
	}
	if cfg.ItemTimeout != 15*time.Second || cfg.Materialize || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string][2]string{
		"bad worker count": {"WORKER_COUNTS", "2,zero"},
		"zero workers":     {"WORKER_COUNTS", "0"},
		"bad timeout":      {"ITEM_TIMEOUT", "soon"},
		"missing file":     {"DATASETS_FILE", "/nonexistent/datasets.yaml"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoadDatasetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	body := "datasets:\n  - name: tiny\n    path: ./tiny\n  - path: /srv/images_5000/\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadDatasetsFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []DatasetSpec{{Name: "tiny", Path: "./tiny"}, {Name: "images_5000", Path: "/srv/images_5000/"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadDatasetsFile_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datasets.yaml")
	if err := os.WriteFile(path, []byte("datasets: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDatasetsFile(path); err == nil {
		t.Fatal("expected error for empty datasets list")
	}
}
