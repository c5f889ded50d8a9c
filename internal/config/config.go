package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"picpic.bench/internal/core/logger"
)

// DatasetSpec names one input directory to benchmark.
type DatasetSpec struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type datasetsFile struct {
	Datasets []DatasetSpec `yaml:"datasets"`
}

var defaultDatasets = []DatasetSpec{
	{Name: "images_100", Path: "dataset/images_100"},
	{Name: "images_5000", Path: "dataset/images_5000"},
}

type Config struct {
	// Workload
	Datasets     []DatasetSpec
	WorkerCounts []int // empty: derived from the host CPU count
	Transform    string
	ItemTimeout  time.Duration
	Materialize  bool
	ResultsDir   string

	// Report server
	Serve    bool
	HTTPPort string

	// Sinks, each disabled when empty
	DatabaseURL string
	RedisURL    string
	MQTTBroker  string
	MQTTTopic   string

	// Logging
	LogLevel  slog.Level
	LogFormat string // "json" or "text"

	// Tracing
	OTLPEndpoint string
	ServiceName  string

	// Features
	EnableMetrics bool
}

// Load reads configuration from the environment, after an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Transform:     getEnv("TRANSFORM", "filter-chain"),
		Materialize:   getEnvBool("MATERIALIZE", true),
		ResultsDir:    getEnv("RESULTS_DIR", "results"),
		Serve:         getEnvBool("SERVE", false),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseURL:   getEnv("DB_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		MQTTBroker:    getEnv("MQTT_BROKER", ""),
		MQTTTopic:     getEnv("MQTT_TOPIC", "picpic/bench"),
		LogLevel:      logger.ParseLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", ""),
		ServiceName:   getEnv("SERVICE_NAME", "picpic-bench"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", true),
	}

	var err error
	if cfg.ItemTimeout, err = getEnvDuration("ITEM_TIMEOUT", 2*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WorkerCounts, err = ParseWorkerCounts(getEnv("WORKER_COUNTS", "")); err != nil {
		return nil, err
	}

	switch {
	case getEnv("DATASETS_FILE", "") != "":
		cfg.Datasets, err = LoadDatasetsFile(os.Getenv("DATASETS_FILE"))
	case getEnv("DATASETS", "") != "":
		cfg.Datasets, err = ParseDatasets(os.Getenv("DATASETS"))
	default:
		cfg.Datasets = append([]DatasetSpec(nil), defaultDatasets...)
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatasetsFile reads a YAML file of the form `datasets: [{name, path}]`.
func LoadDatasetsFile(path string) ([]DatasetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read datasets file: %w", err)
	}
	var f datasetsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse datasets file %s: %w", path, err)
	}
	if len(f.Datasets) == 0 {
		return nil, fmt.Errorf("datasets file %s lists no datasets", path)
	}
	for i, d := range f.Datasets {
		if d.Path == "" {
			return nil, fmt.Errorf("datasets file %s: entry %d has no path", path, i)
		}
		if d.Name == "" {
			f.Datasets[i].Name = lastElem(d.Path)
		}
	}
	return f.Datasets, nil
}

// ParseDatasets parses "name=path,name=path". A bare path is named after its last element.
func ParseDatasets(s string) ([]DatasetSpec, error) {
	var out []DatasetSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, path, ok := strings.Cut(part, "=")
		if !ok {
			path, name = name, lastElem(name)
		}
		if path == "" {
			return nil, fmt.Errorf("invalid dataset %q", part)
		}
		out = append(out, DatasetSpec{Name: strings.TrimSpace(name), Path: strings.TrimSpace(path)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no datasets in %q", s)
	}
	return out, nil
}

// ParseWorkerCounts parses "1,2,4". Empty input returns nil.
func ParseWorkerCounts(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid worker count %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func lastElem(p string) string {
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return parsed
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
