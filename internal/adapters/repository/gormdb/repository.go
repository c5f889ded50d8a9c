// Package gormdb archives finished reports in Postgres, or SQLite for local runs.
package gormdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"picpic.bench/internal/core/domain"
)

// ReportRecord is one archived MetricsReport. Body holds the full report; the columns
// beside it exist for querying.
type ReportRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:64;not null;uniqueIndex:idx_run_dataset"`
	Dataset       string `gorm:"size:255;not null;uniqueIndex:idx_run_dataset;index"`
	ItemCount     int
	SerialSeconds float64
	Body          string              `gorm:"type:text;not null"`
	Measurements  []MeasurementRecord `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"index"`
}

func (ReportRecord) TableName() string {
	return "bench_reports"
}

// MeasurementRecord is one point of a sweep, flattened for SQL.
type MeasurementRecord struct {
	ID             uint   `gorm:"primaryKey"`
	ReportID       uint   `gorm:"index;not null"`
	Executor       string `gorm:"size:16;not null"`
	Workers        int    `gorm:"not null"`
	ElapsedSeconds float64
	Speedup        float64
	Efficiency     float64
	Succeeded      int
	Failed         int
}

func (MeasurementRecord) TableName() string {
	return "bench_measurements"
}

type Repository struct {
	db *gorm.DB
}

// Open picks the driver from the DSN: postgres:// URLs go to Postgres, sqlite://path or
// a bare *.db path to SQLite.
func Open(dsn string) (*Repository, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		dialector = sqlite.Open(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasSuffix(dsn, ".db"), dsn == ":memory:":
		dialector = sqlite.Open(dsn)
	default:
		return nil, domain.Newf(domain.KindConfig, "open_archive", "unsupported database url %q", dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, domain.Wrap(domain.KindStorage, "open_archive", "connect", err)
	}
	return NewRepository(db)
}

// NewRepository migrates the schema on db.
func NewRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&ReportRecord{}, &MeasurementRecord{}); err != nil {
		return nil, domain.Wrap(domain.KindStorage, "open_archive", "migrate", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Save(ctx context.Context, report *domain.MetricsReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	rec := ReportRecord{
		RunID:         report.RunID,
		Dataset:       report.Dataset,
		ItemCount:     report.ItemCount,
		SerialSeconds: report.SerialBaseline.ElapsedSeconds,
		Body:          string(body),
		CreatedAt:     report.CreatedAt,
	}
	for _, kind := range report.Kinds() {
		for _, pt := range report.Measured[kind] {
			rec.Measurements = append(rec.Measurements, MeasurementRecord{
				Executor:       string(kind),
				Workers:        pt.Workers,
				ElapsedSeconds: pt.ElapsedSeconds,
				Speedup:        pt.Speedup,
				Efficiency:     pt.Efficiency,
				Succeeded:      pt.Succeeded,
				Failed:         pt.Failed,
			})
		}
	}

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return domain.Wrap(domain.KindStorage, "save_report", report.RunID+"/"+report.Dataset, err)
	}
	return nil
}

// ListRuns returns run IDs, newest first. An empty dataset matches every dataset.
func (r *Repository) ListRuns(ctx context.Context, dataset string, limit int) ([]string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := r.db.WithContext(ctx).Model(&ReportRecord{})
	if dataset != "" {
		q = q.Where("dataset = ?", dataset)
	}

	// record IDs grow with insertion, so the highest ID of a run orders it
	var rows []struct {
		RunID  string
		Latest uint
	}
	if err := q.Select("run_id, MAX(id) AS latest").
		Group("run_id").
		Order("latest desc").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, domain.Wrap(domain.KindStorage, "list_runs", dataset, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.RunID)
	}
	return ids, nil
}

func (r *Repository) Get(ctx context.Context, runID, dataset string) (*domain.MetricsReport, error) {
	var rec ReportRecord
	err := r.db.WithContext(ctx).First(&rec, "run_id = ? AND dataset = ?", runID, dataset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Newf(domain.KindNotFound, "get_report", "no report for run %s dataset %s", runID, dataset)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindStorage, "get_report", runID, err)
	}

	var report domain.MetricsReport
	if err := json.Unmarshal([]byte(rec.Body), &report); err != nil {
		return nil, domain.Wrap(domain.KindStorage, "get_report", "decode body", err)
	}
	return &report, nil
}

// History returns the measured sweep of one executor kind across archived runs of a
// dataset, oldest first, so regressions show up as a time series.
func (r *Repository) History(ctx context.Context, dataset string, kind domain.ExecutorKind, workers int) ([]MeasurementRecord, error) {
	var out []MeasurementRecord
	err := r.db.WithContext(ctx).
		Joins("JOIN bench_reports ON bench_reports.id = bench_measurements.report_id").
		Where("bench_reports.dataset = ? AND bench_measurements.executor = ? AND bench_measurements.workers = ?", dataset, string(kind), workers).
		Order("bench_reports.created_at asc").
		Find(&out).Error
	if err != nil {
		return nil, domain.Wrap(domain.KindStorage, "history", dataset, err)
	}
	return out, nil
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
