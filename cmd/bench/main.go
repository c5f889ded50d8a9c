package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"picpic.bench/internal/adapters/events"
	http_handler "picpic.bench/internal/adapters/handler/http"
	"picpic.bench/internal/adapters/render"
	"picpic.bench/internal/config"
	"picpic.bench/internal/core/domain"
	"picpic.bench/internal/core/executor"
	"picpic.bench/internal/core/logger"
	"picpic.bench/internal/core/ports"
	"picpic.bench/internal/core/services"
	"picpic.bench/internal/core/tracing"
	"picpic.bench/internal/imaging"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case executor.WorkerSubcommand:
		// stdout carries the work protocol
		logger.InitWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		if err := executor.ServeWorker(ctx, os.Stdin, os.Stdout, imaging.Lookup, cfg.ItemTimeout); err != nil {
			logger.Error("Worker exited", "error", err)
			os.Exit(1)
		}
	case "run":
		logger.Init(cfg.LogLevel, cfg.LogFormat)
		if err := runBench(ctx, cfg); err != nil {
			logger.Error("Benchmark failed", "error", err)
			os.Exit(1)
		}
	case "serve":
		logger.Init(cfg.LogLevel, cfg.LogFormat)
		if err := serve(ctx, cfg); err != nil {
			logger.Error("Report server failed", "error", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [run|serve]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}
}

func initTracing(cfg *config.Config, host domain.HostInfo) func() {
	shutdown, err := tracing.Init(tracing.Options{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.OTLPEndpoint,
		Host:           host,
		Transform:      cfg.Transform,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		return func() {}
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("Failed to shutdown tracing", "error", err)
		}
	}
}

func runBench(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting PicPic bench", "version", version, "transform", cfg.Transform)

	monitor := services.NewHostMonitor()
	host := monitor.Info(ctx)
	defer initTracing(cfg, host)()

	serialTr, err := imaging.Lookup(cfg.Transform)
	if err != nil {
		return err
	}
	threadTr, err := imaging.Lookup(cfg.Transform)
	if err != nil {
		return err
	}

	workers := cfg.WorkerCounts
	if len(workers) == 0 {
		workers = services.DefaultWorkerCounts(monitor.LogicalCPUs(ctx))
	}

	s, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	hub := http_handler.NewHub()
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	publishers := append(events.Fanout{hub}, s.publishers...)
	store := services.NewReportStore()

	deps := services.BenchDeps{
		Serial: executor.NewSerial(serialTr, cfg.ItemTimeout),
		Parallel: []ports.Executor{
			// children enforce ItemTimeout; the parent only kills after a further margin
			executor.NewProcess(executor.ProcessConfig{Transform: cfg.Transform, ItemTimeout: cfg.ItemTimeout}),
			executor.NewThread(threadTr, cfg.ItemTimeout),
		},
		Publisher: publishers,
		Archive:   s.archive,
		Monitor:   monitor,
		Store:     store,
	}
	if s.failures != nil {
		deps.Failures = s.failures
	}
	if cfg.EnableMetrics {
		deps.Metrics = http_handler.PromRecorder{}
	}

	svc, err := services.NewBenchService(deps, services.BenchOptions{
		Workers:     workers,
		Materialize: cfg.Materialize,
		ResultsDir:  cfg.ResultsDir,
	})
	if err != nil {
		return err
	}
	svc.SetHost(host)

	// While the sweep runs the report server doubles as a live view.
	serveErr := make(chan error, 1)
	if cfg.Serve {
		srv := http_handler.NewServer(store, s.archive, s.failures, s.health(), hub)
		go func() {
			logger.Info("HTTP Server starting", "port", cfg.HTTPPort)
			serveErr <- srv.Run(ctx, ":"+cfg.HTTPPort)
		}()
	}

	sources := make([]services.DatasetSource, 0, len(cfg.Datasets))
	for _, d := range cfg.Datasets {
		sources = append(sources, services.DatasetSource{Name: d.Name, Path: d.Path})
	}

	reports, runErr := svc.Run(ctx, sources)

	renderers := []ports.Renderer{
		render.NewTable(os.Stdout),
		render.NewJSONFile(filepath.Join(cfg.ResultsDir, "report.json")),
	}
	for _, r := range renderers {
		if err := r.Render(context.WithoutCancel(ctx), reports); err != nil {
			logger.Error("Failed to render reports", "error", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if cfg.Serve {
		logger.Info("Benchmark finished; serving reports until interrupted", "port", cfg.HTTPPort)
		return <-serveErr
	}
	return nil
}

// serve runs the report server on its own, relaying events published by
// benchmark runs elsewhere and browsing the archive.
func serve(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting PicPic bench report server", "version", version)
	defer initTracing(cfg, services.NewHostMonitor().Info(ctx))()

	s, err := openSinks(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	hub := http_handler.NewHub()
	go hub.Run(ctx)
	if s.redis != nil {
		go hub.Consume(ctx, s.redis)
	} else {
		logger.Warn("REDIS_URL not set; live events disabled")
	}

	srv := http_handler.NewServer(services.NewReportStore(), s.archive, s.failures, s.health(), hub)
	logger.Info("HTTP Server starting", "port", cfg.HTTPPort)
	return srv.Run(ctx, ":"+cfg.HTTPPort)
}
