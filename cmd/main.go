package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/tradeval/internal/adapters/http/api"
	"github.com/okian/tradeval/internal/adapters/http/swagger"
	tradevalmcp "github.com/okian/tradeval/internal/adapters/mcp"
	"github.com/okian/tradeval/internal/adapters/repository/sqlite"
	service "github.com/okian/tradeval/internal/app"
	"github.com/okian/tradeval/internal/config"
	"github.com/okian/tradeval/internal/domain/calibration"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	"github.com/okian/tradeval/internal/leaguegen"
	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var version = "dev"

func main() {
	// We collect our own system metrics instead of the default collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, closeStore, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop(context.Background())

	if cfg.SeedDemoLeague {
		if err := seedDemoLeague(ctx, svc); err != nil {
			log.Warn(ctx, "demo league not loaded", logger.Error(err))
		}
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService wires the stores selected by cfg into a service. The returned
// func releases the stores.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, func(), error) {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithMaxChartLimit(cfg.MaxChartLimit),
		service.WithProposalOptions(
			proposal.WithFairnessBand(cfg.FairnessBand),
			proposal.WithMaxSideSize(cfg.MaxSideSize),
			proposal.WithMaxEvaluations(cfg.MaxEvaluations),
			proposal.WithTimeout(cfg.SearchTimeout()),
			proposal.WithMaxProposals(cfg.MaxProposals),
		),
		service.WithCalibrationOptions(
			calibration.WithMinSamples(cfg.MinCalibrationSamples),
			calibration.WithMaxIterations(cfg.CalibrationMaxIterations),
			calibration.WithCandidateRollout(cfg.CandidateRollout),
		),
	}
	closeStore := func() {}

	if cfg.StoreDriver == config.DriverSQLite {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		active, err := store.SeedActive(ctx, model.DefaultAppConfig())
		if err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("seed active config: %w", err)
		}
		log.Info(ctx, "sqlite store ready",
			logger.String("path", cfg.SQLitePath),
			logger.Int("activeVersion", active.Version),
		)
		opts = append(opts, service.WithRunStore(store), service.WithConfigStore(store))
		closeStore = func() {
			if err := store.Close(); err != nil {
				log.Warn(ctx, "sqlite close failed", logger.Error(err))
			}
		}
	}
	return service.New(opts...), closeStore, nil
}

// newMux mounts the REST API, its docs and the MCP endpoint.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc).Register(mux)
	if cfg.MCPPath != "" {
		server := tradevalmcp.NewServer(svc, tradevalmcp.WithVersion(version))
		mux.Handle(cfg.MCPPath, tradevalmcp.Handler(server))
	}
	return mux
}

// seedDemoLeague loads a generated league and queues its first revaluation.
func seedDemoLeague(ctx context.Context, svc *service.Service) error {
	league, err := leaguegen.New().League()
	if err != nil {
		return err
	}
	if err := svc.PutLeague(ctx, league); err != nil {
		return err
	}
	res, err := svc.Revalue(ctx, league.ID)
	if err != nil {
		return err
	}
	logger.Get().Info(ctx, "demo league loaded",
		logger.String("league", league.ID),
		logger.Int("enqueued", res.Enqueued),
	)
	return nil
}

// startSystemMetricsUpdater refreshes runtime metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes queue metrics until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	// GetStats refreshes the queue gauges as a side effect.
	stats := svc.GetStats(ctx)
	metrics.UpdateWorkerActiveCount(stats.Workers)
}
