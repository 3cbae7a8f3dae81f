// Package service wires the valuation, trade and calibration engines to the
// league catalog, value charts, run and config stores and the revaluation
// worker pool. HTTP and MCP surfaces call into it.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	jobqueue "github.com/okian/tradeval/internal/adapters/mq/queue"
	workerpool "github.com/okian/tradeval/internal/adapters/mq/worker"
	"github.com/okian/tradeval/internal/adapters/repository"
	"github.com/okian/tradeval/internal/domain/calibration"
	"github.com/okian/tradeval/internal/domain/dedupe"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	"github.com/okian/tradeval/internal/domain/recommend"
	"github.com/okian/tradeval/internal/domain/roster"
	"github.com/okian/tradeval/internal/domain/types"
	"github.com/okian/tradeval/internal/domain/valuation"
	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"
)

// Default service configuration.
const (
	defaultQueueSize     = 10_000
	defaultDedupeSize    = 50_000
	defaultMaxChartLimit = 200
	defaultRunListLimit  = 20
)

// Service implements the operations exposed by the HTTP and MCP surfaces.
type Service struct {
	mu sync.RWMutex

	// Engines are stateless and built in New.
	valuation   *valuation.Engine
	analyzer    *roster.Analyzer
	recommender *recommend.Generator
	proposals   *proposal.Generator
	matchmaker  *proposal.Matchmaker

	// Stores may be injected; memory implementations fill the gaps at Start.
	leagues repository.LeagueStore
	runs    repository.RunStore
	configs repository.ConfigStore

	// Built at Start. chartMu orders catalog replacement against chart
	// publishes so a removed asset cannot be charted again.
	chartMu     sync.Mutex
	chart       repository.Chart
	deduper     dedupe.Deduper
	queue       jobqueue.Queue
	pool        *workerpool.Pool
	calibration *calibration.Engine

	workerCount     int
	queueSize       int
	dedupeSize      int
	maxChartLimit   int
	proposalOpts    []proposal.Option
	calibrationOpts []calibration.Option

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of revaluation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the revaluation queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds the in-flight job key set.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxChartLimit caps chart page sizes.
func WithMaxChartLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxChartLimit = n
		}
	}
}

// WithProposalOptions configures the proposal search.
func WithProposalOptions(opts ...proposal.Option) Option {
	return func(s *Service) {
		s.proposalOpts = append(s.proposalOpts, opts...)
	}
}

// WithCalibrationOptions configures the calibration engine.
func WithCalibrationOptions(opts ...calibration.Option) Option {
	return func(s *Service) {
		s.calibrationOpts = append(s.calibrationOpts, opts...)
	}
}

// WithLeagueStore injects the league catalog.
func WithLeagueStore(st repository.LeagueStore) Option {
	return func(s *Service) {
		if st != nil {
			s.leagues = st
		}
	}
}

// WithRunStore injects the calibration run store.
func WithRunStore(st repository.RunStore) Option {
	return func(s *Service) {
		if st != nil {
			s.runs = st
		}
	}
}

// WithConfigStore injects the active/candidate configuration store.
func WithConfigStore(st repository.ConfigStore) Option {
	return func(s *Service) {
		if st != nil {
			s.configs = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Call Start before using it.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		maxChartLimit: defaultMaxChartLimit,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.valuation = valuation.New()
	s.analyzer = roster.New(roster.WithRequiredPositions(
		model.PositionQB, model.PositionRB, model.PositionWR, model.PositionTE,
	))
	s.recommender = recommend.New(recommend.WithAnalyzer(s.analyzer))
	s.proposals = proposal.New(append([]proposal.Option{proposal.WithAnalyzer(s.analyzer)}, s.proposalOpts...)...)
	s.matchmaker = proposal.NewMatchmaker(s.proposals)
	return s
}

// Start initializes stores, the chart and the revaluation pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting trade valuation service")

	if s.leagues == nil {
		s.leagues = repository.NewMemoryLeagueStore()
	}
	if s.runs == nil {
		s.runs = repository.NewMemoryRunStore()
	}
	if s.configs == nil {
		st, err := repository.NewMemoryConfigStore(model.DefaultAppConfig())
		if err != nil {
			return fmt.Errorf("seed config store: %w", err)
		}
		s.configs = st
	}
	active, err := s.configs.Active(ctx)
	if err != nil {
		return fmt.Errorf("load active config: %w", err)
	}

	s.calibration = calibration.New(s.runs, s.valuation, s.calibrationOpts...)
	s.chart = repository.NewChartStore(ctx)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s, s,
		workerpool.WithOnDone(func(j workerpool.Job, _ error) {
			s.deduper.Unrecord(context.Background(), j.Key)
		}),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "trade valuation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("activeConfigVersion", active.Version),
	)
	return nil
}

// Stop drains the worker pool and releases background goroutines.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping trade valuation service")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	_ = s.chart.Close()

	s.started = false
	s.logger.Info(ctx, "trade valuation service stopped")
}

// Started reports whether Start completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// ready returns ErrNotStarted until Start completed.
func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// GetStats returns an operational snapshot.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := types.Stats{Workers: s.workerCount, QueueCapacity: s.queueSize}
	if !s.started {
		return stats
	}
	stats.Leagues = len(s.leagues.LeagueIDs(ctx))
	stats.ChartEntries = s.chart.Total()
	stats.QueueSize = s.queue.Len(ctx)
	stats.DedupeSize = s.deduper.Size()
	if active, err := s.configs.Active(ctx); err == nil {
		stats.ActiveVersion = active.Version
	}
	if cand, err := s.configs.Candidate(ctx); err == nil {
		stats.CandidateVersion = cand.Version
	}
	if runs, err := s.runs.List(ctx, defaultRunListLimit); err == nil {
		stats.CalibrationRuns = len(runs)
	}
	metrics.UpdateQueueSize(stats.QueueSize, s.queueSize)
	if summary, err := metrics.Summary(); err == nil {
		stats.Metrics = summary
	}
	return stats
}
