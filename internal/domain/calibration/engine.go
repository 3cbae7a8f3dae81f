// Package calibration refits scoring weights against realized outcomes.
//
// A run moves pending -> running -> completed|failed. The RunStore's Begin is
// the mutual exclusion point: at most one run may be running per store, and a
// store shared across processes extends that to the fleet. The active
// configuration is only ever read; a successful run emits a new candidate.
package calibration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/valuation"
)

// RunStore persists calibration runs. Begin must fail with a
// *model.ConflictError while another run is running.
type RunStore interface {
	Begin(ctx context.Context, run model.CalibrationRun) error
	Finish(ctx context.Context, run model.CalibrationRun) error
}

// Default engine parameters.
const (
	DefaultMinSamples         = 20
	DefaultMinPositionSamples = 5
	DefaultMaxIterations      = 200
	DefaultCandidateRollout   = 10
	improvementEpsilon        = 1e-12
	finishTimeout             = 5 * time.Second
)

var defaultSteps = []float64{0.2, 0.1, 0.05, 0.025}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMinSamples sets the minimum number of outcomes a run needs.
func WithMinSamples(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.minSamples = n
		}
	}
}

// WithMinPositionSamples sets how many outcomes a position needs before its
// rho is reported.
func WithMinPositionSamples(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.minPositionSamples = n
		}
	}
}

// WithMaxIterations bounds the number of local search sweeps.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithSteps sets the shrinking step sizes of the coordinate search.
func WithSteps(steps ...float64) Option {
	return func(e *Engine) {
		valid := make([]float64, 0, len(steps))
		for _, s := range steps {
			if s > 0 && s <= 1 {
				valid = append(valid, s)
			}
		}
		if len(valid) > 0 {
			e.steps = valid
		}
	}
}

// WithCandidateRollout sets the rollout percentage stamped on candidates.
func WithCandidateRollout(pct float64) Option {
	return func(e *Engine) {
		if pct >= 0 && pct <= 100 {
			e.rollout = pct
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// Engine runs calibrations one at a time.
type Engine struct {
	store              RunStore
	valuation          *valuation.Engine
	minSamples         int
	minPositionSamples int
	maxIterations      int
	steps              []float64
	rollout            float64
	now                func() time.Time
	newID              func() string

	mu     sync.Mutex
	holder string
}

// New creates an Engine that records runs in store.
func New(store RunStore, val *valuation.Engine, opts ...Option) *Engine {
	if val == nil {
		val = valuation.New()
	}
	e := &Engine{
		store:              store,
		valuation:          val,
		minSamples:         DefaultMinSamples,
		minPositionSamples: DefaultMinPositionSamples,
		maxIterations:      DefaultMaxIterations,
		steps:              defaultSteps,
		rollout:            DefaultCandidateRollout,
		now:                time.Now,
		newID:              uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinSamples returns the outcome threshold below which runs fail.
func (e *Engine) MinSamples() int { return e.minSamples }

// Run fits weights to outcomes starting from active. Once the store has
// recorded the run, the returned run is populated even when err is non-nil;
// a run the store never recorded is returned zero-valued. active is never
// modified.
func (e *Engine) Run(ctx context.Context, outcomes []model.Outcome, active model.AppConfig) (model.CalibrationRun, error) {
	run := model.NewCalibrationRun(e.newID(), active.Version)

	if holder, ok := e.acquire(run.ID); !ok {
		return model.CalibrationRun{}, &model.ConflictError{RunID: holder}
	}
	defer e.release()

	if err := run.Start(e.now()); err != nil {
		return model.CalibrationRun{}, err
	}
	if err := e.store.Begin(ctx, run); err != nil {
		return model.CalibrationRun{}, err
	}

	metrics, candidate, err := e.safeFit(ctx, outcomes, active)
	if err != nil {
		_ = run.Fail(e.now(), err.Error())
		run.Metrics.Samples = len(outcomes)
		if ferr := e.finish(ctx, run); ferr != nil {
			return run, errors.Join(err, fmt.Errorf("record failed run: %w", ferr))
		}
		return run, err
	}
	if err := run.Complete(e.now(), metrics, candidate); err != nil {
		return run, err
	}
	if err := e.finish(ctx, run); err != nil {
		return run, fmt.Errorf("record completed run: %w", err)
	}
	return run, nil
}

func (e *Engine) acquire(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.holder != "" {
		return e.holder, false
	}
	e.holder = id
	return "", true
}

func (e *Engine) release() {
	e.mu.Lock()
	e.holder = ""
	e.mu.Unlock()
}

// finish records the terminal state even after the caller has gone away;
// a run left running in the store blocks every later Begin.
func (e *Engine) finish(ctx context.Context, run model.CalibrationRun) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	return e.store.Finish(ctx, run)
}

// safeFit converts panics in the fit into a ComputationError.
func (e *Engine) safeFit(ctx context.Context, outcomes []model.Outcome, active model.AppConfig) (m model.RunMetrics, c model.AppConfig, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.ComputationError{Op: "calibration fit", Err: fmt.Errorf("%v", r)}
		}
	}()
	return e.fit(ctx, outcomes, active)
}

func (e *Engine) fit(ctx context.Context, outcomes []model.Outcome, active model.AppConfig) (model.RunMetrics, model.AppConfig, error) {
	if len(outcomes) < e.minSamples {
		return model.RunMetrics{}, model.AppConfig{}, &model.InsufficientDataError{Have: len(outcomes), Need: e.minSamples}
	}
	if err := active.Validate(); err != nil {
		return model.RunMetrics{}, model.AppConfig{}, err
	}
	realized := make([]float64, len(outcomes))
	for i, o := range outcomes {
		if math.IsNaN(o.Realized) || math.IsInf(o.Realized, 0) {
			return model.RunMetrics{}, model.AppConfig{}, model.NewValidationError(fmt.Sprintf("outcomes[%d].realized", i), "must be finite")
		}
		realized[i] = o.Realized
	}

	base := active.Clone()
	baseline, _, err := e.evaluate(outcomes, realized, base)
	if err != nil {
		return model.RunMetrics{}, model.AppConfig{}, err
	}

	best := base.Clone()
	bestRho := baseline
	iterations := 0
	for _, step := range e.steps {
		improved := true
		for improved && iterations < e.maxIterations {
			if err := ctx.Err(); err != nil {
				return model.RunMetrics{}, model.AppConfig{}, &model.ComputationError{Op: "calibration fit", Err: err}
			}
			improved = false
			iterations++
			for _, p := range params {
				for _, dir := range []float64{1, -1} {
					trial := best.Clone()
					cur := p.get(trial.Weights)
					next := clamp01(cur + dir*step)
					if next == cur {
						continue
					}
					p.set(&trial.Weights, next)
					rho, _, err := e.evaluate(outcomes, realized, trial)
					if err != nil {
						if errors.Is(err, model.ErrComputation) {
							continue
						}
						return model.RunMetrics{}, model.AppConfig{}, err
					}
					if rho > bestRho+improvementEpsilon {
						best, bestRho, improved = trial, rho, true
					}
				}
			}
		}
	}

	_, composites, err := e.evaluate(outcomes, realized, best)
	if err != nil {
		return model.RunMetrics{}, model.AppConfig{}, err
	}

	candidate := best.Clone()
	candidate.Version = active.Version + 1
	candidate.Status = model.ConfigCandidate
	candidate.RolloutPercent = e.rollout
	if err := candidate.Validate(); err != nil {
		return model.RunMetrics{}, model.AppConfig{}, &model.ComputationError{Op: "calibration candidate", Err: err}
	}

	overall, baselineRho := bestRho, baseline
	return model.RunMetrics{
		OverallRho:     &overall,
		BaselineRho:    &baselineRho,
		PerPositionRho: e.perPosition(outcomes, realized, composites),
		Samples:        len(outcomes),
		Iterations:     iterations,
	}, candidate, nil
}

// evaluate scores every outcome under cfg and returns the overall rho and
// the composites in outcome order.
func (e *Engine) evaluate(outcomes []model.Outcome, realized []float64, cfg model.AppConfig) (float64, []float64, error) {
	scorers := make(map[model.LeagueSettings]*valuation.Scorer)
	composites := make([]float64, len(outcomes))
	for i, o := range outcomes {
		s, ok := scorers[o.Settings]
		if !ok {
			var err error
			s, err = e.valuation.Prepare(o.Settings, cfg)
			if err != nil {
				return 0, nil, fmt.Errorf("outcomes[%d]: %w", i, err)
			}
			scorers[o.Settings] = s
		}
		sa, err := s.Score(o.Asset)
		if err != nil {
			return 0, nil, fmt.Errorf("outcomes[%d]: %w", i, err)
		}
		composites[i] = sa.Composite
	}
	rho, err := Spearman(composites, realized)
	if err != nil {
		return 0, nil, &model.ComputationError{Op: "spearman", Err: err}
	}
	return rho, composites, nil
}

func (e *Engine) perPosition(outcomes []model.Outcome, realized, composites []float64) map[model.Position]float64 {
	type series struct{ x, y []float64 }
	groups := make(map[model.Position]*series)
	for i, o := range outcomes {
		pos := o.Asset.Position()
		g, ok := groups[pos]
		if !ok {
			g = &series{}
			groups[pos] = g
		}
		g.x = append(g.x, composites[i])
		g.y = append(g.y, realized[i])
	}
	positions := make([]model.Position, 0, len(groups))
	for p := range groups {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	out := make(map[model.Position]float64)
	for _, p := range positions {
		g := groups[p]
		if len(g.x) < e.minPositionSamples {
			continue
		}
		if rho, err := Spearman(g.x, g.y); err == nil {
			out[p] = rho
		}
	}
	return out
}

// param is one free coordinate of the weight search. Paired weights are
// derived so each pair always sums to one.
type param struct {
	get func(model.Weights) float64
	set func(*model.Weights, float64)
}

var params = []param{
	{
		get: func(w model.Weights) float64 { return w.Alpha },
		set: func(w *model.Weights, v float64) { w.Alpha = v },
	},
	{
		get: func(w model.Weights) float64 { return w.MarketNow },
		set: func(w *model.Weights, v float64) { w.MarketNow, w.ProductionNow = v, 1-v },
	},
	{
		get: func(w model.Weights) float64 { return w.MarketFuture },
		set: func(w *model.Weights, v float64) { w.MarketFuture, w.PotentialFuture = v, 1-v },
	},
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, math.Round(v*1e9)/1e9))
}
