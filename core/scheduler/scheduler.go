// Package scheduler drives the periodic refresh cycle: assemble the
// forecast timeline, optimize modes, overlay the active charging plan,
// run the planner chain and publish the result.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/battsched/battsched/core/events"
	"github.com/battsched/battsched/core/forecast"
	"github.com/battsched/battsched/core/logger"
	coremetrics "github.com/battsched/battsched/core/metrics"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/optimizer"
	"github.com/battsched/battsched/core/plan"
	"github.com/battsched/battsched/core/planner"
	"github.com/battsched/battsched/core/protection"
	"github.com/battsched/battsched/internal/eventbus"
)

// SoCProvider reports the battery's current state of charge in kWh.
type SoCProvider interface {
	CurrentSoC(ctx context.Context) (float64, error)
}

// SoCFunc adapts a function to the SoCProvider interface.
type SoCFunc func(ctx context.Context) (float64, error)

func (f SoCFunc) CurrentSoC(ctx context.Context) (float64, error) { return f(ctx) }

// Config tunes the refresh loop.
type Config struct {
	// RefreshMinutes is the cycle period.
	RefreshMinutes int `json:"refresh_minutes"`
	// TargetSoCPercent is the end-of-horizon target used when the
	// overnight heuristic is disabled.
	TargetSoCPercent float64 `json:"target_soc_percent"`
	// UseNightTarget derives the overnight target from tomorrow's solar
	// surplus instead of the static target.
	UseNightTarget bool `json:"use_night_target"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.RefreshMinutes == 0 {
		c.RefreshMinutes = 15
	}
	if c.TargetSoCPercent == 0 {
		c.TargetSoCPercent = 100
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.RefreshMinutes < 1 {
		return fmt.Errorf("refresh_minutes must be >= 1, got %d", c.RefreshMinutes)
	}
	if c.TargetSoCPercent <= 0 || c.TargetSoCPercent > 100 {
		return fmt.Errorf("target_soc_percent must be in (0,100], got %v", c.TargetSoCPercent)
	}
	return nil
}

// Deps collects the scheduler's collaborators.
type Deps struct {
	Assembler  *forecast.Assembler
	Optimizer  *optimizer.Optimizer
	Planner    *planner.Planner
	Manager    *plan.Manager
	SoC        SoCProvider
	Protection protection.Config
	PlannerCfg planner.Config
	Params     model.BatteryParameters
	Sink       coremetrics.MetricsSink
	Bus        eventbus.EventBus
	Log        logger.Logger
}

// Scheduler owns the published timeline. Readers get the latest pointer
// without locking; only the refresh cycle writes it.
type Scheduler struct {
	deps    Deps
	cfg     Config
	current atomic.Pointer[model.Timeline]
	// guards against overlapping refresh cycles
	refreshMu sync.Mutex
	now       func() time.Time
}

// New validates the configuration and returns a Scheduler.
func New(deps Deps, cfg Config) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Assembler == nil || deps.Optimizer == nil || deps.Planner == nil || deps.SoC == nil {
		return nil, fmt.Errorf("scheduler requires assembler, optimizer, planner and SoC provider")
	}
	if deps.Sink == nil {
		deps.Sink = coremetrics.NopSink{}
	}
	return &Scheduler{deps: deps, cfg: cfg, now: time.Now}, nil
}

// Current returns the most recently published timeline, or nil before the
// first refresh.
func (s *Scheduler) Current() *model.Timeline { return s.current.Load() }

// Run refreshes immediately, then on every tick until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		s.deps.Log.Errorf("initial refresh: %v", err)
	}
	ticker := time.NewTicker(time.Duration(s.cfg.RefreshMinutes) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.deps.Log.Errorf("refresh: %v", err)
			}
		}
	}
}

// Refresh runs one full scheduling cycle. A cycle still in flight makes
// this call a no-op instead of piling up.
func (s *Scheduler) Refresh(ctx context.Context) error {
	if !s.refreshMu.TryLock() {
		s.deps.Log.Warnf("refresh already running, skipping cycle")
		return nil
	}
	defer s.refreshMu.Unlock()

	now := s.now()
	soc, err := s.deps.SoC.CurrentSoC(ctx)
	if err != nil {
		return fmt.Errorf("read SoC: %w", err)
	}

	tl, err := s.deps.Assembler.Assemble(ctx, now, soc)
	if err != nil {
		return fmt.Errorf("assemble timeline: %w", err)
	}

	started := time.Now()
	res := s.deps.Optimizer.Optimize(tl)
	_ = s.deps.Sink.RecordOptimization(coremetrics.OptimizationEvent{
		Start:        tl.Start(),
		Intervals:    tl.Len(),
		TotalCost:    res.TotalCost,
		BaselineCost: res.Comparison.SelfConsume,
		Duration:     time.Since(started),
		Time:         now,
	})
	tl = res.Timeline

	cons := s.constraints(tl, now)
	if s.deps.Manager != nil {
		if active := s.deps.Manager.Active(); active != nil && !active.Status.Terminal() {
			tl = s.deps.Manager.Apply(tl, active)
			cons.Pinned = pinnedIntervals(tl, active)
		}
	}

	tl, out := s.deps.Planner.Plan(tl, cons)
	if rec, ok := s.deps.Sink.(coremetrics.PlannerRecorder); ok {
		_ = rec.RecordPlannerRun(coremetrics.PlannerEvent{
			Strategy:      out.Strategy,
			Converged:     out.Converged,
			Iterations:    out.Iterations,
			InjectedKWh:   out.InjectedKWh,
			ProtectionKWh: out.ProtectionKWh,
			Violations:    len(out.Violations),
			Time:          now,
		})
	}

	s.current.Store(&tl)
	if s.deps.Manager != nil {
		s.deps.Manager.Tick(now)
	}
	s.publish(tl, now)
	return nil
}

func (s *Scheduler) constraints(tl model.Timeline, now time.Time) planner.Constraints {
	target := s.cfg.TargetSoCPercent
	if s.cfg.UseNightTarget {
		target = planner.NightTarget(tl, s.deps.Params, s.deps.PlannerCfg, now)
	}
	cons := planner.Constraints{TargetSoCPercent: target}
	if required, ok := protection.RequiredSoC(tl, s.deps.Params, s.deps.Protection); ok {
		cons.HasProtection = true
		cons.ProtectionSoCKWh = required
		window := s.deps.Protection.BlackoutProtectionHours * int(time.Hour/model.IntervalDuration)
		if window <= 0 || window > tl.Len() {
			window = tl.Len()
		}
		cons.ProtectionWindow = window
	}
	return cons
}

func (s *Scheduler) publish(tl model.Timeline, now time.Time) {
	minSoC, _ := tl.MinSoC()
	degraded := 0
	for i := 0; i < tl.Len(); i++ {
		if tl.Interval(i).Degraded() {
			degraded++
		}
	}
	if rec, ok := s.deps.Sink.(coremetrics.TimelineRecorder); ok {
		_ = rec.RecordTimeline(coremetrics.TimelineSnapshot{
			RefreshedAt: now,
			Intervals:   tl.Len(),
			Degraded:    degraded,
			TotalCost:   tl.TotalCost(),
			FinalSoCKWh: tl.FinalSoC(),
			MinSoCKWh:   minSoC,
		})
	}
	if s.deps.Bus != nil {
		s.deps.Bus.Publish(events.TimelineEvent{
			RefreshedAt: now,
			Start:       tl.Start(),
			Intervals:   tl.Len(),
			TotalCost:   tl.TotalCost(),
			FinalSoCKWh: tl.FinalSoC(),
		})
	}
}

func pinnedIntervals(tl model.Timeline, p *model.ChargingPlan) map[int]bool {
	pinned := make(map[int]bool)
	for _, ci := range p.ChargingIntervals {
		if i := tl.IndexAt(ci.Timestamp); i >= 0 {
			pinned[i] = true
		}
	}
	for i := 0; i < tl.Len(); i++ {
		if p.HoldingWindow.Contains(tl.Interval(i).Timestamp) {
			pinned[i] = true
		}
	}
	return pinned
}
