// Package sandbox lets callers explore hypothetical charging and holding
// windows against the current forecast without touching the live schedule.
// Every exploration is kept as an addressable run until it expires.
package sandbox

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/sim"
)

// Config tunes run retention.
type Config struct {
	// MaxRuns caps the number of retained runs. The oldest run is evicted
	// when a new exploration would exceed the cap.
	MaxRuns int `json:"max_runs"`
	// TTLMinutes is how long a run stays addressable.
	TTLMinutes int `json:"ttl_minutes"`
	// MinCapacityPercent is the policy floor scenarios are checked against.
	// The hardware minimum applies when it is higher.
	MinCapacityPercent float64 `json:"min_capacity_percent"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.MaxRuns == 0 {
		c.MaxRuns = 32
	}
	if c.TTLMinutes == 0 {
		c.TTLMinutes = 60
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxRuns < 1 {
		return fmt.Errorf("max_runs must be >= 1, got %d", c.MaxRuns)
	}
	if c.TTLMinutes < 1 {
		return fmt.Errorf("ttl_minutes must be >= 1, got %d", c.TTLMinutes)
	}
	if c.MinCapacityPercent < 0 || c.MinCapacityPercent > 100 {
		return fmt.Errorf("min_capacity_percent must be in [0,100], got %v", c.MinCapacityPercent)
	}
	return nil
}

func (c Config) ttl() time.Duration { return time.Duration(c.TTLMinutes) * time.Minute }

// Scenario describes the hypothetical to explore on top of a baseline
// timeline: grid-charge during the charging windows, forbid discharge
// during the holding windows, optionally start from a different SoC.
// Requester identifies the subsystem asking, so retained runs can be
// traced back to their originator.
type Scenario struct {
	Requester       string             `json:"requester,omitempty"`
	ChargingWindows []model.TimeWindow `json:"charging_windows"`
	HoldingWindows  []model.TimeWindow `json:"holding_windows"`
	InitialSoCKWh   *float64           `json:"initial_soc_kwh,omitempty"`
}

// CostBreakdown splits the scenario's cost delta against the baseline.
// Charging and holding attribute the delta inside the overridden intervals;
// Opportunity is the remainder, the downstream effect of the changed SoC
// trajectory. Charging + Holding + Opportunity = Delta.
type CostBreakdown struct {
	BaselineCost    float64 `json:"baseline_cost"`
	ScenarioCost    float64 `json:"scenario_cost"`
	DeltaCost       float64 `json:"delta_cost"`
	ChargingCost    float64 `json:"charging_cost"`
	HoldingCost     float64 `json:"holding_cost"`
	OpportunityCost float64 `json:"opportunity_cost"`
}

// Run is one retained exploration result.
type Run struct {
	ID          string            `json:"id"`
	Requester   string            `json:"requester,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	Scenario    Scenario          `json:"scenario"`
	Baseline    model.Timeline    `json:"-"`
	Timeline    model.Timeline    `json:"-"`
	Cost        CostBreakdown     `json:"cost"`
	MinSoCKWh   float64           `json:"min_soc_kwh"`
	MinSoCAt    time.Time         `json:"min_soc_at"`
	FinalSoCKWh float64           `json:"final_soc_kwh"`
	Violations  []model.Violation `json:"violations,omitempty"`
}

// Sandbox runs what-if scenarios and retains their results.
type Sandbox struct {
	mu   sync.Mutex
	sim  *sim.Simulator
	cfg  Config
	log  logger.Logger
	runs map[string]*Run
	// insertion order, oldest first, for cap eviction
	order []string
	now   func() time.Time
}

// New creates a Sandbox.
func New(s *sim.Simulator, cfg Config, log logger.Logger) (*Sandbox, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("sandbox requires a simulator")
	}
	return &Sandbox{
		sim:  s,
		cfg:  cfg,
		log:  log,
		runs: make(map[string]*Run),
		now:  time.Now,
	}, nil
}

// Explore simulates the scenario against the baseline and retains the
// result. The baseline is never modified.
func (s *Sandbox) Explore(baseline model.Timeline, sc Scenario) (*Run, error) {
	if baseline.Len() == 0 {
		return nil, fmt.Errorf("cannot explore an empty timeline")
	}
	for _, w := range append(append([]model.TimeWindow{}, sc.ChargingWindows...), sc.HoldingWindows...) {
		if !w.End.After(w.Start) {
			return nil, fmt.Errorf("window end %s not after start %s", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
		}
	}

	base := baseline
	if sc.InitialSoCKWh != nil {
		soc := s.sim.Params().ClampSoC(*sc.InitialSoCKWh)
		base = model.NewTimeline(baseline.Intervals(), soc)
	}
	if !base.HasPoints() {
		base = s.sim.RunFixed(base, model.BatteryPriority)
	}

	modes := sim.Modes(base)
	overridden := make([]bool, base.Len())
	holding := make([]bool, base.Len())
	for i := 0; i < base.Len(); i++ {
		ts := base.Interval(i).Timestamp
		for _, w := range sc.ChargingWindows {
			if w.Contains(ts) {
				modes[i] = model.ACChargeHold
				overridden[i] = true
			}
		}
		for _, w := range sc.HoldingWindows {
			if w.Contains(ts) && modes[i] != model.ACChargeHold {
				modes[i] = model.GridSupplemented
				holding[i] = true
			}
		}
	}
	result := s.sim.Run(base, modes)

	run := &Run{
		ID:          uuid.NewString(),
		Requester:   sc.Requester,
		CreatedAt:   s.now(),
		Scenario:    sc,
		Baseline:    base,
		Timeline:    result,
		Cost:        breakdown(base, result, overridden, holding),
		FinalSoCKWh: result.FinalSoC(),
		Violations:  sim.Violations(result, s.floorKWh()),
	}
	minSoC, minIdx := result.MinSoC()
	run.MinSoCKWh = minSoC
	if minIdx >= 0 {
		run.MinSoCAt = result.Interval(minIdx).Timestamp
	} else {
		run.MinSoCAt = result.Start()
	}

	s.mu.Lock()
	s.evictLocked()
	for len(s.order) >= s.cfg.MaxRuns {
		s.dropLocked(s.order[0])
	}
	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.mu.Unlock()

	s.log.Debugf("sandbox run %s: delta cost %.3f, min SoC %.2f kWh, %d violations",
		run.ID, run.Cost.DeltaCost, run.MinSoCKWh, len(run.Violations))
	return run, nil
}

// Get returns a retained run. Expired runs are gone.
func (s *Sandbox) Get(id string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	run, ok := s.runs[id]
	return run, ok
}

// Delete discards a run and reports whether it existed.
func (s *Sandbox) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return false
	}
	s.dropLocked(id)
	return true
}

// List returns the retained runs, oldest first.
func (s *Sandbox) List() []*Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	out := make([]*Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id])
	}
	return out
}

func (s *Sandbox) floorKWh() float64 {
	params := s.sim.Params()
	floor := params.SoCFromPercent(s.cfg.MinCapacityPercent)
	if floor < params.MinCapacityKWh {
		floor = params.MinCapacityKWh
	}
	return floor
}

func (s *Sandbox) evictLocked() {
	cutoff := s.now().Add(-s.cfg.ttl())
	for len(s.order) > 0 {
		run := s.runs[s.order[0]]
		if run.CreatedAt.After(cutoff) {
			return
		}
		s.dropLocked(s.order[0])
	}
}

func (s *Sandbox) dropLocked(id string) {
	delete(s.runs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func breakdown(base, result model.Timeline, overridden, holding []bool) CostBreakdown {
	bd := CostBreakdown{
		BaselineCost: base.TotalCost(),
		ScenarioCost: result.TotalCost(),
	}
	bd.DeltaCost = bd.ScenarioCost - bd.BaselineCost
	for i := 0; i < result.Len(); i++ {
		delta := result.Point(i).NetCost - base.Point(i).NetCost
		switch {
		case overridden[i]:
			bd.ChargingCost += delta
		case holding[i]:
			bd.HoldingCost += delta
		default:
			bd.OpportunityCost += delta
		}
	}
	return bd
}
