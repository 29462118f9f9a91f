// Package planner decides supplemental grid-charge top-ups that keep the
// SoC trajectory above its constraints at minimal cost. Two strategies
// share one interface; a protection override runs before either and has
// absolute priority. The resulting priority chain is explicit: protection
// charges first, then committed plan intervals, then the optimizer's own
// AC-charge selections, then strategy top-ups.
package planner

import (
	"fmt"

	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/sim"
)

// Constraints carries the per-run planning inputs.
type Constraints struct {
	// TargetSoCPercent is the desired SoC at the end of the horizon.
	TargetSoCPercent float64
	// ProtectionSoCKWh is the reserve requirement; zero when absent.
	ProtectionSoCKWh float64
	// HasProtection reports whether a protection policy is enabled.
	HasProtection bool
	// ProtectionWindow is the number of leading intervals within which the
	// protection requirement must be met.
	ProtectionWindow int
	// Pinned marks intervals whose mode must not change, for example the
	// committed charging intervals of an active plan.
	Pinned map[int]bool
}

// Outcome reports how a planning run went. Hitting the iteration cap is an
// outcome, never a failure: the best timeline obtained is still returned.
type Outcome struct {
	Strategy      string            `json:"strategy"`
	Converged     bool              `json:"converged"`
	Iterations    int               `json:"iterations"`
	InjectedKWh   float64           `json:"injected_kwh"`
	Protection    int               `json:"protection_charges"`
	ProtectionKWh float64           `json:"protection_kwh"`
	Violations    []model.Violation `json:"violations,omitempty"`
}

// Strategy plans grid-charge top-ups on an already simulated timeline.
type Strategy interface {
	Name() string
	Plan(tl model.Timeline, cons Constraints) (model.Timeline, Outcome)
}

// Planner runs the protection override followed by the configured strategy.
type Planner struct {
	sim      *sim.Simulator
	cfg      Config
	strategy Strategy
	log      logger.Logger
}

// New validates the configuration, picks the strategy it selects and
// returns a Planner.
func New(s *sim.Simulator, cfg Config, log logger.Logger) (*Planner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("planner config: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("planner: nil simulator")
	}
	p := &Planner{sim: s, cfg: cfg, log: log}
	if cfg.EnableEconomicCharging {
		p.strategy = &Economic{sim: s, cfg: cfg, log: log}
	} else {
		p.strategy = &Heuristic{sim: s, cfg: cfg, log: log}
	}
	return p, nil
}

// Strategy exposes the active strategy, mainly for reporting.
func (p *Planner) Strategy() Strategy { return p.strategy }

// Plan annotates the timeline with the top-ups required by the constraints.
func (p *Planner) Plan(tl model.Timeline, cons Constraints) (model.Timeline, Outcome) {
	if !tl.HasPoints() {
		tl = p.sim.RunFixed(tl, model.BatteryPriority)
	}
	tl, forced, forcedKWh := p.applyProtection(tl, cons)
	tl, outcome := p.strategy.Plan(tl, cons)
	outcome.Protection = forced
	outcome.ProtectionKWh = forcedKWh
	outcome.Violations = sim.Violations(tl, p.floorKWh())
	if !outcome.Converged && p.log != nil {
		p.log.Warnf("planner %s hit the iteration cap after %d rounds", outcome.Strategy, outcome.Iterations)
	}
	return tl, outcome
}

// applyProtection forces cheapest-available charging until the trajectory
// reaches the protection requirement inside its window. It ignores the
// economic margin entirely.
func (p *Planner) applyProtection(tl model.Timeline, cons Constraints) (model.Timeline, int, float64) {
	if !cons.HasProtection || cons.ProtectionSoCKWh <= 0 {
		return tl, 0, 0
	}
	window := cons.ProtectionWindow
	if window <= 0 || window > tl.Len() {
		window = tl.Len()
	}
	modes := sim.Modes(tl)
	reasons := reasonsOf(tl)
	forced := 0
	var forcedKWh float64
	for iter := 0; iter < p.cfg.MaxIterations; iter++ {
		if peakSoC(tl, window) >= cons.ProtectionSoCKWh-1e-9 {
			break
		}
		c := cheapestCandidate(tl, modes, 0, window, func(iv model.Interval) bool {
			return !cons.Pinned[iv.Index]
		})
		if c < 0 {
			if p.log != nil {
				p.log.Warnf("protection requirement %.2f kWh unreachable within window", cons.ProtectionSoCKWh)
			}
			break
		}
		prev := tl.Point(c).BatteryChargeKWh
		modes[c] = model.ACChargeHold
		reasons[c] = model.ReasonProtectionCharge
		tl = p.sim.RunFrom(tl, modes, c)
		forced++
		forcedKWh += tl.Point(c).BatteryChargeKWh - prev
	}
	if forced > 0 {
		tl = tl.WithReasons(reasons)
	}
	return tl, forced, forcedKWh
}

func (p *Planner) floorKWh() float64 {
	params := p.sim.Params()
	floor := params.SoCFromPercent(p.cfg.MinCapacityPercent)
	if floor < params.MinCapacityKWh {
		floor = params.MinCapacityKWh
	}
	return floor
}

// peakSoC returns the maximum SoC reached within the first n points.
func peakSoC(tl model.Timeline, n int) float64 {
	peak := tl.InitialSoC
	for i := 0; i < n && i < tl.Len(); i++ {
		if soc := tl.Point(i).SoCAfterKWh; soc > peak {
			peak = soc
		}
	}
	return peak
}

// cheapestCandidate returns the index of the cheapest interval in [from,to)
// that is not already grid-charging and passes the filter, or -1.
func cheapestCandidate(tl model.Timeline, modes []model.Mode, from, to int, ok func(model.Interval) bool) int {
	best := -1
	for i := from; i < to && i < tl.Len(); i++ {
		if modes[i] == model.ACChargeHold {
			continue
		}
		iv := tl.Interval(i)
		if ok != nil && !ok(iv) {
			continue
		}
		if best < 0 || iv.BuyPrice < tl.Interval(best).BuyPrice {
			best = i
		}
	}
	return best
}

// reasonsOf extracts the reason tags of a simulated timeline.
func reasonsOf(tl model.Timeline) []model.ReasonTag {
	out := make([]model.ReasonTag, tl.Len())
	for i := range out {
		out[i] = tl.Point(i).Reason
	}
	return out
}
