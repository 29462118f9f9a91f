// Package optimizer computes a globally cost-minimal mode assignment over a
// forecast timeline by backward-induction dynamic programming on a
// discretized SoC grid.
package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/sim"
)

const costEps = 1e-9

// Result carries the optimal assignment and the comparison report.
type Result struct {
	// Modes is the chosen mode per interval.
	Modes []model.Mode
	// Timeline is the exact trajectory obtained by re-simulating the
	// chosen modes forward from the non-discretized initial SoC.
	Timeline model.Timeline
	// TotalCost is the net cost of that trajectory.
	TotalCost float64
	// States is the number of discretized SoC states, for reporting.
	States int
	// Comparison holds fixed-policy baselines. It is informational only
	// and never influences the chosen plan.
	Comparison Comparison
}

// Comparison reports the total cost of degenerate fixed policies.
type Comparison struct {
	// FixedMode maps each mode name to the cost of running it everywhere.
	FixedMode map[string]float64 `json:"fixed_mode"`
	// AlwaysCharge is the cost of grid-charging in every interval.
	AlwaysCharge float64 `json:"always_charge"`
	// SelfConsume is the cost of pure self-consumption with no grid
	// charging at all.
	SelfConsume float64 `json:"self_consume"`
}

// Optimizer runs the DP over a shared interval simulator.
type Optimizer struct {
	sim *sim.Simulator
	cfg Config
	log logger.Logger
}

// New validates the configuration and returns an Optimizer.
func New(s *sim.Simulator, cfg Config, log logger.Logger) (*Optimizer, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("optimizer config: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("optimizer: nil simulator")
	}
	return &Optimizer{sim: s, cfg: cfg, log: log}, nil
}

// Optimize computes the cost-minimal mode per interval for the timeline
// starting at its initial SoC. Re-running on an unchanged timeline yields
// an identical assignment.
func (o *Optimizer) Optimize(tl model.Timeline) Result {
	n := tl.Len()
	if n == 0 {
		return Result{Comparison: Comparison{FixedMode: map[string]float64{}}}
	}
	p := o.sim.Params()
	states := int(math.Round(p.UsableCapacityKWh()/o.cfg.SoCStepKWh)) + 1
	if states < 2 {
		states = 2
	}
	socOf := func(s int) float64 {
		return p.MinCapacityKWh + float64(s)*o.cfg.SoCStepKWh
	}
	nearest := func(soc float64) int {
		s := int(math.Round((soc - p.MinCapacityKWh) / o.cfg.SoCStepKWh))
		if s < 0 {
			return 0
		}
		if s >= states {
			return states - 1
		}
		return s
	}

	// Backward induction. value holds V[t+1]; policy stores the argmin
	// mode per (t, state).
	value := make([]float64, states)
	next := make([]float64, states)
	policy := make([][]model.Mode, n)

	start := time.Now()
	for t := n - 1; t >= 0; t-- {
		iv := tl.Interval(t)
		policy[t] = make([]model.Mode, states)
		for s := 0; s < states; s++ {
			best := math.Inf(1)
			bestCycling := math.Inf(1)
			bestMode := model.BatteryPriority
			for _, mode := range model.Modes {
				pt := o.sim.Simulate(mode, iv, socOf(s))
				cost := pt.NetCost + o.opportunityPenalty(iv, pt) + value[nearest(pt.SoCAfterKWh)]
				switch {
				case cost < best-costEps:
					best = cost
					bestCycling = pt.Cycling()
					bestMode = mode
				case math.Abs(cost-best) <= costEps && pt.Cycling() < bestCycling:
					// Cost tie: prefer the mode that cycles the
					// battery less. Mode order keeps this stable.
					bestCycling = pt.Cycling()
					bestMode = mode
				}
			}
			next[s] = best
			policy[t][s] = bestMode
		}
		value, next = next, value
	}

	// Forward reconstruction with the exact, non-discretized trajectory.
	modes := make([]model.Mode, n)
	soc := tl.InitialSoC
	for t := 0; t < n; t++ {
		modes[t] = policy[t][nearest(soc)]
		pt := o.sim.Simulate(modes[t], tl.Interval(t), soc)
		soc = pt.SoCAfterKWh
	}
	optimal := o.sim.Run(tl, modes)

	res := Result{
		Modes:      modes,
		Timeline:   optimal,
		TotalCost:  optimal.TotalCost(),
		States:     states,
		Comparison: o.compare(tl),
	}
	if o.log != nil {
		o.log.Debugw("optimization finished", map[string]any{
			"intervals": n,
			"states":    states,
			"cost":      res.TotalCost,
			"elapsed":   time.Since(start).String(),
		})
	}
	return res
}

// opportunityPenalty charges modes that discharge during cheap off-peak
// intervals for the value the stored energy would have had at the assumed
// evening peak.
func (o *Optimizer) opportunityPenalty(iv model.Interval, pt model.SimulationPoint) float64 {
	if pt.BatteryDischargeKWh <= 0 {
		return 0
	}
	if o.inPeakWindow(iv.Timestamp) {
		return 0
	}
	if iv.BuyPrice >= o.cfg.AssumedPeakPrice {
		return 0
	}
	return (o.cfg.AssumedPeakPrice - iv.BuyPrice) * pt.BatteryDischargeKWh
}

func (o *Optimizer) inPeakWindow(ts time.Time) bool {
	h := ts.Hour()
	return h >= o.cfg.PeakStartHour && h < o.cfg.PeakEndHour
}

// compare evaluates fixed-policy baselines for reporting.
func (o *Optimizer) compare(tl model.Timeline) Comparison {
	cmp := Comparison{FixedMode: make(map[string]float64, len(model.Modes))}
	for _, mode := range model.Modes {
		cmp.FixedMode[mode.String()] = o.sim.RunFixed(tl, mode).TotalCost()
	}
	cmp.AlwaysCharge = cmp.FixedMode[model.ACChargeHold.String()]
	cmp.SelfConsume = cmp.FixedMode[model.BatteryPriority.String()]
	return cmp
}
