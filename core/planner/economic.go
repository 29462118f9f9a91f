package planner

import (
	"sort"

	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/sim"
)

// Economic ranks sub-ceiling intervals cheapest-first and commits a charge
// unit only when the simulated savings per kWh clear the configured margin.
// A death-valley check runs first and forces minimal top-ups whenever
// skipping them would drop the projected minimum SoC below the effective
// minimum, independent of any margin.
type Economic struct {
	sim *sim.Simulator
	cfg Config
	log logger.Logger
}

func (e *Economic) Name() string { return "economic" }

func (e *Economic) Plan(tl model.Timeline, cons Constraints) (model.Timeline, Outcome) {
	out := Outcome{Strategy: e.Name()}
	params := e.sim.Params()
	floor := params.SoCFromPercent(e.cfg.MinCapacityPercent)
	if floor < params.MinCapacityKWh {
		floor = params.MinCapacityKWh
	}
	effectiveMin := floor + params.SoCFromPercent(e.cfg.SafetyMarginPercent)
	horizon := e.cfg.EconomicHorizonHours * int(1/model.IntervalHours)
	if horizon > tl.Len() || horizon <= 0 {
		horizon = tl.Len()
	}

	modes := sim.Modes(tl)
	reasons := reasonsOf(tl)

	// Death-valley pass: minimal top-ups, not full ones, and no margin.
	for out.Iterations < e.cfg.MaxIterations {
		minSoC, at := tl.MinSoC()
		if minSoC >= effectiveMin-1e-9 || at < 0 {
			break
		}
		c := cheapestCandidate(tl, modes, 0, at+1, func(iv model.Interval) bool {
			return !cons.Pinned[iv.Index]
		})
		if c < 0 {
			if e.log != nil {
				e.log.Warnf("death valley at %d cannot be fixed, projected minimum %.2f kWh", at, minSoC)
			}
			break
		}
		before := tl.Point(c).BatteryChargeKWh
		modes[c] = model.ACChargeHold
		reasons[c] = model.ReasonDeathValleyFix
		tl = e.sim.RunFrom(tl, modes, c)
		out.InjectedKWh += tl.Point(c).BatteryChargeKWh - before
		out.Iterations++
	}

	// Economic pass: cheapest-first, committed only on sufficient savings.
	type candidate struct {
		idx   int
		price float64
	}
	var cands []candidate
	for i := 0; i < horizon; i++ {
		iv := tl.Interval(i)
		if modes[i] == model.ACChargeHold || cons.Pinned[iv.Index] {
			continue
		}
		if iv.BuyPrice <= e.cfg.MaxChargingPrice {
			cands = append(cands, candidate{idx: i, price: iv.BuyPrice})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].price != cands[j].price {
			return cands[i].price < cands[j].price
		}
		return cands[i].idx < cands[j].idx
	})

	costWithout := windowCost(tl, horizon)
	for _, c := range cands {
		if out.Iterations >= e.cfg.MaxIterations {
			break
		}
		trial := append([]model.Mode(nil), modes...)
		trial[c.idx] = model.ACChargeHold
		with := e.sim.RunFrom(tl, trial, c.idx)
		added := with.Point(c.idx).BatteryChargeKWh - tl.Point(c.idx).BatteryChargeKWh
		if added <= 1e-9 {
			continue
		}
		savings := costWithout - windowCost(with, horizon)
		if savings/added <= e.cfg.MinSavingsMarginPerKWh {
			continue
		}
		modes = trial
		reasons[c.idx] = model.ReasonEconomicCharge
		tl = with
		costWithout = windowCost(tl, horizon)
		out.InjectedKWh += added
		out.Iterations++
	}

	out.Converged = out.Iterations < e.cfg.MaxIterations
	return tl.WithReasons(reasons), out
}

// windowCost sums net cost over the first n points.
func windowCost(tl model.Timeline, n int) float64 {
	var c float64
	for i := 0; i < n && i < tl.Len(); i++ {
		c += tl.Point(i).NetCost
	}
	return c
}
