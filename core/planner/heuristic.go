package planner

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/battsched/battsched/core/logger"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/sim"
)

// Heuristic clears SoC violations by bounded fixed-point iteration: find
// the first point below the floor, inject one power-limited charge unit at
// the cheapest earlier interval under both the absolute ceiling and the
// percentile peak threshold, re-simulate, repeat. Once the trajectory is
// clean it raises the final SoC towards the target with an unrestricted
// cheapest-first search.
type Heuristic struct {
	sim *sim.Simulator
	cfg Config
	log logger.Logger
}

func (h *Heuristic) Name() string { return "heuristic" }

func (h *Heuristic) Plan(tl model.Timeline, cons Constraints) (model.Timeline, Outcome) {
	out := Outcome{Strategy: h.Name()}
	params := h.sim.Params()
	floor := params.SoCFromPercent(h.cfg.MinCapacityPercent)
	if floor < params.MinCapacityKWh {
		floor = params.MinCapacityKWh
	}
	targetPct := cons.TargetSoCPercent
	if targetPct == 0 {
		targetPct = h.cfg.TargetCapacityPercent
	}
	target := params.SoCFromPercent(targetPct)
	threshold := h.peakThreshold(tl)

	modes := sim.Modes(tl)
	reasons := reasonsOf(tl)
	injected := func(c int, reason model.ReasonTag) {
		before := tl.Point(c).BatteryChargeKWh
		modes[c] = model.ACChargeHold
		reasons[c] = reason
		tl = h.sim.RunFrom(tl, modes, c)
		out.InjectedKWh += tl.Point(c).BatteryChargeKWh - before
		out.Iterations++
	}

	// Phase one: clear floor violations.
	for out.Iterations < h.cfg.MaxIterations {
		v := firstViolation(tl, floor)
		if v < 0 {
			break
		}
		c := cheapestCandidate(tl, modes, 0, v, func(iv model.Interval) bool {
			if cons.Pinned[iv.Index] {
				return false
			}
			return iv.BuyPrice <= h.cfg.MaxChargingPrice && iv.BuyPrice <= threshold
		})
		if c < 0 {
			// No admissible interval left before the violation; give up
			// on this one rather than fail the whole computation.
			if h.log != nil {
				h.log.Warnf("no interval under ceiling %.2f and threshold %.2f before violation at %d",
					h.cfg.MaxChargingPrice, threshold, v)
			}
			out.Converged = false
			return tl.WithReasons(reasons), out
		}
		injected(c, model.ReasonDeathValleyFix)
	}

	// Phase two: raise the final SoC to the target. The percentile gate no
	// longer applies; the absolute ceiling still does.
	for out.Iterations < h.cfg.MaxIterations && tl.FinalSoC() < target-1e-9 {
		c := cheapestCandidate(tl, modes, 0, tl.Len(), func(iv model.Interval) bool {
			return !cons.Pinned[iv.Index] && iv.BuyPrice <= h.cfg.MaxChargingPrice
		})
		if c < 0 {
			break
		}
		injected(c, model.ReasonBalancingCharging)
	}

	out.Converged = out.Iterations < h.cfg.MaxIterations
	return tl.WithReasons(reasons), out
}

// peakThreshold returns the configured quantile of the horizon's buy
// prices. Charging above it is considered charging into the peak.
func (h *Heuristic) peakThreshold(tl model.Timeline) float64 {
	prices := make([]float64, tl.Len())
	for i := range prices {
		prices[i] = tl.Interval(i).BuyPrice
	}
	sort.Float64s(prices)
	if len(prices) == 0 {
		return h.cfg.MaxChargingPrice
	}
	return stat.Quantile(h.cfg.PeakPercentile, stat.Empirical, prices, nil)
}

// firstViolation returns the index of the first point below the floor.
func firstViolation(tl model.Timeline, floor float64) int {
	for i := 0; i < tl.Len(); i++ {
		if tl.Point(i).SoCAfterKWh < floor-1e-9 {
			return i
		}
	}
	return -1
}
