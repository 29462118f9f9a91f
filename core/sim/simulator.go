// Package sim implements the interval state-transition model. Simulate is a
// pure function: it performs no I/O, mutates none of its inputs and is
// deterministic, which makes it safe for the optimizer's high call volume
// and for sandbox cloning.
package sim

import (
	"fmt"

	"github.com/battsched/battsched/core/model"
)

// Simulator evaluates single intervals against fixed battery parameters.
type Simulator struct {
	params model.BatteryParameters
	// sinkKWh is the per-interval capacity of the secondary surplus sink
	// (for example a heating element) used before curtailing PV when the
	// sell price is non-positive.
	sinkKWh float64
}

// New validates the parameters and returns a Simulator. Malformed
// parameters are the only condition under which the core raises.
func New(params model.BatteryParameters, sinkKWh float64) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("battery parameters: %w", err)
	}
	if sinkKWh < 0 {
		return nil, fmt.Errorf("secondary sink capacity must not be negative, got %v", sinkKWh)
	}
	return &Simulator{params: params, sinkKWh: sinkKWh}, nil
}

// Params returns the battery parameters the simulator was built with.
func (s *Simulator) Params() model.BatteryParameters { return s.params }

// Simulate computes the energy flows, resulting SoC and cost of running one
// interval in the given mode starting from priorSoC.
func (s *Simulator) Simulate(mode model.Mode, iv model.Interval, priorSoC float64) model.SimulationPoint {
	p := s.params
	pt := model.SimulationPoint{Mode: mode, Reason: model.ReasonNormal}

	soc := priorSoC
	if soc < p.MinCapacityKWh {
		// A start below the policy floor is absorbed, never raised: the
		// missing energy shows up as extra grid import.
		soc = p.MinCapacityKWh
		pt.FloorClamped = true
	}
	if soc > p.MaxCapacityKWh {
		soc = p.MaxCapacityKWh
		pt.CeilClamped = true
	}

	load := iv.LoadKWh
	solar := iv.SolarKWh

	switch mode {
	case model.BatteryPriority:
		// PV fills the battery first, then serves the load directly.
		stored, leftover := s.charge(&soc, solar)
		pt.BatteryChargeKWh += stored
		direct := min(leftover, load)
		leftover -= direct
		load -= direct
		// Remaining load comes from the battery, lossy, then the grid.
		drawn, delivered := s.discharge(&soc, load)
		pt.BatteryDischargeKWh += drawn
		load -= delivered
		pt.GridImportKWh += load
		s.disposeSurplus(&pt, iv, leftover)

	case model.GridSupplemented:
		// PV serves the load directly; the battery only absorbs surplus.
		direct := min(solar, load)
		surplus := solar - direct
		deficit := load - direct
		stored, overflow := s.charge(&soc, surplus)
		pt.BatteryChargeKWh += stored
		pt.GridImportKWh += deficit
		s.disposeSurplus(&pt, iv, overflow)

	case model.SolarToBatteryOnly:
		// All PV goes to the battery over the uncapped DC path.
		stored, overflow := s.charge(&soc, solar)
		pt.BatteryChargeKWh += stored
		pt.GridImportKWh += load
		s.disposeSurplus(&pt, iv, overflow)

	case model.ACChargeHold:
		// PV charges first, then the grid tops up within the power limit.
		stored, overflow := s.charge(&soc, solar)
		pt.BatteryChargeKWh += stored
		acBudget := p.MaxChargePowerKW * model.IntervalHours
		acIn := min(acBudget, s.headroomInput(soc))
		acStored, _ := s.charge(&soc, acIn)
		pt.BatteryChargeKWh += acStored
		pt.GridImportKWh += load + acIn
		s.disposeSurplus(&pt, iv, overflow)
	}

	if soc >= p.MaxCapacityKWh {
		pt.CeilClamped = true
	}
	pt.SoCAfterKWh = p.ClampSoC(soc)
	pt.NetCost = pt.GridImportKWh*iv.BuyPrice - pt.GridExportKWh*iv.SellPrice
	return pt
}

// charge routes up to energyIn kWh into the battery and returns the stored
// energy (SoC side) and the input that could not be accepted.
func (s *Simulator) charge(soc *float64, energyIn float64) (stored, overflow float64) {
	if energyIn <= 0 {
		return 0, 0
	}
	accept := min(energyIn, s.headroomInput(*soc))
	stored = accept * s.params.ChargeEfficiency
	*soc += stored
	return stored, energyIn - accept
}

// headroomInput returns how much input-side energy the battery can still
// accept before hitting the ceiling.
func (s *Simulator) headroomInput(soc float64) float64 {
	head := s.params.MaxCapacityKWh - soc
	if head <= 0 {
		return 0
	}
	return head / s.params.ChargeEfficiency
}

// discharge serves up to wanted kWh of load from the battery. The loss
// factor applies here and only here: drawn is the SoC-side energy, delivered
// the load-side energy after conversion.
func (s *Simulator) discharge(soc *float64, wanted float64) (drawn, delivered float64) {
	if wanted <= 0 {
		return 0, 0
	}
	available := *soc - s.params.MinCapacityKWh
	if available <= 0 {
		return 0, 0
	}
	drawn = min(wanted/s.params.DischargeEfficiency, available)
	delivered = drawn * s.params.DischargeEfficiency
	*soc -= drawn
	return drawn, delivered
}

// disposeSurplus handles PV the battery could not absorb. At positive sell
// prices the surplus is exported; otherwise it goes to the secondary sink
// first and the remainder is reported as a distinct curtailment loss, never
// folded into the net cost.
func (s *Simulator) disposeSurplus(pt *model.SimulationPoint, iv model.Interval, surplus float64) {
	if surplus <= 0 {
		return
	}
	if iv.SellPrice > 0 {
		pt.GridExportKWh += surplus
		return
	}
	diverted := min(surplus, s.sinkKWh-pt.DivertedKWh)
	if diverted > 0 {
		pt.DivertedKWh += diverted
		surplus -= diverted
	}
	pt.CurtailedKWh += surplus
}
