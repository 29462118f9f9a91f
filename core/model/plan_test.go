package model

import (
	"testing"
	"time"
)

func TestChargingPlanAggregates(t *testing.T) {
	base := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	p := ChargingPlan{
		ChargingIntervals: []ChargingInterval{
			{Timestamp: base.Add(30 * time.Minute), EnergyKWh: 0.7, Price: 3},
			{Timestamp: base, EnergyKWh: 0.7, Price: 2},
		},
		HoldingWindow: TimeWindow{Start: base.Add(2 * time.Hour), End: base.Add(4 * time.Hour)},
	}

	if !p.FirstChargeAt().Equal(base) {
		t.Fatalf("first charge = %s", p.FirstChargeAt())
	}
	if got := p.TotalEnergyKWh(); got != 1.4 {
		t.Fatalf("total energy = %v", got)
	}
	if got := p.TotalCost(); got != 0.7*3+0.7*2 {
		t.Fatalf("total cost = %v", got)
	}

	// With no charging intervals the holding start is the first activity.
	empty := ChargingPlan{HoldingWindow: p.HoldingWindow}
	if !empty.FirstChargeAt().Equal(p.HoldingWindow.Start) {
		t.Fatalf("empty plan first charge = %s", empty.FirstChargeAt())
	}
}

func TestWithStatusCopies(t *testing.T) {
	p := ChargingPlan{ID: "a", Status: PlanPlanned}
	next := p.WithStatus(PlanRunning)
	if next.Status != PlanRunning || p.Status != PlanPlanned {
		t.Fatalf("got %v / %v", next.Status, p.Status)
	}
}

func TestPlanStatusTerminal(t *testing.T) {
	for _, s := range []PlanStatus{PlanPlanned, PlanLocked, PlanRunning} {
		if s.Terminal() {
			t.Fatalf("%v should not be terminal", s)
		}
	}
	for _, s := range []PlanStatus{PlanCompleted, PlanCancelled} {
		if !s.Terminal() {
			t.Fatalf("%v should be terminal", s)
		}
	}
}

func TestTimeWindowContains(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	w := TimeWindow{Start: start, End: start.Add(time.Hour)}
	if !w.Contains(start) {
		t.Fatal("start should be inside")
	}
	if w.Contains(start.Add(time.Hour)) {
		t.Fatal("end is exclusive")
	}
	if w.Contains(start.Add(-time.Second)) {
		t.Fatal("before start should be outside")
	}
}

func TestEnumStrings(t *testing.T) {
	if BatteryPriority.String() != "battery_priority" || ACChargeHold.String() != "ac_charge_hold" {
		t.Fatal("mode strings changed")
	}
	if ReasonDeathValleyFix.String() != "death_valley_fix" {
		t.Fatal("reason string changed")
	}
	if PlanLocked.String() != "locked" || PlanResultPartial.String() != "partial" {
		t.Fatal("plan strings changed")
	}
	if PlanForced.String() != "forced" || PlanEconomic.String() != "economic" {
		t.Fatal("plan mode strings changed")
	}
}
