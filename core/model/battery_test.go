package model

import "testing"

func validParams() BatteryParameters {
	return BatteryParameters{
		MaxCapacityKWh:      10,
		MinCapacityKWh:      2,
		DischargeEfficiency: 0.9,
		ChargeEfficiency:    1,
		MaxChargePowerKW:    2.8,
	}
}

func TestBatteryParametersValidate(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Fatalf("valid params rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*BatteryParameters)
	}{
		{"zero capacity", func(p *BatteryParameters) { p.MaxCapacityKWh = 0 }},
		{"negative floor", func(p *BatteryParameters) { p.MinCapacityKWh = -1 }},
		{"floor above ceiling", func(p *BatteryParameters) { p.MinCapacityKWh = 11 }},
		{"zero discharge efficiency", func(p *BatteryParameters) { p.DischargeEfficiency = 0 }},
		{"discharge efficiency above one", func(p *BatteryParameters) { p.DischargeEfficiency = 1.1 }},
		{"zero charge efficiency", func(p *BatteryParameters) { p.ChargeEfficiency = 0 }},
		{"zero charge power", func(p *BatteryParameters) { p.MaxChargePowerKW = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSoCConversions(t *testing.T) {
	p := validParams()
	if got := p.SoCPercent(5); got != 50 {
		t.Fatalf("SoCPercent(5) = %v", got)
	}
	if got := p.SoCFromPercent(30); got != 3 {
		t.Fatalf("SoCFromPercent(30) = %v", got)
	}
	if got := p.UsableCapacityKWh(); got != 8 {
		t.Fatalf("usable capacity = %v", got)
	}
}

func TestClampSoC(t *testing.T) {
	p := validParams()
	if got := p.ClampSoC(1); got != 2 {
		t.Fatalf("below floor: %v", got)
	}
	if got := p.ClampSoC(12); got != 10 {
		t.Fatalf("above ceiling: %v", got)
	}
	if got := p.ClampSoC(6); got != 6 {
		t.Fatalf("in range: %v", got)
	}
}
