package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `battery:
  max_capacity_kwh: 10
  min_capacity_kwh: 2
  discharge_efficiency: 0.882
  charge_efficiency: 1
  max_charge_power_kw: 2.8
initial_soc_kwh: 5
forecast:
  horizon_hours: 24
  flat_load_kwh: 0.2
optimizer:
  assumed_peak_price: 5
  soc_step_kwh: 0.5
planner:
  enable_economic_charging: true
  min_savings_margin_per_kwh: 0.5
  min_capacity_percent: 20
  target_capacity_percent: 60
  max_charging_price: 3
protection:
  enable_blackout_protection: true
  blackout_protection_hours: 12
  blackout_target_soc_percent: 50
plans:
  lock_window_minutes: 45
  max_charging_price: 3
scheduler:
  refresh_minutes: 15
  target_soc_percent: 60
metrics:
  sinks:
    - type: "nop"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  plan_topic: "home/battery/plan"
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"battery.max", cfg.Battery.MaxCapacityKWh, 10.0},
		{"battery.efficiency", cfg.Battery.DischargeEfficiency, 0.882},
		{"initial_soc", cfg.InitialSoC, 5.0},
		{"forecast.horizon", cfg.Forecast.HorizonHours, 24},
		{"optimizer.peak", cfg.Optimizer.AssumedPeakPrice, 5.0},
		{"planner.economic", cfg.Planner.EnableEconomicCharging, true},
		{"planner.margin", cfg.Planner.MinSavingsMarginPerKWh, 0.5},
		{"protection.blackout", cfg.Protection.EnableBlackoutProtection, true},
		{"plans.lock", cfg.Plans.LockWindowMinutes, 45},
		{"scheduler.target", cfg.Scheduler.TargetSoCPercent, 60.0},
		{"metrics.sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"mqtt.enabled", cfg.MQTT.Enabled, true},
		{"mqtt.plan_topic", cfg.MQTT.PlanTopic, "home/battery/plan"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	// Defaults applied to unset fields.
	if cfg.Scheduler.RefreshMinutes != 15 {
		t.Errorf("refresh_minutes = %d", cfg.Scheduler.RefreshMinutes)
	}
	if cfg.Sandbox.MaxRuns != 32 {
		t.Errorf("sandbox default not applied: %d", cfg.Sandbox.MaxRuns)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, validConfig)
	t.Setenv("BS_SCHEDULER__REFRESH_MINUTES", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Scheduler.RefreshMinutes != 5 {
		t.Fatalf("env override ignored: %d", cfg.Scheduler.RefreshMinutes)
	}
}

func TestLoadRejectsInvalidBattery(t *testing.T) {
	path := writeConfig(t, `battery:
  max_capacity_kwh: 2
  min_capacity_kwh: 5
  discharge_efficiency: 0.9
  max_charge_power_kw: 2.8
optimizer:
  assumed_peak_price: 5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for floor above capacity")
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
