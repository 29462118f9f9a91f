// Package config loads and validates the application configuration from a
// JSON or YAML file with optional BS_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/battsched/battsched/core/forecast"
	"github.com/battsched/battsched/core/metrics"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/optimizer"
	"github.com/battsched/battsched/core/plan"
	"github.com/battsched/battsched/core/planner"
	"github.com/battsched/battsched/core/protection"
	"github.com/battsched/battsched/core/sandbox"
	"github.com/battsched/battsched/core/scheduler"
	"github.com/battsched/battsched/infra/mqtt"
)

// Config aggregates the settings of every component.
type Config struct {
	Battery    model.BatteryParameters `json:"battery"`
	SinkKWh    float64                 `json:"secondary_sink_kwh"`
	InitialSoC float64                 `json:"initial_soc_kwh"`
	Forecast   forecast.Config         `json:"forecast"`
	Fixture    string                  `json:"forecast_fixture"`
	Optimizer  optimizer.Config        `json:"optimizer"`
	Planner    planner.Config          `json:"planner"`
	Protection protection.Config       `json:"protection"`
	Plans      plan.Config             `json:"plans"`
	Sandbox    sandbox.Config          `json:"sandbox"`
	Scheduler  scheduler.Config        `json:"scheduler"`
	Metrics    metrics.Config          `json:"metrics"`
	MQTT       MQTTConfig              `json:"mqtt"`
}

// MQTTConfig wraps the client settings with an enable switch so deployments
// without a broker can leave the section out.
type MQTTConfig struct {
	Enabled     bool `json:"enabled"`
	mqtt.Config `json:",squash"`
}

// Load reads the configuration file, applies BS_ environment overrides and
// validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("BS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "bs_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}

	if cfg.Battery.ChargeEfficiency == 0 {
		cfg.Battery.ChargeEfficiency = 1
	}
	cfg.Forecast.SetDefaults()
	cfg.Optimizer.SetDefaults()
	cfg.Planner.SetDefaults()
	cfg.Protection.SetDefaults()
	cfg.Plans.SetDefaults()
	cfg.Sandbox.SetDefaults()
	cfg.Scheduler.SetDefaults()

	if err := cfg.Battery.Validate(); err != nil {
		return nil, fmt.Errorf("battery: %w", err)
	}
	if cfg.SinkKWh < 0 {
		return nil, fmt.Errorf("secondary_sink_kwh must not be negative, got %v", cfg.SinkKWh)
	}
	if err := cfg.Forecast.Validate(); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if err := cfg.Optimizer.Validate(); err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	if err := cfg.Planner.Validate(); err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}
	if err := cfg.Protection.Validate(); err != nil {
		return nil, fmt.Errorf("protection: %w", err)
	}
	if err := cfg.Plans.Validate(); err != nil {
		return nil, fmt.Errorf("plans: %w", err)
	}
	if err := cfg.Sandbox.Validate(); err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	if err := cfg.Scheduler.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if cfg.MQTT.Enabled {
		cfg.MQTT.SetDefaults()
		if err := cfg.MQTT.Validate(); err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
	}
	return &cfg, nil
}
