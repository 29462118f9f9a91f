// Package app wires the configured components into a runnable service.
package app

import (
	"context"
	"fmt"

	"github.com/battsched/battsched/config"
	"github.com/battsched/battsched/core/forecast"
	coremetrics "github.com/battsched/battsched/core/metrics"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/core/optimizer"
	"github.com/battsched/battsched/core/plan"
	"github.com/battsched/battsched/core/planner"
	"github.com/battsched/battsched/core/sandbox"
	"github.com/battsched/battsched/core/scheduler"
	"github.com/battsched/battsched/core/sim"
	"github.com/battsched/battsched/infra/logger"
	_ "github.com/battsched/battsched/infra/metrics"
	"github.com/battsched/battsched/infra/mqtt"
	"github.com/battsched/battsched/internal/eventbus"
	"github.com/battsched/battsched/metrics"
)

// Service orchestrates the scheduler, plan manager and connectors.
type Service struct {
	Scheduler *scheduler.Scheduler
	Manager   *plan.Manager
	Sandbox   *sandbox.Sandbox

	bus       eventbus.EventBus
	sink      coremetrics.MetricsSink
	announcer *mqtt.Announcer
	publisher *mqtt.PahoPublisher
	log       logger.Logger
	promPort  string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	simulator, err := sim.New(cfg.Battery, cfg.SinkKWh)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	fixture, err := forecast.LoadFixture(cfg.Fixture)
	if err != nil {
		return nil, fmt.Errorf("forecast fixture: %w", err)
	}
	asm, err := forecast.NewAssembler(fixture, fixture, fixture, cfg.Forecast, logger.New("assembler"))
	if err != nil {
		return nil, fmt.Errorf("assembler: %w", err)
	}

	opt, err := optimizer.New(simulator, cfg.Optimizer, logger.New("optimizer"))
	if err != nil {
		return nil, fmt.Errorf("optimizer: %w", err)
	}
	pl, err := planner.New(simulator, cfg.Planner, logger.New("planner"))
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	bus := eventbus.New()

	soc := scheduler.SoCFunc(func(context.Context) (float64, error) {
		return cfg.InitialSoC, nil
	})

	svc := &Service{bus: bus, sink: sink, log: logg, promPort: cfg.Metrics.PrometheusPort}

	var sched *scheduler.Scheduler
	baseline := func() model.Timeline {
		if cur := sched.Current(); cur != nil {
			return *cur
		}
		return model.Timeline{}
	}
	mgr, err := plan.NewManager(plan.NewMemoryStore(), simulator, cfg.Plans, baseline, bus, logger.New("plan-manager"))
	if err != nil {
		return nil, fmt.Errorf("plan manager: %w", err)
	}

	sched, err = scheduler.New(scheduler.Deps{
		Assembler:  asm,
		Optimizer:  opt,
		Planner:    pl,
		Manager:    mgr,
		SoC:        soc,
		Protection: cfg.Protection,
		PlannerCfg: cfg.Planner,
		Params:     cfg.Battery,
		Sink:       sink,
		Bus:        bus,
		Log:        logger.New("scheduler"),
	}, cfg.Scheduler)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	sb, err := sandbox.New(simulator, cfg.Sandbox, logger.New("sandbox"))
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}

	if cfg.MQTT.Enabled {
		pub, perr := mqtt.NewPahoPublisher(cfg.MQTT.Config)
		if perr != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", perr)
		}
		svc.publisher = pub
		svc.announcer = mqtt.NewAnnouncer(pub, bus, cfg.MQTT.Config, logger.New("announcer"))
	}

	svc.Scheduler = sched
	svc.Manager = mgr
	svc.Sandbox = sb
	return svc, nil
}

// Run starts the refresh loop and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartEventCollector(ctx, s.bus, s.sink)
	if s.announcer != nil {
		go s.announcer.Run(ctx)
	}
	if s.promPort != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	err := s.Scheduler.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.publisher != nil {
		s.publisher.Close()
	}
	return nil
}
