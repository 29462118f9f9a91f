package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/battsched/battsched/core/metrics"
)

// PromSink records scheduling events in Prometheus metrics.
type PromSink struct {
	optimizations *prometheus.CounterVec
	optDuration   prometheus.Histogram
	plannerRuns   *prometheus.CounterVec
	injected      *prometheus.CounterVec
	planEvents    *prometheus.CounterVec
	timelineCost  prometheus.Gauge
	finalSoC      prometheus.Gauge
	minSoC        prometheus.Gauge
	degraded      prometheus.Gauge
}

// NewPromSink registers scheduling metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	optimizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_runs_total",
		Help: "Total number of optimizer runs",
	}, []string{"horizon_intervals"})
	optDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_duration_seconds",
		Help:    "Time spent computing the mode schedule",
		Buckets: prometheus.DefBuckets,
	})
	plannerRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_runs_total",
		Help: "Total number of planner strategy runs",
	}, []string{"strategy", "converged"})
	injected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_injected_kwh_total",
		Help: "Grid energy committed by the planner",
	}, []string{"strategy"})
	planEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charging_plan_events_total",
		Help: "Charging plan lifecycle transitions",
	}, []string{"action", "requester"})
	timelineCost := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_total_cost",
		Help: "Projected cost of the published timeline",
	})
	finalSoC := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_final_soc_kwh",
		Help: "Projected SoC at the end of the published timeline",
	})
	minSoC := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_min_soc_kwh",
		Help: "Projected minimum SoC of the published timeline",
	})
	degraded := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_degraded_intervals",
		Help: "Intervals of the published timeline built from fallback data",
	})

	collectors := map[string]prometheus.Collector{
		"optimizer_runs_total":        optimizations,
		"optimizer_duration_seconds":  optDuration,
		"planner_runs_total":          plannerRuns,
		"planner_injected_kwh_total":  injected,
		"charging_plan_events_total":  planEvents,
		"timeline_total_cost":         timelineCost,
		"timeline_final_soc_kwh":      finalSoC,
		"timeline_min_soc_kwh":        minSoC,
		"timeline_degraded_intervals": degraded,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[name] = are.ExistingCollector
		}
	}

	return &PromSink{
		optimizations: collectors["optimizer_runs_total"].(*prometheus.CounterVec),
		optDuration:   collectors["optimizer_duration_seconds"].(prometheus.Histogram),
		plannerRuns:   collectors["planner_runs_total"].(*prometheus.CounterVec),
		injected:      collectors["planner_injected_kwh_total"].(*prometheus.CounterVec),
		planEvents:    collectors["charging_plan_events_total"].(*prometheus.CounterVec),
		timelineCost:  collectors["timeline_total_cost"].(prometheus.Gauge),
		finalSoC:      collectors["timeline_final_soc_kwh"].(prometheus.Gauge),
		minSoC:        collectors["timeline_min_soc_kwh"].(prometheus.Gauge),
		degraded:      collectors["timeline_degraded_intervals"].(prometheus.Gauge),
	}, nil
}

// RecordOptimization counts the run and observes its duration.
func (s *PromSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	s.optimizations.WithLabelValues(strconv.Itoa(ev.Intervals)).Inc()
	s.optDuration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordPlannerRun counts the strategy run and the injected energy.
func (s *PromSink) RecordPlannerRun(ev coremetrics.PlannerEvent) error {
	s.plannerRuns.WithLabelValues(ev.Strategy, strconv.FormatBool(ev.Converged)).Inc()
	s.injected.WithLabelValues(ev.Strategy).Add(ev.InjectedKWh)
	return nil
}

// RecordPlanEvent counts plan lifecycle transitions.
func (s *PromSink) RecordPlanEvent(ev coremetrics.PlanLifecycleEvent) error {
	s.planEvents.WithLabelValues(ev.Action, ev.Requester).Inc()
	return nil
}

// RecordTimeline updates the published-timeline gauges.
func (s *PromSink) RecordTimeline(snap coremetrics.TimelineSnapshot) error {
	s.timelineCost.Set(snap.TotalCost)
	s.finalSoC.Set(snap.FinalSoCKWh)
	s.minSoC.Set(snap.MinSoCKWh)
	s.degraded.Set(float64(snap.Degraded))
	return nil
}
