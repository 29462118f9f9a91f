package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/battsched/battsched/core/metrics"
)

func TestPromSinkRecordsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := sink.RecordOptimization(coremetrics.OptimizationEvent{
		Intervals: 96,
		Duration:  10 * time.Millisecond,
		Time:      time.Now(),
	}); err != nil {
		t.Fatalf("record optimization: %v", err)
	}
	ps := sink.(*PromSink)
	if err := ps.RecordPlannerRun(coremetrics.PlannerEvent{Strategy: "economic", Converged: true, InjectedKWh: 1.4}); err != nil {
		t.Fatalf("record planner: %v", err)
	}
	if err := ps.RecordPlanEvent(coremetrics.PlanLifecycleEvent{Action: "committed", Requester: "ev"}); err != nil {
		t.Fatalf("record plan event: %v", err)
	}
	if err := ps.RecordTimeline(coremetrics.TimelineSnapshot{TotalCost: 3.2, FinalSoCKWh: 8, MinSoCKWh: 2, Degraded: 4}); err != nil {
		t.Fatalf("record timeline: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"optimizer_runs_total",
		"optimizer_duration_seconds",
		"planner_runs_total",
		"planner_injected_kwh_total",
		"charging_plan_events_total",
		"timeline_total_cost",
		"timeline_final_soc_kwh",
		"timeline_min_soc_kwh",
		"timeline_degraded_intervals",
	} {
		if !found[name] {
			t.Errorf("metric %s not exposed", name)
		}
	}
}

func TestPromSinkReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("first sink: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(coremetrics.Config{}, reg); err != nil {
		t.Fatalf("second sink should reuse collectors: %v", err)
	}
}
