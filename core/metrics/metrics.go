package metrics

import "time"

// OptimizationEvent summarizes one optimizer run over the forecast horizon.
type OptimizationEvent struct {
	Start        time.Time
	Intervals    int
	TotalCost    float64
	BaselineCost float64
	Duration     time.Duration
	Time         time.Time
}

// MetricsSink records scheduling events for observability purposes.
type MetricsSink interface {
	RecordOptimization(ev OptimizationEvent) error
}

// PlannerEvent captures one planner strategy run.
type PlannerEvent struct {
	Strategy      string
	Converged     bool
	Iterations    int
	InjectedKWh   float64
	ProtectionKWh float64
	Violations    int
	Time          time.Time
}

// PlannerRecorder records planner runs.
type PlannerRecorder interface {
	RecordPlannerRun(ev PlannerEvent) error
}

// PlanLifecycleEvent records a charging plan state change.
type PlanLifecycleEvent struct {
	PlanID    string
	Requester string
	Action    string
	EnergyKWh float64
	Cost      float64
	Time      time.Time
}

// PlanRecorder records charging plan lifecycle changes.
type PlanRecorder interface {
	RecordPlanEvent(ev PlanLifecycleEvent) error
}

// TimelineSnapshot summarizes a freshly published timeline.
type TimelineSnapshot struct {
	RefreshedAt time.Time
	Intervals   int
	Degraded    int
	TotalCost   float64
	FinalSoCKWh float64
	MinSoCKWh   float64
}

// TimelineRecorder records published timelines.
type TimelineRecorder interface {
	RecordTimeline(snap TimelineSnapshot) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordOptimization(OptimizationEvent) error { return nil }
func (NopSink) RecordPlannerRun(PlannerEvent) error        { return nil }
func (NopSink) RecordPlanEvent(PlanLifecycleEvent) error   { return nil }
func (NopSink) RecordTimeline(TimelineSnapshot) error      { return nil }
