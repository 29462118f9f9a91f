package metrics

import "testing"

// TestMultiSink ensures events are forwarded to all sinks.

type recordSink struct {
	count int
}

func (r *recordSink) RecordOptimization(OptimizationEvent) error {
	r.count++
	return nil
}

func (r *recordSink) RecordTimeline(TimelineSnapshot) error {
	r.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordOptimization(OptimizationEvent{}); err != nil {
		t.Fatalf("record optimization: %v", err)
	}
	if err := m.RecordTimeline(TimelineSnapshot{}); err != nil {
		t.Fatalf("record timeline: %v", err)
	}
	if s1.count != 2 || s2.count != 2 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkSkipsNonRecorders(t *testing.T) {
	m := NewMultiSink(NopSink{}, &recordSink{})
	if err := m.RecordPlannerRun(PlannerEvent{}); err != nil {
		t.Fatalf("planner run: %v", err)
	}
	if err := m.RecordPlanEvent(PlanLifecycleEvent{}); err != nil {
		t.Fatalf("plan event: %v", err)
	}
}

func TestNewMetricsSinkDefaultsToNop(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}
