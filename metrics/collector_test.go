package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/battsched/battsched/core/events"
	coremetrics "github.com/battsched/battsched/core/metrics"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/internal/eventbus"
)

type recordingSink struct {
	coremetrics.NopSink
	mu     sync.Mutex
	events []coremetrics.PlanLifecycleEvent
}

func (r *recordingSink) RecordPlanEvent(ev coremetrics.PlanLifecycleEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingSink) recorded() []coremetrics.PlanLifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]coremetrics.PlanLifecycleEvent, len(r.events))
	copy(out, r.events)
	return out
}

func TestEventCollectorRecordsPlanEvents(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	at := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	plan := model.ChargingPlan{
		ID:        "p1",
		Requester: "balancer",
		ChargingIntervals: []model.ChargingInterval{
			{Timestamp: at, EnergyKWh: 0.7, Price: 2},
		},
	}
	bus.Publish(events.PlanEvent{Action: events.PlanCommitted, Plan: plan, At: at})
	// Non-plan events must be ignored, not recorded.
	bus.Publish(events.TimelineEvent{RefreshedAt: at})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := sink.recorded(); len(got) > 0 {
			if len(got) != 1 {
				t.Fatalf("expected one plan event, got %d", len(got))
			}
			ev := got[0]
			if ev.PlanID != "p1" || ev.Requester != "balancer" || ev.Action != "committed" {
				t.Fatalf("unexpected event %+v", ev)
			}
			if ev.EnergyKWh != 0.7 || ev.Cost != 1.4 || !ev.Time.Equal(at) {
				t.Fatalf("unexpected event %+v", ev)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("plan event never reached the sink")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventCollectorNilSafe(t *testing.T) {
	StartEventCollector(context.Background(), nil, nil)
}
