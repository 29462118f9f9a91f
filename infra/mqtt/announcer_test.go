package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/battsched/battsched/core/events"
	"github.com/battsched/battsched/core/model"
	"github.com/battsched/battsched/infra/logger"
	"github.com/battsched/battsched/internal/eventbus"
)

func TestAnnouncerForwardsEvents(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	pub := NewMockPublisher()
	a := NewAnnouncer(pub, bus, Config{}, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	// Give the subscriber time to register.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(events.PlanEvent{
		Action: events.PlanCommitted,
		Plan:   model.ChargingPlan{ID: "p1"},
	})
	bus.Publish(events.TimelineEvent{Intervals: 96, TotalCost: 4.2})

	deadline := time.After(time.Second)
	for len(pub.Published("battsched/plan")) == 0 || len(pub.Published("battsched/timeline")) == 0 {
		select {
		case <-deadline:
			t.Fatalf("events not forwarded: plan=%d timeline=%d",
				len(pub.Published("battsched/plan")), len(pub.Published("battsched/timeline")))
		case <-time.After(5 * time.Millisecond):
		}
	}

	pe, ok := pub.Published("battsched/plan")[0].(events.PlanEvent)
	if !ok || pe.Plan.ID != "p1" {
		t.Fatalf("unexpected plan payload: %#v", pub.Published("battsched/plan")[0])
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("announcer did not stop on context cancel")
	}
}

func TestAnnouncerStopsWhenBusCloses(t *testing.T) {
	bus := eventbus.New()
	a := NewAnnouncer(NewMockPublisher(), bus, Config{}, logger.NopLogger{})

	done := make(chan struct{})
	go func() {
		a.Run(context.Background())
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	bus.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("announcer did not stop when the bus closed")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without broker")
	}
	cfg = Config{Broker: "tcp://localhost:1883", QoS: 3}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid qos")
	}
	cfg.QoS = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}
