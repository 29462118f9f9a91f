package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.Subscribe()
	bus.Publish("hello")

	select {
	case e := <-sub:
		if e != "hello" {
			t.Fatalf("unexpected event: %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestFanOut(t *testing.T) {
	bus := New()
	defer bus.Close()

	a := bus.Subscribe()
	b := bus.Subscribe()
	bus.Publish(42)

	for _, sub := range []<-chan Event{a, b} {
		select {
		case e := <-sub:
			if e != 42 {
				t.Fatalf("unexpected event: %v", e)
			}
		case <-time.After(time.Second):
			t.Fatal("event not delivered to all subscribers")
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	defer bus.Close()

	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after unsubscribe")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	bus := New()
	defer bus.Close()

	_ = bus.Subscribe()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}
}

func TestPublishAfterClose(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Close()

	bus.Publish("late")
	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel after bus close")
	}
}
