package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/techdivision/import-app-simple/internal/events"
)

func TestEventNames(t *testing.T) {
	want := map[events.Event]string{
		events.SetUp:               "setup",
		events.TearDown:            "teardown",
		events.TransactionStart:    "transaction-start",
		events.TransactionSuccess:  "transaction-success",
		events.TransactionFailure:  "transaction-failure",
		events.TransactionFinished: "transaction-finished",
	}
	for event, name := range want {
		if got := event.String(); got != name {
			t.Errorf("%d.String() = %q, want %q", int(event), got, name)
		}
	}
	if len(events.All()) != len(want) {
		t.Fatalf("All() returned %d events, want %d", len(events.All()), len(want))
	}
	if events.Event(0).Valid() {
		t.Fatal("zero event must be invalid")
	}
}

func TestPublishRoutesBySubscription(t *testing.T) {
	bus := events.NewBus()
	var got []string

	bus.Subscribe(events.SetUp, func(_ context.Context, p events.Payload) error {
		got = append(got, "setup:"+p.Serial)
		return nil
	})
	bus.SubscribeAll(func(_ context.Context, p events.Payload) error {
		got = append(got, "all:"+p.Event.String())
		return nil
	})
	bus.Subscribe(events.TearDown, func(context.Context, events.Payload) error {
		got = append(got, "teardown")
		return nil
	})

	ctx := context.Background()
	if err := bus.Publish(ctx, events.Payload{Event: events.SetUp, Serial: "s1"}); err != nil {
		t.Fatalf("publish setup: %v", err)
	}
	if err := bus.Publish(ctx, events.Payload{Event: events.TransactionStart}); err != nil {
		t.Fatalf("publish start: %v", err)
	}

	want := []string{"setup:s1", "all:setup", "all:transaction-start"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPublishRunsAllListenersAndJoinsErrors(t *testing.T) {
	bus := events.NewBus()
	first := errors.New("first")
	second := errors.New("second")
	calls := 0

	bus.Subscribe(events.TearDown, func(context.Context, events.Payload) error { calls++; return first })
	bus.Subscribe(events.TearDown, func(context.Context, events.Payload) error { calls++; return nil })
	bus.Subscribe(events.TearDown, func(context.Context, events.Payload) error { calls++; return second })

	err := bus.Publish(context.Background(), events.Payload{Event: events.TearDown})
	if calls != 3 {
		t.Fatalf("expected all listeners to run, got %d calls", calls)
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	calls := 0
	unsubscribe := bus.Subscribe(events.SetUp, func(context.Context, events.Payload) error {
		calls++
		return nil
	})
	_ = bus.Publish(context.Background(), events.Payload{Event: events.SetUp})
	unsubscribe()
	unsubscribe()
	_ = bus.Publish(context.Background(), events.Payload{Event: events.SetUp})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestPublishStampsTimeAndRejectsUnknownEvents(t *testing.T) {
	bus := events.NewBus()
	var at time.Time
	bus.SubscribeAll(func(_ context.Context, p events.Payload) error {
		at = p.At
		return nil
	})
	if err := bus.Publish(context.Background(), events.Payload{Event: events.TransactionFinished}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if at.IsZero() {
		t.Fatal("expected publish to stamp the payload time")
	}
	if err := bus.Publish(context.Background(), events.Payload{Event: events.Event(42)}); err == nil {
		t.Fatal("expected error for unknown event")
	}

	var nilBus *events.Bus
	if err := nilBus.Publish(context.Background(), events.Payload{Event: events.SetUp}); err != nil {
		t.Fatalf("nil bus publish: %v", err)
	}
}
