package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Event enumerates the lifecycle notifications of an import run.
type Event int

const (
	// SetUp fires before the first module runs.
	SetUp Event = iota + 1
	// TearDown fires after the last module ran, also on failure.
	TearDown
	// TransactionStart fires when a run begins, before the database transaction opens.
	TransactionStart
	// TransactionSuccess fires after a successful or early-finished run was committed.
	TransactionSuccess
	// TransactionFailure fires after a failed, stopped or rejected run was rolled back.
	TransactionFailure
	// TransactionFinished fires last, after the lock was released.
	TransactionFinished
)

var eventNames = map[Event]string{
	SetUp:               "setup",
	TearDown:            "teardown",
	TransactionStart:    "transaction-start",
	TransactionSuccess:  "transaction-success",
	TransactionFailure:  "transaction-failure",
	TransactionFinished: "transaction-finished",
}

// All lists every lifecycle event in emission order.
func All() []Event {
	return []Event{SetUp, TearDown, TransactionStart, TransactionSuccess, TransactionFailure, TransactionFinished}
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Valid reports whether e is a known lifecycle event.
func (e Event) Valid() bool {
	_, ok := eventNames[e]
	return ok
}

// Payload is delivered to listeners for each published event.
type Payload struct {
	Event    Event
	Serial   string
	Outcome  string
	// Success is set on completion events when the run's work was committed.
	Success  bool
	ExitCode int
	Err      error
	// Duration is set on TransactionFinished.
	Duration time.Duration
	At       time.Time
}

// Listener reacts to a published event.
type Listener func(ctx context.Context, payload Payload) error

type subscription struct {
	id       uint64
	event    Event
	all      bool
	listener Listener
}

// Bus dispatches lifecycle events to subscribed listeners. Listeners run
// synchronously in subscription order. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers listener for event and returns a function that removes it.
func (b *Bus) Subscribe(event Event, listener Listener) (unsubscribe func()) {
	return b.add(subscription{event: event, listener: listener})
}

// SubscribeAll registers listener for every event.
func (b *Bus) SubscribeAll(listener Listener) (unsubscribe func()) {
	return b.add(subscription{all: true, listener: listener})
}

func (b *Bus) add(sub subscription) func() {
	if sub.listener == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every listener subscribed to payload.Event. All
// listeners run even when one fails; the errors are joined. A zero At is set
// to the current time.
func (b *Bus) Publish(ctx context.Context, payload Payload) error {
	if b == nil {
		return nil
	}
	if !payload.Event.Valid() {
		return fmt.Errorf("publish: unknown event %d", int(payload.Event))
	}
	if payload.At.IsZero() {
		payload.At = time.Now()
	}

	b.mu.RLock()
	targets := make([]Listener, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.all || sub.event == payload.Event {
			targets = append(targets, sub.listener)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, listener := range targets {
		if err := listener(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s listener: %w", payload.Event, err))
		}
	}
	return errors.Join(errs...)
}
