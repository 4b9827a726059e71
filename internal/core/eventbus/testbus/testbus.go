// Package testbus provides test utilities for the event bus.
// It wraps a real EventBus with event recording and assertion helpers.
package testbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/calciferhq/calcifer/internal/core/eventbus"
)

// RecordedEvent holds a captured event name and payload.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus wraps a real EventBus with event recording for tests.
type Bus struct {
	*eventbus.EventBus
	cancel context.CancelFunc

	mu     sync.Mutex
	events []RecordedEvent
}

// New creates a test bus, starts it in a background goroutine, and
// subscribes to all event types for recording. The bus is stopped when the
// test completes.
func New(t *testing.T) *Bus {
	t.Helper()

	bus := eventbus.New(64)
	ctx, cancel := context.WithCancel(context.Background())

	tb := &Bus{
		EventBus: bus,
		cancel:   cancel,
	}

	bus.SubscribeWorkItemCreated(func(p eventbus.WorkItemCreatedPayload) {
		tb.record(eventbus.EventWorkItemCreated, p)
	})
	bus.SubscribeWorkItemCompleted(func(p eventbus.WorkItemCompletedPayload) {
		tb.record(eventbus.EventWorkItemCompleted, p)
	})
	bus.SubscribeWorkItemDeleted(func(p eventbus.WorkItemDeletedPayload) {
		tb.record(eventbus.EventWorkItemDeleted, p)
	})
	bus.SubscribeCommitRecorded(func(p eventbus.CommitRecordedPayload) {
		tb.record(eventbus.EventCommitRecorded, p)
	})

	go bus.Start(ctx)

	t.Cleanup(func() {
		cancel()
	})

	return tb
}

func (tb *Bus) record(event eventbus.Event, payload any) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.events = append(tb.events, RecordedEvent{Event: event, Payload: payload})
}

// Events returns a copy of all recorded events.
func (tb *Bus) Events() []RecordedEvent {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]RecordedEvent, len(tb.events))
	copy(out, tb.events)
	return out
}

// WaitFor blocks until an event of the given type has been recorded or the
// timeout elapses, returning whether it was seen.
func (tb *Bus) WaitFor(event eventbus.Event, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, rec := range tb.Events() {
			if rec.Event == event {
				return true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
