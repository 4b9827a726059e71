package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T, buffer int) *EventBus {
	t.Helper()
	bus := New(buffer)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go bus.Start(ctx)
	return bus
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestTypedPublishSubscribe(t *testing.T) {
	bus := startBus(t, 8)

	var (
		mu  sync.Mutex
		got []string
	)
	bus.SubscribeWorkItemCreated(func(p WorkItemCreatedPayload) {
		mu.Lock()
		got = append(got, p.Item.ID)
		mu.Unlock()
	})

	bus.PublishWorkItemCreated(WorkItemCreatedPayload{Item: &workitem.WorkItem{ID: "a"}})
	bus.PublishWorkItemCreated(WorkItemCreatedPayload{Item: &workitem.WorkItem{ID: "b"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, got, "delivery preserves publish order")
}

func TestSubscribersOnlySeeTheirEvent(t *testing.T) {
	bus := startBus(t, 8)

	var deleted sync.Map
	bus.SubscribeWorkItemDeleted(func(p WorkItemDeletedPayload) {
		deleted.Store(p.WorkItemID, true)
	})

	bus.PublishWorkItemCreated(WorkItemCreatedPayload{Item: &workitem.WorkItem{ID: "created"}})
	bus.PublishWorkItemDeleted(WorkItemDeletedPayload{WorkItemID: "gone", BranchName: "b"})

	waitFor(t, func() bool {
		_, ok := deleted.Load("gone")
		return ok
	})

	_, sawCreated := deleted.Load("created")
	assert.False(t, sawCreated)
}

func TestPublishNeverBlocksWhenFull(t *testing.T) {
	bus := New(1) // not started, buffer fills immediately

	var dropped []Event
	bus.OnDrop(func(e Event, _ any) {
		dropped = append(dropped, e)
	})

	bus.PublishCommitRecorded(CommitRecordedPayload{})
	bus.PublishCommitRecorded(CommitRecordedPayload{}) // buffer full, dropped

	require.Len(t, dropped, 1)
	assert.Equal(t, EventCommitRecorded, dropped[0])
}

func TestOnPublishHook(t *testing.T) {
	bus := startBus(t, 8)

	var (
		mu        sync.Mutex
		published []Event
	)
	bus.OnPublish(func(e Event, _ any) {
		mu.Lock()
		published = append(published, e)
		mu.Unlock()
	})

	bus.PublishWorkItemCompleted(WorkItemCompletedPayload{Item: &workitem.WorkItem{ID: "x"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(published) == 1
	})
}

func TestPanickingSubscriberDoesNotStopDispatch(t *testing.T) {
	bus := startBus(t, 8)

	var (
		mu        sync.Mutex
		delivered bool
		panicked  bool
	)
	bus.OnPanic(func(Event, any, any) {
		mu.Lock()
		panicked = true
		mu.Unlock()
	})
	bus.SubscribeWorkItemCreated(func(WorkItemCreatedPayload) {
		panic("subscriber bug")
	})
	bus.SubscribeWorkItemCreated(func(WorkItemCreatedPayload) {
		mu.Lock()
		delivered = true
		mu.Unlock()
	})

	bus.PublishWorkItemCreated(WorkItemCreatedPayload{Item: &workitem.WorkItem{ID: "x"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered && panicked
	})
}
