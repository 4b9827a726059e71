package eventbus

import "github.com/calciferhq/calcifer/internal/core/workitem"

// WorkItemCreatedPayload is emitted when a new work item and its branch are
// created.
type WorkItemCreatedPayload struct {
	Item *workitem.WorkItem
}

// WorkItemCompletedPayload is emitted when a work item is merged and
// completed.
type WorkItemCompletedPayload struct {
	Item *workitem.WorkItem
}

// WorkItemDeletedPayload is emitted when a work item and its branch are
// deleted.
type WorkItemDeletedPayload struct {
	WorkItemID string
	BranchName string
}

// CommitRecordedPayload is emitted when a commit is made through the commit
// flow.
type CommitRecordedPayload struct {
	Item   *workitem.WorkItem
	Commit *workitem.Commit
}

// PublishWorkItemCreated publishes a work_item.created event.
func (bus *EventBus) PublishWorkItemCreated(p WorkItemCreatedPayload) {
	bus.send(EventWorkItemCreated, p)
}

// SubscribeWorkItemCreated registers a handler for work_item.created events.
func (bus *EventBus) SubscribeWorkItemCreated(fn func(WorkItemCreatedPayload)) {
	bus.subscribe(EventWorkItemCreated, func(payload any) {
		if p, ok := payload.(WorkItemCreatedPayload); ok {
			fn(p)
		}
	})
}

// PublishWorkItemCompleted publishes a work_item.completed event.
func (bus *EventBus) PublishWorkItemCompleted(p WorkItemCompletedPayload) {
	bus.send(EventWorkItemCompleted, p)
}

// SubscribeWorkItemCompleted registers a handler for work_item.completed events.
func (bus *EventBus) SubscribeWorkItemCompleted(fn func(WorkItemCompletedPayload)) {
	bus.subscribe(EventWorkItemCompleted, func(payload any) {
		if p, ok := payload.(WorkItemCompletedPayload); ok {
			fn(p)
		}
	})
}

// PublishWorkItemDeleted publishes a work_item.deleted event.
func (bus *EventBus) PublishWorkItemDeleted(p WorkItemDeletedPayload) {
	bus.send(EventWorkItemDeleted, p)
}

// SubscribeWorkItemDeleted registers a handler for work_item.deleted events.
func (bus *EventBus) SubscribeWorkItemDeleted(fn func(WorkItemDeletedPayload)) {
	bus.subscribe(EventWorkItemDeleted, func(payload any) {
		if p, ok := payload.(WorkItemDeletedPayload); ok {
			fn(p)
		}
	})
}

// PublishCommitRecorded publishes a commit.recorded event.
func (bus *EventBus) PublishCommitRecorded(p CommitRecordedPayload) {
	bus.send(EventCommitRecorded, p)
}

// SubscribeCommitRecorded registers a handler for commit.recorded events.
func (bus *EventBus) SubscribeCommitRecorded(fn func(CommitRecordedPayload)) {
	bus.subscribe(EventCommitRecorded, func(payload any) {
		if p, ok := payload.(CommitRecordedPayload); ok {
			fn(p)
		}
	})
}
