// Package activity holds the plumbing shared by Temporal activities:
// execution context lookup, best-effort event emission and logging that
// degrades to a no-op outside a Temporal activity.
package activity

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-ptescore/pkg/events"
)

// WorkflowContext identifies the execution an activity runs in.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// BaseActivities is embedded by activity structs.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities returns BaseActivities emitting to sink. A nil sink
// disables emission.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext reads execution details from an activity context. When
// called outside one, as in plain unit tests, it returns fixed placeholder
// ids so idempotency keys stay stable.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	wfCtx := WorkflowContext{
		WorkflowID: "local",
		RunID:      "local",
		ActivityID: "local",
		Attempt:    1,
	}
	inActivity(func() {
		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
		wfCtx.Attempt = info.Attempt
	})
	return wfCtx
}

// inActivity runs fn, swallowing the panic the SDK raises when ctx is not
// an activity context.
func inActivity(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// EmitEventSafe delivers envelope with one retry. Failures are logged and
// never returned: events are observability, not part of the result.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, envelope events.Envelope, description string) {
	if b.eventSink == nil {
		return
	}

	const maxAttempts = 2
	const retryDelay = 200 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				SafeLogError(ctx, fmt.Sprintf("Event emission cancelled: %s", description),
					"event_type", envelope.Type)
				return
			}
		}

		if err := b.eventSink.Append(ctx, envelope); err != nil {
			lastErr = err
			continue
		}

		SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
			"event_type", envelope.Type,
			"idempotency_key", envelope.IdempotencyKey)
		return
	}

	SafeLogError(ctx, fmt.Sprintf("Failed to emit %s after %d attempts", description, maxAttempts),
		"event_type", envelope.Type,
		"error", lastErr)
}

// RecordHeartbeat records a heartbeat when running inside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	inActivity(func() { activity.RecordHeartbeat(ctx, details...) })
}

// SafeLog logs at info level through the activity logger, and does nothing
// outside an activity.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	inActivity(func() { activity.GetLogger(ctx).Info(msg, keyvals...) })
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	inActivity(func() { activity.GetLogger(ctx).Error(msg, keyvals...) })
}
