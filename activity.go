package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventInviteSent             ActivityEventType = "user.invite.sent"
	ActivityEventInviteResent           ActivityEventType = "user.invite.resent"
	ActivityEventInviteResolved         ActivityEventType = "user.invite.resolved"
	ActivityEventSignupCompleted        ActivityEventType = "user.signup.completed"
	ActivityEventPasswordResetRequested ActivityEventType = "user.password_reset.requested"
	ActivityEventPasswordResetResolved  ActivityEventType = "user.password_reset.resolved"
	ActivityEventPasswordChanged        ActivityEventType = "user.password.changed"
	ActivityEventUserDeleted            ActivityEventType = "user.deleted"
	ActivityEventEmailFailed            ActivityEventType = "email.send.failed"
)

// ActorRef identifies who triggered a lifecycle event.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort after the primary transaction commits; errors are
// logged and never roll back or block the operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
