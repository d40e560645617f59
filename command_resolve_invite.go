package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResolveInviteMessage validates an invite id pair before the invitee is
// shown the signup form.
type ResolveInviteMessage struct {
	InviterID  string `json:"inviter_id" doc:"Id of the user that sent the invite."`
	InviteeID  string `json:"invitee_id" doc:"Id of the pending shell account."`
	OnResponse func(resp *ResolveInviteResponse)
}

func (m ResolveInviteMessage) Type() string { return "user.invite_resolve" }

// ResolveInviteResponse exposes the inviter's display name only. The
// inviter's email and id never reach the (unauthenticated) caller.
type ResolveInviteResponse struct {
	InviterFirstName string
	InviterLastName  string
}

type ResolveInviteHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewResolveInviteHandler creates a handler with sane defaults.
func NewResolveInviteHandler(repo RepositoryManager) *ResolveInviteHandler {
	return &ResolveInviteHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit invite events.
func (h *ResolveInviteHandler) WithActivitySink(sink ActivitySink) *ResolveInviteHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResolveInviteHandler) WithLogger(logger Logger) *ResolveInviteHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResolveInviteHandler) Execute(ctx context.Context, event ResolveInviteMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invite resolution",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResolveInviteHandler) execute(ctx context.Context, event ResolveInviteMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	inviterID, err := uuid.Parse(event.InviterID)
	if err != nil {
		return goerrors.New("invalid inviter id", goerrors.CategoryBadInput)
	}

	inviteeID, err := uuid.Parse(event.InviteeID)
	if err != nil {
		return goerrors.New("invalid invitee id", goerrors.CategoryBadInput)
	}

	users, err := h.repo.Users().GetManyByIDs(ctx, []uuid.UUID{inviterID, inviteeID})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load invite pair")
	}

	if len(users) != 2 {
		h.logger.Debug("invite resolution failed, inviter and/or invitee not found")
		return goerrors.New("the invitation is no longer valid", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	var inviter, invitee *User
	for _, user := range users {
		switch user.ID {
		case inviteeID:
			invitee = user
		case inviterID:
			inviter = user
		}
	}

	// same message as deletion so a claimed invite is indistinguishable
	// from a deleted one
	if invitee == nil || !invitee.IsPending() {
		h.logger.Debug("invite resolution failed, invitee already set up")
		return goerrors.New("the invitation was likely either deleted or already claimed", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeInviteClaimed)
	}

	inviterFirst, inviterLast := inviter.DisplayName()
	if inviter.Email == "" || inviterFirst == "" {
		h.logger.Error("invite resolution failed, inviter account is not set up")
		return goerrors.New("invalid request", goerrors.CategoryBadInput)
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventInviteResolved,
		Actor:      ActorRef{ID: invitee.ID.String(), Type: "user"},
		UserID:     invitee.ID.String(),
		Metadata:   map[string]any{"inviter_id": inviter.ID.String()},
		OccurredAt: time.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&ResolveInviteResponse{
			InviterFirstName: inviterFirst,
			InviterLastName:  inviterLast,
		})
	}

	return nil
}

func (h *ResolveInviteHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during invite resolution: %v", err)
	}
}
