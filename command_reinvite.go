package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ReinviteUserMessage resends the invite email for a still-pending shell.
type ReinviteUserMessage struct {
	ReinviterID uuid.UUID `json:"reinviter_id" doc:"User resending the invite."`
	UserID      string    `json:"user_id" doc:"Id of the pending shell account."`
	OnResponse  func(resp *ReinviteUserResponse)
}

func (m ReinviteUserMessage) Type() string { return "user.reinvite" }

type ReinviteUserResponse struct {
	Success bool
}

type ReinviteUserHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	activity ActivitySink
	logger   Logger
	baseURL  string
}

// NewReinviteUserHandler creates a handler with sane defaults.
func NewReinviteUserHandler(repo RepositoryManager) *ReinviteUserHandler {
	return &ReinviteUserHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the mailer used for invite delivery.
func (h *ReinviteUserHandler) WithMailer(mailer Mailer) *ReinviteUserHandler {
	h.mailer = mailer
	return h
}

// WithActivitySink sets the sink used to emit reinvite events.
func (h *ReinviteUserHandler) WithActivitySink(sink ActivitySink) *ReinviteUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ReinviteUserHandler) WithLogger(logger Logger) *ReinviteUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithBaseURL sets the public address embedded in invite links.
func (h *ReinviteUserHandler) WithBaseURL(baseURL string) *ReinviteUserHandler {
	h.baseURL = baseURL
	return h
}

func (h *ReinviteUserHandler) Execute(ctx context.Context, event ReinviteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during reinvite",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ReinviteUserHandler) execute(ctx context.Context, event ReinviteUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if h.mailer == nil || !h.mailer.IsConfigured() {
		h.logger.Error("reinvite failed, email sending is not set up")
		return goerrors.New("email sending must be set up in order to invite other users", goerrors.CategoryInternal)
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.New("invalid user id", goerrors.CategoryBadInput)
	}

	reinvitee, err := h.repo.Users().GetByID(ctx, userID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("could not find user", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for reinvite")
	}

	if !reinvitee.IsPending() {
		h.logger.Debug("reinvite failed, invite already accepted")
		return goerrors.New("user has already accepted the invite", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeInviteClaimed)
	}

	ref := InviteReference{InviterID: event.ReinviterID, InviteeID: reinvitee.ID}
	result, err := h.mailer.SendInvite(ctx, InviteEmail{
		Email:           reinvitee.Email,
		InviteAcceptURL: ref.AcceptURL(h.baseURL),
		Domain:          h.baseURL,
	})
	if err != nil {
		h.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventEmailFailed,
			Actor:      ActorRef{ID: event.ReinviterID.String(), Type: "user"},
			UserID:     reinvitee.ID.String(),
			Metadata:   map[string]any{"message_type": "Resend invite"},
			OccurredAt: time.Now(),
		})
		h.logger.Error("failed to resend invite email to %s: %v", reinvitee.Email, err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send invite email")
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventInviteResent,
		Actor:      ActorRef{ID: event.ReinviterID.String(), Type: "user"},
		UserID:     reinvitee.ID.String(),
		Metadata:   map[string]any{"email_sent": result.EmailSent},
		OccurredAt: time.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&ReinviteUserResponse{Success: true})
	}

	return nil
}

func (h *ReinviteUserHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during reinvite: %v", err)
	}
}
