package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResolveResetTokenMessage pre-validates a reset link before the change
// password form is rendered. It never mutates state.
type ResolveResetTokenMessage struct {
	UserID     string `json:"user_id"`
	Token      string `json:"token" doc:"Reset password token from the emailed link."`
	OnResponse func(resp *ResolveResetTokenResponse)
}

func (m ResolveResetTokenMessage) Type() string { return "user.password_reset_resolve" }

type ResolveResetTokenResponse struct {
	User PublicUser
}

type ResolveResetTokenHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewResolveResetTokenHandler creates a handler with sane defaults.
func NewResolveResetTokenHandler(repo RepositoryManager) *ResolveResetTokenHandler {
	return &ResolveResetTokenHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithActivitySink sets the sink used to emit reset events.
func (h *ResolveResetTokenHandler) WithActivitySink(sink ActivitySink) *ResolveResetTokenHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResolveResetTokenHandler) WithLogger(logger Logger) *ResolveResetTokenHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, for tests.
func (h *ResolveResetTokenHandler) WithClock(now func() time.Time) *ResolveResetTokenHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ResolveResetTokenHandler) Execute(ctx context.Context, event ResolveResetTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset resolution",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResolveResetTokenHandler) execute(ctx context.Context, event ResolveResetTokenMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.UserID == "" || event.Token == "" {
		return goerrors.New("user id and reset token are required", goerrors.CategoryBadInput)
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.New("invalid user id", goerrors.CategoryBadInput)
	}

	// collapsed lookup: a wrong id, wrong token, and expired token are
	// indistinguishable to the caller
	user, err := h.repo.Users().FindByResetToken(ctx, userID, event.Token, h.now())
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Debug("password reset token resolution failed, no matching unexpired token")
			return goerrors.New("invalid or expired password reset token", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve password reset token")
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetResolved,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	})

	if event.OnResponse != nil {
		event.OnResponse(&ResolveResetTokenResponse{User: SanitizeUser(user)})
	}

	return nil
}

func (h *ResolveResetTokenHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset resolution: %v", err)
	}
}
