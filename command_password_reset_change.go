package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ChangePasswordMessage consumes a reset token and sets a new password.
type ChangePasswordMessage struct {
	UserID     string `json:"user_id"`
	Token      string `json:"token" doc:"Reset password token from the emailed link."`
	Password   string `json:"password" doc:"New password."`
	OnResponse func(resp *ChangePasswordResponse)
}

func (m ChangePasswordMessage) Type() string { return "user.password_change" }

type ChangePasswordResponse struct {
	User         PublicUser
	SessionToken string
}

type ChangePasswordHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	policy   PasswordPolicy
	sessions SessionIssuer
	activity ActivitySink
	hooks    HookRunner
	logger   Logger
	now      func() time.Time
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:     repo,
		hasher:   NewBcryptHasher(0),
		policy:   NewPasswordPolicy(),
		activity: noopActivitySink{},
		hooks:    noopHookRunner{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithPasswordHasher overrides the credential hasher.
func (h *ChangePasswordHandler) WithPasswordHasher(hasher PasswordHasher) *ChangePasswordHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithPasswordPolicy overrides the password strength policy.
func (h *ChangePasswordHandler) WithPasswordPolicy(policy PasswordPolicy) *ChangePasswordHandler {
	if policy != nil {
		h.policy = policy
	}
	return h
}

// WithSessionIssuer sets the collaborator that mints the post-change
// session credential.
func (h *ChangePasswordHandler) WithSessionIssuer(sessions SessionIssuer) *ChangePasswordHandler {
	h.sessions = sessions
	return h
}

// WithActivitySink sets the sink used to emit password change events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithHookRunner sets the runner for external lifecycle hooks.
func (h *ChangePasswordHandler) WithHookRunner(hooks HookRunner) *ChangePasswordHandler {
	h.hooks = normalizeHookRunner(hooks)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, for tests.
func (h *ChangePasswordHandler) WithClock(now func() time.Time) *ChangePasswordHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.UserID == "" || event.Token == "" || event.Password == "" {
		return goerrors.New("user id, reset token, and password are required", goerrors.CategoryBadInput)
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return goerrors.New("invalid user id", goerrors.CategoryBadInput)
	}

	if err := h.policy.Validate(event.Password); err != nil {
		return err
	}

	passwordHash, err := h.hasher.Hash(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	// one statement sets the hash and clears the token pair; the
	// collapsed WHERE doubles as the token check
	user, err := h.repo.Users().ConsumeResetToken(ctx, userID, event.Token, passwordHash, h.now())
	if err != nil {
		if goerrors.IsNotFound(err) {
			h.logger.Debug("password change failed, no matching unexpired token")
			return goerrors.New("invalid or expired password reset token", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
	}

	h.logger.Info("user password updated successfully")

	resp := &ChangePasswordResponse{User: SanitizeUser(user)}

	if h.sessions != nil {
		token, err := h.sessions.IssueSessionToken(user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "password changed but session issuance failed")
		}
		resp.SessionToken = token
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		Metadata:   map[string]any{"fields_changed": []string{"password"}},
		OccurredAt: time.Now(),
	})

	if err := h.hooks.Run(ctx, HookUserPasswordUpdate, user.Email); err != nil {
		h.logger.Warn("user.password.update hook error: %v", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ChangePasswordHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password change: %v", err)
	}
}
