package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// RequestPasswordResetMessage asks for a reset email. The operation is
// enumeration safe: it reports success whether or not the address maps
// to an activated account.
type RequestPasswordResetMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
}

func (m RequestPasswordResetMessage) Type() string { return "user.password_reset_request" }

type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	activity ActivitySink
	logger   Logger
	baseURL  string
	now      func() time.Time
}

// NewRequestPasswordResetHandler creates a handler with sane defaults.
func NewRequestPasswordResetHandler(repo RepositoryManager) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithMailer sets the mailer used for reset delivery.
func (h *RequestPasswordResetHandler) WithMailer(mailer Mailer) *RequestPasswordResetHandler {
	h.mailer = mailer
	return h
}

// WithActivitySink sets the sink used to emit reset events.
func (h *RequestPasswordResetHandler) WithActivitySink(sink ActivitySink) *RequestPasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithBaseURL sets the public address embedded in reset links.
func (h *RequestPasswordResetHandler) WithBaseURL(baseURL string) *RequestPasswordResetHandler {
	h.baseURL = baseURL
	return h
}

// WithClock overrides the time source, for tests.
func (h *RequestPasswordResetHandler) WithClock(now func() time.Time) *RequestPasswordResetHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if h.mailer == nil || !h.mailer.IsConfigured() {
		h.logger.Error("password reset request failed, email sending is not set up")
		return goerrors.New("email sending must be set up in order to request a password reset email", goerrors.CategoryInternal)
	}

	if event.Email == "" {
		return goerrors.New("email is mandatory", goerrors.CategoryBadInput)
	}

	if err := validation.Validate(event.Email, is.Email); err != nil {
		return goerrors.New("invalid email address", goerrors.CategoryBadInput)
	}

	user, err := h.repo.Users().FindActivatedByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// no activated account for this address: succeed with no
			// observable difference to prevent account enumeration
			h.logger.Debug("password reset requested for unknown or pending email")
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user for password reset")
	}

	if user.IsFederated() {
		if user.Disabled {
			// indistinguishable from a nonexistent account
			h.logger.Debug("password reset requested for disabled delegated account")
			return nil
		}
		return goerrors.New("password reset is not available when sign-in is handled by an external identity provider", goerrors.CategoryAuth).
			WithTextCode(TextCodeResetNotApplicable)
	}

	token := NewResetToken()
	expiresAt := ResetTokenExpiration(h.now())

	// overwrites any previously issued token for this user
	user, err = h.repo.Users().SetResetToken(ctx, user.ID, token, expiresAt)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password reset token")
	}

	firstName, lastName := user.DisplayName()
	_, err = h.mailer.SendPasswordReset(ctx, PasswordResetEmail{
		Email:            user.Email,
		FirstName:        firstName,
		LastName:         lastName,
		PasswordResetURL: PasswordResetURL(h.baseURL, user.ID, token),
		Domain:           h.baseURL,
	})
	if err != nil {
		// the token is already committed; a retry issues a fresh one
		h.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventEmailFailed,
			Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
			UserID:     user.ID.String(),
			Metadata:   map[string]any{"message_type": "Reset password"},
			OccurredAt: time.Now(),
		})
		h.logger.Error("failed to send password reset email: %v", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "please contact your administrator")
	}

	h.logger.Info("sent password reset email successfully")
	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetRequested,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: time.Now(),
	})

	return nil
}

func (h *RequestPasswordResetHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
