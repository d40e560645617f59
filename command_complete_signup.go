package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CompleteSignupMessage fills out a pending shell with a name and a
// password, activating the account.
type CompleteSignupMessage struct {
	InviteeID  string `json:"invitee_id" doc:"Id of the pending shell account."`
	InviterID  string `json:"inviter_id" doc:"Id of the user that sent the invite."`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Password   string `json:"password"`
	OnResponse func(resp *CompleteSignupResponse)
}

func (m CompleteSignupMessage) Type() string { return "user.signup_complete" }

type CompleteSignupResponse struct {
	User         PublicUser
	SessionToken string
}

type CompleteSignupHandler struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	policy   PasswordPolicy
	sessions SessionIssuer
	activity ActivitySink
	hooks    HookRunner
	logger   Logger
}

// NewCompleteSignupHandler creates a handler with sane defaults.
func NewCompleteSignupHandler(repo RepositoryManager) *CompleteSignupHandler {
	return &CompleteSignupHandler{
		repo:     repo,
		hasher:   NewBcryptHasher(0),
		policy:   NewPasswordPolicy(),
		activity: noopActivitySink{},
		hooks:    noopHookRunner{},
		logger:   defLogger{},
	}
}

// WithPasswordHasher overrides the credential hasher.
func (h *CompleteSignupHandler) WithPasswordHasher(hasher PasswordHasher) *CompleteSignupHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

// WithPasswordPolicy overrides the password strength policy.
func (h *CompleteSignupHandler) WithPasswordPolicy(policy PasswordPolicy) *CompleteSignupHandler {
	if policy != nil {
		h.policy = policy
	}
	return h
}

// WithSessionIssuer sets the collaborator that mints the post-signup
// session credential.
func (h *CompleteSignupHandler) WithSessionIssuer(sessions SessionIssuer) *CompleteSignupHandler {
	h.sessions = sessions
	return h
}

// WithActivitySink sets the sink used to emit signup events.
func (h *CompleteSignupHandler) WithActivitySink(sink ActivitySink) *CompleteSignupHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithHookRunner sets the runner for external lifecycle hooks.
func (h *CompleteSignupHandler) WithHookRunner(hooks HookRunner) *CompleteSignupHandler {
	h.hooks = normalizeHookRunner(hooks)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *CompleteSignupHandler) WithLogger(logger Logger) *CompleteSignupHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CompleteSignupHandler) Execute(ctx context.Context, event CompleteSignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup completion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CompleteSignupHandler) execute(ctx context.Context, event CompleteSignupMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.FirstName == "" || event.LastName == "" || event.Password == "" {
		return goerrors.New("first name, last name, and password are required", goerrors.CategoryBadInput)
	}

	inviteeID, err := uuid.Parse(event.InviteeID)
	if err != nil {
		return goerrors.New("invalid invitee id", goerrors.CategoryBadInput)
	}

	inviterID, err := uuid.Parse(event.InviterID)
	if err != nil {
		return goerrors.New("invalid inviter id", goerrors.CategoryBadInput)
	}

	if err := h.policy.Validate(event.Password); err != nil {
		return err
	}

	users, err := h.repo.Users().GetManyByIDs(ctx, []uuid.UUID{inviterID, inviteeID})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load invite pair")
	}

	if len(users) != 2 {
		h.logger.Debug("signup completion failed, inviter and/or invitee not found")
		return goerrors.New("the invitation is no longer valid", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	var invitee *User
	for _, user := range users {
		if user.ID == inviteeID {
			invitee = user
		}
	}

	if invitee == nil || !invitee.IsPending() {
		h.logger.Debug("signup completion failed, invite already accepted")
		return goerrors.New("this invite has been accepted already", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(TextCodeInviteClaimed)
	}

	passwordHash, err := h.hasher.Hash(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	var activated *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		activated, err = h.repo.Users().ActivateShellTx(ctx, tx, inviteeID,
			event.FirstName, event.LastName, passwordHash)
		return err
	})
	if err != nil {
		// zero rows means another request claimed the invite first
		if goerrors.IsNotFound(err) {
			return goerrors.New("this invite has been accepted already", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict).
				WithTextCode(TextCodeInviteClaimed)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate user account")
	}
	activated.GlobalRole = invitee.GlobalRole

	resp := &CompleteSignupResponse{User: SanitizeUser(activated)}

	if h.sessions != nil {
		token, err := h.sessions.IssueSessionToken(activated)
		if err != nil {
			// the account is active at this point, the caller just has to
			// sign in manually
			return goerrors.Wrap(err, goerrors.CategoryInternal, "account activated but session issuance failed")
		}
		resp.SessionToken = token
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSignupCompleted,
		Actor:      ActorRef{ID: activated.ID.String(), Type: "user"},
		UserID:     activated.ID.String(),
		Metadata:   map[string]any{"inviter_id": inviterID.String()},
		OccurredAt: time.Now(),
	})

	if err := h.hooks.Run(ctx, HookUserProfileUpdate, activated.Email, SanitizeUser(activated)); err != nil {
		h.logger.Warn("user.profile.update hook error: %v", err)
	}
	if err := h.hooks.Run(ctx, HookUserPasswordUpdate, activated.Email); err != nil {
		h.logger.Warn("user.password.update hook error: %v", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *CompleteSignupHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during signup completion: %v", err)
	}
}
