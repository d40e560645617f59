package identity

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateInvitesMessage requests invite emails plus shell accounts for a
// batch of addresses.
type CreateInvitesMessage struct {
	InviterID uuid.UUID `json:"inviter_id" doc:"User sending the invites."`
	Emails    []string  `json:"emails" doc:"Addresses to invite."`
	// DeterministicIDs derives shell ids from the address instead of
	// random UUIDs, so re-running a seed script is stable.
	DeterministicIDs bool
	OnResponse       func(resp *CreateInvitesResponse)
}

func (m CreateInvitesMessage) Type() string { return "user.invite" }

// InviteResult is the per-recipient outcome. Shell creation is all or
// nothing, but email delivery succeeds or fails per recipient.
type InviteResult struct {
	Email           string    `json:"email"`
	UserID          uuid.UUID `json:"user_id"`
	InviteAcceptURL string    `json:"invite_accept_url"`
	EmailSent       bool      `json:"email_sent"`
	Error           string    `json:"error,omitempty"`
}

type CreateInvitesResponse struct {
	Results []InviteResult
	Success bool
}

type CreateInvitesHandler struct {
	repo     RepositoryManager
	mailer   Mailer
	activity ActivitySink
	hooks    HookRunner
	logger   Logger
	baseURL  string
}

// NewCreateInvitesHandler creates a handler with sane defaults.
func NewCreateInvitesHandler(repo RepositoryManager) *CreateInvitesHandler {
	return &CreateInvitesHandler{
		repo:     repo,
		activity: noopActivitySink{},
		hooks:    noopHookRunner{},
		logger:   defLogger{},
	}
}

// WithMailer sets the mailer used for invite delivery.
func (h *CreateInvitesHandler) WithMailer(mailer Mailer) *CreateInvitesHandler {
	h.mailer = mailer
	return h
}

// WithActivitySink sets the sink used to emit invite events.
func (h *CreateInvitesHandler) WithActivitySink(sink ActivitySink) *CreateInvitesHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithHookRunner sets the runner for external lifecycle hooks.
func (h *CreateInvitesHandler) WithHookRunner(hooks HookRunner) *CreateInvitesHandler {
	h.hooks = normalizeHookRunner(hooks)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *CreateInvitesHandler) WithLogger(logger Logger) *CreateInvitesHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithBaseURL sets the public address embedded in invite links.
func (h *CreateInvitesHandler) WithBaseURL(baseURL string) *CreateInvitesHandler {
	h.baseURL = baseURL
	return h
}

func (h *CreateInvitesHandler) Execute(ctx context.Context, event CreateInvitesMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invite creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateInvitesHandler) execute(ctx context.Context, event CreateInvitesMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.InviterID == uuid.Nil {
		return goerrors.New("an inviter is required to send invites", goerrors.CategoryBadInput)
	}

	if len(event.Emails) == 0 {
		return goerrors.New("at least one email address is required", goerrors.CategoryBadInput)
	}

	emails := make([]string, 0, len(event.Emails))
	seen := map[string]bool{}
	for _, raw := range event.Emails {
		email := NormalizeEmail(raw)
		if err := validation.Validate(email, validation.Required, is.Email); err != nil {
			return goerrors.New("invite list contains an invalid email address", goerrors.CategoryBadInput).
				WithMetadata(map[string]any{"invalid_email": raw})
		}
		if seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}

	memberRole, err := h.repo.Roles().FindByScopeAndName(ctx, RoleScopeGlobal, RoleNameMember)
	if err != nil {
		h.logger.Error("global member role missing while creating invites: %v", err)
		return goerrors.Wrap(err, goerrors.CategoryInternal,
			"members role not found in database - inconsistent state")
	}

	existing, err := h.repo.Users().FindByEmails(ctx, emails)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up existing users")
	}

	// active accounts are silently skipped, pending shells are reused
	active := map[string]bool{}
	pending := map[string]uuid.UUID{}
	for _, user := range existing {
		if user.IsPending() {
			pending[user.Email] = user.ID
		} else {
			active[user.Email] = true
		}
	}

	var toCreate []string
	for _, email := range emails {
		if !active[email] && pending[email] == uuid.Nil {
			toCreate = append(toCreate, email)
		}
	}

	if len(toCreate) > 0 {
		h.logger.Debug("creating %d user shell(s)", len(toCreate))

		err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, email := range toCreate {
				shell := NewShellUser(email, memberRole)
				if event.DeterministicIDs {
					if id, err := hashid.NewUUID(email); err == nil {
						shell.ID = id
					}
				}

				created, err := h.repo.Users().CreateShellTx(ctx, tx, shell)
				if err != nil {
					return err
				}
				pending[created.Email] = created.ID
			}
			return nil
		})
		if err != nil {
			h.logger.Error("failed to create user shells: %v", err)
			return goerrors.Wrap(err, goerrors.CategoryInternal, "an error occurred during user creation")
		}
	}

	resp := &CreateInvitesResponse{}
	for _, email := range emails {
		if active[email] {
			continue
		}

		ref := InviteReference{InviterID: event.InviterID, InviteeID: pending[email]}
		result := InviteResult{
			Email:           email,
			UserID:          ref.InviteeID,
			InviteAcceptURL: ref.AcceptURL(h.baseURL),
		}

		sent, err := h.sendInvite(ctx, result.Email, result.InviteAcceptURL)
		if err != nil {
			result.Error = err.Error()
			h.logger.Error("failed to send invite email to %s: %v", email, err)
			h.recordActivity(ctx, ActivityEvent{
				EventType:  ActivityEventEmailFailed,
				Actor:      ActorRef{ID: event.InviterID.String(), Type: "user"},
				UserID:     ref.InviteeID.String(),
				Metadata:   map[string]any{"message_type": "New user invite"},
				OccurredAt: time.Now(),
			})
		} else {
			result.EmailSent = sent
			h.recordActivity(ctx, ActivityEvent{
				EventType:  ActivityEventInviteSent,
				Actor:      ActorRef{ID: event.InviterID.String(), Type: "user"},
				UserID:     ref.InviteeID.String(),
				Metadata:   map[string]any{"email_sent": sent},
				OccurredAt: time.Now(),
			})
		}

		resp.Results = append(resp.Results, result)
	}

	if len(toCreate) > 0 {
		if err := h.hooks.Run(ctx, HookUserInvited, toCreate); err != nil {
			h.logger.Warn("user.invited hook error: %v", err)
		}
	}

	resp.Success = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *CreateInvitesHandler) sendInvite(ctx context.Context, email, acceptURL string) (bool, error) {
	if h.mailer == nil || !h.mailer.IsConfigured() {
		return false, nil
	}

	result, err := h.mailer.SendInvite(ctx, InviteEmail{
		Email:           email,
		InviteAcceptURL: acceptURL,
		Domain:          h.baseURL,
	})
	if err != nil {
		return false, err
	}

	return result.EmailSent, nil
}

func (h *CreateInvitesHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during invite creation: %v", err)
	}
}
