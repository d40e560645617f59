package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// PasswordHasher hashes and verifies credentials one-way.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) error
}

// PasswordPolicy rejects weak passwords before they are hashed.
type PasswordPolicy interface {
	Validate(password string) error
}

// EmailResult reports whether a message actually left the mailer.
type EmailResult struct {
	EmailSent bool
}

// InviteEmail carries everything the mailer needs for an invite.
type InviteEmail struct {
	Email           string
	InviteAcceptURL string
	Domain          string
}

// PasswordResetEmail carries everything the mailer needs for a reset.
type PasswordResetEmail struct {
	Email            string
	FirstName        string
	LastName         string
	PasswordResetURL string
	Domain           string
}

// Mailer delivers lifecycle emails. Delivery is implemented outside this
// package; IsConfigured gates the flows that require outbound email.
type Mailer interface {
	IsConfigured() bool
	SendInvite(ctx context.Context, email InviteEmail) (EmailResult, error)
	SendPasswordReset(ctx context.Context, email PasswordResetEmail) (EmailResult, error)
}

// SessionIssuer mints an authenticated session credential for a user
// after signup or a password change.
type SessionIssuer interface {
	IssueSessionToken(user *User) (string, error)
}

// WorkflowActivator stops a running workflow before purge-mode deletion
// removes it.
type WorkflowActivator interface {
	Deactivate(ctx context.Context, workflowID string) error
}

// Hook names passed to HookRunner.
const (
	HookUserInvited        = "user.invited"
	HookUserDeleted        = "user.deleted"
	HookUserProfileUpdate  = "user.profile.update"
	HookUserPasswordUpdate = "user.password.update"
)

// HookRunner runs named external hooks. Hook failures are logged by the
// caller and never affect the primary operation.
type HookRunner interface {
	Run(ctx context.Context, hook string, args ...any) error
}

// HookRunnerFunc adapts a function to the HookRunner interface.
type HookRunnerFunc func(ctx context.Context, hook string, args ...any) error

// Run implements HookRunner.
func (f HookRunnerFunc) Run(ctx context.Context, hook string, args ...any) error {
	if f == nil {
		return nil
	}
	return f(ctx, hook, args...)
}

type noopHookRunner struct{}

func (noopHookRunner) Run(context.Context, string, ...any) error {
	return nil
}

func normalizeHookRunner(h HookRunner) HookRunner {
	if h == nil {
		return noopHookRunner{}
	}
	return h
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
