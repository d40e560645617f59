package identity

import (
	"errors"
	"strings"
)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("value should not be an empty string")

// ErrMismatchedHashAndPassword is the error for a failed password check
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash")

// Text codes attached to rich errors so API layers can translate them
// without string matching.
const (
	// TextCodeWeakPassword marks password policy rejections
	TextCodeWeakPassword = "WEAK_PASSWORD"
	// TextCodeInviteClaimed marks an invite that is no longer redeemable
	TextCodeInviteClaimed = "INVITE_ALREADY_CLAIMED"
	// TextCodeResetNotApplicable marks reset attempts on delegated accounts
	TextCodeResetNotApplicable = "PASSWORD_RESET_NOT_APPLICABLE"
)

// IsUniqueViolationError checks driver errors for a unique constraint
// failure. Both the sqlite and postgres message forms are matched.
func IsUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "constraint failed")
}
