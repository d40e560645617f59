package identity

import (
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ResetTokenTTL is how long a password reset token stays valid.
const ResetTokenTTL = 2 * time.Hour

// NewResetToken returns a random opaque single-use token. Tokens are
// matched by exact repository lookup, never compared in application code.
func NewResetToken() string {
	return uuid.NewString()
}

// ResetTokenExpiration returns the unix-second expiration for a token
// issued at now.
func ResetTokenExpiration(now time.Time) int64 {
	return now.Add(ResetTokenTTL).Unix()
}

// IsResetTokenExpired reports whether a token expiration has passed.
// A token whose expiration equals now is already expired.
func IsResetTokenExpired(expiresAt int64, now time.Time) bool {
	return now.Unix() >= expiresAt
}

// InviteReference is the invite credential: the pair of a valid inviter
// id and a still-pending invitee id, validated against database state.
// There is no separate stored secret.
type InviteReference struct {
	InviterID uuid.UUID
	InviteeID uuid.UUID
}

// AcceptURL builds the signup link delivered in the invite email.
func (r InviteReference) AcceptURL(baseURL string) string {
	q := url.Values{}
	q.Set("inviterId", r.InviterID.String())
	q.Set("inviteeId", r.InviteeID.String())
	return fmt.Sprintf("%s/signup?%s", baseURL, q.Encode())
}

// PasswordResetURL builds the change-password link delivered in the
// reset email.
func PasswordResetURL(baseURL string, userID uuid.UUID, token string) string {
	q := url.Values{}
	q.Set("userId", userID.String())
	q.Set("token", token)
	return fmt.Sprintf("%s/change-password?%s", baseURL, q.Encode())
}
