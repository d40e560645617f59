package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionClaims are the claims carried by issued session tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email,omitempty"`
	Role  RoleName `json:"role,omitempty"`
}

type jwtSessionIssuer struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
}

// NewJWTSessionIssuer returns the default SessionIssuer, minting HS256
// session tokens using the configured signing key.
func NewJWTSessionIssuer(cfg *Config) SessionIssuer {
	return &jwtSessionIssuer{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		ttl:        cfg.SessionTTL,
	}
}

func (s *jwtSessionIssuer) IssueSessionToken(user *User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", goerrors.New("cannot issue a session without a persisted user", goerrors.CategoryBadInput)
	}

	if len(s.signingKey) == 0 {
		return "", goerrors.New("session signing key is not configured", goerrors.CategoryInternal)
	}

	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email: user.Email,
	}
	if user.GlobalRole != nil {
		claims.Role = user.GlobalRole.Name
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return token, nil
}
