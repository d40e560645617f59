package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// MinPasswordLength is the policy floor for new passwords
	MinPasswordLength = 8
	// MaxPasswordLength caps passwords before they reach bcrypt
	MaxPasswordLength = 64
)

type defaultPasswordPolicy struct{}

// NewPasswordPolicy returns the default length-based password policy.
func NewPasswordPolicy() PasswordPolicy {
	return defaultPasswordPolicy{}
}

func (defaultPasswordPolicy) Validate(password string) error {
	err := validation.Validate(password,
		validation.Required,
		validation.Length(MinPasswordLength, MaxPasswordLength),
	)
	if err != nil {
		return goerrors.New("password does not meet the security requirements", goerrors.CategoryValidation).
			WithTextCode(TextCodeWeakPassword).
			WithMetadata(map[string]any{
				"min_length": MinPasswordLength,
				"max_length": MaxPasswordLength,
			})
	}
	return nil
}
