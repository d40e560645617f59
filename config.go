package identity

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Config holds the knobs this package reads from the environment.
type Config struct {
	// BaseURL is the public address used in invite and reset links.
	BaseURL string `env:"IDENTITY_BASE_URL" envDefault:"http://localhost:5678"`
	// EmailMode selects the outbound email transport. Empty disables
	// outbound email and with it reinvites and password resets.
	EmailMode string `env:"IDENTITY_EMAIL_MODE" envDefault:"smtp"`
	// BcryptCost is the password hashing work factor.
	BcryptCost int `env:"IDENTITY_BCRYPT_COST" envDefault:"14"`
	// SigningKey signs session tokens.
	SigningKey string `env:"IDENTITY_SIGNING_KEY"`
	// SessionTTL bounds the lifetime of issued session tokens.
	SessionTTL time.Duration `env:"IDENTITY_SESSION_TTL" envDefault:"168h"`
	// Issuer is the iss claim on session tokens.
	Issuer string `env:"IDENTITY_TOKEN_ISSUER" envDefault:"go-identity"`
}

// LoadConfig reads configuration from the environment and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse identity configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid identity configuration")
	}
	return nil
}

// EmailConfigured reports whether outbound email delivery is set up.
func (c *Config) EmailConfigured() bool {
	return c != nil && c.EmailMode != ""
}
