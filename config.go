package users

import (
	"github.com/goliatone/go-errors"
)

// Config holds every knob the subsystem consumes. Hosts build it once at
// startup, call Validate, and pass it by value into the constructors. There
// are no ambient settings lookups inside the package.
type Config struct {
	// SigningKey is the process wide secret the activation token engine
	// signs with. It must stay stable across restarts or every outstanding
	// activation link becomes permanently invalid.
	SigningKey []byte

	// VerifyEmail gates the activation flow. When false, accounts are
	// created active and no activation email is sent.
	VerifyEmail bool
	// ActivationTimeoutDays is the window in whole days during which an
	// activation token verifies.
	ActivationTimeoutDays int
	// AutoLoginOnActivation records a login when an account is activated.
	// The login stamp is what makes activation tokens single use; without
	// it, tokens stay valid until they expire.
	AutoLoginOnActivation bool

	// RegistrationOpen allows self service registration.
	RegistrationOpen bool
	// SpamProtection enables the honeypot check on registration messages.
	SpamProtection bool

	Password     PasswordPolicy
	EmailDomains EmailDomainPolicy

	// CreateSuperuser provisions an administrative account at startup.
	CreateSuperuser   bool
	SuperuserEmail    string
	SuperuserPassword string

	// ActivationURL is the printf style template the activation email links
	// to. It receives the account id and the token, in that order.
	ActivationURL string
	// MailFrom is informational; the Mailer owns the envelope.
	MailFrom string
	// ExtraEmailContext is merged into the activation email templates.
	ExtraEmailContext map[string]any
}

// DefaultConfig mirrors the defaults the subsystem shipped with historically:
// verification off, three day activation window, auto login on activation,
// open registration, minimal password rules and no domain lists.
func DefaultConfig() Config {
	return Config{
		VerifyEmail:           false,
		ActivationTimeoutDays: 3,
		AutoLoginOnActivation: true,
		RegistrationOpen:      true,
		SpamProtection:        true,
		Password: PasswordPolicy{
			MinLength: 5,
		},
		ActivationURL: "/activate/%s/%s",
	}
}

// Validate reports configuration problems. These are fatal at startup, not
// recoverable per request.
func (c Config) Validate() error {
	if len(c.SigningKey) == 0 {
		return errors.New("signing key is required", errors.CategoryValidation).
			WithTextCode(TextCodeInvalidConfig)
	}

	if c.ActivationTimeoutDays < 0 {
		return errors.New("activation timeout must not be negative", errors.CategoryValidation).
			WithTextCode(TextCodeInvalidConfig)
	}

	if c.Password.MaxLength > 0 && c.Password.MinLength > c.Password.MaxLength {
		return errors.New("password min length exceeds max length", errors.CategoryValidation).
			WithTextCode(TextCodeInvalidConfig)
	}

	if c.CreateSuperuser {
		if c.SuperuserEmail == "" || c.SuperuserPassword == "" {
			return errors.New("superuser bootstrap requires email and password", errors.CategoryValidation).
				WithTextCode(TextCodeInvalidConfig)
		}
	}

	return nil
}
