package users

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeEmptyEmail       = "EMPTY_EMAIL"
	TextCodeInvalidEmail     = "INVALID_EMAIL"
	TextCodeDomainBlocked    = "EMAIL_DOMAIN_BLOCKED"
	TextCodeDomainNotAllowed = "EMAIL_DOMAIN_NOT_ALLOWED"
	TextCodeDuplicateEmail   = "DUPLICATE_EMAIL"
	TextCodePasswordLength   = "PASSWORD_LENGTH"
	TextCodePasswordWeak     = "PASSWORD_COMPLEXITY"

	TextCodeTokenMalformed = "ACTIVATION_TOKEN_MALFORMED"
	TextCodeTokenMismatch  = "ACTIVATION_TOKEN_MISMATCH"
	TextCodeTokenExpired   = "ACTIVATION_TOKEN_EXPIRED"

	TextCodeActivationFailed   = "ACTIVATION_FAILED"
	TextCodeRegistrationClosed = "REGISTRATION_CLOSED"
	TextCodeInvalidConfig      = "INVALID_USERS_CONFIG"
)

// ErrEmptyEmail is returned when account creation is attempted with a blank address.
var ErrEmptyEmail = errors.New("email must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyEmail).
	WithCode(errors.CodeBadRequest)

// ErrInvalidEmail is returned for addresses without a usable local and domain part.
var ErrInvalidEmail = errors.New("enter a valid email address", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(errors.CodeBadRequest)

// ErrDomainBlocked is returned when the address domain is on the deny list.
var ErrDomainBlocked = errors.New("emails from this domain are not allowed", errors.CategoryValidation).
	WithTextCode(TextCodeDomainBlocked).
	WithCode(errors.CodeBadRequest)

// ErrDomainNotAllowed is returned when an allow list is configured and the
// address domain is not on it.
var ErrDomainNotAllowed = errors.New("emails from this domain are not allowed", errors.CategoryValidation).
	WithTextCode(TextCodeDomainNotAllowed).
	WithCode(errors.CodeBadRequest)

// ErrDuplicateEmail is returned when the normalized email already belongs to
// an account. Surfaced as a field level error, never as a server fault, and
// the failed create must not be blindly retried.
var ErrDuplicateEmail = errors.New("an account with that email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail).
	WithCode(errors.CodeConflict)

// ErrAccountNotFound is returned when a lookup matches no account.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode("ACCOUNT_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrTokenMalformed is returned for tokens with the wrong shape: missing
// separator, non numeric day prefix, or a wrong length signature.
var ErrTokenMalformed = errors.New("activation token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenSignatureMismatch is returned when the recomputed signature does
// not match the presented one.
var ErrTokenSignatureMismatch = errors.New("activation token signature mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens outside the configured window,
// including tokens that claim to be from the future.
var ErrTokenExpired = errors.New("activation token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrActivationFailed is the single error anonymous callers see for any
// activation failure. The concrete token failure is logged internally but
// never exposed, so the endpoint cannot be used as an oracle.
var ErrActivationFailed = errors.New("account activation unsuccessful", errors.CategoryAuth).
	WithTextCode(TextCodeActivationFailed).
	WithCode(errors.CodeUnauthorized)

// ErrRegistrationClosed is returned when the host disabled open registration.
var ErrRegistrationClosed = errors.New("registration is currently closed", errors.CategoryOperation).
	WithTextCode(TextCodeRegistrationClosed).
	WithCode(errors.CodeForbidden)

// ErrNoEmptyString is returned when an empty password is handed to the hasher.
var ErrNoEmptyString = errors.New("value must not be an empty string", errors.CategoryValidation).
	WithTextCode("EMPTY_STRING").
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password does not match its hash.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(errors.CodeUnauthorized)

// decorate attaches metadata to a copy of a shared sentinel. WithMetadata
// mutates its receiver, so decorating the sentinel directly would leak
// request data across callers and race under concurrency. The clone keeps
// the sentinel as Source so errors.Is still matches.
func decorate(sentinel *errors.Error, metadata map[string]any) error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone.WithMetadata(metadata)
}
