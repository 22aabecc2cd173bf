package users

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// tokenKeySalt domain-separates the activation signature from any other use
// of the signing key.
const tokenKeySalt = "users.ActivationTokenEngine"

// tokenEpoch is the fixed origin for day numbers. Tokens encode the issuance
// date as days since this epoch, base36.
var tokenEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// signatureLen is the hex length of a token signature: an HMAC-SHA256 hex
// digest with every other character kept, which leaves 128 bits of entropy.
var signatureLen = hex.EncodedLen(sha256.Size) / 2

// lastLoginLayout renders the login stamp folded into the fingerprint,
// second precision, no zone.
const lastLoginLayout = "2006-01-02 15:04:05"

// ActivationTokenEngine derives and verifies stateless activation tokens.
//
// A token is "{base36 day number}-{signature}" where the signature is a
// keyed hash over the account id, normalized email, last login stamp and the
// day number. Nothing is persisted per token: expiry is day arithmetic on
// the encoded day number, and single use is an emergent property of the
// fingerprint. When activation triggers a login, the last login stamp
// changes and every outstanding token for the account stops verifying.
//
// Single use is soft: if the surrounding system never updates the last
// login on activation, tokens stay valid and reusable until they expire.
// That is a documented property of the scheme, not a bug.
//
// The engine is pure and stateless; it is safe for concurrent use without
// locking.
type ActivationTokenEngine struct {
	secret      []byte
	timeoutDays int
	now         func() time.Time
	logger      Logger
}

// TokenEngineOption customizes engine construction.
type TokenEngineOption func(*ActivationTokenEngine)

// WithTokenClock injects the date source, so tests can move across days
// without waiting for them.
func WithTokenClock(clock func() time.Time) TokenEngineOption {
	return func(e *ActivationTokenEngine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithTokenLogger overrides the logger used for verification diagnostics.
func WithTokenLogger(logger Logger) TokenEngineOption {
	return func(e *ActivationTokenEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewActivationTokenEngine builds an engine signing with the given secret.
// The secret must remain stable across process restarts, otherwise all
// outstanding tokens become permanently invalid.
func NewActivationTokenEngine(secret []byte, timeoutDays int, opts ...TokenEngineOption) *ActivationTokenEngine {
	e := &ActivationTokenEngine{
		secret:      secret,
		timeoutDays: timeoutDays,
		now:         time.Now,
		logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	return e
}

// MakeToken issues a token for the account, bound to its current
// fingerprint and today's day number. Two calls on the same day with an
// unchanged fingerprint produce byte-identical tokens; verification relies
// on that determinism to recompute instead of looking anything up.
func (e *ActivationTokenEngine) MakeToken(account *Account) string {
	return e.makeTokenWithDay(account, e.dayNumber(e.now()))
}

// VerifyToken checks a presented token against the account's current state.
// It returns ErrTokenMalformed, ErrTokenSignatureMismatch or ErrTokenExpired;
// callers facing anonymous users must collapse these (see CheckToken).
func (e *ActivationTokenEngine) VerifyToken(account *Account, token string) error {
	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return ErrTokenMalformed
	}

	day, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil || day < 0 {
		return ErrTokenMalformed
	}

	if len(parts[1]) != signatureLen {
		return ErrTokenMalformed
	}

	// Recompute with the day number the token claims, not today's, against
	// the account's current fingerprint. Constant-time comparison of the
	// full token, never a short-circuit.
	expected := e.makeTokenWithDay(account, int(day))
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrTokenSignatureMismatch
	}

	age := e.dayNumber(e.now()) - int(day)
	if age < 0 {
		// Future dated: clock skew or tampering. Rejected as expired.
		return ErrTokenExpired
	}
	if age > e.timeoutDays {
		return ErrTokenExpired
	}

	return nil
}

// CheckToken is the collapsed form for anonymous facing callers: it reports
// only whether the token verifies, logging the concrete failure internally.
func (e *ActivationTokenEngine) CheckToken(account *Account, token string) bool {
	if err := e.VerifyToken(account, token); err != nil {
		e.logger.Debug("activation token rejected", "account", account.ID.String(), "error", err)
		return false
	}
	return true
}

func (e *ActivationTokenEngine) makeTokenWithDay(account *Account, day int) string {
	return strconv.FormatInt(int64(day), 36) + "-" + e.signature(account, day)
}

func (e *ActivationTokenEngine) signature(account *Account, day int) string {
	var login string
	if account.LastLoginAt != nil {
		login = account.LastLoginAt.UTC().Truncate(time.Second).Format(lastLoginLayout)
	}

	var value strings.Builder
	value.WriteString(account.ID.String())
	value.WriteString(NormalizeEmail(account.Email))
	value.WriteString(login)
	value.WriteString(strconv.Itoa(day))

	key := sha256.Sum256(append([]byte(tokenKeySalt), e.secret...))
	mac := hmac.New(sha256.New, key[:])
	mac.Write([]byte(value.String()))

	digest := hex.EncodeToString(mac.Sum(nil))

	// Keep every other character. Shortens the token while leaving well
	// above 80 bits of signature entropy.
	sig := make([]byte, 0, signatureLen)
	for i := 0; i < len(digest); i += 2 {
		sig = append(sig, digest[i])
	}

	return string(sig)
}

func (e *ActivationTokenEngine) dayNumber(t time.Time) int {
	return int(t.UTC().Sub(tokenEpoch) / (24 * time.Hour))
}
