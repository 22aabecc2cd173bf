package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Mailer delivers a fully built message. The subsystem composes subject and
// body; transport, retries and delivery tracking belong to the host.
type Mailer interface {
	Send(ctx context.Context, to, subject, body, htmlBody string) error
}

// AccountStore is the persistence contract the subsystem depends on. The
// bun backed implementation in this package satisfies it, but any store with
// a case-insensitive unique index on the normalized email will do.
type AccountStore interface {
	// FindByEmail looks up an account by normalized email, honoring the
	// default soft-delete filter.
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// FindByEmailUnscoped bypasses the default filters. Bootstrap uses it so
	// a soft deleted or deactivated admin is still seen as existing.
	FindByEmailUnscoped(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// CreateAccount inserts the account, returning ErrDuplicateEmail when
	// the normalized email is already taken.
	CreateAccount(ctx context.Context, account *Account) (*Account, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error)
	// Activate flips a pending account to active with a compare-and-swap.
	// It reports whether this call performed the flip, so concurrent
	// duplicate activations resolve to exactly one winner.
	Activate(ctx context.Context, id uuid.UUID) (bool, error)
	// TrackSuccessfulLogin stamps last_login_at. This is the fingerprint
	// mutation that invalidates outstanding activation tokens.
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
