package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SuperuserBootstrap provisions the initial administrative account on
// startup. It is strictly idempotent: running it when the admin already
// exists is a no-op, never an error and never a duplicate.
type SuperuserBootstrap struct {
	store     AccountStore
	lifecycle *Lifecycle
	cfg       Config
	logger    Logger
	sink      ActivitySink
	now       func() time.Time
}

// BootstrapOption customizes bootstrap construction.
type BootstrapOption func(*SuperuserBootstrap)

// WithBootstrapLogger overrides the default logger.
func WithBootstrapLogger(logger Logger) BootstrapOption {
	return func(b *SuperuserBootstrap) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBootstrapActivitySink sets the audit sink.
func WithBootstrapActivitySink(sink ActivitySink) BootstrapOption {
	return func(b *SuperuserBootstrap) {
		b.sink = normalizeActivitySink(sink)
	}
}

// WithBootstrapClock injects a custom clock (useful for tests).
func WithBootstrapClock(clock func() time.Time) BootstrapOption {
	return func(b *SuperuserBootstrap) {
		if clock != nil {
			b.now = clock
		}
	}
}

// NewSuperuserBootstrap wires the bootstrap step.
func NewSuperuserBootstrap(store AccountStore, lifecycle *Lifecycle, cfg Config, opts ...BootstrapOption) *SuperuserBootstrap {
	b := &SuperuserBootstrap{
		store:     store,
		lifecycle: lifecycle,
		cfg:       cfg,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// EnsureSuperuser creates the configured admin account if it does not exist
// yet. The lookup is unscoped: a soft deleted or deactivated admin still
// counts as existing and is returned untouched.
func (b *SuperuserBootstrap) EnsureSuperuser(ctx context.Context) (*Account, error) {
	if !b.cfg.CreateSuperuser {
		return nil, nil
	}

	email := NormalizeEmail(b.cfg.SuperuserEmail)

	existing, err := b.store.FindByEmailUnscoped(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up superuser account")
	}

	account, err := b.lifecycle.Create(ctx, email, b.cfg.SuperuserPassword, WithSuperuser())
	if err != nil {
		// A concurrent bootstrap may have won the insert; that still counts
		// as the account existing.
		if goerrors.Is(err, ErrDuplicateEmail) {
			return b.store.FindByEmailUnscoped(ctx, email)
		}
		return nil, err
	}

	b.logger.Info("created superuser account", "email", account.Email)

	if err := b.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventSuperuserBootstrapped,
		Actor:      SystemActor,
		AccountID:  account.ID.String(),
		ToStatus:   account.Status,
		OccurredAt: b.now(),
	}); err != nil {
		b.logger.Error("failed to record bootstrap activity", "account_id", account.ID.String(), "error", err)
	}

	return account, nil
}
