package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Lifecycle owns account creation and the admin driven status transitions.
// It performs no email dispatch: whether an activation mail goes out is a
// decision of the calling flow, which keeps this type side-effect free and
// independently testable.
type Lifecycle struct {
	store  AccountStore
	sm     AccountStateMachine
	cfg    Config
	now    func() time.Time
	logger Logger
}

// LifecycleOption customizes Lifecycle construction.
type LifecycleOption func(*Lifecycle)

// WithLifecycleClock injects a custom clock (useful for tests).
func WithLifecycleClock(clock func() time.Time) LifecycleOption {
	return func(l *Lifecycle) {
		if clock != nil {
			l.now = clock
		}
	}
}

// WithLifecycleLogger overrides the default logger.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithLifecycleStateMachine swaps the transition engine.
func WithLifecycleStateMachine(sm AccountStateMachine) LifecycleOption {
	return func(l *Lifecycle) {
		if sm != nil {
			l.sm = sm
		}
	}
}

// NewLifecycle builds the lifecycle service on top of the given store.
func NewLifecycle(store AccountStore, cfg Config, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	if l.sm == nil {
		l.sm = NewAccountStateMachine(store, WithStateMachineClock(l.now))
	}

	return l
}

// CreateOption tweaks a single account creation.
type CreateOption func(*createOptions)

type createOptions struct {
	staff           bool
	superuser       bool
	kind            AccountKind
	firstName       string
	lastName        string
	statusOverride  AccountStatus
	deterministicID bool
}

// WithStaff marks the new account as staff.
func WithStaff() CreateOption {
	return func(o *createOptions) { o.staff = true }
}

// WithSuperuser marks the new account staff and superuser, created active.
func WithSuperuser() CreateOption {
	return func(o *createOptions) {
		o.staff = true
		o.superuser = true
		o.kind = KindSuperuser
		o.statusOverride = AccountStatusActive
	}
}

// WithKind sets the account kind tag.
func WithKind(kind AccountKind) CreateOption {
	return func(o *createOptions) { o.kind = kind }
}

// WithName sets the optional profile names.
func WithName(first, last string) CreateOption {
	return func(o *createOptions) {
		o.firstName = first
		o.lastName = last
	}
}

// WithInitialStatus overrides the configuration driven initial status.
func WithInitialStatus(status AccountStatus) CreateOption {
	return func(o *createOptions) { o.statusOverride = status }
}

// WithDeterministicID derives the account id from the normalized email
// instead of generating a random one.
func WithDeterministicID() CreateOption {
	return func(o *createOptions) { o.deterministicID = true }
}

// Create validates the identity, hashes the password and persists a new
// account. The initial status is active when email verification is disabled,
// pending otherwise. Duplicate normalized emails surface as
// ErrDuplicateEmail; callers must not blindly retry after that failure.
func (l *Lifecycle) Create(ctx context.Context, email, password string, opts ...CreateOption) (*Account, error) {
	options := &createOptions{kind: KindUser}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmptyEmail
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	status := AccountStatusActive
	if l.cfg.VerifyEmail {
		status = AccountStatusPending
	}
	if options.statusOverride != "" {
		status = options.statusOverride
	}

	account := &Account{
		Email:        email,
		PasswordHash: hash,
		Status:       status,
		Kind:         options.kind,
		FirstName:    options.firstName,
		LastName:     options.lastName,
		IsStaff:      options.staff,
		IsSuperuser:  options.superuser,
		DateJoined:   l.now().UTC(),
	}
	account.EnsureKind()

	if options.deterministicID {
		if id, err := hashid.NewUUID(email); err == nil {
			account.ID = id
		}
	}

	created, err := l.store.CreateAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	l.logger.Debug("account created", "email", created.Email, "status", created.Status)

	return created, nil
}

// Activate moves a pending account to active. Activating an account that is
// already active is a no-op, not an error. Staff and superuser flags are
// never changed by activation.
func (l *Lifecycle) Activate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return l.sm.Transition(ctx, actor, account, AccountStatusActive, opts...)
}

// Deactivate is the admin switch-off. The token flow can never undo it.
func (l *Lifecycle) Deactivate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return l.sm.Transition(ctx, actor, account, AccountStatusDeactivated, opts...)
}

// Reactivate returns a deactivated account to service, admin action only.
func (l *Lifecycle) Reactivate(ctx context.Context, actor ActorRef, account *Account, opts ...TransitionOption) (*Account, error) {
	return l.sm.Transition(ctx, actor, account, AccountStatusActive, opts...)
}

// RecordLogin stamps a successful authentication. Activation itself never
// calls this; the activation command does when auto login is configured.
func (l *Lifecycle) RecordLogin(ctx context.Context, account *Account) error {
	return l.store.TrackSuccessfulLogin(ctx, account)
}
