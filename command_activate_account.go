package users

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ActivateAccountMessage carries an activation link's payload.
type ActivateAccountMessage struct {
	AccountID string `json:"account_id"`
	Token     string `json:"token"`
	// OnActivated, when set, receives the activated account.
	OnActivated func(a *Account) `json:"-"`
}

func (e ActivateAccountMessage) Type() string { return "account.activate" }

// ActivateAccountHandler verifies a presented token and activates the
// account. Every failure surfaces as ErrActivationFailed: anonymous callers
// must not learn whether the token was malformed, forged or merely expired.
// The concrete reason is logged for operators and distinguishable in tests
// through the engine directly.
type ActivateAccountHandler struct {
	store  AccountStore
	tokens *ActivationTokenEngine
	cfg    Config
	logger Logger
	sink   ActivitySink
	now    func() time.Time
}

// ActivateHandlerOption customizes handler construction.
type ActivateHandlerOption func(*ActivateAccountHandler)

// WithActivateLogger overrides the default logger.
func WithActivateLogger(logger Logger) ActivateHandlerOption {
	return func(h *ActivateAccountHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithActivateActivitySink sets the audit sink.
func WithActivateActivitySink(sink ActivitySink) ActivateHandlerOption {
	return func(h *ActivateAccountHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithActivateClock injects a custom clock (useful for tests).
func WithActivateClock(clock func() time.Time) ActivateHandlerOption {
	return func(h *ActivateAccountHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

// NewActivateAccountHandler wires the activation command.
func NewActivateAccountHandler(store AccountStore, tokens *ActivationTokenEngine, cfg Config, opts ...ActivateHandlerOption) *ActivateAccountHandler {
	h := &ActivateAccountHandler{
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		logger: defLogger{},
		sink:   noopActivitySink{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	id, err := uuid.Parse(event.AccountID)
	if err != nil {
		h.logger.Debug("activation with unparseable account id", "account_id", event.AccountID)
		return ErrActivationFailed
	}

	account, err := h.store.FindByID(ctx, id)
	if err != nil {
		h.logger.Debug("activation for unknown account", "account_id", event.AccountID)
		return ErrActivationFailed
	}

	if err := h.tokens.VerifyToken(account, event.Token); err != nil {
		// The text code says which check failed; the caller only ever sees
		// the collapsed error.
		h.logger.Info("activation token rejected", "account_id", account.ID.String(), "error", err)
		return ErrActivationFailed
	}

	// Compare-and-swap: only a pending account flips to active, and exactly
	// one of any concurrent duplicate requests wins. Losing requests land on
	// an already active account, which is a no-op by contract. A deactivated
	// account never flips here: admin switch-off outranks the token flow.
	won, err := h.store.Activate(ctx, account.ID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	if !won {
		refreshed, err := h.store.FindByID(ctx, account.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload account after activation")
		}
		if !refreshed.IsActive() {
			h.logger.Info("activation rejected for non-pending account", "account_id", account.ID.String(), "status", refreshed.Status)
			return ErrActivationFailed
		}

		if event.OnActivated != nil {
			event.OnActivated(refreshed)
		}
		return nil
	}

	account.Status = AccountStatusActive

	// Recording the login mutates the token fingerprint, which is what
	// retires this token. Without auto login the token stays valid until it
	// expires; that is the documented soft single-use property.
	if h.cfg.AutoLoginOnActivation {
		if err := h.store.TrackSuccessfulLogin(ctx, account); err != nil {
			h.logger.Error("failed to record activation login", "account_id", account.ID.String(), "error", err)
		}
	}

	h.recordActivity(ctx, account)

	if event.OnActivated != nil {
		event.OnActivated(account)
	}

	return nil
}

func (h *ActivateAccountHandler) recordActivity(ctx context.Context, account *Account) {
	err := h.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventActivated,
		Actor:      SystemActor,
		AccountID:  account.ID.String(),
		FromStatus: AccountStatusPending,
		ToStatus:   AccountStatusActive,
		OccurredAt: h.now(),
	})
	if err != nil {
		h.logger.Error("failed to record activation activity", "account_id", account.ID.String(), "error", err)
	}
}
