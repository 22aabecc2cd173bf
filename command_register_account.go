package users

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// RegisterAccountMessage carries self service registration input.
type RegisterAccountMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// Honeypot must stay unchecked; bots that tick every box out themselves.
	Honeypot bool `json:"accept_terms"`
	// UseDeterministicID derives the account id from the normalized email.
	UseDeterministicID bool `json:"-"`
	// OnAccount, when set, receives the created account.
	OnAccount func(a *Account) `json:"-"`
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// Validate checks the message shape before the domain validators run.
func (e RegisterAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.FirstName, validation.Length(0, 200)),
		validation.Field(&e.LastName, validation.Length(0, 200)),
	)
}

// RegisterAccountHandler runs the registration flow: validate input, create
// the account, and when verification is on, issue a token and hand the
// activation email to the mailer. A mail failure never rolls back the
// created account; it is logged and reported through the activity sink.
type RegisterAccountHandler struct {
	lifecycle *Lifecycle
	tokens    *ActivationTokenEngine
	mailer    Mailer
	emails    *ActivationEmailBuilder
	cfg       Config
	logger    Logger
	sink      ActivitySink
	now       func() time.Time
}

// RegisterHandlerOption customizes handler construction.
type RegisterHandlerOption func(*RegisterAccountHandler)

// WithRegisterLogger overrides the default logger.
func WithRegisterLogger(logger Logger) RegisterHandlerOption {
	return func(h *RegisterAccountHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRegisterActivitySink sets the audit sink.
func WithRegisterActivitySink(sink ActivitySink) RegisterHandlerOption {
	return func(h *RegisterAccountHandler) {
		h.sink = normalizeActivitySink(sink)
	}
}

// WithRegisterClock injects a custom clock (useful for tests).
func WithRegisterClock(clock func() time.Time) RegisterHandlerOption {
	return func(h *RegisterAccountHandler) {
		if clock != nil {
			h.now = clock
		}
	}
}

// NewRegisterAccountHandler wires the registration command.
func NewRegisterAccountHandler(lifecycle *Lifecycle, tokens *ActivationTokenEngine, mailer Mailer, emails *ActivationEmailBuilder, cfg Config, opts ...RegisterHandlerOption) *RegisterAccountHandler {
	h := &RegisterAccountHandler{
		lifecycle: lifecycle,
		tokens:    tokens,
		mailer:    mailer,
		emails:    emails,
		cfg:       cfg,
		logger:    defLogger{},
		sink:      noopActivitySink{},
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if !h.cfg.RegistrationOpen {
		return ErrRegistrationClosed
	}

	if h.cfg.SpamProtection && event.Honeypot {
		// Same message the form renders for humans that tick it by mistake.
		return goerrors.New("doh! you are a robot", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration input")
	}

	email := NormalizeEmail(event.Email)

	if err := h.cfg.EmailDomains.Validate(email); err != nil {
		return err
	}

	if err := h.cfg.Password.Validate(event.Password); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	createOpts := []CreateOption{WithName(event.FirstName, event.LastName)}
	if event.UseDeterministicID {
		createOpts = append(createOpts, WithDeterministicID())
	}

	account, err := h.lifecycle.Create(ctx, email, event.Password, createOpts...)
	if err != nil {
		return err
	}

	h.recordActivity(ctx, ActivityEventRegistered, account, nil)

	if account.IsPending() && h.cfg.VerifyEmail {
		h.sendActivationEmail(ctx, account)
	}

	if event.OnAccount != nil {
		event.OnAccount(account)
	}

	return nil
}

// sendActivationEmail is best-effort by contract: registration must succeed
// even when mail delivery does not.
func (h *RegisterAccountHandler) sendActivationEmail(ctx context.Context, account *Account) {
	token := h.tokens.MakeToken(account)

	subject, body, htmlBody, err := h.emails.Build(account, token)
	if err != nil {
		h.logger.Error("failed to build activation email", "email", account.Email, "error", err)
		h.recordActivity(ctx, ActivityEventActivationMailFailure, account, map[string]any{"stage": "build"})
		return
	}

	if err := h.mailer.Send(ctx, account.Email, subject, body, htmlBody); err != nil {
		h.logger.Error("failed to send activation email", "email", account.Email, "error", err)
		h.recordActivity(ctx, ActivityEventActivationMailFailure, account, map[string]any{"stage": "send"})
		return
	}

	h.recordActivity(ctx, ActivityEventActivationMailSent, account, nil)
}

func (h *RegisterAccountHandler) recordActivity(ctx context.Context, eventType ActivityEventType, account *Account, meta map[string]any) {
	err := h.sink.Record(ctx, ActivityEvent{
		EventType:  eventType,
		Actor:      SystemActor,
		AccountID:  account.ID.String(),
		ToStatus:   account.Status,
		Metadata:   meta,
		OccurredAt: h.now(),
	})
	if err != nil {
		h.logger.Error("failed to record registration activity", "account_id", account.ID.String(), "error", err)
	}
}
