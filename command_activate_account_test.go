package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	users "github.com/goliatone/go-users"
)

func newActivateFixture(cfg users.Config) (*users.ActivateAccountHandler, *memStore, *captureSink) {
	store := newMemStore()
	sink := &captureSink{}
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	handler := users.NewActivateAccountHandler(store, engine, cfg,
		users.WithActivateActivitySink(sink))
	return handler, store, sink
}

func seedPending(t *testing.T, store *memStore, email string) *users.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), &users.Account{
		ID:     uuid.New(),
		Email:  email,
		Status: users.AccountStatusPending,
	})
	require.NoError(t, err)
	return account
}

func TestActivateHappyPath(t *testing.T) {
	cfg := verifyingConfig()
	handler, store, sink := newActivateFixture(cfg)

	account := seedPending(t, store, "user@example.com")
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	token := engine.MakeToken(account)

	var activated *users.Account
	err := handler.Execute(context.Background(), users.ActivateAccountMessage{
		AccountID:   account.ID.String(),
		Token:       token,
		OnActivated: func(a *users.Account) { activated = a },
	})
	require.NoError(t, err)

	require.NotNil(t, activated)
	assert.True(t, activated.IsActive())

	stored, err := store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
	assert.NotNil(t, stored.LastLoginAt, "auto login must stamp last_login_at")

	assert.Len(t, sink.byType(users.ActivityEventActivated), 1)
}

func TestActivateTokenRetiredByAutoLogin(t *testing.T) {
	cfg := verifyingConfig()
	handler, store, _ := newActivateFixture(cfg)

	account := seedPending(t, store, "user@example.com")
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	token := engine.MakeToken(account)

	msg := users.ActivateAccountMessage{AccountID: account.ID.String(), Token: token}

	require.NoError(t, handler.Execute(context.Background(), msg))

	// The auto login changed the fingerprint the token was signed over.
	err := handler.Execute(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrActivationFailed)
}

func TestActivateIdempotentWithoutAutoLogin(t *testing.T) {
	cfg := verifyingConfig()
	cfg.AutoLoginOnActivation = false
	handler, store, _ := newActivateFixture(cfg)

	account := seedPending(t, store, "user@example.com")
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	token := engine.MakeToken(account)

	msg := users.ActivateAccountMessage{AccountID: account.ID.String(), Token: token}

	require.NoError(t, handler.Execute(context.Background(), msg))

	stored, err := store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastLoginAt)

	// Token still verifies; the account is already active so this is a no-op.
	var again *users.Account
	msg.OnActivated = func(a *users.Account) { again = a }
	require.NoError(t, handler.Execute(context.Background(), msg))
	require.NotNil(t, again)
	assert.True(t, again.IsActive())
}

func TestActivateDeactivatedAccountStaysOff(t *testing.T) {
	cfg := verifyingConfig()
	handler, store, _ := newActivateFixture(cfg)

	account := seedPending(t, store, "user@example.com")
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	token := engine.MakeToken(account)

	_, err := store.UpdateStatus(context.Background(), account.ID, users.AccountStatusDeactivated)
	require.NoError(t, err)

	err = handler.Execute(context.Background(), users.ActivateAccountMessage{
		AccountID: account.ID.String(),
		Token:     token,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrActivationFailed)

	stored, err := store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeactivated())
}

func TestActivateCollapsesFailures(t *testing.T) {
	cfg := verifyingConfig()
	handler, store, sink := newActivateFixture(cfg)

	account := seedPending(t, store, "user@example.com")
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	token := engine.MakeToken(account)

	tests := []struct {
		name string
		msg  users.ActivateAccountMessage
	}{
		{"unparseable id", users.ActivateAccountMessage{AccountID: "not-a-uuid", Token: token}},
		{"unknown account", users.ActivateAccountMessage{AccountID: uuid.NewString(), Token: token}},
		{"malformed token", users.ActivateAccountMessage{AccountID: account.ID.String(), Token: "garbage"}},
		{"forged token", users.ActivateAccountMessage{AccountID: account.ID.String(), Token: "abc-0123456789abcdef0123456789abcdef"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := handler.Execute(context.Background(), tc.msg)
			require.Error(t, err)
			assert.ErrorIs(t, err, users.ErrActivationFailed)
		})
	}

	stored, err := store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPending(), "failed attempts must not change account state")
	assert.Empty(t, sink.byType(users.ActivityEventActivated))
}

func TestActivateExpiredToken(t *testing.T) {
	cfg := verifyingConfig()

	store := newMemStore()
	account := seedPending(t, store, "user@example.com")

	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	token := engineAt(issued, cfg.ActivationTimeoutDays).MakeToken(account)

	// The handler verifies with a clock past the window.
	verifyEngine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays,
		users.WithTokenClock(func() time.Time {
			return issued.AddDate(0, 0, cfg.ActivationTimeoutDays+1)
		}))
	handler := users.NewActivateAccountHandler(store, verifyEngine, cfg)

	err := handler.Execute(context.Background(), users.ActivateAccountMessage{
		AccountID: account.ID.String(),
		Token:     token,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, users.ErrActivationFailed)
}

func TestActivateConcurrentRequestsSingleWinner(t *testing.T) {
	cfg := verifyingConfig()
	cfg.AutoLoginOnActivation = false
	handler, store, sink := newActivateFixture(cfg)

	account := seedPending(t, store, "user@example.com")
	engine := users.NewActivationTokenEngine(cfg.SigningKey, cfg.ActivationTimeoutDays)
	token := engine.MakeToken(account)

	msg := users.ActivateAccountMessage{AccountID: account.ID.String(), Token: token}

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			errs <- handler.Execute(context.Background(), msg)
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}

	stored, err := store.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
	assert.Len(t, sink.byType(users.ActivityEventActivated), 1, "only the winning request records the activity")
}

func TestActivateCancelledContext(t *testing.T) {
	cfg := verifyingConfig()
	handler, _, _ := newActivateFixture(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := handler.Execute(ctx, users.ActivateAccountMessage{
		AccountID: uuid.NewString(),
		Token:     "irrelevant",
	})
	require.Error(t, err)
}
