package users_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	users "github.com/goliatone/go-users"
)

func timeNowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// MockAccountStore implements users.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*users.Account, error) {
	args := m.Called(ctx, email)
	acc, _ := args.Get(0).(*users.Account)
	return acc, args.Error(1)
}

func (m *MockAccountStore) FindByEmailUnscoped(ctx context.Context, email string) (*users.Account, error) {
	args := m.Called(ctx, email)
	acc, _ := args.Get(0).(*users.Account)
	return acc, args.Error(1)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*users.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*users.Account)
	return acc, args.Error(1)
}

func (m *MockAccountStore) CreateAccount(ctx context.Context, account *users.Account) (*users.Account, error) {
	args := m.Called(ctx, account)
	acc, _ := args.Get(0).(*users.Account)
	return acc, args.Error(1)
}

func (m *MockAccountStore) UpdateStatus(ctx context.Context, id uuid.UUID, status users.AccountStatus) (*users.Account, error) {
	args := m.Called(ctx, id, status)
	acc, _ := args.Get(0).(*users.Account)
	return acc, args.Error(1)
}

func (m *MockAccountStore) Activate(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountStore) TrackSuccessfulLogin(ctx context.Context, account *users.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockMailer implements users.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body, htmlBody string) error {
	args := m.Called(ctx, to, subject, body, htmlBody)
	return args.Error(0)
}

// memStore is a map backed AccountStore for flow tests. It reproduces the
// store contract, including the duplicate-email rejection and the
// compare-and-swap activation.
type memStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*users.Account
	loginNow func() // optional hook invoked on TrackSuccessfulLogin
}

func newMemStore() *memStore {
	return &memStore{byID: map[uuid.UUID]*users.Account{}}
}

func (s *memStore) clone(a *users.Account) *users.Account {
	cp := *a
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		cp.LastLoginAt = &t
	}
	return &cp
}

func (s *memStore) FindByEmail(ctx context.Context, email string) (*users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Email == users.NormalizeEmail(email) && a.DeletedAt == nil {
			return s.clone(a), nil
		}
	}
	return nil, users.ErrAccountNotFound
}

func (s *memStore) FindByEmailUnscoped(ctx context.Context, email string) (*users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Email == users.NormalizeEmail(email) {
			return s.clone(a), nil
		}
	}
	return nil, users.ErrAccountNotFound
}

func (s *memStore) FindByID(ctx context.Context, id uuid.UUID) (*users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		return s.clone(a), nil
	}
	return nil, users.ErrAccountNotFound
}

func (s *memStore) CreateAccount(ctx context.Context, account *users.Account) (*users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Email == account.Email {
			return nil, users.ErrDuplicateEmail
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	s.byID[account.ID] = s.clone(account)
	return s.clone(account), nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, status users.AccountStatus) (*users.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, users.ErrAccountNotFound
	}
	a.Status = status
	return s.clone(a), nil
}

func (s *memStore) Activate(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok || a.Status != users.AccountStatusPending {
		return false, nil
	}
	a.Status = users.AccountStatusActive
	return true, nil
}

func (s *memStore) TrackSuccessfulLogin(ctx context.Context, account *users.Account) error {
	s.mu.Lock()
	a, ok := s.byID[account.ID]
	if ok {
		now := timeNowUTC()
		a.LastLoginAt = &now
		account.LastLoginAt = &now
	}
	hook := s.loginNow
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// captureSink records every activity event it sees.
type captureSink struct {
	mu     sync.Mutex
	events []users.ActivityEvent
}

func (c *captureSink) Record(ctx context.Context, event users.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) byType(t users.ActivityEventType) []users.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []users.ActivityEvent
	for _, e := range c.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
