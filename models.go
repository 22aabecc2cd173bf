package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle status of an account
type AccountStatus = string

const (
	// AccountStatusPending means the account was created but the email
	// address has not been confirmed yet
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive is a fully usable account
	AccountStatusActive AccountStatus = "active"
	// AccountStatusDeactivated is an account switched off by an admin.
	// The activation token flow never moves accounts out of this status.
	AccountStatusDeactivated AccountStatus = "deactivated"
)

// AccountKind tags an account with its concrete type so admin surfaces can
// group accounts without runtime type discovery.
type AccountKind = string

const (
	KindUser      AccountKind = "user"
	KindCustomer  AccountKind = "customer"
	KindSuperuser AccountKind = "superuser"
)

// KindInfo carries display metadata for an AccountKind.
type KindInfo struct {
	Label       string
	Description string
}

var kindRegistry = map[AccountKind]KindInfo{
	KindUser:      {Label: "User", Description: "Regular account"},
	KindCustomer:  {Label: "Customer", Description: "Customer account"},
	KindSuperuser: {Label: "Superuser", Description: "Administrative account"},
}

// LookupKind returns display metadata for the given kind.
func LookupKind(kind AccountKind) (KindInfo, bool) {
	info, ok := kindRegistry[kind]
	return info, ok
}

// RegisterKind adds or replaces display metadata for a kind. Hosts that
// extend the account model with their own kinds register them at startup.
func RegisterKind(kind AccountKind, info KindInfo) {
	kindRegistry[kind] = info
}

// Account is the user account model. The email address is the natural key,
// there is no separate username.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string        `bun:"email,notnull,unique" json:"email,omitempty"`
	Kind          AccountKind   `bun:"kind,notnull" json:"kind,omitempty"`
	FirstName     string        `bun:"first_name" json:"first_name,omitempty"`
	LastName      string        `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash  string        `bun:"password_hash" json:"password_hash,omitempty"`
	Status        AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	IsStaff       bool          `bun:"is_staff" json:"is_staff,omitempty"`
	IsSuperuser   bool          `bun:"is_superuser" json:"is_superuser,omitempty"`
	LastLoginAt   *time.Time    `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	DateJoined    time.Time     `bun:"date_joined,notnull" json:"date_joined,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the zero value so records created before the status
// column existed still move through the state machine.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusPending
	}
}

// EnsureKind backfills the default kind tag.
func (a *Account) EnsureKind() {
	if a.Kind == "" {
		a.Kind = KindUser
	}
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsPending reports whether the account still awaits email confirmation.
func (a *Account) IsPending() bool {
	a.EnsureStatus()
	return a.Status == AccountStatusPending
}

// IsDeactivated reports whether an admin switched the account off.
func (a *Account) IsDeactivated() bool {
	return a.Status == AccountStatusDeactivated
}

// FullName joins the optional profile names.
func (a *Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
// The normalized form is the account's unique key: it is applied before
// storage and before every comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
