package users

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivateAccountSQL is the compare-and-swap that closes the duplicate
// activation race: only a pending account flips, and the row count tells the
// caller whether this request won.
var ActivateAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"status" = 'active',
	"updated_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND "acc"."status" = 'pending'
AND (
	"acc"."id" = ?
);`

// Accounts is the bun backed account repository. It exposes the generic
// repository surface for hosts plus the domain operations of AccountStore,
// so an Accounts value can be handed anywhere an AccountStore is expected.
type Accounts interface {
	repository.Repository[*Account]

	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	FindByEmailUnscoped(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	CreateAccount(ctx context.Context, record *Account) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	Activate(ctx context.Context, id uuid.UUID) (bool, error)
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ AccountStore                    = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// NewAccountsRepository wires the generic repository handlers for Account.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, decorate(ErrAccountNotFound, map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

// FindByEmailUnscoped ignores the soft-delete filter. Bootstrap needs the
// unfiltered view so a previously provisioned admin is never duplicated.
func (a *accounts) FindByEmailUnscoped(ctx context.Context, email string) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		WhereAllWithDeleted().
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, decorate(ErrAccountNotFound, map[string]any{"email": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	record := &Account{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, decorate(ErrAccountNotFound, map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

// CreateAccount is the narrow insert AccountStore asks for. It rides the same
// path as Create so defaults and duplicate mapping apply either way.
func (a *accounts) CreateAccount(ctx context.Context, record *Account) (*Account, error) {
	return a.Create(ctx, record)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)

	created, err := a.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, decorate(ErrDuplicateEmail, map[string]any{"email": record.Email})
		}
		return nil, err
	}

	return created, nil
}

func (a *accounts) UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) (*Account, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status)
}

func (a *accounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status AccountStatus) (*Account, error) {
	record := &Account{}
	res, err := tx.NewUpdate().
		Model(record).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	if err != nil {
		return nil, err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, decorate(ErrAccountNotFound, map[string]any{"id": id.String()})
	}

	return a.FindByID(ctx, id)
}

func (a *accounts) Activate(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.ActivateTx(ctx, a.db, id)
}

func (a *accounts) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewRaw(ActivateAccountSQL, time.Now(), id).Exec(ctx)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, account)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	loggedInAt := time.Now().UTC()
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET
			"last_login_at" = ?
		WHERE
			("acc".id = ?)
			AND "acc"."deleted_at" IS NULL;
	`, loggedInAt, account.ID).Exec(ctx)

	if err == nil {
		account.LastLoginAt = &loggedInAt
	}

	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = NormalizeEmail(record.Email)
	record.EnsureStatus()
	record.EnsureKind()

	if record.DateJoined.IsZero() {
		record.DateJoined = time.Now().UTC()
	}
}

// isUniqueViolation recognizes duplicate-key failures across the dialects we
// test and deploy against (sqlite and postgres).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "constraint failed: accounts.email")
}
