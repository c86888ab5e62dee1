package auth

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

var resetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// Users is the durable credential store plus the login bookkeeping the HTTP
// layer records after a successful authentication.
type Users interface {
	CredentialStore

	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users           = (*users)(nil)
	_ CredentialStore = (*users)(nil)
)

// NewUsersRepository returns the Bun-backed credential store.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, translateStoreError(err)
	}

	return record, nil
}

func (a *users) FindByEmailOrUsername(ctx context.Context, email, username string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.email = ?", NormalizeEmail(email)).
				WhereOr("?TableAlias.username = ?", NormalizeUsername(username))
		}).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, translateStoreError(err)
	}

	return record, nil
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, translateStoreError(err)
	}

	return record, nil
}

func (a *users) FindByRole(ctx context.Context, role UserRole) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_role = ?", role).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, translateStoreError(err)
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record)

	created, err := a.Repository.Create(ctx, record)
	if err != nil {
		return nil, translateStoreError(err)
	}

	return created, nil
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := a.db.NewRaw(resetUserPasswordSQL, passwordHash, time.Now(), id).Exec(ctx)
	if err != nil {
		return translateStoreError(err)
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: raw update so a stale struct can't clobber unrelated columns
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET "loggedin_at" = ?
		WHERE ("usr".id = ?);
	`, time.Now(), user.ID).Exec(ctx)

	if err != nil {
		return translateStoreError(err)
	}

	return nil
}

// translateStoreError maps driver failures onto the CredentialStore error
// contract. Timeouts and connection loss become ErrStoreUnavailable so the
// caller can fall back; uniqueness violations become ErrDuplicateIdentity.
func translateStoreError(err error) error {
	if err == nil {
		return nil
	}

	if repository.IsRecordNotFound(err) || stderrors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}

	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}

	if isConnectionFailure(err) {
		return ErrStoreUnavailable.Clone().
			WithMetadata(map[string]any{"cause": err.Error()})
	}

	return goerrors.Wrap(err, goerrors.CategoryInternal, "credential store query failed")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	// sqlite (sqliteshim) reports constraint failures by message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isConnectionFailure(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return true
	}

	if stderrors.Is(err, sql.ErrConnDone) || stderrors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	return stderrors.As(err, &netErr)
}
