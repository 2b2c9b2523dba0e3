package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var UpdateUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"updated_at" = current_timestamp
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users is the credential store surface for principals.
type Users interface {
	repository.Repository[*User]

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error)
	Activate(ctx context.Context, id uuid.UUID) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*User, error)
	Suspend(ctx context.Context, id uuid.UUID) (*User, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	DeleteUser(ctx context.Context, user *User) error
	ListByStatus(ctx context.Context, status UserStatus, limit, offset int) ([]*User, error)
}

type users struct {
	repository.Repository[*User]
	db    *bun.DB
	now   func() time.Time
	sink  ActivitySink
	loggr Logger
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ UserStore                    = (*users)(nil)
)

// UsersOption configures the users repository.
type UsersOption func(*users)

// WithUsersActivitySink wires a sink for account lifecycle events.
func WithUsersActivitySink(sink ActivitySink) UsersOption {
	return func(u *users) {
		u.sink = normalizeActivitySink(sink)
	}
}

// WithUsersClock overrides the time source, mainly for tests.
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

// WithUsersLogger sets the logger used for best-effort failures.
func WithUsersLogger(logger Logger) UsersOption {
	return func(u *users) {
		if logger != nil {
			u.loggr = logger
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
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
		GetIdentifier: func() string {
			return "username"
		},
	})

	store := &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
		sink:       noopActivitySink{},
		loggr:      defLogger{},
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.getByColumn(ctx, "username", strings.TrimSpace(username))
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.getByColumn(ctx, "email", strings.TrimSpace(email))
}

func (a *users) GetByUserID(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.getByColumn(ctx, "id", id.String())
}

func (a *users) getByColumn(ctx context.Context, column, value string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{column: value})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Exists(ctx)
}

func (a *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Exists(ctx)
}

func (a *users) UpdateStatus(ctx context.Context, id uuid.UUID, status UserStatus) (*User, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status)
}

// UpdateStatusTx moves the account between lifecycle statuses. Any
// status may follow any other: suspensions lift, deactivated accounts
// reactivate, pending accounts go straight to suspended.
func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status UserStatus) (*User, error) {
	current, err := a.GetByUserID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := current.Status
	record := &User{
		ID:     id,
		Status: status,
	}

	updated, err := a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, err
	}

	a.recordStatusChange(ctx, id, from, status)

	return updated, nil
}

func (a *users) Activate(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.UpdateStatus(ctx, id, UserStatusActive)
}

func (a *users) Deactivate(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.UpdateStatus(ctx, id, UserStatusInactive)
}

func (a *users) Suspend(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.UpdateStatus(ctx, id, UserStatusSuspended)
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, UpdateUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

// DeleteUser soft-deletes the account. Token records are not cascaded:
// outstanding access tokens die at expiry and the refresh row is
// removed lazily the next time it is presented.
func (a *users) DeleteUser(ctx context.Context, user *User) error {
	_, err := a.db.NewDelete().
		Model(user).
		WherePK().
		Exec(ctx)
	return err
}

func (a *users) ListByStatus(ctx context.Context, status UserStatus, limit, offset int) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", string(status)).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *users) recordStatusChange(ctx context.Context, id uuid.UUID, from, to UserStatus) {
	if from == to {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		UserID:     id.String(),
		FromStatus: string(from),
		ToStatus:   string(to),
		OccurredAt: a.now(),
	}

	if err := a.sink.Record(ctx, event); err != nil {
		a.loggr.Warn("activity sink rejected status event: %v", err)
	}
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleUser
	}

	record.EnsureStatus()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
