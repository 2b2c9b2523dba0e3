package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	RefreshTokens() RefreshTokens
	Posts() Posts
	Comments() Comments
}

type mngr struct {
	db            *bun.DB
	users         Users
	refreshTokens RefreshTokens
	posts         Posts
	comments      Comments
}

// ManagerOption configures the repository manager.
type ManagerOption func(*mngr)

// WithManagerActivitySink propagates an activity sink to the stores
// that publish lifecycle events.
func WithManagerActivitySink(sink ActivitySink) ManagerOption {
	return func(m *mngr) {
		m.users = NewUsersRepository(m.db, WithUsersActivitySink(sink))
		m.posts = NewPostsRepository(m.db, WithPostsActivitySink(sink))
	}
}

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:            db,
		users:         NewUsersRepository(db),
		refreshTokens: NewRefreshTokensRepository(db),
		posts:         NewPostsRepository(db),
		comments:      NewCommentsRepository(db),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.refreshTokens == nil {
		return errors.New("repository refreshTokens should be initialized")
	}

	if m.posts == nil {
		return errors.New("repository posts should be initialized")
	}

	if m.comments == nil {
		return errors.New("repository comments should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) RefreshTokens() RefreshTokens {
	return m.refreshTokens
}

func (m mngr) Posts() Posts {
	return m.posts
}

func (m mngr) Comments() Comments {
	return m.comments
}
