package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RefreshTokens persists the single live refresh credential per user.
// The user_id column carries a unique constraint, so SaveForUser can
// upsert atomically and two concurrent logins for the same principal
// converge on one row.
type RefreshTokens interface {
	RefreshTokenStore

	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type refreshTokens struct {
	db *bun.DB
}

var (
	_ RefreshTokens     = (*refreshTokens)(nil)
	_ RefreshTokenStore = (*refreshTokens)(nil)
)

func NewRefreshTokensRepository(db *bun.DB) RefreshTokens {
	return &refreshTokens{db: db}
}

func (r *refreshTokens) GetByUser(ctx context.Context, userID uuid.UUID) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) GetByToken(ctx context.Context, token string) (*RefreshToken, error) {
	record := &RefreshToken{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

// SaveForUser inserts the record, replacing any row the user already
// holds. Replacing rather than failing keeps login idempotent when an
// expired credential is still on file.
func (r *refreshTokens) SaveForUser(ctx context.Context, record *RefreshToken) (*RefreshToken, error) {
	if record == nil {
		return nil, errors.New("refresh token record is required")
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	// RETURNING scans the surviving row back into record: on conflict
	// the row keeps its original id, not the one generated above.
	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (user_id) DO UPDATE").
		Set("token = EXCLUDED.token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *refreshTokens) Delete(ctx context.Context, record *RefreshToken) error {
	if record == nil {
		return nil
	}

	_, err := r.db.NewDelete().
		Model(record).
		WherePK().
		Exec(ctx)
	return err
}

func (r *refreshTokens) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.user_id = ?", userID.String()).
		Exec(ctx)
	return err
}

// DeleteExpired sweeps rows whose expiry precedes the given instant.
// Expired rows are otherwise removed lazily on presentation, so this is
// housekeeping rather than a correctness requirement.
func (r *refreshTokens) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*RefreshToken)(nil)).
		Where("?TableAlias.expires_at <= ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
