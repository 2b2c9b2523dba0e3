package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Comments is the content store for comments.
type Comments interface {
	GetByCommentID(ctx context.Context, id uuid.UUID) (*Comment, error)
	Create(ctx context.Context, record *Comment) (*Comment, error)
	Update(ctx context.Context, record *Comment) (*Comment, error)
	Delete(ctx context.Context, record *Comment) error

	ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*Comment, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Comment, error)
	ListPublishedByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Comment, error)
}

type comments struct {
	db *bun.DB
}

var _ Comments = (*comments)(nil)

func NewCommentsRepository(db *bun.DB) Comments {
	return &comments{db: db}
}

func (c *comments) GetByCommentID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	record := &Comment{}
	err := c.db.NewSelect().
		Model(record).
		Relation("Author").
		Relation("Post").
		Where("?TableAlias.id = ?", id.String()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (c *comments) Create(ctx context.Context, record *Comment) (*Comment, error) {
	if record == nil {
		return nil, errors.New("comment record is required")
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Active = true

	_, err := c.db.NewInsert().
		Model(record).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (c *comments) Update(ctx context.Context, record *Comment) (*Comment, error) {
	if record == nil {
		return nil, errors.New("comment record is required")
	}

	_, err := c.db.NewUpdate().
		Model(record).
		WherePK().
		OmitZero().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (c *comments) Delete(ctx context.Context, record *Comment) error {
	if record == nil {
		return nil
	}

	_, err := c.db.NewDelete().
		Model(record).
		WherePK().
		Exec(ctx)
	return err
}

func (c *comments) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*Comment, error) {
	var records []*Comment
	err := c.db.NewSelect().
		Model(&records).
		Relation("Author").
		Where("?TableAlias.post_id = ?", postID.String()).
		Where("?TableAlias.active = ?", true).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (c *comments) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Comment, error) {
	var records []*Comment
	err := c.db.NewSelect().
		Model(&records).
		Where("?TableAlias.author_id = ?", authorID.String()).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListPublishedByAuthor restricts the author's comments to those on
// published posts, matching what an anonymous reader may see.
func (c *comments) ListPublishedByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Comment, error) {
	var records []*Comment
	err := c.db.NewSelect().
		Model(&records).
		Join("JOIN posts AS pst ON pst.id = ?TableAlias.post_id").
		Where("?TableAlias.author_id = ?", authorID.String()).
		Where("pst.status = ?", string(PostStatusPublished)).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}
