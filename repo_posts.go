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

// Posts is the content store for posts. Status transitions are
// unrestricted: any post may move between draft, published, and
// archived in either direction, and archiving is reversible.
type Posts interface {
	repository.Repository[*Post]

	GetByPostID(ctx context.Context, id uuid.UUID) (*Post, error)
	Create(ctx context.Context, record *Post, criteria ...repository.InsertCriteria) (*Post, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Post, criteria ...repository.InsertCriteria) (*Post, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status PostStatus) (*Post, error)
	Publish(ctx context.Context, id uuid.UUID) (*Post, error)
	Unpublish(ctx context.Context, id uuid.UUID) (*Post, error)
	Archive(ctx context.Context, id uuid.UUID) (*Post, error)

	ListPublished(ctx context.Context, limit, offset int) ([]*Post, error)
	ListByStatus(ctx context.Context, status PostStatus, limit, offset int) ([]*Post, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, error)
	ListByAuthorAndStatus(ctx context.Context, authorID uuid.UUID, status PostStatus, limit, offset int) ([]*Post, error)
	ListVisibleByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, error)
}

type posts struct {
	repository.Repository[*Post]
	db    *bun.DB
	now   func() time.Time
	sink  ActivitySink
	loggr Logger
}

var (
	_ Posts                        = (*posts)(nil)
	_ repository.Repository[*Post] = (*posts)(nil)
)

// PostsOption configures the posts repository.
type PostsOption func(*posts)

// WithPostsActivitySink wires a sink for post lifecycle events.
func WithPostsActivitySink(sink ActivitySink) PostsOption {
	return func(p *posts) {
		p.sink = normalizeActivitySink(sink)
	}
}

// WithPostsClock overrides the time source, mainly for tests.
func WithPostsClock(now func() time.Time) PostsOption {
	return func(p *posts) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPostsLogger sets the logger used for best-effort failures.
func WithPostsLogger(logger Logger) PostsOption {
	return func(p *posts) {
		if logger != nil {
			p.loggr = logger
		}
	}
}

func NewPostsRepository(db *bun.DB, opts ...PostsOption) Posts {
	repo := repository.NewRepository[*Post](db, repository.ModelHandlers[*Post]{
		NewRecord: func() *Post { return &Post{} },
		GetID: func(p *Post) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Post, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	store := &posts{
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

func (p *posts) GetByPostID(ctx context.Context, id uuid.UUID) (*Post, error) {
	record := &Post{}
	err := p.db.NewSelect().
		Model(record).
		Relation("Author").
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

func (p *posts) Create(ctx context.Context, record *Post, criteria ...repository.InsertCriteria) (*Post, error) {
	return p.CreateTx(ctx, p.db, record, criteria...)
}

func (p *posts) CreateTx(ctx context.Context, tx bun.IDB, record *Post, criteria ...repository.InsertCriteria) (*Post, error) {
	preparePostDefaults(record, p.now())
	return p.Repository.CreateTx(ctx, tx, record, criteria...)
}

// UpdateStatus moves the post to the given status. First publication
// stamps published_at; the stamp survives later unpublish and
// republish so the original date is kept.
func (p *posts) UpdateStatus(ctx context.Context, id uuid.UUID, status PostStatus) (*Post, error) {
	current, err := p.GetByPostID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := current.Status
	current.Status = status
	if status.IsPublished() && current.PublishedAt == nil {
		publishedAt := p.now()
		current.PublishedAt = &publishedAt
	}

	updated, err := p.Repository.UpdateTx(ctx, p.db, current, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, err
	}

	p.recordStatusChange(ctx, updated, from, status)

	return updated, nil
}

func (p *posts) Publish(ctx context.Context, id uuid.UUID) (*Post, error) {
	return p.UpdateStatus(ctx, id, PostStatusPublished)
}

func (p *posts) Unpublish(ctx context.Context, id uuid.UUID) (*Post, error) {
	return p.UpdateStatus(ctx, id, PostStatusDraft)
}

func (p *posts) Archive(ctx context.Context, id uuid.UUID) (*Post, error) {
	return p.UpdateStatus(ctx, id, PostStatusArchived)
}

func (p *posts) ListPublished(ctx context.Context, limit, offset int) ([]*Post, error) {
	return p.ListByStatus(ctx, PostStatusPublished, limit, offset)
}

func (p *posts) ListByStatus(ctx context.Context, status PostStatus, limit, offset int) ([]*Post, error) {
	var records []*Post
	err := p.db.NewSelect().
		Model(&records).
		Relation("Author").
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

// ListByAuthor returns every post by the author regardless of status.
// Callers must gate it behind CheckOwnershipOrAdmin; public readers go
// through ListVisibleByAuthor.
func (p *posts) ListByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, error) {
	var records []*Post
	err := p.db.NewSelect().
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

func (p *posts) ListByAuthorAndStatus(ctx context.Context, authorID uuid.UUID, status PostStatus, limit, offset int) ([]*Post, error) {
	var records []*Post
	err := p.db.NewSelect().
		Model(&records).
		Where("?TableAlias.author_id = ?", authorID.String()).
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

// ListVisibleByAuthor is the public view of an author's posts.
func (p *posts) ListVisibleByAuthor(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]*Post, error) {
	return p.ListByAuthorAndStatus(ctx, authorID, PostStatusPublished, limit, offset)
}

func (p *posts) recordStatusChange(ctx context.Context, post *Post, from, to PostStatus) {
	if from == to {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventPostStatusChanged,
		UserID:     post.AuthorID.String(),
		FromStatus: string(from),
		ToStatus:   string(to),
		Metadata: map[string]any{
			"post_id": post.ID.String(),
		},
		OccurredAt: p.now(),
	}

	if err := p.sink.Record(ctx, event); err != nil {
		p.loggr.Warn("activity sink rejected post event: %v", err)
	}
}

func preparePostDefaults(record *Post, now time.Time) {
	if record == nil {
		return
	}

	record.EnsureStatus()

	if record.Status.IsPublished() && record.PublishedAt == nil {
		record.PublishedAt = &now
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
