package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's global role
type UserRole = string

const (
	// RoleUser is a regular registered user
	RoleUser UserRole = "user"
	// RoleAdmin is a platform administrator
	RoleAdmin UserRole = "admin"
)

// UserStatus is the user's lifecycle status
type UserStatus string

const (
	// UserStatusActive may authenticate and post
	UserStatusActive UserStatus = "active"
	// UserStatusInactive was deactivated by an admin
	UserStatusInactive UserStatus = "inactive"
	// UserStatusSuspended is temporarily barred from the platform
	UserStatusSuspended UserStatus = "suspended"
	// UserStatusPending has registered but is not yet activated
	UserStatusPending UserStatus = "pending"
)

// IsActive reports whether the status is active.
func (s UserStatus) IsActive() bool {
	return s == UserStatusActive
}

// IsPending reports whether the account awaits activation.
func (s UserStatus) IsPending() bool {
	return s == UserStatusPending
}

// IsSuspended reports whether the account is suspended.
func (s UserStatus) IsSuspended() bool {
	return s == UserStatusSuspended
}

// CanLogin reports whether a user in this status may authenticate.
// Only active accounts may login.
func (s UserStatus) CanLogin() bool {
	return s == UserStatusActive
}

// CanPost reports whether a user in this status may author content.
func (s UserStatus) CanPost() bool {
	return s == UserStatusActive
}

// IsValid checks the status against the closed set of known statuses.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended, UserStatusPending:
		return true
	default:
		return false
	}
}

// PostStatus is the publication status of a post
type PostStatus string

const (
	// PostStatusDraft is not publicly visible
	PostStatusDraft PostStatus = "draft"
	// PostStatusPublished is visible to everyone
	PostStatusPublished PostStatus = "published"
	// PostStatusArchived is no longer publicly visible
	PostStatusArchived PostStatus = "archived"
)

// IsPublished reports whether the post is published.
func (s PostStatus) IsPublished() bool {
	return s == PostStatusPublished
}

// IsDraft reports whether the post is a draft.
func (s PostStatus) IsDraft() bool {
	return s == PostStatusDraft
}

// IsVisible reports whether the post is visible to the public.
// Only published posts are; drafts and archived posts fall back to
// the ownership rules in policy.go.
func (s PostStatus) IsVisible() bool {
	return s == PostStatusPublished
}

// IsValid checks the status against the closed set of known statuses.
func (s PostStatus) IsValid() bool {
	switch s {
	case PostStatusDraft, PostStatusPublished, PostStatusArchived:
		return true
	default:
		return false
	}
}

// User is the principal model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Bio           string     `bun:"bio" json:"bio,omitempty"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults an empty status to active so legacy rows keep
// authenticating.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FullName returns the display name, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

// PublicUser is the reduced profile view exposed to principals that
// are neither the owner nor an admin.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	FullName string    `json:"full_name,omitempty"`
	Bio      string    `json:"bio,omitempty"`
}

// PublicProfile projects a user into its reduced public view.
func PublicProfile(u *User) PublicUser {
	if u == nil {
		return PublicUser{}
	}
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName(),
		Bio:      u.Bio,
	}
}

// Post is the content model
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:pst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string     `bun:"title,notnull" json:"title,omitempty"`
	Content       string     `bun:"content,notnull" json:"content,omitempty"`
	Summary       string     `bun:"summary" json:"summary,omitempty"`
	Status        PostStatus `bun:"status,notnull" json:"status,omitempty"`
	AuthorID      uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"author_id,omitempty"`
	Author        *User      `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	PublishedAt   *time.Time `bun:"published_at,nullzero" json:"published_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus defaults an empty status to draft.
func (p *Post) EnsureStatus() {
	if p.Status == "" {
		p.Status = PostStatusDraft
	}
}

// Comment belongs to a post
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Content       string     `bun:"content,notnull" json:"content,omitempty"`
	Active        bool       `bun:"active,notnull,default:true" json:"active,omitempty"`
	AuthorID      uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"author_id,omitempty"`
	Author        *User      `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	PostID        uuid.UUID  `bun:"post_id,notnull,type:uuid" json:"post_id,omitempty"`
	Post          *Post      `bun:"rel:belongs-to,join:post_id=id" json:"post,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RefreshToken is the persisted refresh credential. The user_id column
// is unique: a principal holds at most one live refresh token, and
// issuing over an expired one updates the same row.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rft"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// ExpiredAt reports whether the token is expired at the given instant.
func (r *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
