package auth

import (
	"github.com/google/uuid"
)

// Authorization predicates. All of them are pure functions over the
// resolved principal and the target resource's current state: nothing
// is cached between calls, so unpublishing a post immediately
// restricts its comments.

// IsAdmin reports whether the principal holds the admin role.
func IsAdmin(principal *User) bool {
	return principal != nil && principal.Role == RoleAdmin
}

// IsSelf reports whether the principal is the user identified by
// targetID.
func IsSelf(principal *User, targetID uuid.UUID) bool {
	return principal != nil && principal.ID == targetID
}

// CheckOwnershipOrAdmin gates mutation of any owned resource. A nil
// principal is unauthenticated; anyone who is neither the owner nor an
// admin is forbidden.
func CheckOwnershipOrAdmin(principal *User, ownerID uuid.UUID) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if principal.ID == ownerID || IsAdmin(principal) {
		return nil
	}
	return ErrForbidden
}

// CanViewPost reports whether viewer may read the post. Published
// posts are visible to everyone, including unauthenticated viewers;
// drafts and archived posts only to the author or an admin.
func CanViewPost(viewer *User, post *Post) bool {
	if post == nil {
		return false
	}
	if post.Status.IsVisible() {
		return true
	}
	return IsSelf(viewer, post.AuthorID) || IsAdmin(viewer)
}

// CheckCanViewPost is CanViewPost as a gate, distinguishing
// unauthenticated from forbidden.
func CheckCanViewPost(viewer *User, post *Post) error {
	if CanViewPost(viewer, post) {
		return nil
	}
	if viewer == nil {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// CanViewComment reports whether viewer may read a comment on the
// given post. Comments inherit the post's visibility; on an
// unpublished post only the post's author, the comment's own author,
// or an admin may read it.
func CanViewComment(viewer *User, comment *Comment, post *Post) bool {
	if comment == nil || post == nil {
		return false
	}
	if post.Status.IsVisible() {
		return true
	}
	if viewer == nil {
		return false
	}
	return IsSelf(viewer, post.AuthorID) ||
		IsSelf(viewer, comment.AuthorID) ||
		IsAdmin(viewer)
}

// CheckCanViewComment is CanViewComment as a gate.
func CheckCanViewComment(viewer *User, comment *Comment, post *Post) error {
	if CanViewComment(viewer, comment, post) {
		return nil
	}
	if viewer == nil {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// CanViewFullProfile reports whether viewer may read the target user's
// full record. Everyone else gets the PublicProfile projection.
func CanViewFullProfile(viewer, target *User) bool {
	if target == nil {
		return false
	}
	return IsSelf(viewer, target.ID) || IsAdmin(viewer)
}

// CanComment reports whether the principal may comment on the post.
// Comments attach only to published posts, and only active users may
// author content.
func CanComment(principal *User, post *Post) error {
	if principal == nil {
		return ErrUnauthenticated
	}
	if !principal.Status.CanPost() {
		return ErrForbidden
	}
	if post == nil || !post.Status.IsPublished() {
		return ErrPostNotCommentable
	}
	return nil
}
