// Package auth is the identity and access layer for a blog platform:
// credential verification, JWT issuance, refresh token lifecycle, and
// the authorization policy over users, posts, and comments.
//
// Token lifecycle:
//   - SessionManager.Login verifies a username/password pair and hands
//     back an access token plus the principal's refresh token. A user
//     holds at most one live refresh token (unique user_id row); a
//     second login while one is live returns the same token.
//   - SessionManager.Refresh exchanges a refresh token for a new
//     access token. The refresh token itself is never rotated; an
//     expired one is deleted on presentation and the caller must log
//     in again.
//   - PrincipalResolver.Resolve turns a bearer credential back into
//     the current User record, re-reading storage so role and status
//     changes take effect before the token expires.
//
// Authorization:
//   - policy.go holds pure predicates: mutation of owned resources is
//     owner-or-admin, published posts are world readable, drafts and
//     archived posts fall back to ownership, comments inherit their
//     post's visibility, and commenting requires a published post.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the session
//     manager, the repositories, and the registration handler for
//     login, refresh, registration, and status change events. Sinks
//     run best-effort (errors are logged) so you can forward to a
//     database or queue without blocking authentication.
package auth
