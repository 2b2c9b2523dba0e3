package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes exposed to response mappers. One stable code per failure
// kind; an unrecognized internal error must still map to a generic
// failure rather than leak internals.
const (
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeAccountNotUsable     = "ACCOUNT_NOT_USABLE"
	TextCodeUnauthenticated      = "UNAUTHENTICATED"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodePrincipalNotFound    = "PRINCIPAL_NOT_FOUND"
	TextCodeRefreshTokenNotFound = "REFRESH_TOKEN_NOT_FOUND"
	TextCodeRefreshTokenExpired  = "REFRESH_TOKEN_EXPIRED"
	TextCodeTokenInvalid         = "TOKEN_INVALID"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodePostNotCommentable   = "POST_NOT_COMMENTABLE"
	TextCodeIdentifierTaken      = "IDENTIFIER_TAKEN"
)

// ErrInvalidCredentials is returned for a bad username/password pair.
// Unknown user and wrong password collapse into this one error so the
// login endpoint cannot be used to enumerate accounts.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNotUsable is returned when credentials verify but the
// account status forbids login.
var ErrAccountNotUsable = goerrors.New("account is not usable", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountNotUsable).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is returned when no credential was supplied where
// one is required.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when an authenticated principal lacks
// ownership or the admin role.
var ErrForbidden = goerrors.New("access denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrPrincipalNotFound is returned when a credential names a principal
// that no longer exists. Access tokens outlive account deletion, so
// this is an expected path.
var ErrPrincipalNotFound = goerrors.New("principal not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodePrincipalNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRefreshTokenNotFound is returned when a presented refresh token
// has no backing record.
var ErrRefreshTokenNotFound = goerrors.New("refresh token not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshTokenNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshTokenExpired is returned after the expired record has been
// deleted; the caller must re-authenticate via login.
var ErrRefreshTokenExpired = goerrors.New("refresh token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeRefreshTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid is the single caller-visible verification failure.
// The specific sub-kind (signature, malformed, unsupported) is logged
// where verification happens.
var ErrTokenInvalid = goerrors.New("token is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is the expiry verification failure. Kept distinct
// from ErrTokenInvalid because callers react differently (refresh vs
// re-login).
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// Verification sub-kinds. Collapsed to ErrTokenInvalid at the resolver
// boundary but distinguished here so logs carry the real cause.
var (
	ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(goerrors.CodeUnauthorized)

	ErrTokenSignature = goerrors.New("token signature is invalid", goerrors.CategoryAuth).
				WithTextCode("TOKEN_BAD_SIGNATURE").
				WithCode(goerrors.CodeUnauthorized)

	ErrTokenUnsupported = goerrors.New("token uses an unsupported algorithm", goerrors.CategoryAuth).
				WithTextCode("TOKEN_UNSUPPORTED").
				WithCode(goerrors.CodeUnauthorized)
)

// ErrPostNotCommentable is returned when creating a comment on a post
// that is not published.
var ErrPostNotCommentable = goerrors.New("cannot comment on an unpublished post", goerrors.CategoryValidation).
	WithTextCode(TextCodePostNotCommentable).
	WithCode(goerrors.CodeBadRequest)

// ErrIdentifierTaken is returned at registration when the username or
// email is already in use.
var ErrIdentifierTaken = goerrors.New("username or email already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeIdentifierTaken).
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryBadInput).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the bcrypt comparison failure.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth).
	WithTextCode("PASSWORD_MISMATCH").
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError checks for expired tokens, including legacy
// string-matched errors from jwt middleware.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsTokenInvalidError reports whether err is any of the non-expiry
// verification failures.
func IsTokenInvalidError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrTokenInvalid) ||
		goerrors.Is(err, ErrTokenMalformed) ||
		goerrors.Is(err, ErrTokenSignature) ||
		goerrors.Is(err, ErrTokenUnsupported)
}

func statusAuthError(status UserStatus) error {
	if status.CanLogin() {
		return nil
	}
	return ErrAccountNotUsable
}
