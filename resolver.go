package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PrincipalResolver maps a bearer credential to the principal's
// current record. Every protected operation goes through Resolve, so
// role and status changes take effect on the next request rather than
// at the token's next issuance.
type PrincipalResolver struct {
	users  UserStore
	tokens TokenService
	logger Logger
}

// NewPrincipalResolver wires a resolver from the user store and codec.
func NewPrincipalResolver(users UserStore, tokens TokenService) *PrincipalResolver {
	return &PrincipalResolver{
		users:  users,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (r *PrincipalResolver) WithLogger(logger Logger) *PrincipalResolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Resolve verifies the credential and loads the principal it names.
// An absent credential yields ErrUnauthenticated. A verification
// failure is collapsed to ErrTokenInvalid (expiry stays distinct); the
// sub-kind is only logged. A principal deleted after issuance yields
// ErrPrincipalNotFound; access tokens are not invalidated by deletion,
// so this path is expected.
func (r *PrincipalResolver) Resolve(ctx context.Context, credential string) (*User, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := r.tokens.Verify(credential)
	if err != nil {
		if goerrors.Is(err, ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		r.logger.Warn("credential verification failed: %v", err)
		return nil, ErrTokenInvalid
	}

	subject, err := uuid.Parse(claims.Subject())
	if err != nil {
		r.logger.Warn("credential subject is not a principal id: %s", claims.Subject())
		return nil, ErrTokenInvalid
	}

	user, err := r.users.GetByUserID(ctx, subject)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrPrincipalNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load principal")
	}

	user.EnsureStatus()

	return user, nil
}

// ResolveIdentity is Resolve for callers that depend on the abstract
// Identity capability rather than the storage record.
func (r *PrincipalResolver) ResolveIdentity(ctx context.Context, credential string) (Identity, error) {
	user, err := r.Resolve(ctx, credential)
	if err != nil {
		return nil, err
	}
	return NewIdentityFromUser(user), nil
}
