package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// UserStore is the slice of the credential store the session layer
// consumes. Implemented by the Users repository.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUserID(ctx context.Context, id uuid.UUID) (*User, error)
}

// RefreshTokenStore persists refresh tokens. SaveForUser must be
// atomic per principal (unique user_id plus upsert) so concurrent
// logins cannot create duplicate rows.
type RefreshTokenStore interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*RefreshToken, error)
	GetByToken(ctx context.Context, token string) (*RefreshToken, error)
	SaveForUser(ctx context.Context, record *RefreshToken) (*RefreshToken, error)
	Delete(ctx context.Context, record *RefreshToken) error
}

// LoginResult is what a successful login hands back to the transport
// layer.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// TokenPair is the result of a refresh call.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionManager owns the token lifecycle: login, refresh, and the
// at-most-one-live-refresh-token-per-principal invariant. It keeps no
// state between requests; everything durable lives in the stores.
type SessionManager struct {
	users         UserStore
	refreshTokens RefreshTokenStore
	tokens        TokenService
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
	logger        Logger
	activitySink  ActivitySink
}

// NewSessionManager wires a session manager from its collaborators.
func NewSessionManager(users UserStore, refreshTokens RefreshTokenStore, tokens TokenService, cfg Config) *SessionManager {
	return &SessionManager{
		users:         users,
		refreshTokens: refreshTokens,
		tokens:        tokens,
		accessTTL:     cfg.GetAccessTokenTTL(),
		refreshTTL:    cfg.GetRefreshTokenTTL(),
		now:           time.Now,
		logger:        defLogger{},
		activitySink:  noopActivitySink{},
	}
}

func (s *SessionManager) WithLogger(logger Logger) *SessionManager {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *SessionManager) WithActivitySink(sink ActivitySink) *SessionManager {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *SessionManager) WithClock(clock func() time.Time) *SessionManager {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login verifies the credential pair and returns a fresh access token
// plus the principal's refresh token. An unknown username and a wrong
// password are indistinguishable to the caller. A principal whose
// status forbids login gets ErrAccountNotUsable, which is distinct so
// the client can explain the rejection without leaking whether the
// password was right for other failure modes.
func (s *SessionManager) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.emitEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"username": username,
				"reason":   "unknown user",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up principal during login")
	}

	user.EnsureStatus()

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.emitEvent(ctx, ActivityEventLoginFailure, actorFromUser(user), user.ID.String(), map[string]any{
			"username": username,
			"reason":   "password mismatch",
		})
		return nil, ErrInvalidCredentials
	}

	if err := statusAuthError(user.Status); err != nil {
		s.logger.Warn("login blocked for %s: status %s", username, user.Status)
		s.emitEvent(ctx, ActivityEventLoginFailure, actorFromUser(user), user.ID.String(), map[string]any{
			"username": username,
			"status":   string(user.Status),
		})
		return nil, err
	}

	now := s.now()

	accessToken, err := s.tokens.Issue(user.ID.String(), now, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.ensureRefreshToken(ctx, user, now)
	if err != nil {
		return nil, err
	}

	s.emitEvent(ctx, ActivityEventLoginSuccess, actorFromUser(user), user.ID.String(), map[string]any{
		"username": username,
	})

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The
// refresh token string is echoed back unchanged: no rotation happens
// on use, so a replayed token stays valid until its natural expiry.
// Presenting an expired token deletes its record before the error
// surfaces; the caller must re-authenticate via Login.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := s.refreshTokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrRefreshTokenNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token")
	}

	now := s.now()

	if record.ExpiredAt(now) {
		if err := s.refreshTokens.Delete(ctx, record); err != nil {
			s.logger.Error("failed to delete expired refresh token for %s: %v", record.UserID, err)
		}
		s.emitEvent(ctx, ActivityEventTokenRefreshFailure, ActorRef{ID: record.UserID.String(), Type: "user"}, record.UserID.String(), map[string]any{
			"reason": "refresh token expired",
		})
		return nil, ErrRefreshTokenExpired
	}

	// Mint from the principal's current record, never from claims
	// captured at issuance.
	user, err := s.users.GetByUserID(ctx, record.UserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrPrincipalNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve principal during refresh")
	}

	accessToken, err := s.tokens.Issue(user.ID.String(), now, s.accessTTL)
	if err != nil {
		return nil, err
	}

	s.emitEvent(ctx, ActivityEventTokenRefresh, actorFromUser(user), user.ID.String(), nil)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: record.Token,
	}, nil
}

// IssueAccessTokenForUsername mints an access token when only the
// username is known.
func (s *SessionManager) IssueAccessTokenForUsername(ctx context.Context, username string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrPrincipalNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve principal by username")
	}

	return s.tokens.Issue(user.ID.String(), s.now(), s.accessTTL)
}

// ensureRefreshToken returns the principal's live refresh token, or
// issues a fresh one when none exists or the stored one has expired.
// Two concurrent logins funnel into the store's atomic per-user
// upsert, so at most one row survives either way.
func (s *SessionManager) ensureRefreshToken(ctx context.Context, user *User, now time.Time) (string, error) {
	existing, err := s.refreshTokens.GetByUser(ctx, user.ID)
	if err == nil && !existing.ExpiredAt(now) {
		return existing.Token, nil
	}
	if err != nil && !goerrors.IsNotFound(err) {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up refresh token for principal")
	}

	token, err := s.tokens.Issue(user.ID.String(), now, s.refreshTTL)
	if err != nil {
		return "", err
	}

	record := &RefreshToken{
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if existing != nil {
		record.ID = existing.ID
	}

	saved, err := s.refreshTokens.SaveForUser(ctx, record)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
	}

	return saved.Token, nil
}

func (s *SessionManager) emitEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      actor,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}
	return ActorRef{ID: user.ID.String(), Type: "user"}
}
