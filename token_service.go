package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// MinSigningKeyLength is the minimum HMAC key size in bytes. HS256
// keys below the hash size weaken the signature.
const MinSigningKeyLength = 32

// TokenService signs and verifies compact access tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService interface {
	Issue(subject string, issuedAt time.Time, ttl time.Duration) (string, error)
	Verify(tokenString string) (AuthClaims, error)
}

// TokenServiceImpl implements TokenService with HS256.
type TokenServiceImpl struct {
	signingKey []byte
	issuer     string
	logger     Logger
}

// NewTokenService creates a TokenService. The signing key must be at
// least MinSigningKeyLength bytes.
func NewTokenService(signingKey []byte, issuer string, logger Logger) (TokenService, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, goerrors.New("signing key is too short", goerrors.CategoryBadInput).
			WithTextCode("SIGNING_KEY_TOO_SHORT").
			WithMetadata(map[string]any{
				"min_bytes": MinSigningKeyLength,
				"got_bytes": len(signingKey),
			})
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		issuer:     issuer,
		logger:     logger,
	}, nil
}

// Issue signs a token asserting subject between issuedAt and
// issuedAt+ttl.
func (ts *TokenServiceImpl) Issue(subject string, issuedAt time.Time, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", goerrors.New("token subject must not be empty", goerrors.CategoryBadInput)
	}
	if ttl <= 0 {
		return "", goerrors.New("token TTL must be positive", goerrors.CategoryBadInput)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify parses and validates a token string. Failures are reported as
// one of four kinds, because callers react differently to each:
// ErrTokenExpired, ErrTokenSignature, ErrTokenUnsupported, and
// ErrTokenMalformed for everything structurally wrong.
func (ts *TokenServiceImpl) Verify(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Warn("token verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, ErrTokenUnsupported
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		case goerrors.Is(err, ErrTokenUnsupported):
			return nil, ErrTokenUnsupported
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token verify could not decode claims")
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
