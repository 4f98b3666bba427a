package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "masthead/pkg/domain-errors"
	"masthead/pkg/secrets"
)

// AccessClaims are the JWT claims carried by access tokens. Access tokens are
// stateless: possession of a validly signed, unexpired token is sufficient.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims are the JWT claims carried by refresh tokens. The token type
// is explicit so an access token can never be replayed as a refresh token.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

const refreshTokenType = "refresh"

// Service issues and verifies the platform's JWTs. Refresh tokens are
// persisted only as SHA-256 hashes; the raw value exists client-side.
type Service struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(signingKey string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

// GenerateAccessToken issues a signed access token for the user.
func (s *Service) GenerateAccessToken(userID uuid.UUID, email, role string) (string, error) {
	jti, err := newJTI()
	if err != nil {
		return "", err
	}
	now := time.Now()

	claims := AccessClaims{
		UserID: userID.String(),
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not sign access token")
	}
	return signed, nil
}

// GenerateRefreshToken issues a refresh token and returns the raw token, the
// SHA-256 hash to persist, and its expiry.
func (s *Service) GenerateRefreshToken(userID uuid.UUID) (raw string, hash string, expiresAt time.Time, err error) {
	jti, err := newJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now()
	expiresAt = now.Add(s.refreshTTL)

	claims := RefreshClaims{
		UserID:    userID.String(),
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
	}
	raw, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not sign refresh token")
	}
	return raw, Hash(raw), expiresAt, nil
}

// VerifyAccessToken validates signature, algorithm, and expiry.
func (s *Service) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}
	claims := new(AccessClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// VerifyRefreshToken validates signature, algorithm, expiry, and token type.
// The caller must still check the stored hash against the presenting user.
func (s *Service) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}
	claims := new(RefreshClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}
	if !parsed.Valid || claims.TokenType != refreshTokenType {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token")
	}
	return claims, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "unexpected signing algorithm")
	}
	return s.signingKey, nil
}

// Hash returns the storage hash of a raw token. Stored hashes are compared in
// constant time via Matches.
func Hash(raw string) string {
	return secrets.HashSHA256(raw)
}

// Matches reports whether a raw token corresponds to a stored hash.
func Matches(raw, storedHash string) bool {
	return secrets.ConstantTimeEqual(Hash(raw), storedHash)
}

func newJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate token id")
	}
	return hex.EncodeToString(b), nil
}
