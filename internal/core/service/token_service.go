package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/authforge/identity-system/internal/api/metrics"
	"github.com/authforge/identity-system/internal/core/domain"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// jwtClaims is the wire shape of a signed token. Only this package parses it;
// the rest of the system sees domain.TokenClaims.
type jwtClaims struct {
	Username string           `json:"username,omitempty"`
	Email    string           `json:"email,omitempty"`
	Kind     domain.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256-signed access and refresh tokens.
// The signing key is fixed at construction; there is no rotation and no
// server-side token state.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService builds a TokenService. Non-positive TTLs fall back to the
// defaults (15 minutes access, 7 days refresh).
func NewTokenService(secret []byte, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, errors.New("token service: signing secret must be provided")
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &TokenService{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}, nil
}

// IssueAccessToken mints a short-lived access token for identity.
func (s *TokenService) IssueAccessToken(identity domain.PublicIdentity) (string, error) {
	return s.issue(identity, domain.TokenKindAccess, s.accessTTL)
}

// IssueRefreshToken mints a long-lived refresh token for identity.
func (s *TokenService) IssueRefreshToken(identity domain.PublicIdentity) (string, error) {
	return s.issue(identity, domain.TokenKindRefresh, s.refreshTTL)
}

// IssueTokenPair mints both tokens from the same identity snapshot, so the
// pair agrees on subject, username, and email even if the account changes
// afterwards.
func (s *TokenService) IssueTokenPair(identity domain.PublicIdentity) (domain.TokenPair, error) {
	access, err := s.IssueAccessToken(identity)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.IssueRefreshToken(identity)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Validate verifies the token's signature and expiry and recovers its claims.
func (s *TokenService) Validate(token string) (*domain.TokenClaims, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			metrics.TokenValidationsTotal.WithLabelValues("expired").Inc()
			return nil, domain.ErrTokenExpired
		}
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrTokenInvalid
	}
	if !parsed.Valid || claims.Subject == "" {
		metrics.TokenValidationsTotal.WithLabelValues("invalid").Inc()
		return nil, domain.ErrTokenInvalid
	}

	metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()
	out := &domain.TokenClaims{
		Subject:  claims.Subject,
		Username: claims.Username,
		Email:    claims.Email,
		Kind:     claims.Kind,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (s *TokenService) issue(identity domain.PublicIdentity, kind domain.TokenKind, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwtClaims{
		Username: identity.Username,
		Email:    identity.Email,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(kind)).Inc()
	return signed, nil
}
