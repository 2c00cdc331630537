package ports

import (
	"context"

	"github.com/authforge/identity-system/internal/core/domain"
)

// PasswordHasher produces and checks one-way salted password digests. The
// digest is self-describing: salt and cost travel inside it, so Verify needs
// no side-channel.
type PasswordHasher interface {
	// Hash returns a fresh digest for the password. Fails with
	// domain.ErrInvalidInput on an empty password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify reports whether password matches digest. A mismatch is
	// (false, nil); only a malformed digest yields domain.ErrCorruptDigest.
	Verify(ctx context.Context, password, digest string) (bool, error)
}

// TokenIssuer mints signed, time-bounded tokens from an identity snapshot.
type TokenIssuer interface {
	IssueAccessToken(identity domain.PublicIdentity) (string, error)
	IssueRefreshToken(identity domain.PublicIdentity) (string, error)
	IssueTokenPair(identity domain.PublicIdentity) (domain.TokenPair, error)
}

// TokenValidator checks a presented token's signature and expiry and recovers
// its claims. Expiry maps to domain.ErrTokenExpired, anything else wrong with
// the token to domain.ErrTokenInvalid.
type TokenValidator interface {
	Validate(token string) (*domain.TokenClaims, error)
}
