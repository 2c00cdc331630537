package domain

import "time"

// TokenKind distinguishes the two halves of an issued pair.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenClaims are the fields recovered from a validated token. The token
// string itself is opaque to everything but the validator.
type TokenClaims struct {
	Subject   string    `json:"sub"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Kind      TokenKind `json:"kind"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Identity rebuilds the public identity snapshot embedded at issuance time.
func (c *TokenClaims) Identity() PublicIdentity {
	return PublicIdentity{
		ID:       c.Subject,
		Username: c.Username,
		Email:    c.Email,
	}
}

// TokenPair is issued on every successful register or login. Both tokens are
// minted from the same identity snapshot and are never persisted server-side.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is the sole successful output of register and login.
type AuthResult struct {
	Identity PublicIdentity `json:"user"`
	Tokens   TokenPair      `json:"tokens"`
}
