package domain

import "time"

// Account models a registered credential holder. The password hash never
// leaves this layer: it is excluded from JSON and from token claims.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicIdentity is the only account projection ever returned to callers or
// embedded in token claims.
type PublicIdentity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public projects the account down to its caller-visible fields.
func (a *Account) Public() PublicIdentity {
	return PublicIdentity{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
	}
}
