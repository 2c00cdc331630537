package ports

import (
	"context"

	"github.com/authforge/identity-system/internal/core/domain"
)

// RegisterInput carries the already schema-validated registration fields.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// LoginInput carries the already schema-validated login fields.
type LoginInput struct {
	Email    string
	Password string
}

// CredentialService orchestrates registration, login, and refresh-token
// exchange. Each call is independent; the service holds no cross-call state.
type CredentialService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*domain.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
}
