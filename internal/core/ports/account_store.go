package ports

import (
	"context"

	"github.com/authforge/identity-system/internal/core/domain"
)

// AccountStore defines the persistence boundary for account records.
// Uniqueness conflicts are decided inside the implementation and reported as
// *domain.DuplicateIdentityError; lookups that find nothing return
// domain.ErrAccountNotFound.
type AccountStore interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
}
