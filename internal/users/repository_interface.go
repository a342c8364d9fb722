package users

import (
	"context"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

// RepositoryInterface defines the contract for user data access
type RepositoryInterface interface {
	Create(ctx context.Context, user *User) error
	Upsert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID string) (*User, error)
	ListByRole(ctx context.Context, role access.Role) ([]User, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
