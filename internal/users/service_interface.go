package users

import (
	"context"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

// ServiceInterface defines the contract for user business logic operations
type ServiceInterface interface {
	CreateUser(ctx context.Context, req CreateUserRequest, caller *access.Identity) (*User, error)
	GetUser(ctx context.Context, userID string, caller *access.Identity) (*User, error)
	ListUsers(ctx context.Context, role string, caller *access.Identity) ([]User, error)
	Me(ctx context.Context, caller *access.Identity) (*User, error)
}

// KeycloakAdminInterface defines the contract for Keycloak operations
type KeycloakAdminInterface interface {
	CreateUser(ctx context.Context, user auth.KeycloakUser) (string, error)
	SetPassword(ctx context.Context, userID, password string, temporary bool) error
	GetRole(ctx context.Context, roleName string) (*auth.KeycloakRole, error)
	AssignRole(ctx context.Context, userID string, role auth.KeycloakRole) error
	DeleteUser(ctx context.Context, userID string) error
}

// Ensure KeycloakAdminClient implements KeycloakAdminInterface
var _ KeycloakAdminInterface = (*auth.KeycloakAdminClient)(nil)

var _ ServiceInterface = (*Service)(nil)
