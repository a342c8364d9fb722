package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

// MockKeycloakAdmin is a mock implementation of Keycloak admin client for testing
// It stores all data in memory and doesn't make any real HTTP calls to Keycloak
type MockKeycloakAdmin struct {
	mu          sync.RWMutex
	users       map[string]*auth.KeycloakUser // userID -> user
	roles       map[string]*auth.KeycloakRole // roleName -> role
	assignments map[string][]string           // userID -> role names
	passwords   map[string]bool               // userID -> temporary
}

// NewMockKeycloakAdmin creates a new mock Keycloak admin client
func NewMockKeycloakAdmin() *MockKeycloakAdmin {
	mock := &MockKeycloakAdmin{
		users:       make(map[string]*auth.KeycloakUser),
		roles:       make(map[string]*auth.KeycloakRole),
		assignments: make(map[string][]string),
		passwords:   make(map[string]bool),
	}

	// Pre-populate the realm roles
	mock.roles["ADMIN"] = &auth.KeycloakRole{ID: "role-admin", Name: "ADMIN"}
	mock.roles["NURSE"] = &auth.KeycloakRole{ID: "role-nurse", Name: "NURSE"}
	mock.roles["DOCTOR"] = &auth.KeycloakRole{ID: "role-doctor", Name: "DOCTOR"}

	return mock
}

// CreateUser creates a user in the mock Keycloak (in-memory only)
func (m *MockKeycloakAdmin) CreateUser(ctx context.Context, user auth.KeycloakUser) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == user.Username {
			return "", auth.ErrUserExists
		}
	}

	userID := uuid.New().String()
	user.ID = userID
	m.users[userID] = &user

	return userID, nil
}

// SetPassword records that a password was set
func (m *MockKeycloakAdmin) SetPassword(ctx context.Context, userID, password string, temporary bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[userID]; !exists {
		return auth.ErrUserNotFound
	}
	m.passwords[userID] = temporary
	return nil
}

// GetRole retrieves a role by name
func (m *MockKeycloakAdmin) GetRole(ctx context.Context, roleName string) (*auth.KeycloakRole, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, exists := m.roles[roleName]
	if !exists {
		return nil, auth.ErrRoleNotFound
	}
	roleCopy := *role
	return &roleCopy, nil
}

// AssignRole assigns a realm role to a user
func (m *MockKeycloakAdmin) AssignRole(ctx context.Context, userID string, role auth.KeycloakRole) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[userID]; !exists {
		return auth.ErrUserNotFound
	}
	m.assignments[userID] = append(m.assignments[userID], role.Name)
	return nil
}

// DeleteUser deletes a user from mock Keycloak (removes from memory)
func (m *MockKeycloakAdmin) DeleteUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[userID]; !exists {
		return auth.ErrUserNotFound
	}

	delete(m.users, userID)
	delete(m.assignments, userID)
	delete(m.passwords, userID)
	return nil
}

// Helper methods for testing

// GetUser retrieves a copy of a stored user
func (m *MockKeycloakAdmin) GetUser(userID string) (*auth.KeycloakUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[userID]
	if !exists {
		return nil, auth.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

// AssignedRoles returns the realm roles assigned to a user
func (m *MockKeycloakAdmin) AssignedRoles(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.assignments[userID]...)
}

// PasswordIsTemporary reports whether the user's password was set as temporary
func (m *MockKeycloakAdmin) PasswordIsTemporary(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.passwords[userID]
}

// RemoveRole deletes a realm role so GetRole fails
func (m *MockKeycloakAdmin) RemoveRole(roleName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.roles, roleName)
}

// GetUserCount returns the number of users (for test verification)
func (m *MockKeycloakAdmin) GetUserCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.users)
}

// UserExists checks if a user exists (for test verification)
func (m *MockKeycloakAdmin) UserExists(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.users[userID]
	return exists
}

// Reset clears all users (for test cleanup)
func (m *MockKeycloakAdmin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[string]*auth.KeycloakUser)
	m.assignments = make(map[string][]string)
	m.passwords = make(map[string]bool)
}

var _ interface {
	CreateUser(ctx context.Context, user auth.KeycloakUser) (string, error)
	SetPassword(ctx context.Context, userID, password string, temporary bool) error
	GetRole(ctx context.Context, roleName string) (*auth.KeycloakRole, error)
	AssignRole(ctx context.Context, userID string, role auth.KeycloakRole) error
	DeleteUser(ctx context.Context, userID string) error
} = (*MockKeycloakAdmin)(nil)
