package users

import (
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

// User is a member of the care staff. The ID is the identity provider's
// subject, so it matches the caller identity built from a token.
type User struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      access.Role `json:"role"`
	FullName  string      `json:"fullName"`
	CreatedAt time.Time   `json:"createdAt"`
}

// CreateUserRequest represents the request to provision a staff account
type CreateUserRequest struct {
	Username          string `json:"username"`
	Email             string `json:"email,omitempty"`
	FullName          string `json:"fullName"`
	Role              string `json:"role"`
	TemporaryPassword string `json:"temporaryPassword"`
}

// Validate validates the create user request
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return ErrMissingUsername
	}
	if strings.TrimSpace(r.FullName) == "" {
		return ErrMissingFullName
	}
	if strings.TrimSpace(r.Role) == "" {
		return ErrMissingRole
	}
	if _, ok := access.ParseRole(r.Role); !ok {
		return ErrInvalidRole
	}
	if r.TemporaryPassword == "" {
		return ErrMissingPassword
	}
	return nil
}

// splitName maps a display name onto Keycloak's first/last name fields.
func splitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
}
