package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	"github.com/WailSalutem-Health-Care/micu-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/telemetry"
)

type Service struct {
	repo          RepositoryInterface
	keycloakAdmin KeycloakAdminInterface
	publisher     messaging.PublisherInterface
	metrics       *telemetry.Metrics
}

// NewService wires the user service. keycloakAdmin may be nil, in which case
// CreateUser returns ErrProvisioningDisabled.
func NewService(repo RepositoryInterface, keycloakAdmin KeycloakAdminInterface, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:          repo,
		keycloakAdmin: keycloakAdmin,
		publisher:     publisher,
		metrics:       metrics,
	}
}

// CreateUser provisions the account in Keycloak, then stores the local row.
// Any failure after the Keycloak user exists deletes it again.
func (s *Service) CreateUser(ctx context.Context, req CreateUserRequest, caller *access.Identity) (*User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.keycloakAdmin == nil {
		return nil, ErrProvisioningDisabled
	}

	role, _ := access.ParseRole(req.Role)
	first, last := splitName(req.FullName)

	keycloakUserID, err := s.keycloakAdmin.CreateUser(ctx, auth.KeycloakUser{
		Username:  strings.TrimSpace(req.Username),
		Email:     req.Email,
		FirstName: first,
		LastName:  last,
		Enabled:   true,
	})
	if errors.Is(err, auth.ErrUserExists) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user in Keycloak: %w", err)
	}

	logger := log.WithFields(log.Fields{"username": req.Username, "keycloak_id": keycloakUserID})
	logger.Info("Created user in Keycloak")

	rollback := func(step string, cause error) error {
		logger.WithError(cause).Warnf("Failed to %s, rolling back user creation", step)
		if err := s.keycloakAdmin.DeleteUser(ctx, keycloakUserID); err != nil {
			logger.WithError(err).Error("Rollback of Keycloak user failed")
		}
		return fmt.Errorf("failed to %s: %w", step, cause)
	}

	if err := s.keycloakAdmin.SetPassword(ctx, keycloakUserID, req.TemporaryPassword, true); err != nil {
		return nil, rollback("set password", err)
	}

	kcRole, err := s.keycloakAdmin.GetRole(ctx, strings.ToUpper(string(role)))
	if err != nil {
		return nil, rollback("get role", err)
	}
	if err := s.keycloakAdmin.AssignRole(ctx, keycloakUserID, *kcRole); err != nil {
		return nil, rollback("assign role", err)
	}

	user := &User{
		ID:       keycloakUserID,
		Username: strings.TrimSpace(req.Username),
		Role:     role,
		FullName: strings.TrimSpace(req.FullName),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, rollback("create user in database", err)
	}

	s.metrics.RecordUserOperation(ctx, "create")

	event := messaging.UserCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventUserCreated, caller.ID),
		Data: messaging.UserCreatedData{
			UserID:    user.ID,
			Username:  user.Username,
			FullName:  user.FullName,
			Role:      string(user.Role),
			CreatedAt: user.CreatedAt,
		},
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, messaging.EventUserCreated, event); err != nil {
			log.WithError(err).Warn("failed to publish user.created event")
		}
	}

	logger.WithField("role", user.Role).Info("✓ User provisioned")
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, userID string, caller *access.Identity) (*User, error) {
	if !caller.IsAdmin() && (caller == nil || caller.ID != userID) {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, userID)
}

// ListUsers lists staff, optionally filtered by role. Admin only.
func (s *Service) ListUsers(ctx context.Context, role string, caller *access.Identity) ([]User, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	var filter access.Role
	if strings.TrimSpace(role) != "" {
		r, ok := access.ParseRole(role)
		if !ok {
			return nil, ErrInvalidRole
		}
		filter = r
	}

	users, err := s.repo.ListByRole(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Me returns the caller's local user row. Callers that exist in Keycloak but
// were never stored locally get a row built from the token.
func (s *Service) Me(ctx context.Context, caller *access.Identity) (*User, error) {
	if caller == nil {
		return nil, ErrForbidden
	}

	user, err := s.repo.GetByID(ctx, caller.ID)
	if errors.Is(err, ErrUserNotFound) {
		return &User{ID: caller.ID, Role: caller.Role, FullName: caller.FullName}, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
