package users

import (
	"context"
	"errors"
	"testing"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	"github.com/WailSalutem-Health-Care/micu-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/testutil"
)

// mockRepository implements RepositoryInterface for testing
type mockRepository struct {
	createFunc     func(ctx context.Context, user *User) error
	upsertFunc     func(ctx context.Context, user *User) error
	getByIDFunc    func(ctx context.Context, userID string) (*User, error)
	listByRoleFunc func(ctx context.Context, role access.Role) ([]User, error)
}

func (m *mockRepository) Create(ctx context.Context, user *User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockRepository) Upsert(ctx context.Context, user *User) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, user)
	}
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, userID string) (*User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, userID)
	}
	return nil, ErrUserNotFound
}

func (m *mockRepository) ListByRole(ctx context.Context, role access.Role) ([]User, error) {
	if m.listByRoleFunc != nil {
		return m.listByRoleFunc(ctx, role)
	}
	return nil, errors.New("not implemented")
}

var (
	adminCaller = &access.Identity{ID: "admin-1", Role: access.RoleAdmin, FullName: "System Admin"}
	nurseCaller = &access.Identity{ID: "nurse-1", Role: access.RoleNurse, FullName: "Nurse Dela Cruz"}
)

func validRequest() CreateUserRequest {
	return CreateUserRequest{
		Username:          "nurse.santos",
		FullName:          "Nurse Ana Santos",
		Role:              "nurse",
		TemporaryPassword: "temp123",
	}
}

// TestCreateUser_Success tests successful provisioning by an admin
func TestCreateUser_Success(t *testing.T) {
	kc := testutil.NewMockKeycloakAdmin()
	publisher := testutil.NewMockPublisher()

	var stored *User
	mockRepo := &mockRepository{
		createFunc: func(ctx context.Context, user *User) error {
			stored = user
			return nil
		},
	}

	service := NewService(mockRepo, kc, publisher, nil)

	user, err := service.CreateUser(context.Background(), validRequest(), adminCaller)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if user == nil || stored == nil {
		t.Fatal("Expected user to be stored")
	}
	if user.Role != access.RoleNurse {
		t.Errorf("Expected role 'nurse', got '%s'", user.Role)
	}
	if !kc.UserExists(user.ID) {
		t.Errorf("Expected local ID %s to be the Keycloak user ID", user.ID)
	}
	if got := kc.AssignedRoles(user.ID); len(got) != 1 || got[0] != "NURSE" {
		t.Errorf("Expected realm role NURSE, got %v", got)
	}

	kcUser, _ := kc.GetUser(user.ID)
	if kcUser.FirstName != "Nurse Ana" || kcUser.LastName != "Santos" {
		t.Errorf("Expected name split 'Nurse Ana' / 'Santos', got %q / %q", kcUser.FirstName, kcUser.LastName)
	}

	publisher.AssertEventCount(t, messaging.EventUserCreated, 1)
}

func TestCreateUser_NonAdminForbidden(t *testing.T) {
	kc := testutil.NewMockKeycloakAdmin()
	service := NewService(&mockRepository{}, kc, nil, nil)

	_, err := service.CreateUser(context.Background(), validRequest(), nurseCaller)
	if !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got: %v", err)
	}
	if kc.GetUserCount() != 0 {
		t.Error("Expected no Keycloak user to be created")
	}
}

func TestCreateUser_Validation(t *testing.T) {
	service := NewService(&mockRepository{}, testutil.NewMockKeycloakAdmin(), nil, nil)

	tests := []struct {
		name    string
		mutate  func(r *CreateUserRequest)
		wantErr error
	}{
		{"missing username", func(r *CreateUserRequest) { r.Username = "" }, ErrMissingUsername},
		{"missing full name", func(r *CreateUserRequest) { r.FullName = "  " }, ErrMissingFullName},
		{"missing role", func(r *CreateUserRequest) { r.Role = "" }, ErrMissingRole},
		{"unknown role", func(r *CreateUserRequest) { r.Role = "SUPER_ADMIN" }, ErrInvalidRole},
		{"missing password", func(r *CreateUserRequest) { r.TemporaryPassword = "" }, ErrMissingPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := service.CreateUser(context.Background(), req, adminCaller)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateUser_RollbackOnDatabaseFailure(t *testing.T) {
	kc := testutil.NewMockKeycloakAdmin()
	publisher := testutil.NewMockPublisher()
	mockRepo := &mockRepository{
		createFunc: func(ctx context.Context, user *User) error {
			return errors.New("connection refused")
		},
	}

	service := NewService(mockRepo, kc, publisher, nil)

	_, err := service.CreateUser(context.Background(), validRequest(), adminCaller)
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if kc.GetUserCount() != 0 {
		t.Errorf("Expected Keycloak user to be rolled back, %d remain", kc.GetUserCount())
	}
	publisher.AssertEventNotPublished(t, messaging.EventUserCreated)
}

func TestCreateUser_RollbackOnMissingRealmRole(t *testing.T) {
	kc := testutil.NewMockKeycloakAdmin()
	kc.RemoveRole("DOCTOR")

	service := NewService(&mockRepository{}, kc, nil, nil)

	req := validRequest()
	req.Role = "doctor"
	_, err := service.CreateUser(context.Background(), req, adminCaller)
	if !errors.Is(err, auth.ErrRoleNotFound) {
		t.Errorf("Expected ErrRoleNotFound, got %v", err)
	}
	if kc.GetUserCount() != 0 {
		t.Errorf("Expected rollback, %d users remain", kc.GetUserCount())
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	kc := testutil.NewMockKeycloakAdmin()
	service := NewService(&mockRepository{}, kc, nil, nil)

	if _, err := service.CreateUser(context.Background(), validRequest(), adminCaller); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := service.CreateUser(context.Background(), validRequest(), adminCaller)
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}
}

func TestCreateUser_ProvisioningDisabled(t *testing.T) {
	service := NewService(&mockRepository{}, nil, nil, nil)

	_, err := service.CreateUser(context.Background(), validRequest(), adminCaller)
	if !errors.Is(err, ErrProvisioningDisabled) {
		t.Errorf("Expected ErrProvisioningDisabled, got %v", err)
	}
}

func TestListUsers(t *testing.T) {
	var gotRole access.Role
	mockRepo := &mockRepository{
		listByRoleFunc: func(ctx context.Context, role access.Role) ([]User, error) {
			gotRole = role
			return []User{{ID: "n1", Role: access.RoleNurse, FullName: "Nurse Dela Cruz"}}, nil
		},
	}
	service := NewService(mockRepo, nil, nil, nil)

	users, err := service.ListUsers(context.Background(), "NURSE", adminCaller)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotRole != access.RoleNurse {
		t.Errorf("Expected role filter nurse, got %q", gotRole)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(users))
	}

	if _, err := service.ListUsers(context.Background(), "", adminCaller); err != nil {
		t.Errorf("Expected unfiltered listing to succeed, got %v", err)
	}
	if gotRole != "" {
		t.Errorf("Expected empty role filter, got %q", gotRole)
	}

	if _, err := service.ListUsers(context.Background(), "janitor", adminCaller); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
	if _, err := service.ListUsers(context.Background(), "", nurseCaller); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden for nurse, got %v", err)
	}
}

func TestGetUser_SelfOrAdmin(t *testing.T) {
	mockRepo := &mockRepository{
		getByIDFunc: func(ctx context.Context, userID string) (*User, error) {
			return &User{ID: userID}, nil
		},
	}
	service := NewService(mockRepo, nil, nil, nil)

	if _, err := service.GetUser(context.Background(), "nurse-1", nurseCaller); err != nil {
		t.Errorf("Expected nurse to read own row, got %v", err)
	}
	if _, err := service.GetUser(context.Background(), "nurse-2", nurseCaller); !errors.Is(err, ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
	if _, err := service.GetUser(context.Background(), "nurse-2", adminCaller); err != nil {
		t.Errorf("Expected admin to read any row, got %v", err)
	}
}

func TestMe_FallsBackToIdentity(t *testing.T) {
	service := NewService(&mockRepository{}, nil, nil, nil)

	user, err := service.Me(context.Background(), nurseCaller)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.ID != "nurse-1" || user.FullName != "Nurse Dela Cruz" || user.Role != access.RoleNurse {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"", "", ""},
		{"Admin", "Admin", ""},
		{"Dr. Smith", "Dr.", "Smith"},
		{"  Juan  Dela Cruz ", "Juan Dela", "Cruz"},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		if first != tt.first || last != tt.last {
			t.Errorf("splitName(%q) = %q, %q; want %q, %q", tt.in, first, last, tt.first, tt.last)
		}
	}
}
