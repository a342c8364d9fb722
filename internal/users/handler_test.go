package users

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

// mockService implements ServiceInterface for testing
type mockService struct {
	createUserFunc func(ctx context.Context, req CreateUserRequest, caller *access.Identity) (*User, error)
	getUserFunc    func(ctx context.Context, userID string, caller *access.Identity) (*User, error)
	listUsersFunc  func(ctx context.Context, role string, caller *access.Identity) ([]User, error)
	meFunc         func(ctx context.Context, caller *access.Identity) (*User, error)
}

func (m *mockService) CreateUser(ctx context.Context, req CreateUserRequest, caller *access.Identity) (*User, error) {
	if m.createUserFunc != nil {
		return m.createUserFunc(ctx, req, caller)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetUser(ctx context.Context, userID string, caller *access.Identity) (*User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID, caller)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ListUsers(ctx context.Context, role string, caller *access.Identity) ([]User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx, role, caller)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) Me(ctx context.Context, caller *access.Identity) (*User, error) {
	if m.meFunc != nil {
		return m.meFunc(ctx, caller)
	}
	return nil, errors.New("not implemented")
}

func withCaller(req *http.Request, id *access.Identity) *http.Request {
	return req.WithContext(auth.ContextWithIdentity(req.Context(), id))
}

func TestHandlerCreateUser_Success(t *testing.T) {
	mockSvc := &mockService{
		createUserFunc: func(ctx context.Context, req CreateUserRequest, caller *access.Identity) (*User, error) {
			return &User{ID: "kc-1", Username: req.Username, FullName: req.FullName, Role: access.RoleDoctor}, nil
		},
	}
	handler := NewHandler(mockSvc)

	body, _ := json.Marshal(CreateUserRequest{Username: "dr.smith", FullName: "Dr. Smith", Role: "doctor", TemporaryPassword: "x"})
	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body)), adminCaller)
	rr := httptest.NewRecorder()

	handler.CreateUser(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}

	var user User
	if err := json.NewDecoder(rr.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.FullName != "Dr. Smith" {
		t.Errorf("Expected full name Dr. Smith, got %s", user.FullName)
	}
}

func TestHandlerCreateUser_Unauthenticated(t *testing.T) {
	handler := NewHandler(&mockService{})

	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()

	handler.CreateUser(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestHandlerCreateUser_InvalidJSON(t *testing.T) {
	handler := NewHandler(&mockService{})

	req := withCaller(httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader([]byte(`{bad`))), adminCaller)
	rr := httptest.NewRecorder()

	handler.CreateUser(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestHandlerCreateUser_ErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{ErrMissingUsername, http.StatusBadRequest},
		{ErrInvalidRole, http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUserExists, http.StatusConflict},
		{ErrProvisioningDisabled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		mockSvc := &mockService{
			createUserFunc: func(ctx context.Context, req CreateUserRequest, caller *access.Identity) (*User, error) {
				return nil, tt.err
			},
		}
		handler := NewHandler(mockSvc)

		req := withCaller(httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader([]byte(`{}`))), adminCaller)
		rr := httptest.NewRecorder()
		handler.CreateUser(rr, req)

		if rr.Code != tt.wantStatus {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.wantStatus, rr.Code)
		}
	}
}

func TestHandlerListUsers_PassesRoleFilter(t *testing.T) {
	var gotRole string
	mockSvc := &mockService{
		listUsersFunc: func(ctx context.Context, role string, caller *access.Identity) ([]User, error) {
			gotRole = role
			return []User{{ID: "n1", FullName: "Nurse Dela Cruz", Role: access.RoleNurse}}, nil
		},
	}
	handler := NewHandler(mockSvc)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/users?role=nurse", nil), adminCaller)
	rr := httptest.NewRecorder()

	handler.ListUsers(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if gotRole != "nurse" {
		t.Errorf("Expected role filter nurse, got %q", gotRole)
	}

	var users []User
	if err := json.NewDecoder(rr.Body).Decode(&users); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(users))
	}
}

func TestHandlerGetUser_NotFound(t *testing.T) {
	mockSvc := &mockService{
		getUserFunc: func(ctx context.Context, userID string, caller *access.Identity) (*User, error) {
			return nil, ErrUserNotFound
		},
	}
	handler := NewHandler(mockSvc)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/users/missing", nil), adminCaller)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rr := httptest.NewRecorder()

	handler.GetUser(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestHandlerMe(t *testing.T) {
	mockSvc := &mockService{
		meFunc: func(ctx context.Context, caller *access.Identity) (*User, error) {
			return &User{ID: caller.ID, Username: "nurse", Role: caller.Role, FullName: caller.FullName}, nil
		},
	}
	handler := NewHandler(mockSvc)

	req := withCaller(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), nurseCaller)
	rr := httptest.NewRecorder()

	handler.Me(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var user User
	if err := json.NewDecoder(rr.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.ID != "nurse-1" || user.Role != access.RoleNurse {
		t.Errorf("Unexpected user: %+v", user)
	}
}
