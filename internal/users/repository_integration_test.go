//go:build integration

package users

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/testutil"
)

func TestRepositoryCreateAndGet_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	user := &User{
		ID:       uuid.New().String(),
		Username: "nurse.integration",
		Role:     access.RoleNurse,
		FullName: "Nurse Integration",
	}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Role != access.RoleNurse || got.FullName != "Nurse Integration" {
		t.Errorf("Unexpected user: %+v", got)
	}

	dup := *user
	dup.ID = uuid.New().String()
	if err := repo.Create(ctx, &dup); !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists for duplicate username, got %v", err)
	}
}

func TestRepositoryGetByID_NotFound_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	repo := NewRepository(db)

	_, err := repo.GetByID(context.Background(), "no-such-user")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRepositoryListByRole_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()
	defer testutil.CleanupTestDB(t, db)

	repo := NewRepository(db)
	ctx := context.Background()

	testutil.CreateTestUser(t, db, access.RoleNurse, "Nurse A")
	testutil.CreateTestUser(t, db, access.RoleDoctor, "Dr. B")

	nurses, err := repo.ListByRole(ctx, access.RoleNurse)
	if err != nil {
		t.Fatalf("ListByRole failed: %v", err)
	}
	for _, u := range nurses {
		if u.Role != access.RoleNurse {
			t.Errorf("Expected only nurses, got %s", u.Role)
		}
	}

	all, err := repo.ListByRole(ctx, "")
	if err != nil {
		t.Fatalf("ListByRole(all) failed: %v", err)
	}
	if len(all) < 2 {
		t.Errorf("Expected at least 2 users, got %d", len(all))
	}
}
