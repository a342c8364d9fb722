package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/db"
)

// TestDatabaseEnv names the DSN of the PostgreSQL database used by
// integration tests.
const TestDatabaseEnv = "MICU_TEST_DATABASE_URL"

// SetupTestDB connects to the test database and makes sure the schema
// exists. The test is skipped when MICU_TEST_DATABASE_URL is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv(TestDatabaseEnv)
	if connStr == "" {
		t.Skipf("%s not set, skipping database test", TestDatabaseEnv)
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := conn.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if err := db.EnsureSchema(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// SetupTestTransaction creates a test database connection and begins a transaction
// The transaction is automatically rolled back when the test ends
func SetupTestTransaction(t *testing.T) (*sql.DB, *sql.Tx) {
	t.Helper()

	conn := SetupTestDB(t)

	tx, err := conn.BeginTx(context.Background(), nil)
	if err != nil {
		conn.Close()
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	t.Cleanup(func() {
		tx.Rollback()
		conn.Close()
	})

	return conn, tx
}

// CleanupTestDB removes all rows written by a test
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	if _, err := conn.Exec("TRUNCATE TABLE patient_records, patients, users CASCADE"); err != nil {
		t.Logf("Warning: Failed to clean up test data: %v", err)
	}
}

// CreateTestUser inserts a staff user and returns its ID
func CreateTestUser(t *testing.T, conn *sql.DB, role access.Role, fullName string) string {
	t.Helper()

	id := uuid.New().String()
	_, err := conn.Exec(
		`INSERT INTO users (id, username, role, full_name) VALUES ($1, $2, $3, $4)`,
		id, string(role)+"-"+id[:8], string(role), fullName,
	)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return id
}

// CreateTestPatient inserts a patient with the given assignment and access
// code and returns its ID. Empty assignee IDs are stored as NULL.
func CreateTestPatient(t *testing.T, conn *sql.DB, name, nurseID, doctorID, code string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash access code: %v", err)
	}

	id := uuid.New().String()
	_, err = conn.Exec(
		`INSERT INTO patients (id, name, bed_number, assigned_nurse_id, assigned_doctor_id, code_hash)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`,
		id, name, "T-"+id[:4], nurseID, doctorID, string(hash),
	)
	if err != nil {
		t.Fatalf("Failed to create test patient: %v", err)
	}
	return id
}
