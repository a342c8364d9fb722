//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
	httpserver "github.com/WailSalutem-Health-Care/micu-service/internal/http"
	"github.com/WailSalutem-Health-Care/micu-service/internal/patient"
	"github.com/WailSalutem-Health-Care/micu-service/internal/records"
	"github.com/WailSalutem-Health-Care/micu-service/internal/testutil"
	"github.com/WailSalutem-Health-Care/micu-service/internal/users"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	MockKeycloak  *testutil.MockKeycloakAdmin
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest wires the real repositories and services against the test
// database. RabbitMQ and Keycloak are replaced by in-memory mocks.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.CleanupTestDB(t, db)

	mockPublisher := testutil.NewMockPublisher()
	mockKeycloak := testutil.NewMockKeycloakAdmin()

	perms, err := auth.LoadPermissions("../../configs/permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}
	policy, err := access.LoadPolicyTable("../../configs/sections.yml")
	if err != nil {
		t.Fatalf("Failed to load section policy: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	authz := access.NewAuthorizer(policy, access.NewCodeVerifier(bcrypt.MinCost), logger, nil)

	userRepo := users.NewRepository(db)
	patientRepo := patient.NewRepository(db)

	userService := users.NewService(userRepo, mockKeycloak, mockPublisher, nil)
	patientService := patient.NewService(patientRepo, authz, userRepo, mockPublisher, nil, 84)
	recordService := records.NewService(records.NewRepository(db), patientRepo, authz, mockPublisher, nil)

	handler := httpserver.NewHandler(httpserver.Handlers{
		Patients: patient.NewHandler(patientService),
		Records:  records.NewHandler(recordService),
		Users:    users.NewHandler(userService),
	}, httpserver.Options{
		ServiceName: "micu-service-e2e",
		Verifier:    verifier,
		Permissions: perms,
		Ping:        db.PingContext,
	})

	return &TestServer{
		Server:        httptest.NewServer(handler),
		DB:            db,
		MockPublisher: mockPublisher,
		MockKeycloak:  mockKeycloak,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

// Staff holds one user of each role, stored in the database, with tokens
// whose subject matches the stored ID.
type Staff struct {
	AdminID, NurseID, DoctorID          string
	AdminToken, NurseToken, DoctorToken string
}

// SeedStaff creates an admin, a nurse and a doctor.
func (ts *TestServer) SeedStaff(t *testing.T) Staff {
	t.Helper()

	s := Staff{
		AdminID:  testutil.CreateTestUser(t, ts.DB, access.RoleAdmin, "System Admin"),
		NurseID:  testutil.CreateTestUser(t, ts.DB, access.RoleNurse, "Nurse Dela Cruz"),
		DoctorID: testutil.CreateTestUser(t, ts.DB, access.RoleDoctor, "Dr. Smith"),
	}
	s.AdminToken = testutil.GenerateAdminToken(t, ts.PrivateKey, s.AdminID)
	s.NurseToken = testutil.GenerateNurseToken(t, ts.PrivateKey, s.NurseID)
	s.DoctorToken = testutil.GenerateDoctorToken(t, ts.PrivateKey, s.DoctorID)
	return s
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}
