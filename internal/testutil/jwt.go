package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// GenerateTestJWT creates a signed token for the given user. The role is
// carried as a Keycloak realm role, the way the identity provider issues it.
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID string, role access.Role, fullName string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  userID,
		"iss":  TestIssuer,
		"exp":  time.Now().Add(1 * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
		"name": fullName,
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"offline_access", strings.ToUpper(string(role))},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = auth.TestKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	return tokenString
}

// GenerateAdminToken creates an admin token for testing
func GenerateAdminToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, access.RoleAdmin, "System Admin")
}

// GenerateNurseToken creates a nurse token for testing
func GenerateNurseToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, access.RoleNurse, "Nurse Dela Cruz")
}

// GenerateDoctorToken creates a doctor token for testing
func GenerateDoctorToken(t *testing.T, privateKey *rsa.PrivateKey, userID string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, access.RoleDoctor, "Dr. Smith")
}
