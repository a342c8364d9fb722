package testutil

import (
	"crypto/rsa"
	"testing"

	"github.com/WailSalutem-Health-Care/micu-service/internal/auth"
)

// TestIssuer is the issuer stamped on tokens minted by GenerateTestJWT
const TestIssuer = "https://test-keycloak.com/realms/micu"

// CreateTestVerifier creates a verifier configured for E2E testing
// It returns the verifier and the private key to sign test tokens
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)

	// The static key set never fetches
	testJWKS := auth.NewTestJWKS(publicKey)

	verifier := auth.NewVerifier(auth.Config{Issuer: TestIssuer}, testJWKS)

	return verifier, privateKey
}
