package auth

import "crypto/rsa"

// TestKeyID is the kid used by NewTestJWKS.
const TestKeyID = "test-key-id"

// NewTestJWKS returns a key set holding pub under TestKeyID so other
// packages can verify tokens they sign in tests.
func NewTestJWKS(pub *rsa.PublicKey) *JWKS {
	return NewStaticJWKS(map[string]*rsa.PublicKey{TestKeyID: pub})
}
