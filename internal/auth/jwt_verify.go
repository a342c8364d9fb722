package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

var (
	ErrNoToken          = errors.New("no token provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidIssuer    = errors.New("invalid issuer")
	ErrInvalidAudience  = errors.New("invalid audience")
	ErrMissingSub       = errors.New("missing sub claim")
	ErrUnrecognizedRole = errors.New("token carries no recognized role")
)

// Verifier validates bearer tokens issued by the identity provider.
type Verifier struct {
	cfg  Config
	keys KeySource
}

// NewVerifier constructs a verifier with config and a key source.
func NewVerifier(cfg Config, keys KeySource) *Verifier {
	return &Verifier{cfg: cfg, keys: keys}
}

// ParseAndVerifyToken verifies an RS256 token, validates issuer, audience
// and expiry, and returns the caller identity.
func (v *Verifier) ParseAndVerifyToken(tokenString string) (*access.Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrNoToken
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" || v.keys == nil {
			return nil, ErrInvalidToken
		}
		return v.keys.Get(kid)
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if iss, _ := claims["iss"].(string); iss != v.cfg.Issuer {
		return nil, ErrInvalidIssuer
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, ErrInvalidAudience
	}
	if !claims.VerifyExpiresAt(jwt.TimeFunc().Unix(), true) {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSub
	}

	role, ok := roleFromClaims(claims)
	if !ok {
		return nil, ErrUnrecognizedRole
	}

	return &access.Identity{
		ID:       sub,
		Role:     role,
		FullName: nameFromClaims(claims),
	}, nil
}

// roleFromClaims prefers an explicit role claim, then the first recognized
// realm role.
func roleFromClaims(claims jwt.MapClaims) (access.Role, bool) {
	if raw, ok := claims["role"].(string); ok {
		if r, ok := access.ParseRole(raw); ok {
			return r, true
		}
	}
	if ra, ok := claims["realm_access"].(map[string]interface{}); ok {
		if rr, ok := ra["roles"].([]interface{}); ok {
			for _, v := range rr {
				s, _ := v.(string)
				if r, ok := access.ParseRole(s); ok {
					return r, true
				}
			}
		}
	}
	return "", false
}

func nameFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"name", "fullName", "preferred_username"} {
		if s, _ := claims[key].(string); s != "" {
			return s
		}
	}
	return ""
}
