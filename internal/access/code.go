package access

import (
	"golang.org/x/crypto/bcrypt"
)

// SuppliedCode carries the access code sent with a request and whether one
// was sent at all. The zero value is an absent code.
type SuppliedCode struct {
	value   string
	present bool
}

// NoCode is the absent code.
func NoCode() SuppliedCode { return SuppliedCode{} }

// CodeOf wraps a code that was present in the request, possibly empty.
func CodeOf(s string) SuppliedCode { return SuppliedCode{value: s, present: true} }

// CodeFromPtr maps an optional JSON field onto a SuppliedCode.
func CodeFromPtr(s *string) SuppliedCode {
	if s == nil {
		return NoCode()
	}
	return CodeOf(*s)
}

// Present reports whether the request carried the code field.
func (c SuppliedCode) Present() bool { return c.present }

// Empty reports whether there is nothing to compare.
func (c SuppliedCode) Empty() bool { return !c.present || c.value == "" }

// String never reveals the code.
func (c SuppliedCode) String() string {
	switch {
	case !c.present:
		return "<absent>"
	case c.value == "":
		return "<empty>"
	default:
		return "<redacted>"
	}
}

// CodeVerifier hashes and checks per-patient access codes with bcrypt.
type CodeVerifier struct {
	cost int
}

// NewCodeVerifier returns a verifier hashing at the given bcrypt cost.
// Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewCodeVerifier(cost int) *CodeVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CodeVerifier{cost: cost}
}

// HashCode validates and hashes a new access code.
func (v *CodeVerifier) HashCode(code string) (string, error) {
	if !ValidCodeFormat(code) {
		return "", ErrMalformedCode
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyCode compares the supplied code against the patient's stored hash.
// Absent or empty codes and patients without a hash always fail.
func (v *CodeVerifier) VerifyCode(p Patient, code SuppliedCode) bool {
	if p == nil || code.Empty() {
		return false
	}
	hash := p.AccessCodeHash()
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code.value)) == nil
}

// ValidCodeFormat reports whether s is 4 to 8 ASCII digits.
func ValidCodeFormat(s string) bool {
	if len(s) < 4 || len(s) > 8 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
