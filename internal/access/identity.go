package access

// Identity is the authenticated caller for the duration of one request.
// It is read-only once built by the token verifier.
type Identity struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	FullName string `json:"fullName"`
}

// IsAdmin reports whether the caller holds the admin role.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == RoleAdmin
}

// Patient is the view of a patient the engine needs. Implementations must
// return a snapshot read during the current request.
type Patient interface {
	AssignedNurse() string
	AssignedDoctor() string
	AccessCodeHash() string
}

// Record is the view of an existing clinical record the engine needs.
type Record interface {
	RecordSection() Section
}
