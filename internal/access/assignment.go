package access

// IsAssigned reports whether the caller may act on the patient as assigned
// staff. Admins are always considered assigned. An empty assignment slot
// never matches, even for an identity with an empty ID.
func IsAssigned(p Patient, id *Identity) bool {
	if p == nil || id == nil {
		return false
	}
	switch id.Role {
	case RoleAdmin:
		return true
	case RoleNurse:
		return id.ID != "" && p.AssignedNurse() == id.ID
	case RoleDoctor:
		return id.ID != "" && p.AssignedDoctor() == id.ID
	}
	return false
}
