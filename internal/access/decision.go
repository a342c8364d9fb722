package access

// Reason is the machine-readable cause of a denial.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "UNAUTHENTICATED"
	ReasonNotFound        Reason = "NOT_FOUND"
	ReasonForbiddenRole   Reason = "FORBIDDEN_ROLE"
	ReasonNotAssigned     Reason = "NOT_ASSIGNED"
	ReasonInvalidCode     Reason = "INVALID_CODE"
)

// Decision is the result of one authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Allow is the allowing decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny builds a denial with the given reason.
func Deny(r Reason) Decision { return Decision{Reason: r} }

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// DeniedError is returned by services when the engine refuses an operation.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return "access denied: " + e.sentinel().Error()
}

// Is lets errors.Is match the reason's sentinel.
func (e *DeniedError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *DeniedError) sentinel() error {
	switch e.Reason {
	case ReasonUnauthenticated:
		return ErrUnauthenticated
	case ReasonNotFound:
		return ErrNotFound
	case ReasonForbiddenRole:
		return ErrForbiddenRole
	case ReasonNotAssigned:
		return ErrNotAssigned
	case ReasonInvalidCode:
		return ErrInvalidCode
	}
	return ErrForbiddenRole
}
