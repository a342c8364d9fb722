package access

import "errors"

// Denial sentinels. A *DeniedError matches exactly one of these via errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrForbiddenRole   = errors.New("role may not perform this action")
	ErrNotAssigned     = errors.New("not assigned to this patient")
	ErrInvalidCode     = errors.New("invalid access code")
)

// Policy and code validation errors.
var (
	ErrUnknownSection   = errors.New("unknown section")
	ErrUnknownRole      = errors.New("unknown role")
	ErrIncompletePolicy = errors.New("section policy missing section")
	ErrMalformedCode    = errors.New("access code must be 4 to 8 digits")
)
