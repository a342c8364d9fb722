package users

import "errors"

var (
	ErrMissingUsername      = errors.New("username is required")
	ErrMissingFullName      = errors.New("full name is required")
	ErrMissingRole          = errors.New("role is required")
	ErrMissingPassword      = errors.New("temporary password is required")
	ErrInvalidRole          = errors.New("invalid role")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrForbidden            = errors.New("forbidden - insufficient permissions")
	ErrProvisioningDisabled = errors.New("user provisioning is not configured")
)
