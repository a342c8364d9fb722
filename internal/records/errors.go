package records

import "errors"

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrMissingRequired = errors.New("section and data are required")
	ErrInvalidHour     = errors.New("hour must be between 0 and 23")
	ErrNoChanges       = errors.New("no fields to update")
)
