package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrMissingRequired      = errors.New("name, bed number and code are required")
	ErrInvalidAdmissionDate = errors.New("admission date must be YYYY-MM-DD")
	ErrInvalidHI271Data     = errors.New("hi271Data must be a JSON object")
	ErrInvalidAssignee      = errors.New("assignee does not exist or has the wrong role")
	ErrNoChanges            = errors.New("no fields to update")
	ErrCodeRequired         = errors.New("code is required")
)
