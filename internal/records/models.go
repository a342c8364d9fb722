package records

import (
	"time"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

// DefaultStatus is stored when a record is created without a status.
const DefaultStatus = "submitted"

// RecordedBy identifies the staff member who captured a record.
type RecordedBy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record is one time-stamped clinical observation. Data is schema-free.
type Record struct {
	ID         string                 `json:"id"`
	PatientID  string                 `json:"patientId"`
	Section    access.Section         `json:"section"`
	Timestamp  time.Time              `json:"timestamp"`
	Data       map[string]interface{} `json:"data"`
	Status     string                 `json:"status"`
	RecordedBy RecordedBy             `json:"recordedBy"`
	CreatedAt  time.Time              `json:"createdAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// RecordSection implements access.Record.
func (r *Record) RecordSection() access.Section {
	if r == nil {
		return ""
	}
	return r.Section
}

// CreateRecordRequest is the body of a record submission. Code is the
// patient access code, required for gated sections.
type CreateRecordRequest struct {
	Section   string                 `json:"section"`
	Data      map[string]interface{} `json:"data"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Code      *string                `json:"code,omitempty"`
}

func (r *CreateRecordRequest) Validate() error {
	if r.Section == "" || r.Data == nil {
		return ErrMissingRequired
	}
	return nil
}

// UpdateRecordRequest changes data, status or timestamp. A section in the
// body is not decoded; updates always keep the stored section.
type UpdateRecordRequest struct {
	Data      map[string]interface{} `json:"data,omitempty"`
	Status    *string                `json:"status,omitempty"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Code      *string                `json:"code,omitempty"`
}

// Patch returns the column changes carried by the request.
func (r *UpdateRecordRequest) Patch() Patch {
	return Patch{Data: r.Data, Status: r.Status, Timestamp: r.Timestamp}
}

// DeleteRecordRequest is the optional body of a delete.
type DeleteRecordRequest struct {
	Code *string `json:"code,omitempty"`
}

// Patch holds the record columns to overwrite. Nil fields are kept.
type Patch struct {
	Data      map[string]interface{}
	Status    *string
	Timestamp *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Data == nil && p.Status == nil && p.Timestamp == nil
}

// ListFilter narrows a record listing. Hour matches the UTC hour of the
// record timestamp.
type ListFilter struct {
	Section access.Section
	Hour    *int
}

// DeleteResponse is returned by a successful delete.
type DeleteResponse struct {
	Success bool `json:"success"`
}
