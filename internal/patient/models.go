package patient

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/micu-service/internal/pagination"
)

// Recognised patient statuses. Any other value is stored as given.
const (
	StatusStable   = "Stable"
	StatusWarning  = "Warning"
	StatusCritical = "Critical"

	// StatusOther collects unrecognised statuses in the overview.
	StatusOther = "Other"
)

// Patient is one ICU admission. CodeHash never leaves the service.
type Patient struct {
	ID               string          `json:"id"`
	HospitalID       string          `json:"hospitalId"`
	Name             string          `json:"name"`
	BedNumber        string          `json:"bedNumber"`
	Status           string          `json:"status"`
	Age              *int            `json:"age"`
	Sex              string          `json:"sex"`
	Weight           *float64        `json:"weight"`
	Height           *float64        `json:"height"`
	AdmissionDate    *string         `json:"admissionDate"` // YYYY-MM-DD
	Condition        string          `json:"condition"`
	AssignedNurseID  string          `json:"assignedNurseId"`
	AssignedDoctorID string          `json:"assignedDoctorId"`
	NurseName        string          `json:"nurseName"`
	DoctorName       string          `json:"doctorName"`
	HI271Data        json.RawMessage `json:"hi271Data"`
	CodeHash         string          `json:"-"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// AssignedNurse implements access.Patient.
func (p *Patient) AssignedNurse() string {
	if p == nil {
		return ""
	}
	return p.AssignedNurseID
}

// AssignedDoctor implements access.Patient.
func (p *Patient) AssignedDoctor() string {
	if p == nil {
		return ""
	}
	return p.AssignedDoctorID
}

// AccessCodeHash implements access.Patient.
func (p *Patient) AccessCodeHash() string {
	if p == nil {
		return ""
	}
	return p.CodeHash
}

// PatientID is used to tag audit entries.
func (p *Patient) PatientID() string {
	if p == nil {
		return ""
	}
	return p.ID
}

// CreatePatientRequest represents the request to admit a patient
type CreatePatientRequest struct {
	HospitalID       string          `json:"hospitalId"`
	Name             string          `json:"name"`
	BedNumber        string          `json:"bedNumber"`
	Status           string          `json:"status"`
	Age              *int            `json:"age"`
	Sex              string          `json:"sex"`
	Weight           *float64        `json:"weight"`
	Height           *float64        `json:"height"`
	AdmissionDate    *string         `json:"admissionDate"`
	Condition        string          `json:"condition"`
	AssignedNurseID  string          `json:"assignedNurseId"`
	AssignedDoctorID string          `json:"assignedDoctorId"`
	Code             string          `json:"code"`
	HI271Data        json.RawMessage `json:"hi271Data"`
}

// Validate checks the required fields. The code format is checked when it
// is hashed.
func (r *CreatePatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.BedNumber) == "" || r.Code == "" {
		return ErrMissingRequired
	}
	if r.AdmissionDate != nil && *r.AdmissionDate != "" {
		if _, err := time.Parse("2006-01-02", *r.AdmissionDate); err != nil {
			return ErrInvalidAdmissionDate
		}
	}
	return nil
}

// UpdatePatientRequest carries a partial update. Nil fields are left as
// they are. An empty assignee ID clears that assignment.
type UpdatePatientRequest struct {
	HospitalID       *string         `json:"hospitalId,omitempty"`
	Name             *string         `json:"name,omitempty"`
	BedNumber        *string         `json:"bedNumber,omitempty"`
	Status           *string         `json:"status,omitempty"`
	Age              *int            `json:"age,omitempty"`
	Sex              *string         `json:"sex,omitempty"`
	Weight           *float64        `json:"weight,omitempty"`
	Height           *float64        `json:"height,omitempty"`
	AdmissionDate    *string         `json:"admissionDate,omitempty"`
	Condition        *string         `json:"condition,omitempty"`
	AssignedNurseID  *string         `json:"assignedNurseId,omitempty"`
	AssignedDoctorID *string         `json:"assignedDoctorId,omitempty"`
	Code             *string         `json:"code,omitempty"`
	HI271Data        json.RawMessage `json:"hi271Data,omitempty"`
}

// Validate rejects blank required fields and malformed dates.
func (r *UpdatePatientRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrMissingRequired
	}
	if r.BedNumber != nil && strings.TrimSpace(*r.BedNumber) == "" {
		return ErrMissingRequired
	}
	if r.AdmissionDate != nil && *r.AdmissionDate != "" {
		if _, err := time.Parse("2006-01-02", *r.AdmissionDate); err != nil {
			return ErrInvalidAdmissionDate
		}
	}
	return nil
}

// Empty reports whether the request changes nothing.
func (r *UpdatePatientRequest) Empty() bool {
	return r.HospitalID == nil && r.Name == nil && r.BedNumber == nil && r.Status == nil &&
		r.Age == nil && r.Sex == nil && r.Weight == nil && r.Height == nil &&
		r.AdmissionDate == nil && r.Condition == nil && r.AssignedNurseID == nil &&
		r.AssignedDoctorID == nil && r.Code == nil && r.HI271Data == nil
}

// Changes are the column values the repository writes. CodeHash is set only
// when the access code is rotated.
type Changes struct {
	UpdatePatientRequest
	CodeHash *string
}

// ListFilter narrows a patient listing.
type ListFilter struct {
	Search           string
	Status           string
	AssignedNurseID  string
	AssignedDoctorID string
	Limit            int
	Offset           int
}

// PaginatedPatientListResponse represents a paginated list of patients
type PaginatedPatientListResponse struct {
	Patients   []Patient       `json:"patients"`
	Pagination pagination.Meta `json:"pagination"`
}

// StatusCount is one row of the overview breakdown.
type StatusCount struct {
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// Overview is the bed occupancy summary.
type Overview struct {
	TotalBeds       int           `json:"totalBeds"`
	Occupied        int           `json:"occupied"`
	Available       int           `json:"available"`
	StatusBreakdown []StatusCount `json:"statusBreakdown"`
}

// VerifyCodeRequest is the body of the verify-code endpoint.
type VerifyCodeRequest struct {
	Code *string `json:"code"`
}

// VerifyCodeResponse reports the outcome of a code check.
type VerifyCodeResponse struct {
	Valid bool `json:"valid"`
}
