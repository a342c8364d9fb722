package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys
const (
	EventPatientCreated           = "patient.created"
	EventPatientUpdated           = "patient.updated"
	EventPatientAssignmentChanged = "patient.assignment_changed"
	EventPatientAccessCodeRotated = "patient.access_code_rotated"

	EventRecordCreated = "record.created"
	EventRecordUpdated = "record.updated"
	EventRecordDeleted = "record.deleted"

	EventUserCreated = "user.created"
)

// ServiceName is stamped on every event.
const ServiceName = "micu-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
	ActorID     string    `json:"actor_id,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType, actorID string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
		ActorID:     actorID,
	}
}

// PatientEvent is published when a patient is created or updated.
type PatientEvent struct {
	BaseEvent
	Data PatientEventData `json:"data"`
}

type PatientEventData struct {
	PatientID        string    `json:"patient_id"`
	HospitalID       string    `json:"hospital_id,omitempty"`
	BedNumber        string    `json:"bed_number"`
	Status           string    `json:"status"`
	AssignedNurseID  string    `json:"assigned_nurse_id,omitempty"`
	AssignedDoctorID string    `json:"assigned_doctor_id,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// AssignmentChangedEvent is published when care staff assignment changes.
type AssignmentChangedEvent struct {
	BaseEvent
	Data AssignmentChangedData `json:"data"`
}

type AssignmentChangedData struct {
	PatientID   string    `json:"patient_id"`
	OldNurseID  string    `json:"old_nurse_id,omitempty"`
	NewNurseID  string    `json:"new_nurse_id,omitempty"`
	OldDoctorID string    `json:"old_doctor_id,omitempty"`
	NewDoctorID string    `json:"new_doctor_id,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// AccessCodeRotatedEvent carries no code material.
type AccessCodeRotatedEvent struct {
	BaseEvent
	Data AccessCodeRotatedData `json:"data"`
}

type AccessCodeRotatedData struct {
	PatientID string    `json:"patient_id"`
	RotatedAt time.Time `json:"rotated_at"`
}

// RecordEvent is published for record create, update and delete.
type RecordEvent struct {
	BaseEvent
	Data RecordEventData `json:"data"`
}

type RecordEventData struct {
	RecordID   string    `json:"record_id"`
	PatientID  string    `json:"patient_id"`
	Section    string    `json:"section"`
	Status     string    `json:"status,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// UserCreatedEvent is published when staff are provisioned.
type UserCreatedEvent struct {
	BaseEvent
	Data UserCreatedData `json:"data"`
}

type UserCreatedData struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
