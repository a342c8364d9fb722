package records

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/patient"
	"github.com/WailSalutem-Health-Care/micu-service/internal/telemetry"
)

// PatientLoader reads the patient snapshot each decision is made against.
type PatientLoader interface {
	GetPatient(ctx context.Context, id string) (*patient.Patient, error)
}

type Service struct {
	repo      RepositoryInterface
	patients  PatientLoader
	authz     *access.Authorizer
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
}

func NewService(repo RepositoryInterface, patients PatientLoader, authz *access.Authorizer, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		authz:     authz,
		publisher: publisher,
		metrics:   metrics,
	}
}

// ListRecords returns the records of a patient the caller may view.
func (s *Service) ListRecords(ctx context.Context, patientID string, filter ListFilter, caller *access.Identity) ([]Record, error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ReadRecords(p, caller).Err(); err != nil {
		return nil, err
	}

	records, err := s.repo.ListRecords(ctx, patientID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// CreateRecord stores a new record once the engine allows the section.
func (s *Service) CreateRecord(ctx context.Context, patientID string, req CreateRecordRequest, code access.SuppliedCode, caller *access.Identity) (*Record, error) {
	if caller == nil {
		return nil, s.authz.CreateRecord(nil, nil, access.Section(req.Section), code).Err()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	section := access.Section(req.Section)
	if err := s.authz.CreateRecord(p, caller, section, code).Err(); err != nil {
		return nil, err
	}

	rec := &Record{
		PatientID:  patientID,
		Section:    section,
		Data:       req.Data,
		Status:     req.Status,
		RecordedBy: RecordedBy{ID: caller.ID, Name: caller.FullName},
	}
	if req.Timestamp != nil {
		rec.Timestamp = req.Timestamp.UTC()
	}

	created, err := s.repo.InsertRecord(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.metrics.RecordRecordOperation(ctx, "create", string(created.Section))
	s.publish(ctx, messaging.EventRecordCreated, created, caller)
	return created, nil
}

// UpdateRecord changes data, status or timestamp. Authorization uses the
// stored record's section.
func (s *Service) UpdateRecord(ctx context.Context, patientID, recordID string, req UpdateRecordRequest, code access.SuppliedCode, caller *access.Identity) (*Record, error) {
	p, rec, err := s.load(ctx, patientID, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.MutateRecord(rec, p, caller, code).Err(); err != nil {
		return nil, err
	}

	patch := req.Patch()
	if patch.Empty() {
		return nil, ErrNoChanges
	}

	updated, err := s.repo.UpdateRecord(ctx, recordID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update record: %w", err)
	}

	s.metrics.RecordRecordOperation(ctx, "update", string(updated.Section))
	s.publish(ctx, messaging.EventRecordUpdated, updated, caller)
	return updated, nil
}

// DeleteRecord removes a record under the same rules as UpdateRecord.
func (s *Service) DeleteRecord(ctx context.Context, patientID, recordID string, code access.SuppliedCode, caller *access.Identity) error {
	p, rec, err := s.load(ctx, patientID, recordID)
	if err != nil {
		return err
	}
	if err := s.authz.DeleteRecord(rec, p, caller, code).Err(); err != nil {
		return err
	}

	stored := rec.(*Record)
	if err := s.repo.DeleteRecord(ctx, stored.ID); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}

	s.metrics.RecordRecordOperation(ctx, "delete", string(stored.Section))
	s.publish(ctx, messaging.EventRecordDeleted, stored, caller)
	return nil
}

// loadPatient returns a nil interface when the patient does not exist so the
// engine reports NOT_FOUND.
func (s *Service) loadPatient(ctx context.Context, id string) (access.Patient, error) {
	p, err := s.patients.GetPatient(ctx, id)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// load fetches the patient and the record. Either may come back as a nil
// interface when missing.
func (s *Service) load(ctx context.Context, patientID, recordID string) (access.Patient, access.Record, error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil || p == nil {
		return p, nil, err
	}

	rec, err := s.repo.GetRecord(ctx, patientID, recordID)
	if errors.Is(err, ErrRecordNotFound) {
		return p, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get record: %w", err)
	}
	return p, rec, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, rec *Record, caller *access.Identity) {
	if s.publisher == nil {
		return
	}
	event := messaging.RecordEvent{
		BaseEvent: messaging.NewBaseEvent(routingKey, caller.ID),
		Data: messaging.RecordEventData{
			RecordID:   rec.ID,
			PatientID:  rec.PatientID,
			Section:    string(rec.Section),
			Status:     rec.Status,
			RecordedAt: rec.Timestamp,
		},
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.WithError(err).WithField("routing_key", routingKey).Warn("failed to publish event")
	}
}
