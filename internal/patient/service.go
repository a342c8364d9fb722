package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
	"github.com/WailSalutem-Health-Care/micu-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/micu-service/internal/pagination"
	"github.com/WailSalutem-Health-Care/micu-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/micu-service/internal/users"
)

// AssigneeLookup resolves a staff ID so assignments can be checked against
// the assignee's role.
type AssigneeLookup interface {
	GetByID(ctx context.Context, userID string) (*users.User, error)
}

type Service struct {
	repo      RepositoryInterface
	authz     *access.Authorizer
	assignees AssigneeLookup
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	totalBeds int
}

func NewService(repo RepositoryInterface, authz *access.Authorizer, assignees AssigneeLookup, publisher messaging.PublisherInterface, metrics *telemetry.Metrics, totalBeds int) *Service {
	return &Service{
		repo:      repo,
		authz:     authz,
		assignees: assignees,
		publisher: publisher,
		metrics:   metrics,
		totalBeds: totalBeds,
	}
}

func requireAdmin(caller *access.Identity) error {
	switch {
	case caller == nil:
		return access.Deny(access.ReasonUnauthenticated).Err()
	case !caller.IsAdmin():
		return access.Deny(access.ReasonForbiddenRole).Err()
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest, caller *access.Identity) (*Patient, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := validateHI271(req.HI271Data); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, req.AssignedNurseID, access.RoleNurse); err != nil {
		return nil, err
	}
	if err := s.checkAssignee(ctx, req.AssignedDoctorID, access.RoleDoctor); err != nil {
		return nil, err
	}

	hash, err := s.authz.Codes().HashCode(req.Code)
	if err != nil {
		return nil, err
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = StatusStable
	}

	created, err := s.repo.CreatePatient(ctx, &Patient{
		HospitalID:       strings.TrimSpace(req.HospitalID),
		Name:             strings.TrimSpace(req.Name),
		BedNumber:        strings.TrimSpace(req.BedNumber),
		Status:           status,
		Age:              req.Age,
		Sex:              req.Sex,
		Weight:           req.Weight,
		Height:           req.Height,
		AdmissionDate:    req.AdmissionDate,
		Condition:        req.Condition,
		AssignedNurseID:  req.AssignedNurseID,
		AssignedDoctorID: req.AssignedDoctorID,
		CodeHash:         hash,
		HI271Data:        req.HI271Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.metrics.RecordPatientOperation(ctx, "create")
	s.publish(ctx, messaging.EventPatientCreated, messaging.PatientEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated, caller.ID),
		Data:      patientEventData(created),
	})

	return created, nil
}

// GetPatient returns a patient the caller may view.
func (s *Service) GetPatient(ctx context.Context, id string, caller *access.Identity) (*Patient, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, s.authz.ViewPatient(nil, caller).Err()
	}
	if err := s.authz.ViewPatient(p, caller).Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// ListParams are the listing query options.
type ListParams struct {
	Search       string
	Status       string
	AssignedOnly bool
	Page         pagination.Params
}

// ListPatients lists patients, scoped by the caller's assignment when
// AssignedOnly is set.
func (s *Service) ListPatients(ctx context.Context, params ListParams, caller *access.Identity) (*PaginatedPatientListResponse, error) {
	scope, d := s.authz.ListPatients(caller, params.AssignedOnly)
	if err := d.Err(); err != nil {
		return nil, err
	}

	params.Page.Normalize()

	patients, total, err := s.repo.ListPatients(ctx, ListFilter{
		Search:           params.Search,
		Status:           params.Status,
		AssignedNurseID:  scope.AssignedNurseID,
		AssignedDoctorID: scope.AssignedDoctorID,
		Limit:            params.Page.Limit,
		Offset:           params.Page.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	return &PaginatedPatientListResponse{
		Patients:   patients,
		Pagination: params.Page.MetaFor(total),
	}, nil
}

// UpdatePatient applies an admin edit. A present code rotates the access
// code immediately.
func (s *Service) UpdatePatient(ctx context.Context, id string, req UpdatePatientRequest, caller *access.Identity) (*Patient, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, ErrNoChanges
	}
	if err := validateHI271(req.HI271Data); err != nil {
		return nil, err
	}

	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, access.Deny(access.ReasonNotFound).Err()
	}

	if req.AssignedNurseID != nil {
		if err := s.checkAssignee(ctx, *req.AssignedNurseID, access.RoleNurse); err != nil {
			return nil, err
		}
	}
	if req.AssignedDoctorID != nil {
		if err := s.checkAssignee(ctx, *req.AssignedDoctorID, access.RoleDoctor); err != nil {
			return nil, err
		}
	}

	changes := Changes{UpdatePatientRequest: req}
	if req.Code != nil {
		hash, err := s.authz.Codes().HashCode(*req.Code)
		if err != nil {
			return nil, err
		}
		changes.CodeHash = &hash
	}

	updated, err := s.repo.UpdatePatient(ctx, existing.ID, changes)
	if err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}

	s.metrics.RecordPatientOperation(ctx, "update")
	s.publish(ctx, messaging.EventPatientUpdated, messaging.PatientEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientUpdated, caller.ID),
		Data:      patientEventData(updated),
	})

	if existing.AssignedNurseID != updated.AssignedNurseID || existing.AssignedDoctorID != updated.AssignedDoctorID {
		s.publish(ctx, messaging.EventPatientAssignmentChanged, messaging.AssignmentChangedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientAssignmentChanged, caller.ID),
			Data: messaging.AssignmentChangedData{
				PatientID:   updated.ID,
				OldNurseID:  existing.AssignedNurseID,
				NewNurseID:  updated.AssignedNurseID,
				OldDoctorID: existing.AssignedDoctorID,
				NewDoctorID: updated.AssignedDoctorID,
				ChangedAt:   updated.UpdatedAt,
			},
		})
	}

	if changes.CodeHash != nil {
		log.WithField("patient_id", updated.ID).Info("Patient access code rotated")
		s.publish(ctx, messaging.EventPatientAccessCodeRotated, messaging.AccessCodeRotatedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientAccessCodeRotated, caller.ID),
			Data:      messaging.AccessCodeRotatedData{PatientID: updated.ID, RotatedAt: updated.UpdatedAt},
		})
	}

	return updated, nil
}

// VerifyCode checks a code for a patient the caller may view.
func (s *Service) VerifyCode(ctx context.Context, id string, code access.SuppliedCode, caller *access.Identity) (bool, error) {
	p, err := s.GetPatient(ctx, id, caller)
	if err != nil {
		return false, err
	}
	if code.Empty() {
		return false, ErrCodeRequired
	}
	return s.authz.VerifyCode(p, code), nil
}

// Overview summarises bed occupancy.
func (s *Service) Overview(ctx context.Context, caller *access.Identity) (*Overview, error) {
	if caller == nil {
		return nil, access.Deny(access.ReasonUnauthenticated).Err()
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build overview: %w", err)
	}

	occupied := 0
	for _, c := range counts {
		occupied += c.Total
	}
	available := s.totalBeds - occupied
	if available < 0 {
		available = 0
	}

	return &Overview{
		TotalBeds:       s.totalBeds,
		Occupied:        occupied,
		Available:       available,
		StatusBreakdown: breakdown(counts),
	}, nil
}

// breakdown folds raw status counts into Stable, Warning and Critical, in
// that order and always present. Anything else is reported as Other, only
// when non-zero.
func breakdown(counts []StatusCount) []StatusCount {
	out := []StatusCount{
		{Status: StatusStable},
		{Status: StatusWarning},
		{Status: StatusCritical},
	}
	other := 0
	for _, c := range counts {
		switch {
		case strings.EqualFold(c.Status, StatusStable):
			out[0].Total += c.Total
		case strings.EqualFold(c.Status, StatusWarning):
			out[1].Total += c.Total
		case strings.EqualFold(c.Status, StatusCritical):
			out[2].Total += c.Total
		default:
			other += c.Total
		}
	}
	if other > 0 {
		out = append(out, StatusCount{Status: StatusOther, Total: other})
	}
	return out
}

// load returns nil, nil when the patient does not exist.
func (s *Service) load(ctx context.Context, id string) (*Patient, error) {
	p, err := s.repo.GetPatient(ctx, id)
	if errors.Is(err, ErrPatientNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

// checkAssignee accepts an empty ID (no assignment) or a user holding role.
func (s *Service) checkAssignee(ctx context.Context, userID string, role access.Role) error {
	if userID == "" || s.assignees == nil {
		return nil
	}
	u, err := s.assignees.GetByID(ctx, userID)
	if errors.Is(err, users.ErrUserNotFound) {
		return ErrInvalidAssignee
	}
	if err != nil {
		return fmt.Errorf("failed to look up assignee: %w", err)
	}
	if u.Role != role {
		return ErrInvalidAssignee
	}
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.WithError(err).WithField("routing_key", routingKey).Warn("failed to publish event")
	}
}

func patientEventData(p *Patient) messaging.PatientEventData {
	occurred := p.UpdatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return messaging.PatientEventData{
		PatientID:        p.ID,
		HospitalID:       p.HospitalID,
		BedNumber:        p.BedNumber,
		Status:           p.Status,
		AssignedNurseID:  p.AssignedNurseID,
		AssignedDoctorID: p.AssignedDoctorID,
		OccurredAt:       occurred,
	}
}

// validateHI271 accepts absent data, JSON null, or a JSON object.
func validateHI271(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidHI271Data
	}
	return nil
}
