package patient

import (
	"context"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	CreatePatient(ctx context.Context, req CreatePatientRequest, caller *access.Identity) (*Patient, error)
	GetPatient(ctx context.Context, id string, caller *access.Identity) (*Patient, error)
	ListPatients(ctx context.Context, params ListParams, caller *access.Identity) (*PaginatedPatientListResponse, error)
	UpdatePatient(ctx context.Context, id string, req UpdatePatientRequest, caller *access.Identity) (*Patient, error)
	VerifyCode(ctx context.Context, id string, code access.SuppliedCode, caller *access.Identity) (bool, error)
	Overview(ctx context.Context, caller *access.Identity) (*Overview, error)
}

var _ ServiceInterface = (*Service)(nil)
