package records

import (
	"context"

	"github.com/WailSalutem-Health-Care/micu-service/internal/access"
)

// ServiceInterface defines the contract for clinical record operations
type ServiceInterface interface {
	ListRecords(ctx context.Context, patientID string, filter ListFilter, caller *access.Identity) ([]Record, error)
	CreateRecord(ctx context.Context, patientID string, req CreateRecordRequest, code access.SuppliedCode, caller *access.Identity) (*Record, error)
	UpdateRecord(ctx context.Context, patientID, recordID string, req UpdateRecordRequest, code access.SuppliedCode, caller *access.Identity) (*Record, error)
	DeleteRecord(ctx context.Context, patientID, recordID string, code access.SuppliedCode, caller *access.Identity) error
}

var _ ServiceInterface = (*Service)(nil)
