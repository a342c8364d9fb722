package records

import "context"

// RepositoryInterface defines the contract for clinical record data access
type RepositoryInterface interface {
	GetRecord(ctx context.Context, patientID, recordID string) (*Record, error)
	InsertRecord(ctx context.Context, rec *Record) (*Record, error)
	UpdateRecord(ctx context.Context, id string, patch Patch) (*Record, error)
	DeleteRecord(ctx context.Context, id string) error
	ListRecords(ctx context.Context, patientID string, f ListFilter) ([]Record, error)
}

var _ RepositoryInterface = (*Repository)(nil)
