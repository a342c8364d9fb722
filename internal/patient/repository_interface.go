package patient

import "context"

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	GetPatient(ctx context.Context, id string) (*Patient, error)
	ListPatients(ctx context.Context, f ListFilter) ([]Patient, int, error)
	UpdatePatient(ctx context.Context, id string, c Changes) (*Patient, error)
	CountByStatus(ctx context.Context) ([]StatusCount, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
