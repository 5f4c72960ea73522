// backend-go/internal/repository/kpi_repository.go
package repository

import (
	"context"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
)

// InputRepository reads the tenant-scoped inputs of the KPI engine one page at a time.
type InputRepository interface {
	StoresPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.Store, error)
	PositionsPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.InventoryPosition, error)
	DemandPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.DemandSignal, error)
	SizeMappingsPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.SizeMapping, error)
	ListTenants(ctx context.Context) ([]string, error)
}

// SnapshotRepository replaces the rows of one output table for a tenant and date.
// Rows hold values in Columns order; tenant_id and as_of_date are added by the store.
type SnapshotRepository interface {
	Replace(ctx context.Context, table SnapshotTable, key domain.SnapshotKey, rows [][]interface{}, batchSize int) (int, error)
}

// RunRepository is the ledger of engine invocations.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.RunRecord) error
	CompleteRun(ctx context.Context, run *domain.RunRecord) error
	LatestRun(ctx context.Context, tenantID string, asOfDate string) (*domain.RunRecord, error)
}
