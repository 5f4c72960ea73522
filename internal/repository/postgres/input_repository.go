package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
)

type inputRepository struct {
	db *sqlx.DB
}

// NewInputRepository reads engine inputs. Every page query orders by the
// relation's natural key so LIMIT/OFFSET paging is stable.
func NewInputRepository(db *sqlx.DB) repository.InputRepository {
	return &inputRepository{db: db}
}

func (r *inputRepository) StoresPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.Store, error) {
	query := `
		SELECT id, COALESCE(name, '') AS name, COALESCE(code, '') AS code,
		       COALESCE(tier, '') AS tier, COALESCE(region, '') AS region,
		       COALESCE(location_type, '') AS location_type, is_active
		FROM stores
		WHERE tenant_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	var stores []domain.Store
	if err := r.db.SelectContext(ctx, &stores, query, tenantID, limit, offset); err != nil {
		return nil, fmt.Errorf("error getting stores page: %w", err)
	}
	return stores, nil
}

func (r *inputRepository) PositionsPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.InventoryPosition, error) {
	query := `
		SELECT store_id, style_id, sku, on_hand, reserved, in_transit, safety_stock
		FROM inventory_positions
		WHERE tenant_id = $1
		ORDER BY store_id, sku
		LIMIT $2 OFFSET $3
	`

	var positions []domain.InventoryPosition
	if err := r.db.SelectContext(ctx, &positions, query, tenantID, limit, offset); err != nil {
		return nil, fmt.Errorf("error getting inventory positions page: %w", err)
	}
	return positions, nil
}

func (r *inputRepository) DemandPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.DemandSignal, error) {
	query := `
		SELECT store_id, style_id, avg_daily_sales, sales_velocity
		FROM demand_signals
		WHERE tenant_id = $1
		ORDER BY store_id, style_id
		LIMIT $2 OFFSET $3
	`

	var signals []domain.DemandSignal
	if err := r.db.SelectContext(ctx, &signals, query, tenantID, limit, offset); err != nil {
		return nil, fmt.Errorf("error getting demand signals page: %w", err)
	}
	return signals, nil
}

func (r *inputRepository) SizeMappingsPage(ctx context.Context, tenantID string, offset, limit int) ([]domain.SizeMapping, error) {
	query := `
		SELECT style_id, sku, size_code
		FROM size_mappings
		WHERE tenant_id = $1
		ORDER BY style_id, sku
		LIMIT $2 OFFSET $3
	`

	var mappings []domain.SizeMapping
	if err := r.db.SelectContext(ctx, &mappings, query, tenantID, limit, offset); err != nil {
		return nil, fmt.Errorf("error getting size mappings page: %w", err)
	}
	return mappings, nil
}

func (r *inputRepository) ListTenants(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT tenant_id
		FROM stores
		WHERE is_active
		ORDER BY tenant_id
	`

	var tenants []string
	if err := r.db.SelectContext(ctx, &tenants, query); err != nil {
		return nil, fmt.Errorf("error listing tenants: %w", err)
	}
	return tenants, nil
}
