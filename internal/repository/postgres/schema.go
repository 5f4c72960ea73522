package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// inputSchema mirrors the tables owned by the ingestion collaborators. It is
// applied only so that a fresh database can host a local run.
const inputSchema = `
CREATE TABLE IF NOT EXISTS stores (
    tenant_id     TEXT NOT NULL,
    id            TEXT NOT NULL,
    name          TEXT,
    code          TEXT,
    tier          TEXT,
    region        TEXT,
    location_type TEXT NOT NULL DEFAULT 'retail',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS inventory_positions (
    tenant_id    TEXT NOT NULL,
    store_id     TEXT NOT NULL,
    style_id     TEXT NOT NULL,
    sku          TEXT NOT NULL,
    on_hand      INTEGER NOT NULL DEFAULT 0 CHECK (on_hand >= 0),
    reserved     INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0),
    in_transit   INTEGER NOT NULL DEFAULT 0 CHECK (in_transit >= 0),
    safety_stock INTEGER NOT NULL DEFAULT 0 CHECK (safety_stock >= 0),
    PRIMARY KEY (tenant_id, store_id, sku)
);

CREATE TABLE IF NOT EXISTS demand_signals (
    tenant_id       TEXT NOT NULL,
    store_id        TEXT NOT NULL,
    style_id        TEXT NOT NULL,
    avg_daily_sales DOUBLE PRECISION NOT NULL DEFAULT 0,
    sales_velocity  DOUBLE PRECISION NOT NULL DEFAULT 0,
    PRIMARY KEY (tenant_id, store_id, style_id)
);

CREATE TABLE IF NOT EXISTS size_mappings (
    tenant_id TEXT NOT NULL,
    style_id  TEXT NOT NULL,
    sku       TEXT NOT NULL,
    size_code TEXT NOT NULL,
    PRIMARY KEY (tenant_id, style_id, sku)
);
`

const outputSchema = `
CREATE TABLE IF NOT EXISTS kpi_inventory_distortion (
    tenant_id            TEXT NOT NULL,
    as_of_date           DATE NOT NULL,
    style_id             TEXT NOT NULL,
    distortion_score     DOUBLE PRECISION NOT NULL,
    overstock_locations  TEXT[] NOT NULL DEFAULT '{}',
    understock_locations TEXT[] NOT NULL DEFAULT '{}',
    locked_cash_estimate NUMERIC(18, 2) NOT NULL DEFAULT 0,
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, as_of_date, style_id)
);

CREATE TABLE IF NOT EXISTS kpi_size_completeness (
    tenant_id     TEXT NOT NULL,
    as_of_date    DATE NOT NULL,
    store_id      TEXT NOT NULL,
    style_id      TEXT NOT NULL,
    sizes_present INTEGER NOT NULL,
    sizes_total   INTEGER NOT NULL,
    score         DOUBLE PRECISION NOT NULL,
    missing_sizes TEXT[] NOT NULL DEFAULT '{}',
    status        TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, as_of_date, store_id, style_id)
);

CREATE TABLE IF NOT EXISTS kpi_curve_health (
    tenant_id          TEXT NOT NULL,
    as_of_date         DATE NOT NULL,
    style_id           TEXT NOT NULL,
    curve_health_index DOUBLE PRECISION NOT NULL,
    risk_band          TEXT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, as_of_date, style_id)
);

CREATE TABLE IF NOT EXISTS kpi_network_gap (
    tenant_id           TEXT NOT NULL,
    as_of_date          DATE NOT NULL,
    style_id            TEXT NOT NULL,
    reallocatable_units INTEGER NOT NULL,
    true_shortage_units INTEGER NOT NULL,
    net_gap_units       INTEGER NOT NULL,
    revenue_at_risk     NUMERIC(18, 2) NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (tenant_id, as_of_date, style_id)
);

CREATE TABLE IF NOT EXISTS kpi_runs (
    id           UUID PRIMARY KEY,
    tenant_id    TEXT NOT NULL,
    as_of_date   DATE NOT NULL,
    status       TEXT NOT NULL,
    idi_rows     INTEGER NOT NULL DEFAULT 0,
    scs_rows     INTEGER NOT NULL DEFAULT 0,
    chi_rows     INTEGER NOT NULL DEFAULT 0,
    gap_rows     INTEGER NOT NULL DEFAULT 0,
    degraded     BOOLEAN NOT NULL DEFAULT FALSE,
    errors       TEXT[] NOT NULL DEFAULT '{}',
    started_at   TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_kpi_runs_tenant_date ON kpi_runs (tenant_id, as_of_date, started_at DESC);
`

// Migrate creates the output tables and the run ledger. withInputs also
// creates the upstream input tables for local development.
func (db *DB) Migrate(ctx context.Context, withInputs bool) error {
	if withInputs {
		if _, err := db.ExecContext(ctx, inputSchema); err != nil {
			return fmt.Errorf("apply input schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, outputSchema); err != nil {
		return fmt.Errorf("apply output schema: %w", err)
	}
	log.Info().Bool("with_inputs", withInputs).Msg("kpi schema applied")
	return nil
}
