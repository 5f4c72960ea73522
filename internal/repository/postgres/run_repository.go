package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// runRepository handles database operations for the run ledger
type runRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) repository.RunRepository {
	return &runRepository{db: db}
}

// CreateRun creates a new run record
func (r *runRepository) CreateRun(ctx context.Context, run *domain.RunRecord) error {
	query := `
		INSERT INTO kpi_runs (id, tenant_id, as_of_date, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TenantID, run.AsOfDate.Format(domain.DateLayout), run.Status, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating kpi run: %w", err)
	}
	return nil
}

// CompleteRun stores the final counts and status of a run
func (r *runRepository) CompleteRun(ctx context.Context, run *domain.RunRecord) error {
	query := `
		UPDATE kpi_runs
		SET status = $1, idi_rows = $2, scs_rows = $3, chi_rows = $4, gap_rows = $5,
		    degraded = $6, errors = $7, completed_at = $8
		WHERE id = $9
	`

	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		run.Status, run.IDIRows, run.SCSRows, run.CHIRows, run.GapRows,
		run.Degraded, pq.Array(errs), run.CompletedAt, run.ID,
	)
	if err != nil {
		return fmt.Errorf("error completing kpi run %s: %w", run.ID, err)
	}
	return nil
}

// LatestRun returns the newest run of a tenant, optionally for one date.
// It returns nil when there is none.
func (r *runRepository) LatestRun(ctx context.Context, tenantID string, asOfDate string) (*domain.RunRecord, error) {
	query := `
		SELECT id, tenant_id, as_of_date, status, idi_rows, scs_rows, chi_rows, gap_rows,
		       degraded, errors, started_at, completed_at
		FROM kpi_runs
		WHERE tenant_id = $1 AND ($2 = '' OR as_of_date = NULLIF($2, '')::date)
		ORDER BY started_at DESC
		LIMIT 1
	`

	run := &domain.RunRecord{}
	var errs pq.StringArray
	err := r.db.QueryRowxContext(ctx, query, tenantID, asOfDate).Scan(
		&run.ID, &run.TenantID, &run.AsOfDate, &run.Status,
		&run.IDIRows, &run.SCSRows, &run.CHIRows, &run.GapRows,
		&run.Degraded, &errs, &run.StartedAt, &run.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting latest kpi run: %w", err)
	}

	run.Errors = []string(errs)
	return run, nil
}
