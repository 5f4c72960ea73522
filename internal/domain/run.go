package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of as_of_date.
const DateLayout = "2006-01-02"

var (
	ErrMissingTenant = errors.New("tenant_id is required")
	ErrInvalidDate   = errors.New("as_of_date must be formatted as YYYY-MM-DD")
	ErrRunInProgress = errors.New("a run for this tenant and date is already in progress")
)

// RunRequest is the invocation contract of the KPI job
type RunRequest struct {
	TenantID string `json:"tenant_id" form:"tenant_id"`
	AsOfDate string `json:"as_of_date,omitempty" form:"as_of_date"`
}

// SnapshotKey scopes every output row of a run.
type SnapshotKey struct {
	TenantID string
	AsOfDate time.Time
}

// ParseSnapshotKey validates a request. An empty date resolves to today in loc.
func ParseSnapshotKey(req RunRequest, now time.Time, loc *time.Location) (SnapshotKey, error) {
	tenant := strings.TrimSpace(req.TenantID)
	if tenant == "" {
		return SnapshotKey{}, ErrMissingTenant
	}
	if loc == nil {
		loc = time.UTC
	}

	raw := strings.TrimSpace(req.AsOfDate)
	if raw == "" {
		y, m, d := now.In(loc).Date()
		return SnapshotKey{TenantID: tenant, AsOfDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}, nil
	}

	date, err := time.Parse(DateLayout, raw)
	if err != nil {
		return SnapshotKey{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return SnapshotKey{TenantID: tenant, AsOfDate: date}, nil
}

// Date returns the as-of date in wire format.
func (k SnapshotKey) Date() string {
	return k.AsOfDate.Format(DateLayout)
}

func (k SnapshotKey) String() string {
	return k.TenantID + ":" + k.Date()
}

// RunStatus is the ledger state of one engine invocation
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// RunResult is the summary returned to the caller of the job
type RunResult struct {
	RunID    string   `json:"run_id,omitempty"`
	TenantID string   `json:"tenant_id,omitempty"`
	Success  bool     `json:"success"`
	Date     string   `json:"date"`
	IDIRows  int      `json:"idi_rows"`
	SCSRows  int      `json:"scs_rows"`
	CHIRows  int      `json:"chi_rows"`
	GapRows  int      `json:"gap_rows"`
	Degraded bool     `json:"degraded"`
	Errors   []string `json:"errors,omitempty"`
}

// Status derives the ledger state from the result.
func (r RunResult) Status() RunStatus {
	switch {
	case !r.Success:
		return RunFailed
	case len(r.Errors) > 0 || r.Degraded:
		return RunPartial
	default:
		return RunCompleted
	}
}

// TotalRows is the number of rows written across all relations.
func (r RunResult) TotalRows() int {
	return r.IDIRows + r.SCSRows + r.CHIRows + r.GapRows
}

// RunRecord is a row of the run ledger
type RunRecord struct {
	ID          string     `json:"id" db:"id"`
	TenantID    string     `json:"tenant_id" db:"tenant_id"`
	AsOfDate    time.Time  `json:"as_of_date" db:"as_of_date"`
	Status      RunStatus  `json:"status" db:"status"`
	IDIRows     int        `json:"idi_rows" db:"idi_rows"`
	SCSRows     int        `json:"scs_rows" db:"scs_rows"`
	CHIRows     int        `json:"chi_rows" db:"chi_rows"`
	GapRows     int        `json:"gap_rows" db:"gap_rows"`
	Degraded    bool       `json:"degraded" db:"degraded"`
	Errors      []string   `json:"errors" db:"-"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Result converts a ledger row back into the caller-facing summary.
func (r RunRecord) Result() RunResult {
	return RunResult{
		RunID:    r.ID,
		TenantID: r.TenantID,
		Success:  r.Status != RunFailed,
		Date:     r.AsOfDate.Format(DateLayout),
		IDIRows:  r.IDIRows,
		SCSRows:  r.SCSRows,
		CHIRows:  r.CHIRows,
		GapRows:  r.GapRows,
		Degraded: r.Degraded,
		Errors:   r.Errors,
	}
}
