package pipeline

import (
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
)

// Input relation names, used in logs and error messages.
const (
	RelationStores       = "stores"
	RelationPositions    = "inventory_positions"
	RelationDemand       = "demand_signals"
	RelationSizeMappings = "size_mappings"
)

// Paging and batching defaults.
const (
	DefaultPageSize       = 1000
	DefaultWriteBatchSize = 500
)

// Config holds configuration for an engine instance
type Config struct {
	PageSize       int // Rows requested per input page
	WriteBatchSize int // Rows per INSERT statement
}

// DefaultConfig returns the default page and batch sizes
func DefaultConfig() Config {
	return Config{
		PageSize:       DefaultPageSize,
		WriteBatchSize: DefaultWriteBatchSize,
	}
}

func (c Config) normalized() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.WriteBatchSize <= 0 {
		c.WriteBatchSize = DefaultWriteBatchSize
	}
	return c
}

// Inputs is everything the calculators read for one tenant
type Inputs struct {
	Stores       []domain.Store
	Positions    []domain.InventoryPosition
	Demand       []domain.DemandSignal
	SizeMappings []domain.SizeMapping
}

// Outputs is everything the calculators produce for one tenant and date
type Outputs struct {
	Distortion   []domain.DistortionRecord   `json:"distortion"`
	Completeness []domain.CompletenessRecord `json:"completeness"`
	CurveHealth  []domain.CurveHealthRecord  `json:"curve_health"`
	NetworkGap   []domain.NetworkGapRecord   `json:"network_gap"`
}

// LoadIssue records an input relation whose paging stopped early
type LoadIssue struct {
	Relation string
	RowsKept int
	Err      error
}

func (i LoadIssue) Error() string {
	return "load " + i.Relation + ": " + i.Err.Error()
}

// WriteSummary reports what the snapshot writer did per relation
type WriteSummary struct {
	Rows   map[string]int
	Errors []string
}

// Report is the full outcome of one engine invocation
type Report struct {
	Result  domain.RunResult
	Outputs Outputs
	Issues  []LoadIssue
}
