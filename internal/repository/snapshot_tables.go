package repository

import "github.com/andresuchdata/controltower/backend-go/internal/domain"

// SnapshotTable describes one output relation
type SnapshotTable struct {
	Name    string
	Columns []string
}

var (
	DistortionTable = SnapshotTable{
		Name:    "kpi_inventory_distortion",
		Columns: []string{"style_id", "distortion_score", "overstock_locations", "understock_locations", "locked_cash_estimate"},
	}
	CompletenessTable = SnapshotTable{
		Name:    "kpi_size_completeness",
		Columns: []string{"store_id", "style_id", "sizes_present", "sizes_total", "score", "missing_sizes", "status"},
	}
	CurveHealthTable = SnapshotTable{
		Name:    "kpi_curve_health",
		Columns: []string{"style_id", "curve_health_index", "risk_band"},
	}
	NetworkGapTable = SnapshotTable{
		Name:    "kpi_network_gap",
		Columns: []string{"style_id", "reallocatable_units", "true_shortage_units", "net_gap_units", "revenue_at_risk"},
	}
)

// SnapshotTables lists the output relations in write order.
func SnapshotTables() []SnapshotTable {
	return []SnapshotTable{DistortionTable, CompletenessTable, CurveHealthTable, NetworkGapTable}
}

func DistortionRows(records []domain.DistortionRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.StyleID, r.DistortionScore, r.OverstockLocations, r.UnderstockLocations, r.LockedCashEstimate,
		})
	}
	return rows
}

func CompletenessRows(records []domain.CompletenessRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.StoreID, r.StyleID, r.SizesPresent, r.SizesTotal, r.Score, r.MissingSizes, string(r.Status),
		})
	}
	return rows
}

func CurveHealthRows(records []domain.CurveHealthRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{r.StyleID, r.CurveHealthIndex, string(r.RiskBand)})
	}
	return rows
}

func NetworkGapRows(records []domain.NetworkGapRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, []interface{}{
			r.StyleID, r.ReallocatableUnits, r.TrueShortageUnits, r.NetGapUnits, r.RevenueAtRisk,
		})
	}
	return rows
}
