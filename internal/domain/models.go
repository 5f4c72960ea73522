// backend-go/internal/domain/models.go
package domain

import "github.com/shopspring/decimal"

// LocationType distinguishes selling locations from bulk storage.
type LocationType string

const (
	LocationRetail           LocationType = "retail"
	LocationCentralWarehouse LocationType = "central_warehouse"
)

// Store represents a row of the tenant's store master
type Store struct {
	ID           string       `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	Code         string       `json:"code" db:"code"`
	Tier         string       `json:"tier" db:"tier"`
	Region       string       `json:"region" db:"region"`
	LocationType LocationType `json:"location_type" db:"location_type"`
	IsActive     bool         `json:"is_active" db:"is_active"`
}

// IsRetail reports whether the store is an active selling location.
func (s Store) IsRetail() bool {
	return s.IsActive && s.LocationType != LocationCentralWarehouse
}

// InventoryPosition is the stock of one SKU at one store
type InventoryPosition struct {
	StoreID     string `json:"store_id" db:"store_id"`
	StyleID     string `json:"style_id" db:"style_id"`
	SKU         string `json:"sku" db:"sku"`
	OnHand      int    `json:"on_hand" db:"on_hand"`
	Reserved    int    `json:"reserved" db:"reserved"`
	InTransit   int    `json:"in_transit" db:"in_transit"`
	SafetyStock int    `json:"safety_stock" db:"safety_stock"`
}

// DemandSignal is the observed demand of one style at one store
type DemandSignal struct {
	StoreID       string  `json:"store_id" db:"store_id"`
	StyleID       string  `json:"style_id" db:"style_id"`
	AvgDailySales float64 `json:"avg_daily_sales" db:"avg_daily_sales"`
	SalesVelocity float64 `json:"sales_velocity" db:"sales_velocity"`
}

// SizeMapping ties a SKU to its style and size code
type SizeMapping struct {
	StyleID  string `json:"style_id" db:"style_id"`
	SKU      string `json:"sku" db:"sku"`
	SizeCode string `json:"size_code" db:"size_code"`
}

// DistortionRecord is the Inventory Distortion Index of a style
type DistortionRecord struct {
	StyleID             string          `json:"style_id"`
	DistortionScore     float64         `json:"distortion_score"`
	OverstockLocations  []string        `json:"overstock_locations"`
	UnderstockLocations []string        `json:"understock_locations"`
	LockedCashEstimate  decimal.Decimal `json:"locked_cash_estimate"`
}

// CompletenessRecord is the Size Completeness Score of a style at a store
type CompletenessRecord struct {
	StoreID      string             `json:"store_id"`
	StyleID      string             `json:"style_id"`
	SizesPresent int                `json:"sizes_present"`
	SizesTotal   int                `json:"sizes_total"`
	Score        float64            `json:"score"`
	MissingSizes []string           `json:"missing_sizes"`
	Status       CompletenessStatus `json:"status"`
}

// CurveHealthRecord is the network-averaged completeness of a style
type CurveHealthRecord struct {
	StyleID          string   `json:"style_id"`
	CurveHealthIndex float64  `json:"curve_health_index"`
	RiskBand         RiskBand `json:"risk_band"`
}

// NetworkGapRecord is the network supply/demand shortfall of a style
type NetworkGapRecord struct {
	StyleID            string          `json:"style_id"`
	ReallocatableUnits int             `json:"reallocatable_units"`
	TrueShortageUnits  int             `json:"true_shortage_units"`
	NetGapUnits        int             `json:"net_gap_units"`
	RevenueAtRisk      decimal.Decimal `json:"revenue_at_risk"`
}
