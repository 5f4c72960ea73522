package kpi

import (
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// NetworkGapCalculator computes the network-wide shortfall per style
type NetworkGapCalculator struct {
	cost CostModel
}

func NewNetworkGapCalculator(cost CostModel) *NetworkGapCalculator {
	return &NetworkGapCalculator{cost: cost}
}

// Calculate compares stock at every active location, warehouses included,
// against 28 days of demand observed at retail stores. Styles with no
// shortage and no net gap produce no record.
func (c *NetworkGapCalculator) Calculate(positions []domain.InventoryPosition, demand []domain.DemandSignal, stores StoreIndex) []domain.NetworkGapRecord {
	stock := make(map[string]int)
	for _, p := range positions {
		if !stores.IsActive(p.StoreID) {
			continue
		}
		stock[p.StyleID] += p.OnHand
	}

	projected := make(map[string]float64)
	for _, d := range demand {
		if !stores.IsRetail(d.StoreID) {
			continue
		}
		projected[d.StyleID] += d.AvgDailySales * ProjectionDays
	}

	styles := make(map[string]struct{}, len(stock)+len(projected))
	for s := range stock {
		styles[s] = struct{}{}
	}
	for s := range projected {
		styles[s] = struct{}{}
	}

	var records []domain.NetworkGapRecord
	for _, styleID := range sortedKeys(styles) {
		total := stock[styleID]
		demand28 := projected[styleID]
		if total == 0 && demand28 == 0 {
			continue
		}

		need := ceilUnits(demand28)
		reallocatable := floorUnits(float64(total) * ReallocatableShare)
		shortage := max(0, need-total)
		gap := max(0, need-reallocatable)
		if shortage == 0 && gap == 0 {
			continue
		}

		records = append(records, domain.NetworkGapRecord{
			StyleID:            styleID,
			ReallocatableUnits: reallocatable,
			TrueShortageUnits:  shortage,
			NetGapUnits:        gap,
			RevenueAtRisk:      decimal.NewFromInt(int64(shortage)).Mul(c.cost.UnitCost(styleID)).Round(2),
		})
	}
	return records
}
