package kpi

import (
	"math"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

type storeStyleKey struct {
	StoreID string
	StyleID string
}

// DistortionCalculator computes the Inventory Distortion Index per style
type DistortionCalculator struct {
	cost CostModel
}

func NewDistortionCalculator(cost CostModel) *DistortionCalculator {
	return &DistortionCalculator{cost: cost}
}

// DaysOfCover returns on_hand/velocity, InfiniteCoverDays for stock that does
// not sell, and 0 when there is nothing on hand.
func DaysOfCover(onHand int, velocity float64) float64 {
	switch {
	case velocity > 0:
		return float64(onHand) / velocity
	case onHand > 0:
		return InfiniteCoverDays
	default:
		return 0
	}
}

type coverPoint struct {
	storeID string
	onHand  int
	doc     float64
}

// Calculate emits one record per style stocked at two or more retail stores.
// A store's on-hand is the sum over the style's SKUs held there.
func (c *DistortionCalculator) Calculate(positions []domain.InventoryPosition, demand []domain.DemandSignal, stores StoreIndex) []domain.DistortionRecord {
	velocity := make(map[storeStyleKey]float64, len(demand))
	for _, d := range demand {
		velocity[storeStyleKey{d.StoreID, d.StyleID}] = d.SalesVelocity
	}

	onHand := make(map[string]map[string]int)
	for _, p := range positions {
		if !stores.IsRetail(p.StoreID) {
			continue
		}
		byStore, ok := onHand[p.StyleID]
		if !ok {
			byStore = make(map[string]int)
			onHand[p.StyleID] = byStore
		}
		byStore[p.StoreID] += p.OnHand
	}

	var records []domain.DistortionRecord
	for _, styleID := range sortedKeys(onHand) {
		byStore := onHand[styleID]
		if len(byStore) < MinDistortionStores {
			continue
		}

		points := make([]coverPoint, 0, len(byStore))
		var sum float64
		for _, storeID := range sortedKeys(byStore) {
			qty := byStore[storeID]
			doc := DaysOfCover(qty, velocity[storeStyleKey{storeID, styleID}])
			points = append(points, coverPoint{storeID: storeID, onHand: qty, doc: doc})
			sum += doc
		}

		n := float64(len(points))
		mean := sum / n
		var sq float64
		for _, pt := range points {
			sq += (pt.doc - mean) * (pt.doc - mean)
		}
		stddev := math.Sqrt(sq / n)

		rec := domain.DistortionRecord{
			StyleID:             styleID,
			DistortionScore:     roundFloat(stddev, 2),
			OverstockLocations:  []string{},
			UnderstockLocations: []string{},
		}
		var lockedUnits int64
		for _, pt := range points {
			if pt.doc > overstockFactor*mean {
				rec.OverstockLocations = append(rec.OverstockLocations, pt.storeID)
				lockedUnits += int64(pt.onHand)
			}
			if pt.doc < understockFactor*mean && pt.doc < understockMaxCoverDay {
				rec.UnderstockLocations = append(rec.UnderstockLocations, pt.storeID)
			}
		}
		rec.LockedCashEstimate = decimal.NewFromInt(lockedUnits).Mul(c.cost.UnitCost(styleID)).Round(2)

		records = append(records, rec)
	}
	return records
}
