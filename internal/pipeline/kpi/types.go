package kpi

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// InfiniteCoverDays stands in for days of cover when stock exists but nothing sells.
	InfiniteCoverDays = 999.0

	// MinDistortionStores is the number of contributing stores IDI needs.
	MinDistortionStores = 2

	overstockFactor       = 1.5
	understockFactor      = 0.5
	understockMaxCoverDay = 14.0

	// ProjectionDays is the demand horizon used by the network gap.
	ProjectionDays = 28

	// ReallocatableShare is the fraction of network stock that can be moved.
	ReallocatableShare = 0.7
)

// CostModel prices a unit of a style. The engine ships with a flat placeholder;
// a per-style table can be injected when real costs are available.
type CostModel interface {
	UnitCost(styleID string) decimal.Decimal
}

// FlatCost prices every style the same
type FlatCost decimal.Decimal

// NewFlatCost parses the configured placeholder cost, e.g. "100" or "12.50".
func NewFlatCost(raw string) (FlatCost, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return FlatCost{}, err
	}
	return FlatCost(d), nil
}

func (c FlatCost) UnitCost(string) decimal.Decimal {
	return decimal.Decimal(c)
}

// StyleCostTable prices styles individually and falls back for unknown ones
type StyleCostTable struct {
	Costs    map[string]decimal.Decimal
	Fallback CostModel
}

// NewStyleCostTable parses per-style costs keyed by style id.
func NewStyleCostTable(raw map[string]string, fallback CostModel) (StyleCostTable, error) {
	costs := make(map[string]decimal.Decimal, len(raw))
	for styleID, v := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return StyleCostTable{}, fmt.Errorf("cost of style %s: %w", styleID, err)
		}
		costs[styleID] = d
	}
	return StyleCostTable{Costs: costs, Fallback: fallback}, nil
}

func (t StyleCostTable) UnitCost(styleID string) decimal.Decimal {
	if c, ok := t.Costs[styleID]; ok {
		return c
	}
	if t.Fallback == nil {
		return decimal.Zero
	}
	return t.Fallback.UnitCost(styleID)
}
