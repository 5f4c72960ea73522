package kpi

import (
	"github.com/andresuchdata/controltower/backend-go/internal/domain"
)

// SizeIndex is the size universe and sku lookup built from size mappings
type SizeIndex struct {
	sizes map[string][]string
	skus  map[styleSKU]string
}

type styleSKU struct{ style, sku string }

// NewSizeIndex keeps size codes in first-seen order per style and ignores
// duplicate mappings.
func NewSizeIndex(mappings []domain.SizeMapping) SizeIndex {
	idx := SizeIndex{
		sizes: make(map[string][]string),
		skus:  make(map[styleSKU]string, len(mappings)),
	}
	type styleSize struct{ style, size string }
	seen := make(map[styleSize]bool)
	for _, m := range mappings {
		if m.SizeCode == "" {
			continue
		}
		if m.SKU != "" {
			sk := styleSKU{style: m.StyleID, sku: m.SKU}
			if _, ok := idx.skus[sk]; !ok {
				idx.skus[sk] = m.SizeCode
			}
		}
		k := styleSize{style: m.StyleID, size: m.SizeCode}
		if seen[k] {
			continue
		}
		seen[k] = true
		idx.sizes[m.StyleID] = append(idx.sizes[m.StyleID], m.SizeCode)
	}
	return idx
}

// Sizes returns the full size universe of a style.
func (i SizeIndex) Sizes(styleID string) []string {
	return i.sizes[styleID]
}

// ResolveSize maps a stocked sku to its size code within styleID. Mappings of
// the same sku under another style are ignored. A sku without a mapping
// resolves only when its style has exactly one size.
func (i SizeIndex) ResolveSize(styleID, sku string) (string, bool) {
	if size, ok := i.skus[styleSKU{style: styleID, sku: sku}]; ok {
		return size, true
	}
	if sizes := i.sizes[styleID]; len(sizes) == 1 {
		return sizes[0], true
	}
	return "", false
}

// CompletenessCalculator computes the Size Completeness Score per store and style
type CompletenessCalculator struct{}

func NewCompletenessCalculator() *CompletenessCalculator {
	return &CompletenessCalculator{}
}

// Calculate scores every retail store×style pair with at least one stocked sku.
// Pairs whose stocked skus resolve to no size are skipped, as are styles with
// no size universe.
func (c *CompletenessCalculator) Calculate(positions []domain.InventoryPosition, sizes SizeIndex, stores StoreIndex) []domain.CompletenessRecord {
	present := make(map[storeStyleKey]map[string]bool)
	stocked := make(map[storeStyleKey]bool)
	for _, p := range positions {
		if p.OnHand <= 0 || !stores.IsRetail(p.StoreID) {
			continue
		}
		key := storeStyleKey{StoreID: p.StoreID, StyleID: p.StyleID}
		stocked[key] = true

		size, ok := sizes.ResolveSize(p.StyleID, p.SKU)
		if !ok {
			continue
		}
		set, exists := present[key]
		if !exists {
			set = make(map[string]bool)
			present[key] = set
		}
		set[size] = true
	}

	keys := make([]storeStyleKey, 0, len(stocked))
	for k := range stocked {
		keys = append(keys, k)
	}
	sortStoreStyleKeys(keys)

	var records []domain.CompletenessRecord
	for _, key := range keys {
		universe := sizes.Sizes(key.StyleID)
		if len(universe) == 0 {
			continue
		}
		set := present[key]
		if len(set) == 0 {
			continue
		}

		missing := []string{}
		have := 0
		for _, size := range universe {
			if set[size] {
				have++
				continue
			}
			missing = append(missing, size)
		}

		score := float64(have) / float64(len(universe))
		records = append(records, domain.CompletenessRecord{
			StoreID:      key.StoreID,
			StyleID:      key.StyleID,
			SizesPresent: have,
			SizesTotal:   len(universe),
			Score:        score,
			MissingSizes: missing,
			Status:       domain.ClassifyCompleteness(score),
		})
	}
	return records
}
