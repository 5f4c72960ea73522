package kpi

import (
	"math"
	"sort"
)

// unitEpsilon absorbs float noise such as 0.1*28 = 2.8000000000000003 before
// converting fractional quantities to whole units.
const unitEpsilon = 1e-9

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

func ceilUnits(v float64) int {
	return int(math.Ceil(v - unitEpsilon))
}

func floorUnits(v float64) int {
	return int(math.Floor(v + unitEpsilon))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortStoreStyleKeys(keys []storeStyleKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StyleID != keys[j].StyleID {
			return keys[i].StyleID < keys[j].StyleID
		}
		return keys[i].StoreID < keys[j].StoreID
	})
}
