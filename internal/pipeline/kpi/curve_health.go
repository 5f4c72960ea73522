package kpi

import "github.com/andresuchdata/controltower/backend-go/internal/domain"

// CurveHealthCalculator aggregates completeness scores into a per-style index
type CurveHealthCalculator struct{}

func NewCurveHealthCalculator() *CurveHealthCalculator {
	return &CurveHealthCalculator{}
}

// Calculate averages the completeness score of every store of a style. The
// index is rounded to 4 decimals before it is banded.
func (c *CurveHealthCalculator) Calculate(completeness []domain.CompletenessRecord) []domain.CurveHealthRecord {
	type acc struct {
		sum   float64
		count int
	}
	byStyle := make(map[string]*acc)
	for _, r := range completeness {
		a, ok := byStyle[r.StyleID]
		if !ok {
			a = &acc{}
			byStyle[r.StyleID] = a
		}
		a.sum += r.Score
		a.count++
	}

	records := make([]domain.CurveHealthRecord, 0, len(byStyle))
	for _, styleID := range sortedKeys(byStyle) {
		a := byStyle[styleID]
		chi := roundFloat(a.sum/float64(a.count), 4)
		records = append(records, domain.CurveHealthRecord{
			StyleID:          styleID,
			CurveHealthIndex: chi,
			RiskBand:         domain.ClassifyRiskBand(chi),
		})
	}
	return records
}
