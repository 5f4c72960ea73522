// backend-go/internal/domain/status.go
package domain

// CompletenessStatus classifies a size completeness score
type CompletenessStatus string

const (
	CompletenessHealthy CompletenessStatus = "HEALTHY"
	CompletenessAtRisk  CompletenessStatus = "AT_RISK"
	CompletenessBroken  CompletenessStatus = "BROKEN"
)

// RiskBand classifies a curve health index
type RiskBand string

const (
	RiskLow      RiskBand = "LOW"
	RiskMedium   RiskBand = "MEDIUM"
	RiskHigh     RiskBand = "HIGH"
	RiskCritical RiskBand = "CRITICAL"
)

const (
	completenessBrokenBelow = 0.3
	completenessAtRiskBelow = 0.5

	curveCriticalBelow = 0.3
	curveHighBelow     = 0.5
	curveMediumBelow   = 0.7
)

// ClassifyCompleteness maps a score in [0,1] to its status. Bounds are exclusive
// on the upper side: 0.3 is AT_RISK and 0.5 is HEALTHY.
func ClassifyCompleteness(score float64) CompletenessStatus {
	switch {
	case score < completenessBrokenBelow:
		return CompletenessBroken
	case score < completenessAtRiskBelow:
		return CompletenessAtRisk
	default:
		return CompletenessHealthy
	}
}

// ClassifyRiskBand maps a curve health index to its risk band.
func ClassifyRiskBand(chi float64) RiskBand {
	switch {
	case chi < curveCriticalBelow:
		return RiskCritical
	case chi < curveHighBelow:
		return RiskHigh
	case chi < curveMediumBelow:
		return RiskMedium
	default:
		return RiskLow
	}
}
