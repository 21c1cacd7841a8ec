// Package anomaly flags real trip costs that overrun their estimate.
package anomaly

// Threshold is the overage, in percent of the estimate, at which a cost is
// flagged. Only overspending is flagged; a real cost below the estimate never is.
const Threshold = 15.0

// Result is the outcome of comparing a real cost with its estimate.
type Result struct {
	IsAnomaly        bool    `json:"is_anomaly"`
	DeviationPercent float64 `json:"deviation_percent"`
}

// DeviationPercent is the signed difference of realCost from estimatedCost, relative
// to estimatedCost. It is 0 when estimatedCost is 0.
func DeviationPercent(realCost, estimatedCost float64) float64 {
	if estimatedCost == 0 {
		return 0.0
	}
	return ((realCost - estimatedCost) / estimatedCost) * 100
}

func Evaluate(realCost, estimatedCost float64) Result {
	deviation := DeviationPercent(realCost, estimatedCost)
	return Result{
		IsAnomaly:        deviation >= Threshold,
		DeviationPercent: deviation,
	}
}
