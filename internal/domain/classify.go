package domain

// Classification thresholds, both inclusive
const (
	SuccessThreshold = 0.8
	FailureThreshold = 0.3
)

// SuccessRate returns the fraction of criteria met. A criterion is met when
// its metric is present and actual >= target.
func SuccessRate(metrics map[string]float64, criteria []SuccessCriterion) (float64, error) {
	if len(criteria) == 0 {
		return 0, InvalidExperimentf("no success criteria to classify against")
	}

	met := 0
	for _, c := range criteria {
		if actual, ok := metrics[c.Metric]; ok && actual >= c.Target {
			met++
		}
	}
	return float64(met) / float64(len(criteria)), nil
}

// Classify assigns a ResultStatus from metrics and success criteria
func Classify(metrics map[string]float64, criteria []SuccessCriterion) (ResultStatus, error) {
	rate, err := SuccessRate(metrics, criteria)
	if err != nil {
		return "", err
	}

	switch {
	case rate >= SuccessThreshold:
		return ResultSuccess, nil
	case rate <= FailureThreshold:
		return ResultFailure, nil
	default:
		return ResultInconclusive, nil
	}
}
