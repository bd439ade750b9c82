package services

import "github.com/custodia-labs/complyqa/internal/core/domain"

// Mean-score thresholds for confidence levels.
const (
	highConfidenceScore   = 0.8
	mediumConfidenceScore = 0.6

	// scoreEpsilon absorbs float noise so a mean of exactly 0.8 stays high.
	scoreEpsilon = 1e-9
)

// EstimateConfidence derives a confidence level from the mean retrieval score.
// No fragments means low confidence.
func EstimateConfidence(fragments []domain.RankedFragment) domain.Confidence {
	if len(fragments) == 0 {
		return domain.ConfidenceLow
	}

	var sum float64
	for _, f := range fragments {
		sum += f.Score
	}
	mean := sum / float64(len(fragments))

	switch {
	case mean >= highConfidenceScore-scoreEpsilon:
		return domain.ConfidenceHigh
	case mean >= mediumConfidenceScore-scoreEpsilon:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
