package scorer

import "fraudengine/internal/models"

// Decide maps a final risk score to one of the three coarse decisions
// the evaluator returns alongside the score and per-check breakdown.
func Decide(score int) string {
	switch {
	case score == 0:
		return models.DecisionAllow
	case score >= 80:
		return models.DecisionBlock
	case score >= 50:
		return models.DecisionReview
	default:
		return models.DecisionAllow
	}
}
