package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/models"
)

func result(score int) models.CheckResult {
	r := models.NewCheckResult("x")
	r.Score = score
	return *r
}

func TestScore_NoResults(t *testing.T) {
	s := NewScorer()
	assert.Equal(t, 0, s.Score(map[string]models.CheckResult{}))
}

func TestScore_WeightedMean(t *testing.T) {
	s := NewScorer()
	results := map[string]models.CheckResult{
		"email": result(40),
		"ip":    result(40),
	}
	// weights: email 0.25, ip 0.25 -> mean 40, no modifiers triggered
	assert.Equal(t, 40, s.Score(results))
}

func TestScore_UnknownCheckNameIgnored(t *testing.T) {
	s := NewScorer()
	results := map[string]models.CheckResult{
		"email":   result(40),
		"unknown": result(100),
	}
	assert.Equal(t, 40, s.Score(results))
}

func TestScore_HighScoreModifierTwoChecks(t *testing.T) {
	s := NewScorer()
	results := map[string]models.CheckResult{
		"email": result(80),
		"ip":    result(80),
	}
	// weighted mean = 80, two checks >= 80 -> *1.15 = 92
	assert.Equal(t, 92, s.Score(results))
}

func TestScore_HighScoreModifierThreeChecks(t *testing.T) {
	s := NewScorer()
	results := map[string]models.CheckResult{
		"email":       result(80),
		"ip":          result(80),
		"credit_card": result(80),
	}
	// weighted mean = 80, three checks >= 80 -> *1.30 = 104 -> clamp 100
	assert.Equal(t, 100, s.Score(results))
}

func TestScore_PatternBumpDisposableAndTor(t *testing.T) {
	s := NewScorer()
	email := models.NewCheckResult("email")
	email.Score = 30
	email.Details["disposable_domain"] = true

	ip := models.NewCheckResult("ip")
	ip.Score = 30
	ip.Add("tor_exit_node", true, 30, "tor exit node")

	results := map[string]models.CheckResult{"email": *email, "ip": *ip}
	mean := weightedMean(results)
	expected := clamp(int(round(mean * 1.40)))
	assert.Equal(t, expected, s.Score(results))
}

func TestScore_CriticalFloorBlacklisted(t *testing.T) {
	s := NewScorer()
	email := models.NewCheckResult("email")
	email.Score = 10
	email.Details["blacklisted"] = true

	results := map[string]models.CheckResult{"email": *email}
	assert.GreaterOrEqual(t, s.Score(results), 90)
}

func TestScore_CriticalFloorCardScore100(t *testing.T) {
	s := NewScorer()
	card := models.NewCheckResult("credit_card")
	card.Score = 100

	results := map[string]models.CheckResult{"credit_card": *card}
	assert.GreaterOrEqual(t, s.Score(results), 90)
}

func TestScore_VelocityModifierTwoConcerned(t *testing.T) {
	s := NewScorer()
	ip := models.NewCheckResult("ip")
	ip.Score = 20
	ip.Add("velocity", true, 30, "elevated request count in window")
	ip.Details["velocity"] = map[string]interface{}{"count": 60, "risk_score": 30}

	card := models.NewCheckResult("credit_card")
	card.Score = 20
	card.Add("velocity_hour", true, 30, "more than 10 uses in the last hour")
	card.Details["velocity"] = map[string]interface{}{"hour_count": 15, "day_count": 0, "risk_score": 30}

	results := map[string]models.CheckResult{"ip": *ip, "credit_card": *card}
	mean := weightedMean(results)
	expected := clamp(int(round(mean * 1.20)))
	assert.Equal(t, expected, s.Score(results))
}

func TestScore_VelocityModifierBelowThresholdNotConcerned(t *testing.T) {
	s := NewScorer()
	ip := models.NewCheckResult("ip")
	ip.Score = 20
	ip.Add("velocity", true, 10, "elevated request count in window")
	ip.Details["velocity"] = map[string]interface{}{"count": 15, "risk_score": 10}

	card := models.NewCheckResult("credit_card")
	card.Score = 20
	card.Add("velocity_hour", true, 20, "more than 3 uses in the last hour")
	card.Details["velocity"] = map[string]interface{}{"hour_count": 5, "day_count": 0, "risk_score": 20}

	results := map[string]models.CheckResult{"ip": *ip, "credit_card": *card}
	mean := weightedMean(results)
	expected := clamp(int(round(mean)))
	assert.Equal(t, expected, s.Score(results))
}

func TestScore_NeverExceeds100(t *testing.T) {
	s := NewScorer()
	results := map[string]models.CheckResult{
		"email":       result(100),
		"ip":          result(100),
		"credit_card": result(100),
		"phone":       result(100),
		"user_agent":  result(100),
		"domain":      result(100),
	}
	assert.Equal(t, 100, s.Score(results))
}

func round(f float64) float64 {
	if f < 0 {
		return float64(int(f - 0.5))
	}
	return float64(int(f + 0.5))
}
