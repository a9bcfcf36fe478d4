package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/models"
)

func TestLookupHeaderCaseInsensitive(t *testing.T) {
	headers := map[string][]string{"X-Forwarded-For": {"1.2.3.4"}}

	v, ok := lookupHeaderCaseInsensitive(headers, "x-forwarded-for")
	assert.True(t, ok)
	assert.Equal(t, []string{"1.2.3.4"}, v)

	_, ok = lookupHeaderCaseInsensitive(headers, "x-real-ip")
	assert.False(t, ok)
}

func TestProxyHeaderScore_NoHeaders(t *testing.T) {
	r := models.NewCheckResult("ip")
	proxyHeaderScore(r, &models.EvaluateInput{IP: "1.1.1.1"})
	assert.Equal(t, 0, r.Score)
	assert.Empty(t, r.Rules)
}

func TestProxyHeaderScore_PresentNoMismatch(t *testing.T) {
	r := models.NewCheckResult("ip")
	input := &models.EvaluateInput{
		IP:      "1.1.1.1",
		Headers: map[string][]string{"X-Forwarded-For": {"1.1.1.1"}},
	}
	proxyHeaderScore(r, input)
	assert.Equal(t, 10, r.Score)
}

func TestProxyHeaderScore_Mismatch(t *testing.T) {
	r := models.NewCheckResult("ip")
	input := &models.EvaluateInput{
		IP:      "1.1.1.1",
		Headers: map[string][]string{"X-Forwarded-For": {"9.9.9.9"}},
	}
	proxyHeaderScore(r, input)
	assert.Equal(t, 30, r.Score)
}

func TestParseUTCOffset_ValidZone(t *testing.T) {
	_, ok := parseUTCOffset("UTC")
	assert.True(t, ok)
}

func TestParseUTCOffset_InvalidZone(t *testing.T) {
	_, ok := parseUTCOffset("Not/AZone")
	assert.False(t, ok)
}
