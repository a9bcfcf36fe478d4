package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/models"
)

func TestRecord_NilClientsDoNotPanic(t *testing.T) {
	s := NewSink(nil, "fraud-evaluations", nil, "fraud_events")

	record := &models.FraudCheck{
		ID:        "test-id",
		EmailHash: "abc123",
		RiskScore: 42,
		Decision:  models.DecisionReview,
		CreatedAt: time.Now(),
	}

	assert.NotPanics(t, func() {
		s.Record(record)
		// Record fires goroutines; give them a moment to hit the nil
		// guard and return before the test process exits.
		time.Sleep(10 * time.Millisecond)
	})
}
