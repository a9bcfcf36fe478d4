package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/models"
)

func TestDecide(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{0, models.DecisionAllow},
		{1, models.DecisionAllow},
		{49, models.DecisionAllow},
		{50, models.DecisionReview},
		{79, models.DecisionReview},
		{80, models.DecisionBlock},
		{100, models.DecisionBlock},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Decide(c.score), "score=%d", c.score)
	}
}
