// Package checks implements the six fraud-signal checks (C5): each
// exposes Applicable/Perform per the shared contract and is run
// concurrently by the evaluator.
package checks

import (
	"context"

	"fraudengine/internal/models"
)

// Check is the shared contract every signal implements.
type Check interface {
	Name() string
	Applicable(input *models.EvaluateInput) bool
	Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult
}

// Weight is the fixed Risk Scorer weight per check name.
var Weight = map[string]float64{
	"email":       0.25,
	"domain":      0.15,
	"ip":          0.25,
	"credit_card": 0.20,
	"phone":       0.10,
	"user_agent":  0.05,
}

// Registry holds the six checks in a stable order and runs the
// applicable subset.
type Registry struct {
	checks []Check
}

func NewRegistry(checks ...Check) *Registry {
	return &Registry{checks: checks}
}

// Applicable returns the subset of registered checks that apply to
// input, in registration order.
func (r *Registry) Applicable(input *models.EvaluateInput) []Check {
	out := make([]Check, 0, len(r.checks))
	for _, c := range r.checks {
		if c.Applicable(input) {
			out = append(out, c)
		}
	}
	return out
}
