package evaluator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fraudengine/internal/checks"
	"fraudengine/internal/models"
)

type fakeCheck struct {
	name   string
	delay  time.Duration
	panics bool
	result models.CheckResult
}

func (f *fakeCheck) Name() string                                    { return f.name }
func (f *fakeCheck) Applicable(*models.EvaluateInput) bool           { return true }
func (f *fakeCheck) Perform(ctx context.Context, input *models.EvaluateInput) models.CheckResult {
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.result
}

func TestRunChecks_EmptyInput(t *testing.T) {
	results := runChecks(context.Background(), nil, &models.EvaluateInput{})
	assert.Empty(t, results)
}

func TestRunChecks_CollectsAllResults(t *testing.T) {
	applicable := []checks.Check{
		&fakeCheck{name: "email", result: models.CheckResult{CheckName: "email", Score: 10, Passed: true}},
		&fakeCheck{name: "ip", result: models.CheckResult{CheckName: "ip", Score: 20, Passed: true}},
	}

	results := runChecks(context.Background(), applicable, &models.EvaluateInput{})
	assert.Len(t, results, 2)
	assert.Equal(t, 10, results["email"].Score)
	assert.Equal(t, 20, results["ip"].Score)
}

func TestRunChecks_TimeoutProducesTimeoutResult(t *testing.T) {
	slow := &fakeCheck{name: "slow", delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	results := runChecks(ctx, []checks.Check{slow}, &models.EvaluateInput{})
	r := results["slow"]
	assert.False(t, r.Passed)
	assert.Equal(t, "timeout", r.Details["error"])
}

func TestRunChecks_PanicRecoveredAsErrorResult(t *testing.T) {
	bad := &fakeCheck{name: "bad", panics: true}
	results := runChecks(context.Background(), []checks.Check{bad}, &models.EvaluateInput{})
	r := results["bad"]
	assert.False(t, r.Passed)
	assert.Contains(t, r.Details["error"], "panic")
}
