package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckResult_StartsPassing(t *testing.T) {
	r := NewCheckResult("email")
	assert.True(t, r.Passed)
	assert.Equal(t, 0, r.Score)
	assert.Empty(t, r.Rules)
}

func TestAdd_NotTriggeredDoesNotAffectScore(t *testing.T) {
	r := NewCheckResult("email")
	r.Add("disposable_domain", false, 30, "not disposable")
	assert.Equal(t, 0, r.Score)
	assert.Len(t, r.Rules, 1)
	assert.False(t, r.Rules[0].Triggered)
}

func TestAdd_TriggeredAddsContribution(t *testing.T) {
	r := NewCheckResult("email")
	r.Add("disposable_domain", true, 30, "disposable domain")
	assert.Equal(t, 30, r.Score)
	assert.Len(t, r.Rules, 1)
	assert.Equal(t, 30, r.Rules[0].Contributed)
}

func TestFinalize_CapsScoreAt100(t *testing.T) {
	r := NewCheckResult("email")
	r.Score = 150
	r.Finalize()
	assert.Equal(t, 100, r.Score)
	assert.False(t, r.Passed)
}

func TestFinalize_FailsAt80OrAbove(t *testing.T) {
	r := NewCheckResult("ip")
	r.Score = 80
	r.Finalize()
	assert.False(t, r.Passed)
}

func TestFinalize_PassesBelow80(t *testing.T) {
	r := NewCheckResult("ip")
	r.Score = 79
	r.Finalize()
	assert.True(t, r.Passed)
}

func TestHardFailNow_AddsContributionRatherThanOverwriting(t *testing.T) {
	r := NewCheckResult("email")
	r.Score = 30
	r.HardFailNow("disposable_domain", 80, "domain is disposable")
	assert.Equal(t, 110, r.Score)
	assert.True(t, r.HardFail)
	assert.False(t, r.Passed)
	assert.Equal(t, 80, r.Rules[0].Contributed)
}

func TestHardFailNow_FinalizeCapsCombinedScore(t *testing.T) {
	r := NewCheckResult("credit_card")
	r.Score = 10
	r.HardFailNow("luhn", 100, "failed checksum")
	r.Finalize()
	assert.Equal(t, 100, r.Score)
	assert.True(t, r.HardFail)
	assert.False(t, r.Passed)
}

func TestHardFailNow_OnlyOwnContributionWhenNothingElseAccumulated(t *testing.T) {
	r := NewCheckResult("email")
	r.HardFailNow("disposable_domain", 80, "domain is disposable")
	r.Finalize()
	assert.Equal(t, 80, r.Score)
	assert.False(t, r.Passed)
}

func TestHardFailNow_AccumulatesWithPriorRulesThenClamps(t *testing.T) {
	r := NewCheckResult("email")
	r.Add("separator_count", true, 10, "several separators")
	r.Add("plus_tag", true, 20, "contains + tag")
	r.HardFailNow("disposable_domain", 80, "domain is disposable")
	r.Finalize()
	assert.Equal(t, 100, r.Score)
	assert.False(t, r.Passed)
}

func TestErrorResult(t *testing.T) {
	r := ErrorResult("phone", assertError{})
	assert.False(t, r.Passed)
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, "boom", r.Details["error"])
}

func TestToOutput(t *testing.T) {
	r := NewCheckResult("domain")
	r.Score = 42
	r.Passed = false
	out := r.ToOutput()
	assert.Equal(t, 42, out.Score)
	assert.False(t, out.Passed)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
