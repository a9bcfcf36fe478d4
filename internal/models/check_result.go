package models

// CheckResult is what every Check's Perform returns (§4.5 shared
// contract). Score is additive across internal sub-rules and capped
// at 100; Passed is forced false when Score >= 80 or a hard-fail
// sub-rule fires.
type CheckResult struct {
	CheckName string                 `json:"check_name"`
	Passed    bool                   `json:"passed"`
	Score     int                    `json:"score"`
	HardFail  bool                   `json:"hard_fail"`
	Details   map[string]interface{} `json:"details"`
	Rules     []RuleResult           `json:"rules,omitempty"`
	Err       error                  `json:"-"`
}

// RuleResult records one sub-rule's contribution to a Check's score —
// the per-check breakdown supplementing the bare pass/score pair in
// the audit record, grounded in the pack's fraud-engine rule-result
// shape.
type RuleResult struct {
	Rule        string `json:"rule"`
	Triggered   bool   `json:"triggered"`
	Contributed int    `json:"contributed"`
	Detail      string `json:"detail,omitempty"`
}

// NewCheckResult seeds an empty, passing result for a check; callers
// append RuleResult entries and call Finalize to apply the score cap
// and the passed/hard-fail rule.
func NewCheckResult(name string) *CheckResult {
	return &CheckResult{
		CheckName: name,
		Passed:    true,
		Details:   make(map[string]interface{}),
	}
}

// Add applies one sub-rule's contribution, recording it in both the
// rule breakdown and the running score.
func (r *CheckResult) Add(rule string, triggered bool, contribution int, detail string) {
	if !triggered {
		r.Rules = append(r.Rules, RuleResult{Rule: rule, Triggered: false, Detail: detail})
		return
	}
	r.Score += contribution
	r.Rules = append(r.Rules, RuleResult{Rule: rule, Triggered: true, Contributed: contribution, Detail: detail})
}

// HardFailNow adds contribution to the running score, marks the
// result a hard failure, and forces Passed false — used by sub-rules
// that force an immediate fail but still carry their own spec-mandated
// score contribution (Luhn failure, reserved IP, invalid RFC-5322
// address, ...).
func (r *CheckResult) HardFailNow(rule string, contribution int, detail string) {
	r.Score += contribution
	r.HardFail = true
	r.Passed = false
	r.Rules = append(r.Rules, RuleResult{Rule: rule, Triggered: true, Contributed: contribution, Detail: detail})
}

// Finalize applies the score cap and the passed threshold. Must be
// called exactly once, after all sub-rules have run.
func (r *CheckResult) Finalize() {
	if r.Score > 100 {
		r.Score = 100
	}
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score >= 80 || r.HardFail {
		r.Passed = false
	}
}

// ErrorResult builds the {passed:false, score:50, details:{error}}
// shape a Check returns when it raises a synchronous error — the
// evaluator must never abort the overall evaluation because one
// check failed.
func ErrorResult(name string, err error) CheckResult {
	return CheckResult{
		CheckName: name,
		Passed:    false,
		Score:     50,
		Details:   map[string]interface{}{"error": err.Error()},
		Err:        err,
	}
}

// TimeoutResult is the contribution a still-running check makes when
// the per-evaluation deadline elapses.
func TimeoutResult(name string) CheckResult {
	return CheckResult{
		CheckName: name,
		Passed:    false,
		Score:     50,
		Details:   map[string]interface{}{"error": "timeout"},
	}
}

func (r CheckResult) ToOutput() CheckOutput {
	return CheckOutput{Passed: r.Passed, Score: r.Score, Details: r.Details}
}
