package models

import "time"

// FraudCheck is the persisted row in the fraud_checks table — one per
// Evaluate call. Identity fields are never stored in plaintext: each
// carries a keyed-hash column for equality lookups and a ciphertext
// column (envelope-encrypted, KMS-wrapped DEK) for operator disclosure.
type FraudCheck struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id,omitempty"`
	APIKeyID string `json:"api_key_id,omitempty"`

	EmailHash       string `json:"email_hash,omitempty"`
	EmailCiphertext string `json:"-"`
	IPHash          string `json:"ip_hash,omitempty"`
	IPCiphertext    string `json:"-"`
	CardHash        string `json:"card_hash,omitempty"`
	CardCiphertext  string `json:"-"`
	PhoneHash       string `json:"phone_hash,omitempty"`
	PhoneCiphertext string `json:"-"`

	UserAgent string            `json:"user_agent,omitempty"`
	Domain    string            `json:"domain,omitempty"`
	Headers   map[string][]string `json:"headers,omitempty"`

	RiskScore      int                    `json:"risk_score"`
	CheckResults   map[string]CheckOutput `json:"check_results"`
	FailedChecks   []string               `json:"failed_checks"`
	PassedChecks   []string               `json:"passed_checks"`
	Decision       string                 `json:"decision"`
	ProcessingTimeMs int64                `json:"processing_time_ms"`

	CreatedAt time.Time `json:"created_at"`
}

// Split buckets each CheckResult's name into FailedChecks/PassedChecks
// and fills CheckResults, ready for persistence.
func (f *FraudCheck) Split(results map[string]CheckResult) {
	f.CheckResults = make(map[string]CheckOutput, len(results))
	for name, r := range results {
		f.CheckResults[name] = r.ToOutput()
		if r.Passed {
			f.PassedChecks = append(f.PassedChecks, name)
		} else {
			f.FailedChecks = append(f.FailedChecks, name)
		}
	}
}
