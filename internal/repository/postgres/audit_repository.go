package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fraudengine/internal/client"
	"fraudengine/internal/models"
)

// AuditRepository persists the fraud_checks row the evaluator writes
// once per Evaluate call: a pending row in one transaction at the
// start, then an update in a second transaction once the
// scorer/decision mapper have run.
type AuditRepository struct {
	db *client.PostgresClient
}

func NewAuditRepository(db *client.PostgresClient) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) InsertPending(ctx context.Context, tx *sql.Tx, f *models.FraudCheck) error {
	headers, err := json.Marshal(f.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO fraud_checks (
			id, user_id, api_key_id,
			email_hash, email_ciphertext, ip_hash, ip_ciphertext,
			card_hash, card_ciphertext, phone_hash, phone_ciphertext,
			user_agent, domain, headers,
			risk_score, decision, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, 'pending', $15
		)`,
		f.ID, f.UserID, f.APIKeyID,
		f.EmailHash, f.EmailCiphertext, f.IPHash, f.IPCiphertext,
		f.CardHash, f.CardCiphertext, f.PhoneHash, f.PhoneCiphertext,
		f.UserAgent, f.Domain, headers, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pending fraud check: %w", err)
	}
	return nil
}

func (r *AuditRepository) Finalize(ctx context.Context, tx *sql.Tx, f *models.FraudCheck) error {
	checkResults, err := json.Marshal(f.CheckResults)
	if err != nil {
		return fmt.Errorf("encode check results: %w", err)
	}
	failed, err := json.Marshal(f.FailedChecks)
	if err != nil {
		return fmt.Errorf("encode failed checks: %w", err)
	}
	passed, err := json.Marshal(f.PassedChecks)
	if err != nil {
		return fmt.Errorf("encode passed checks: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE fraud_checks SET
			risk_score = $1, check_results = $2, failed_checks = $3,
			passed_checks = $4, decision = $5, processing_time_ms = $6
		WHERE id = $7`,
		f.RiskScore, checkResults, failed, passed, f.Decision, f.ProcessingTimeMs, f.ID,
	)
	if err != nil {
		return fmt.Errorf("finalize fraud check: %w", err)
	}
	return nil
}

func (r *AuditRepository) GetByID(ctx context.Context, id string) (*models.FraudCheck, error) {
	var f models.FraudCheck
	var headers, checkResults, failed, passed []byte

	err := r.db.DB.QueryRowContext(ctx, `
		SELECT id, user_id, api_key_id, email_hash, ip_hash, card_hash, phone_hash,
		       user_agent, domain, headers, risk_score, check_results,
		       failed_checks, passed_checks, decision, processing_time_ms, created_at
		FROM fraud_checks WHERE id = $1`, id,
	).Scan(&f.ID, &f.UserID, &f.APIKeyID, &f.EmailHash, &f.IPHash, &f.CardHash, &f.PhoneHash,
		&f.UserAgent, &f.Domain, &headers, &f.RiskScore, &checkResults,
		&failed, &passed, &f.Decision, &f.ProcessingTimeMs, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fraud check: %w", err)
	}

	_ = json.Unmarshal(headers, &f.Headers)
	_ = json.Unmarshal(checkResults, &f.CheckResults)
	_ = json.Unmarshal(failed, &f.FailedChecks)
	_ = json.Unmarshal(passed, &f.PassedChecks)
	return &f, nil
}

var reputationColumns = map[string]bool{
	"email_hash": true, "ip_hash": true, "card_hash": true, "phone_hash": true,
}

// Reputation reports the average risk score and prior-block count for
// every fraud_checks row matching hashColumn=hashValue within the
// lookback window — the EmailCheck/DomainCheck/IPCheck/CreditCardCheck
// reputation sub-rules all read this. hashColumn must be one of the
// four known hash columns; anything else is a programmer error.
func (r *AuditRepository) Reputation(ctx context.Context, hashColumn, hashValue string, since time.Time) (avgScore float64, blockCount int, err error) {
	if !reputationColumns[hashColumn] {
		return 0, 0, fmt.Errorf("reputation: unknown hash column %q", hashColumn)
	}
	query := fmt.Sprintf(`
		SELECT COALESCE(AVG(risk_score), 0),
		       COALESCE(SUM(CASE WHEN decision = 'block' THEN 1 ELSE 0 END), 0)
		FROM fraud_checks WHERE %s = $1 AND created_at >= $2`, hashColumn)
	err = r.db.DB.QueryRowContext(ctx, query, hashValue, since).Scan(&avgScore, &blockCount)
	if err != nil {
		return 0, 0, fmt.Errorf("reputation lookup failed: %w", err)
	}
	return avgScore, blockCount, nil
}

// DeleteExpired removes rows past retention, implementing the audit
// retention invariant (FraudConfig.RetentionDays).
func (r *AuditRepository) DeleteExpired(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := r.db.DB.ExecContext(ctx,
		`DELETE FROM fraud_checks WHERE created_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("delete expired fraud checks: %w", err)
	}
	return res.RowsAffected()
}
