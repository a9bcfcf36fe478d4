// Package evaluator implements the Evaluator (C8): validates the
// caller's identity bundle, opens the pending audit record, fans the
// applicable checks out concurrently under a shared deadline, scores
// and maps the result, and finalizes the audit record.
package evaluator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fraudengine/internal/analytics"
	"fraudengine/internal/checks"
	"fraudengine/internal/client"
	"fraudengine/internal/config"
	"fraudengine/internal/encryption"
	"fraudengine/internal/hashing"
	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/scorer"
	"fraudengine/internal/util"
)

var ErrNoIdentityField = errors.New("evaluator: at least one of email, ip, credit_card, phone is required")

type Evaluator struct {
	registry  *checks.Registry
	scorer    *scorer.Scorer
	hasher    *hashing.Hasher
	enc       *encryption.EncryptionManager
	db        *client.PostgresClient
	auditRepo *postgres.AuditRepository
	kafka     *client.KafkaProducer
	kafkaTopic string
	analytics *analytics.Sink
	cfg       *config.FraudConfig
}

func NewEvaluator(
	registry *checks.Registry,
	hasher *hashing.Hasher,
	enc *encryption.EncryptionManager,
	db *client.PostgresClient,
	auditRepo *postgres.AuditRepository,
	kafka *client.KafkaProducer,
	kafkaTopic string,
	sink *analytics.Sink,
	cfg *config.FraudConfig,
) *Evaluator {
	return &Evaluator{
		registry:   registry,
		scorer:     scorer.NewScorer(),
		hasher:     hasher,
		enc:        enc,
		db:         db,
		auditRepo:  auditRepo,
		kafka:      kafka,
		kafkaTopic: kafkaTopic,
		analytics:  sink,
		cfg:        cfg,
	}
}

func (e *Evaluator) Evaluate(ctx context.Context, input *models.EvaluateInput) (*models.EvaluateResult, error) {
	start := time.Now()

	if !input.HasIdentityField() {
		return nil, ErrNoIdentityField
	}

	record, err := e.buildRecord(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("evaluator: build audit record: %w", err)
	}

	if err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		return e.auditRepo.InsertPending(ctx, tx, record)
	}); err != nil {
		return nil, fmt.Errorf("evaluator: insert pending record: %w", err)
	}

	applicable := e.registry.Applicable(input)

	deadlineCtx, cancel := context.WithTimeout(ctx, e.cfg.EvaluationDeadline)
	defer cancel()
	results := runChecks(deadlineCtx, applicable, input)

	riskScore := e.scorer.Score(results)
	decision := scorer.Decide(riskScore)

	record.RiskScore = riskScore
	record.Decision = decision
	record.Split(results)
	record.ProcessingTimeMs = time.Since(start).Milliseconds()

	if err := e.db.WithTx(ctx, func(tx *sql.Tx) error {
		return e.auditRepo.Finalize(ctx, tx, record)
	}); err != nil {
		return nil, fmt.Errorf("evaluator: finalize record: %w", err)
	}

	if e.analytics != nil {
		e.analytics.Record(record)
	}
	if riskScore >= 80 {
		e.publishHighRiskEvent(ctx, record)
	}

	out := &models.EvaluateResult{
		ID:               record.ID,
		RiskScore:        riskScore,
		Decision:         decision,
		Checks:           record.CheckResults,
		ProcessingTimeMs: record.ProcessingTimeMs,
	}
	return out, nil
}

// buildRecord seeds the pending fraud_checks row: a keyed hash and an
// envelope-encrypted ciphertext per identity field present, never the
// plaintext itself.
func (e *Evaluator) buildRecord(ctx context.Context, input *models.EvaluateInput) (*models.FraudCheck, error) {
	record := &models.FraudCheck{
		ID:        uuid.New().String(),
		UserID:    input.UserID,
		APIKeyID:  input.APIKeyID,
		UserAgent: input.UserAgent,
		Domain:    input.EffectiveDomain(),
		Headers:   input.Headers,
		CreatedAt: time.Now().UTC(),
	}

	var err error
	if input.Email != "" {
		record.EmailHash = e.hasher.IndexHash(input.Email)
		if record.EmailCiphertext, err = e.encryptField(ctx, input.Email, "email"); err != nil {
			return nil, err
		}
	}
	if input.IP != "" {
		record.IPHash = e.hasher.IndexHash(input.IP)
		if record.IPCiphertext, err = e.encryptField(ctx, input.IP, "ip"); err != nil {
			return nil, err
		}
	}
	if input.CreditCard != "" {
		record.CardHash = e.hasher.IndexHash(input.CreditCard)
		if record.CardCiphertext, err = e.encryptField(ctx, input.CreditCard, "credit_card"); err != nil {
			return nil, err
		}
	}
	if input.Phone != "" {
		record.PhoneHash = e.hasher.IndexHash(input.Phone)
		if record.PhoneCiphertext, err = e.encryptField(ctx, input.Phone, "phone"); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (e *Evaluator) encryptField(ctx context.Context, plaintext, purpose string) (string, error) {
	enc, err := e.enc.EncryptField(ctx, plaintext, purpose)
	if err != nil {
		return "", fmt.Errorf("encrypt %s: %w", purpose, err)
	}
	return enc.EncryptedValue + "." + enc.EncryptedDEK + "." + enc.KeyID, nil
}

// runChecks fans the applicable checks out via an errgroup bounded to
// 6 concurrent tasks, mirroring this codebase's batch fan-out pattern.
// Each task races its Check.Perform against ctx's deadline on its own
// completion channel: a check still running when the deadline fires
// contributes a TimeoutResult and the task returns immediately rather
// than blocking g.Wait on the orphaned call.
func runChecks(ctx context.Context, applicable []checks.Check, input *models.EvaluateInput) map[string]models.CheckResult {
	results := make(map[string]models.CheckResult, len(applicable))
	if len(applicable) == 0 {
		return results
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(6)

	for _, c := range applicable {
		c := c
		g.Go(func() error {
			done := make(chan models.CheckResult, 1)
			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						done <- models.ErrorResult(c.Name(), fmt.Errorf("panic: %v", rec))
						return
					}
				}()
				done <- c.Perform(ctx, input)
			}()

			var r models.CheckResult
			select {
			case r = <-done:
			case <-gctx.Done():
				r = models.TimeoutResult(c.Name())
			}

			mu.Lock()
			results[c.Name()] = r
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// publishHighRiskEvent is fire-and-forget: a Kafka outage must never
// fail an evaluation that has already been scored and persisted.
func (e *Evaluator) publishHighRiskEvent(ctx context.Context, record *models.FraudCheck) {
	if e.kafka == nil {
		return
	}
	payload := fmt.Sprintf(`{"id":%q,"risk_score":%d,"decision":%q,"created_at":%q}`,
		record.ID, record.RiskScore, record.Decision, record.CreatedAt.Format(time.RFC3339))
	go func() {
		publishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.kafka.ProduceMessage(publishCtx, e.kafkaTopic, []byte(record.ID), []byte(payload), nil); err != nil {
			util.Error("evaluator: failed to publish high-risk event", zap.Error(err), zap.String("id", record.ID))
		}
	}()
}
