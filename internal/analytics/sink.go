// Package analytics fans a finalized evaluation out to the two
// observability stores every evaluation feeds: Elasticsearch for
// operator search-by-hash, ClickHouse for the append-only analytics
// table behind dashboards and reporting. Neither store ever receives
// an identity plaintext or ciphertext column — hash and score only.
package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"fraudengine/internal/client"
	"fraudengine/internal/models"
	"fraudengine/internal/util"
)

type Sink struct {
	es       *client.ESClient
	esIndex  string
	ch       *client.ClickHouseClient
	chTable  string
}

func NewSink(es *client.ESClient, esIndex string, ch *client.ClickHouseClient, chTable string) *Sink {
	return &Sink{es: es, esIndex: esIndex, ch: ch, chTable: chTable}
}

type esDocument struct {
	ID               string    `json:"id"`
	EmailHash        string    `json:"email_hash,omitempty"`
	IPHash           string    `json:"ip_hash,omitempty"`
	CardHash         string    `json:"card_hash,omitempty"`
	PhoneHash        string    `json:"phone_hash,omitempty"`
	RiskScore        int       `json:"risk_score"`
	Decision         string    `json:"decision"`
	FailedChecks     []string  `json:"failed_checks"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Record fires both writes in the background. A search-index or
// analytics-warehouse outage must never fail or slow down a caller's
// already-persisted, already-decided evaluation.
func (s *Sink) Record(record *models.FraudCheck) {
	go s.indexDocument(record)
	go s.insertAnalyticsRow(record)
}

func (s *Sink) indexDocument(record *models.FraudCheck) {
	if s.es == nil {
		return
	}
	doc := esDocument{
		ID:               record.ID,
		EmailHash:        record.EmailHash,
		IPHash:           record.IPHash,
		CardHash:         record.CardHash,
		PhoneHash:        record.PhoneHash,
		RiskScore:        record.RiskScore,
		Decision:         record.Decision,
		FailedChecks:     record.FailedChecks,
		ProcessingTimeMs: record.ProcessingTimeMs,
		CreatedAt:        record.CreatedAt,
	}
	if _, err := s.es.IndexDocument(s.esIndex, record.ID, doc); err != nil {
		util.Warn("analytics: failed to index evaluation document", zap.String("id", record.ID), zap.Error(err))
	}
}

func (s *Sink) insertAnalyticsRow(record *models.FraudCheck) {
	if s.ch == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := "INSERT INTO " + s.chTable + " (id, email_hash, ip_hash, card_hash, phone_hash, risk_score, decision, processing_time_ms, created_at)"
	row := []interface{}{
		record.ID, record.EmailHash, record.IPHash, record.CardHash, record.PhoneHash,
		record.RiskScore, record.Decision, record.ProcessingTimeMs, record.CreatedAt,
	}
	if err := s.ch.BatchInsert(ctx, query, [][]interface{}{row}); err != nil {
		util.Warn("analytics: failed to insert evaluation row", zap.String("id", record.ID), zap.Error(err))
	}
}
