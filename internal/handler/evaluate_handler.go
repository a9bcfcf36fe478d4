package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"fraudengine/internal/evaluator"
	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/util"
)

var validate = validator.New()

// EvaluateHandler exposes the risk engine's one caller-facing
// operation: score an identity bundle and fetch a past result by ID.
type EvaluateHandler struct {
	evaluator *evaluator.Evaluator
	auditRepo *postgres.AuditRepository
	logger    *zap.Logger
}

func NewEvaluateHandler(eval *evaluator.Evaluator, auditRepo *postgres.AuditRepository, logger *zap.Logger) *EvaluateHandler {
	return &EvaluateHandler{evaluator: eval, auditRepo: auditRepo, logger: logger}
}

func (h *EvaluateHandler) RegisterRoutes(router chi.Router) {
	router.Route("/evaluate", func(r chi.Router) {
		r.Post("/", h.Evaluate)
		r.Get("/{id}", h.GetByID)
	})
}

// Evaluate handles POST /api/v1/evaluate.
// @Summary Evaluate an identity bundle for fraud risk
// @Tags evaluate
// @Accept json
// @Produce json
// @Param request body models.EvaluateInput true "Identity bundle"
// @Success 200 {object} Response
// @Failure 422 {object} Response
// @Router /evaluate [post]
func (h *EvaluateHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var input models.EvaluateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&input); err != nil {
		h.respondWithError(w, http.StatusUnprocessableEntity, err, "Invalid identity bundle")
		return
	}

	input.UserID = r.Header.Get("X-User-ID")
	input.APIKeyID = r.Header.Get("X-API-Key-ID")
	if input.UserAgent == "" {
		input.UserAgent = r.UserAgent()
	}
	if input.Headers == nil {
		input.Headers = map[string][]string(r.Header)
	}

	result, err := h.evaluator.Evaluate(ctx, &input)
	if err != nil {
		if errors.Is(err, evaluator.ErrNoIdentityField) {
			h.respondWithError(w, http.StatusUnprocessableEntity, err, "At least one identity field is required")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, err, "Evaluation failed")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(result, "Evaluation completed"))
	h.logger.Info("evaluation completed",
		util.String("id", result.ID),
		util.Int("risk_score", result.RiskScore),
		util.String("decision", result.Decision),
		util.Duration("duration", time.Since(start)),
	)
}

// GetByID handles GET /api/v1/evaluate/{id}.
func (h *EvaluateHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	record, err := h.auditRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			h.respondWithError(w, http.StatusNotFound, err, "Evaluation not found")
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to fetch evaluation")
		return
	}

	result := &models.EvaluateResult{
		ID:               record.ID,
		RiskScore:        record.RiskScore,
		Decision:         record.Decision,
		Checks:           record.CheckResults,
		ProcessingTimeMs: record.ProcessingTimeMs,
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(result, "Evaluation retrieved"))
}

func (h *EvaluateHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode json response", util.ErrorField(err))
	}
}

func (h *EvaluateHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("http error response", util.ErrorField(err), util.Int("status_code", statusCode), util.String("message", message))
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}
