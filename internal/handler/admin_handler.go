package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"fraudengine/internal/hashing"
	"fraudengine/internal/models"
	"fraudengine/internal/repository/postgres"
	"fraudengine/internal/util"
)

// AdminHandler exposes operator-only blacklist management, keyed by
// the same index hash every check already looks up against.
type AdminHandler struct {
	hasher  *hashing.Hasher
	refRepo *postgres.ReferenceRepository
	logger  *zap.Logger
}

func NewAdminHandler(hasher *hashing.Hasher, refRepo *postgres.ReferenceRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{hasher: hasher, refRepo: refRepo, logger: logger}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Route("/admin/blacklist", func(r chi.Router) {
		r.Post("/", h.Add)
		r.Get("/{field}", h.Lookup)
	})
}

type addBlacklistRequest struct {
	Field     string `json:"field"`
	Value     string `json:"value"`
	Reason    string `json:"reason,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

var validBlacklistFields = map[string]bool{
	models.FieldEmail: true, models.FieldIP: true, models.FieldCreditCard: true, models.FieldPhone: true,
}

// Add handles POST /api/v1/admin/blacklist.
func (h *AdminHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addBlacklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if !validBlacklistFields[req.Field] {
		h.respondWithError(w, http.StatusBadRequest, errors.New("unknown field"), "field must be one of email, ip, credit_card, phone")
		return
	}
	if req.Value == "" {
		h.respondWithError(w, http.StatusBadRequest, errors.New("value is required"), "value is required")
		return
	}

	entry := &models.BlacklistEntry{
		IndexHash: h.hasher.IndexHash(req.Value),
		Field:     req.Field,
		Reason:    req.Reason,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.refRepo.InsertBlacklist(ctx, entry); err != nil {
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to add blacklist entry")
		return
	}

	h.respondWithJSON(w, http.StatusCreated, successResponse(entry, "Blacklist entry added"))
	h.logger.Info("blacklist entry added", util.String("field", req.Field), util.String("created_by", req.CreatedBy))
}

// Lookup handles GET /api/v1/admin/blacklist/{field}?value=....
func (h *AdminHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	field := chi.URLParam(r, "field")
	value := r.URL.Query().Get("value")

	if !validBlacklistFields[field] {
		h.respondWithError(w, http.StatusBadRequest, errors.New("unknown field"), "field must be one of email, ip, credit_card, phone")
		return
	}
	if value == "" {
		h.respondWithError(w, http.StatusBadRequest, errors.New("value is required"), "value query parameter is required")
		return
	}

	entry, err := h.refRepo.LookupBlacklist(ctx, field, h.hasher.IndexHash(value))
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			h.respondWithJSON(w, http.StatusOK, successResponse(nil, "No blacklist entry found"))
			return
		}
		h.respondWithError(w, http.StatusInternalServerError, err, "Failed to look up blacklist entry")
		return
	}

	h.respondWithJSON(w, http.StatusOK, successResponse(entry, "Blacklist entry found"))
}

func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode json response", util.ErrorField(err))
	}
}

func (h *AdminHandler) respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	h.logger.Warn("http error response", util.ErrorField(err), util.Int("status_code", statusCode), util.String("message", message))
	h.respondWithJSON(w, statusCode, errorResponse(err, message))
}
