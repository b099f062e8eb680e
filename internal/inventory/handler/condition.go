package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
)

// ConditionHandler handles storage condition endpoints
type ConditionHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewConditionHandler creates a new condition handler
func NewConditionHandler(svc *service.Service, log *logger.Logger) *ConditionHandler {
	return &ConditionHandler{
		service: svc,
		logger:  log,
	}
}

// conditionWebhookRequest is the payload posted by pharmacy monitoring devices
type conditionWebhookRequest struct {
	PharmacyID  string     `json:"pharmacy_id" validate:"required,uuid"`
	DeviceID    *string    `json:"device_id,omitempty" validate:"omitempty,uuid"`
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity" validate:"gte=0,lte=100"`
	RecordedAt  *time.Time `json:"recorded_at,omitempty"`
}

// Webhook appends a temperature/humidity sample
func (h *ConditionHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req conditionWebhookRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	sample := &repository.ConditionSample{
		PharmacyID:  req.PharmacyID,
		DeviceID:    req.DeviceID,
		Temperature: req.Temperature,
		Humidity:    req.Humidity,
	}
	if req.RecordedAt != nil {
		sample.RecordedAt = *req.RecordedAt
	}

	if err := h.service.RecordConditionSample(r.Context(), sample); err != nil {
		h.logger.Error().Err(err).Str("pharmacy_id", req.PharmacyID).Msg("failed to record condition sample")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, sample)
}

// Check compares the latest sample against the device range
func (h *ConditionHandler) Check(w http.ResponseWriter, r *http.Request) {
	pharmacyID := chi.URLParam(r, "id")

	check, err := h.service.CheckConditions(r.Context(), pharmacyID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, check)
}

// ListSamples lists samples for a pharmacy within a window
func (h *ConditionHandler) ListSamples(w http.ResponseWriter, r *http.Request) {
	pharmacyID := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	from, err := queryDate(r, "from", false)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	to, err := queryDate(r, "to", true)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	samples, err := h.service.ListConditionSamples(r.Context(), pharmacyID, from, to, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("pharmacy_id", pharmacyID).Msg("failed to list condition samples")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, samples)
}
