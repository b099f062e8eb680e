package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
)

// LotHandler handles inventory lot endpoints
type LotHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(svc *service.Service, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: svc,
		logger:  log,
	}
}

// Create adds a lot to a pharmacy inventory
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateLotInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.service.CreateLot(r.Context(), req, httputil.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("pharmacy_id", req.PharmacyID).Msg("failed to create lot")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, lot)
}

// Get gets a lot by ID
func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lot, err := h.service.GetLot(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// SetQuantity overwrites a lot quantity
func (h *LotHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.service.SetLotQuantity(r.Context(), id, req.Quantity, httputil.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("lot_id", id).Msg("failed to set lot quantity")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// List lists lots, optionally filtered by pharmacy or medication
func (h *LotHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repository.LotFilter{
		PharmacyID:   queryString(r, "pharmacy_id"),
		MedicationID: queryString(r, "medication_id"),
	}

	items, err := h.service.ListInventory(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list inventory")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}
