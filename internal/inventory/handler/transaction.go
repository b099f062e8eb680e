package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
)

// TransactionHandler handles sale and write-off endpoints
type TransactionHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(svc *service.Service, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: svc,
		logger:  log,
	}
}

// RecordSale sells quantity from a lot
func (h *TransactionHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req service.RecordSaleInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	txn, err := h.service.RecordSale(r.Context(), req, httputil.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("lot_id", req.LotID).Msg("failed to record sale")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, txn)
}

// WriteOff removes quantity from a lot without a sale
func (h *TransactionHandler) WriteOff(w http.ResponseWriter, r *http.Request) {
	var req service.WriteOffInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	wo, err := h.service.WriteOff(r.Context(), req, httputil.GetUserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("lot_id", req.LotID).Msg("failed to write off stock")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, wo)
}

// History lists recent ledger entries for a pharmacy
func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	pharmacyID := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.service.TransactionHistory(r.Context(), pharmacyID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("pharmacy_id", pharmacyID).Msg("failed to load transaction history")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}
