package handler

import (
	"net/http"
	"strconv"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
)

// StockHandler handles low-stock and restock recommendation endpoints
type StockHandler struct {
	service          *service.Service
	logger           *logger.Logger
	defaultThreshold int
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.Service, log *logger.Logger, defaultThreshold int) *StockHandler {
	return &StockHandler{
		service:          svc,
		logger:           log,
		defaultThreshold: defaultThreshold,
	}
}

// threshold reads the per-request override, falling back to the configured
// default when absent. A non-numeric value is rejected rather than dropped.
func (h *StockHandler) threshold(r *http.Request) (int, error) {
	v := r.URL.Query().Get("threshold")
	if v == "" {
		return h.defaultThreshold, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Validation(map[string]string{"threshold": "must be an integer"})
	}
	return n, nil
}

// LowStock lists lots below the stock threshold
func (h *StockHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold, err := h.threshold(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	items, err := h.service.LowStock(r.Context(), threshold)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// Recommendations lists lots flagged for restock
func (h *StockHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	threshold, err := h.threshold(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	recs, err := h.service.RestockRecommendations(r.Context(), threshold)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute restock recommendations")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, recs)
}
