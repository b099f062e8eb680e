package handler

import (
	"net/http"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(svc *service.Service, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service: svc,
		logger:  log,
	}
}

func reportFilter(r *http.Request) (service.ReportFilter, error) {
	from, err := queryDate(r, "from", false)
	if err != nil {
		return service.ReportFilter{}, err
	}
	to, err := queryDate(r, "to", true)
	if err != nil {
		return service.ReportFilter{}, err
	}
	return service.ReportFilter{
		PharmacyID:   queryString(r, "pharmacy_id"),
		MedicationID: queryString(r, "medication_id"),
		Category:     queryString(r, "category"),
		Reason:       queryString(r, "reason"),
		From:         from,
		To:           to,
	}, nil
}

// Sales aggregates sales over a window
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.SalesReport(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build sales report")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// WriteOffs aggregates write-offs over a window
func (h *ReportHandler) WriteOffs(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.WriteOffReport(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build write-off report")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Usage combines sales and write-offs over one window
func (h *ReportHandler) Usage(w http.ResponseWriter, r *http.Request) {
	filter, err := reportFilter(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	report, err := h.service.UsageReport(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build usage report")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

// Statistics computes the long-run per-medication view
func (h *ReportHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to compute statistics")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

// Snapshot groups current lot quantities by medication
func (h *ReportHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	filter := repository.LotFilter{
		PharmacyID:   queryString(r, "pharmacy_id"),
		MedicationID: queryString(r, "medication_id"),
	}

	items, err := h.service.InventorySnapshot(r.Context(), filter)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to build inventory snapshot")
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}
