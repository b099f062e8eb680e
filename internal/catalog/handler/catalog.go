package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pharmatrack/pharmatrack-backend/internal/catalog/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/httputil"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
)

// CatalogHandler handles medication, pharmacy and device lookups
type CatalogHandler struct {
	medications *repository.MedicationRepository
	pharmacies  *repository.PharmacyRepository
	devices     *repository.DeviceRepository
	logger      *logger.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	medications *repository.MedicationRepository,
	pharmacies *repository.PharmacyRepository,
	devices *repository.DeviceRepository,
	log *logger.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		medications: medications,
		pharmacies:  pharmacies,
		devices:     devices,
		logger:      log,
	}
}

// CreateMedication adds a medication to the catalog
func (h *CatalogHandler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	var med repository.Medication
	if err := httputil.DecodeJSON(r, &med); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(med); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.medications.Create(r.Context(), &med); err != nil {
		h.logger.Error().Err(err).Str("name", med.Name).Msg("failed to create medication")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, med)
}

// GetMedication gets a medication by ID
func (h *CatalogHandler) GetMedication(w http.ResponseWriter, r *http.Request) {
	med, err := h.medications.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, med)
}

// ListMedications lists catalog medications, optionally by category
func (h *CatalogHandler) ListMedications(w http.ResponseWriter, r *http.Request) {
	var category *string
	if v := r.URL.Query().Get("category"); v != "" {
		category = &v
	}

	meds, err := h.medications.List(r.Context(), category)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list medications")
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, meds)
}

// CreatePharmacy adds a pharmacy
func (h *CatalogHandler) CreatePharmacy(w http.ResponseWriter, r *http.Request) {
	var pharmacy repository.Pharmacy
	if err := httputil.DecodeJSON(r, &pharmacy); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(pharmacy); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.pharmacies.Create(r.Context(), &pharmacy); err != nil {
		h.logger.Error().Err(err).Str("name", pharmacy.Name).Msg("failed to create pharmacy")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, pharmacy)
}

// GetPharmacy gets a pharmacy by ID
func (h *CatalogHandler) GetPharmacy(w http.ResponseWriter, r *http.Request) {
	pharmacy, err := h.pharmacies.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, pharmacy)
}

// ListPharmacies lists all pharmacies
func (h *CatalogHandler) ListPharmacies(w http.ResponseWriter, r *http.Request) {
	pharmacies, err := h.pharmacies.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list pharmacies")
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, pharmacies)
}

// CreateDevice registers a monitoring device for a pharmacy
func (h *CatalogHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var device repository.IoTDevice
	if err := httputil.DecodeJSON(r, &device); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(device); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.devices.Create(r.Context(), &device); err != nil {
		h.logger.Error().Err(err).Str("pharmacy_id", device.PharmacyID).Msg("failed to create device")
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, device)
}

// ListDevices lists monitoring devices for a pharmacy
func (h *CatalogHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListByPharmacy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list devices")
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, devices)
}
