package service

import (
	"context"
	"time"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
)

// ConditionCheck is the verdict of comparing the latest storage condition
// sample against the monitoring device's normal range
type ConditionCheck struct {
	PharmacyID     string    `json:"pharmacy_id"`
	Compliant      bool      `json:"compliant"`
	Temperature    float64   `json:"temperature"`
	Humidity       float64   `json:"humidity"`
	MinTemperature float64   `json:"min_temperature"`
	MaxTemperature float64   `json:"max_temperature"`
	MinHumidity    float64   `json:"min_humidity"`
	MaxHumidity    float64   `json:"max_humidity"`
	Violations     []string  `json:"violations,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

// CheckConditions compares the latest sample for a pharmacy against its
// device's normal range. No sample or no device is NotFound; the check itself
// is stateless and safe to repeat.
func (s *Service) CheckConditions(ctx context.Context, pharmacyID string) (*ConditionCheck, error) {
	device, err := s.devices.GetByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	sample, err := s.conditions.GetLatestByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	check := &ConditionCheck{
		PharmacyID:     pharmacyID,
		Compliant:      true,
		Temperature:    sample.Temperature,
		Humidity:       sample.Humidity,
		MinTemperature: device.MinTemperature,
		MaxTemperature: device.MaxTemperature,
		MinHumidity:    device.MinHumidity,
		MaxHumidity:    device.MaxHumidity,
		RecordedAt:     sample.RecordedAt,
	}

	if sample.Temperature < device.MinTemperature || sample.Temperature > device.MaxTemperature {
		check.Compliant = false
		check.Violations = append(check.Violations, "temperature")
	}
	if sample.Humidity < device.MinHumidity || sample.Humidity > device.MaxHumidity {
		check.Compliant = false
		check.Violations = append(check.Violations, "humidity")
	}

	if !check.Compliant {
		s.logger.Warn().
			Str("pharmacy_id", pharmacyID).
			Float64("temperature", sample.Temperature).
			Float64("humidity", sample.Humidity).
			Strs("violations", check.Violations).
			Msg("Storage conditions out of range")
	}

	return check, nil
}

// ListConditionSamples lists samples for a pharmacy within a window
func (s *Service) ListConditionSamples(ctx context.Context, pharmacyID string, from, to *time.Time, limit int) ([]*repository.ConditionSample, error) {
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.conditions.ListByPharmacy(ctx, pharmacyID, from, to, limit)
}
