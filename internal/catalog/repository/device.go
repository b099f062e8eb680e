package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

// IoTDevice is the sensor configured for a pharmacy's storage area.
// The min/max pairs form the normal range that compliance checks compare
// the latest sample against.
type IoTDevice struct {
	ID                  string    `db:"id" json:"id"`
	PharmacyID          string    `db:"pharmacy_id" json:"pharmacy_id" validate:"required,uuid"`
	SerialNumber        string    `db:"serial_number" json:"serial_number" validate:"required,max=64"`
	MinTemperature      float64   `db:"min_temperature" json:"min_temperature"`
	MaxTemperature      float64   `db:"max_temperature" json:"max_temperature"`
	MinHumidity         float64   `db:"min_humidity" json:"min_humidity"`
	MaxHumidity         float64   `db:"max_humidity" json:"max_humidity"`
	MeasurementInterval int       `db:"measurement_interval_seconds" json:"measurement_interval_seconds"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// DeviceRepository handles IoT device configuration persistence
type DeviceRepository struct {
	db *database.DB
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *database.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Create registers a device for a pharmacy
func (r *DeviceRepository) Create(ctx context.Context, device *IoTDevice) error {
	if device.ID == "" {
		device.ID = uuid.New().String()
	}

	query := `
		INSERT INTO iot_devices (
			id, pharmacy_id, serial_number, min_temperature, max_temperature,
			min_humidity, max_humidity, measurement_interval_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		device.ID, device.PharmacyID, device.SerialNumber,
		device.MinTemperature, device.MaxTemperature,
		device.MinHumidity, device.MaxHumidity,
		device.MeasurementInterval,
	).Scan(&device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a device by ID
func (r *DeviceRepository) GetByID(ctx context.Context, id string) (*IoTDevice, error) {
	var device IoTDevice
	query := `SELECT * FROM iot_devices WHERE id = $1`
	if err := r.db.GetContext(ctx, &device, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("device")
		}
		return nil, err
	}
	return &device, nil
}

// GetByPharmacy gets the device configured for a pharmacy
func (r *DeviceRepository) GetByPharmacy(ctx context.Context, pharmacyID string) (*IoTDevice, error) {
	var device IoTDevice
	query := `SELECT * FROM iot_devices WHERE pharmacy_id = $1 ORDER BY created_at LIMIT 1`
	if err := r.db.GetContext(ctx, &device, query, pharmacyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("device")
		}
		return nil, err
	}
	return &device, nil
}

// ListByPharmacy lists all devices registered for a pharmacy
func (r *DeviceRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]*IoTDevice, error) {
	var devices []*IoTDevice
	query := `SELECT * FROM iot_devices WHERE pharmacy_id = $1 ORDER BY created_at`
	if err := r.db.SelectContext(ctx, &devices, query, pharmacyID); err != nil {
		return nil, err
	}
	return devices, nil
}
