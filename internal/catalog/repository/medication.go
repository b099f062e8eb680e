package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

// Medication is a catalog entry shared by every pharmacy in the chain.
// ExpirationDays is the shelf life counted from the manufacture date of a lot.
type Medication struct {
	ID                 string    `db:"id" json:"id"`
	Name               string    `db:"name" json:"name" validate:"required,max=255"`
	Category           string    `db:"category" json:"category" validate:"required,max=100"`
	Manufacturer       string    `db:"manufacturer" json:"manufacturer" validate:"required,max=255"`
	ExpirationDays     int       `db:"expiration_days" json:"expiration_days" validate:"required,gt=0"`
	MinTemperature     float64   `db:"min_temperature" json:"min_temperature"`
	MaxTemperature     float64   `db:"max_temperature" json:"max_temperature"`
	MinHumidity        float64   `db:"min_humidity" json:"min_humidity"`
	MaxHumidity        float64   `db:"max_humidity" json:"max_humidity"`
	IsPrescriptionOnly bool      `db:"is_prescription_only" json:"is_prescription_only"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// MedicationRepository handles medication catalog persistence
type MedicationRepository struct {
	db *database.DB
}

// NewMedicationRepository creates a new medication repository
func NewMedicationRepository(db *database.DB) *MedicationRepository {
	return &MedicationRepository{db: db}
}

// Create creates a new medication
func (r *MedicationRepository) Create(ctx context.Context, med *Medication) error {
	if med.ID == "" {
		med.ID = uuid.New().String()
	}

	query := `
		INSERT INTO medications (
			id, name, category, manufacturer, expiration_days,
			min_temperature, max_temperature, min_humidity, max_humidity,
			is_prescription_only
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		med.ID, med.Name, med.Category, med.Manufacturer, med.ExpirationDays,
		med.MinTemperature, med.MaxTemperature, med.MinHumidity, med.MaxHumidity,
		med.IsPrescriptionOnly,
	).Scan(&med.CreatedAt, &med.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a medication by ID
func (r *MedicationRepository) GetByID(ctx context.Context, id string) (*Medication, error) {
	var med Medication
	query := `SELECT * FROM medications WHERE id = $1`
	if err := r.db.GetContext(ctx, &med, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medication")
		}
		return nil, err
	}
	return &med, nil
}

// List lists medications, optionally filtered by category
func (r *MedicationRepository) List(ctx context.Context, category *string) ([]*Medication, error) {
	var meds []*Medication

	if category != nil {
		query := `SELECT * FROM medications WHERE category = $1 ORDER BY name`
		if err := r.db.SelectContext(ctx, &meds, query, *category); err != nil {
			return nil, err
		}
		return meds, nil
	}

	query := `SELECT * FROM medications ORDER BY name`
	if err := r.db.SelectContext(ctx, &meds, query); err != nil {
		return nil, err
	}
	return meds, nil
}

// Update updates a medication (admin edit)
func (r *MedicationRepository) Update(ctx context.Context, med *Medication) error {
	query := `
		UPDATE medications SET
			name = $2, category = $3, manufacturer = $4, expiration_days = $5,
			min_temperature = $6, max_temperature = $7, min_humidity = $8,
			max_humidity = $9, is_prescription_only = $10, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		med.ID, med.Name, med.Category, med.Manufacturer, med.ExpirationDays,
		med.MinTemperature, med.MaxTemperature, med.MinHumidity, med.MaxHumidity,
		med.IsPrescriptionOnly,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("medication")
	}

	return nil
}
