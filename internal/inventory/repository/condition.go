package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

// ConditionSample is one temperature/humidity reading reported by a pharmacy
// monitoring device.
type ConditionSample struct {
	ID          string    `db:"id" json:"id"`
	PharmacyID  string    `db:"pharmacy_id" json:"pharmacy_id"`
	DeviceID    *string   `db:"device_id" json:"device_id,omitempty"`
	Temperature float64   `db:"temperature" json:"temperature"`
	Humidity    float64   `db:"humidity" json:"humidity"`
	RecordedAt  time.Time `db:"recorded_at" json:"recorded_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ConditionRepository handles storage condition sample persistence
type ConditionRepository struct {
	db *database.DB
}

// NewConditionRepository creates a new condition repository
func NewConditionRepository(db *database.DB) *ConditionRepository {
	return &ConditionRepository{db: db}
}

// Create creates a new sample
func (r *ConditionRepository) Create(ctx context.Context, sample *ConditionSample) error {
	if sample.ID == "" {
		sample.ID = uuid.New().String()
	}
	if sample.RecordedAt.IsZero() {
		sample.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO storage_condition_samples (
			id, pharmacy_id, device_id, temperature, humidity, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		sample.ID, sample.PharmacyID, sample.DeviceID,
		sample.Temperature, sample.Humidity, sample.RecordedAt,
	).Scan(&sample.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetLatestByPharmacy gets the most recent sample for a pharmacy
func (r *ConditionRepository) GetLatestByPharmacy(ctx context.Context, pharmacyID string) (*ConditionSample, error) {
	var sample ConditionSample
	query := `
		SELECT * FROM storage_condition_samples
		WHERE pharmacy_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &sample, query, pharmacyID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("condition sample")
		}
		return nil, err
	}
	return &sample, nil
}

// ListByPharmacy lists samples for a pharmacy within a time window, newest first
func (r *ConditionRepository) ListByPharmacy(ctx context.Context, pharmacyID string, from, to *time.Time, limit int) ([]*ConditionSample, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT * FROM storage_condition_samples WHERE pharmacy_id = $1`
	args := []interface{}{pharmacyID}
	argIdx := 2

	if from != nil {
		query += ` AND recorded_at >= $` + itoa(argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		query += ` AND recorded_at <= $` + itoa(argIdx)
		args = append(args, *to)
		argIdx++
	}

	query += ` ORDER BY recorded_at DESC LIMIT $` + itoa(argIdx)
	args = append(args, limit)

	var samples []*ConditionSample
	if err := r.db.SelectContext(ctx, &samples, query, args...); err != nil {
		return nil, err
	}
	return samples, nil
}
