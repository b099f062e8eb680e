package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

// Pharmacy represents one branch of the chain
type Pharmacy struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name" validate:"required,max=255"`
	Address   string    `db:"address" json:"address" validate:"required,max=500"`
	Phone     *string   `db:"phone" json:"phone,omitempty" validate:"omitempty,max=32"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PharmacyRepository handles pharmacy persistence
type PharmacyRepository struct {
	db *database.DB
}

// NewPharmacyRepository creates a new pharmacy repository
func NewPharmacyRepository(db *database.DB) *PharmacyRepository {
	return &PharmacyRepository{db: db}
}

// Create creates a new pharmacy
func (r *PharmacyRepository) Create(ctx context.Context, pharmacy *Pharmacy) error {
	if pharmacy.ID == "" {
		pharmacy.ID = uuid.New().String()
	}

	query := `
		INSERT INTO pharmacies (id, name, address, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	return r.db.QueryRowxContext(ctx, query,
		pharmacy.ID, pharmacy.Name, pharmacy.Address, pharmacy.Phone,
	).Scan(&pharmacy.CreatedAt, &pharmacy.UpdatedAt)
}

// GetByID gets a pharmacy by ID
func (r *PharmacyRepository) GetByID(ctx context.Context, id string) (*Pharmacy, error) {
	var pharmacy Pharmacy
	query := `SELECT * FROM pharmacies WHERE id = $1`
	if err := r.db.GetContext(ctx, &pharmacy, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("pharmacy")
		}
		return nil, err
	}
	return &pharmacy, nil
}

// List lists all pharmacies
func (r *PharmacyRepository) List(ctx context.Context) ([]*Pharmacy, error) {
	var pharmacies []*Pharmacy
	query := `SELECT * FROM pharmacies ORDER BY name`
	if err := r.db.SelectContext(ctx, &pharmacies, query); err != nil {
		return nil, err
	}
	return pharmacies, nil
}
