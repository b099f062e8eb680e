package repository

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// InventoryLot is a batch of one medication stocked at one pharmacy.
// MedicationID is nullable: deleting a catalog entry sets it to NULL and the
// lot stays behind for audit. Quantity is guarded by a CHECK constraint and
// only ever reduced through DecrementQuantity.
type InventoryLot struct {
	ID              string          `db:"id" json:"id"`
	PharmacyID      string          `db:"pharmacy_id" json:"pharmacy_id"`
	MedicationID    *string         `db:"medication_id" json:"medication_id,omitempty"`
	Price           decimal.Decimal `db:"price" json:"price"`
	ManufactureDate time.Time       `db:"manufacture_date" json:"manufacture_date"`
	Quantity        int             `db:"quantity" json:"quantity"`
	BatchCode       string          `db:"batch_code" json:"batch_code"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// LotWithRefs is a lot joined with its pharmacy and medication. The reference
// columns are nullable so that a dangling lot still loads; callers substitute
// sentinels for display.
type LotWithRefs struct {
	InventoryLot
	PharmacyName   *string `db:"pharmacy_name" json:"pharmacy_name,omitempty"`
	MedicationName *string `db:"medication_name" json:"medication_name,omitempty"`
	Category       *string `db:"category" json:"category,omitempty"`
	ExpirationDays *int    `db:"expiration_days" json:"expiration_days,omitempty"`
}

// LotFilter narrows lot queries. Nil fields match everything.
type LotFilter struct {
	PharmacyID   *string
	MedicationID *string
}

// LotRepository handles inventory lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

const lotWithRefsColumns = `
	l.id, l.pharmacy_id, l.medication_id, l.price, l.manufacture_date,
	l.quantity, l.batch_code, l.created_at, l.updated_at,
	p.name AS pharmacy_name, m.name AS medication_name,
	m.category AS category, m.expiration_days AS expiration_days
`

// Create creates a new lot (restock)
func (r *LotRepository) Create(ctx context.Context, lot *InventoryLot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}

	query := `
		INSERT INTO inventory_lots (
			id, pharmacy_id, medication_id, price, manufacture_date, quantity, batch_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		lot.ID, lot.PharmacyID, lot.MedicationID, lot.Price,
		lot.ManufactureDate, lot.Quantity, lot.BatchCode,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// CreateTx inserts a lot inside an open transaction, so the lot and its
// restock ledger entry commit together.
func (r *LotRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, lot *InventoryLot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}

	query := `
		INSERT INTO inventory_lots (
			id, pharmacy_id, medication_id, price, manufacture_date, quantity, batch_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		lot.ID, lot.PharmacyID, lot.MedicationID, lot.Price,
		lot.ManufactureDate, lot.Quantity, lot.BatchCode,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a lot by ID
func (r *LotRepository) GetByID(ctx context.Context, id string) (*InventoryLot, error) {
	var lot InventoryLot
	query := `SELECT * FROM inventory_lots WHERE id = $1`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}

// List lists lots with their references. Zero-quantity lots are included:
// they remain visible for audit and history.
func (r *LotRepository) List(ctx context.Context, filter LotFilter) ([]*LotWithRefs, error) {
	query := `
		SELECT ` + lotWithRefsColumns + `
		FROM inventory_lots l
		LEFT JOIN pharmacies p ON p.id = l.pharmacy_id
		LEFT JOIN medications m ON m.id = l.medication_id
		WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filter.PharmacyID != nil {
		query += ` AND l.pharmacy_id = $` + itoa(argIdx)
		args = append(args, *filter.PharmacyID)
		argIdx++
	}
	if filter.MedicationID != nil {
		query += ` AND l.medication_id = $` + itoa(argIdx)
		args = append(args, *filter.MedicationID)
		argIdx++
	}

	query += ` ORDER BY l.created_at`

	var lots []*LotWithRefs
	if err := r.db.SelectContext(ctx, &lots, query, args...); err != nil {
		return nil, err
	}
	return lots, nil
}

// ListBelowThreshold lists lots with quantity strictly below the threshold
func (r *LotRepository) ListBelowThreshold(ctx context.Context, threshold int) ([]*LotWithRefs, error) {
	query := `
		SELECT ` + lotWithRefsColumns + `
		FROM inventory_lots l
		LEFT JOIN pharmacies p ON p.id = l.pharmacy_id
		LEFT JOIN medications m ON m.id = l.medication_id
		WHERE l.quantity < $1
		ORDER BY l.quantity, l.created_at
	`

	var lots []*LotWithRefs
	if err := r.db.SelectContext(ctx, &lots, query, threshold); err != nil {
		return nil, err
	}
	return lots, nil
}

// SetQuantity overwrites a lot quantity (manual correction by an admin)
func (r *LotRepository) SetQuantity(ctx context.Context, id string, quantity int) error {
	query := `UPDATE inventory_lots SET quantity = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, quantity)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}

// SetQuantityTx overwrites a lot quantity inside an open transaction
func (r *LotRepository) SetQuantityTx(ctx context.Context, tx *sqlx.Tx, id string, quantity int) error {
	query := `UPDATE inventory_lots SET quantity = $2, updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id, quantity)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("lot")
	}

	return nil
}

// DecrementQuantity atomically takes quantity off a lot within the given
// transaction. The WHERE clause carries the sufficiency check, so two
// concurrent callers can never both pass it and drive the quantity negative.
func (r *LotRepository) DecrementQuantity(ctx context.Context, tx *sqlx.Tx, id string, quantity int) (int, error) {
	query := `
		UPDATE inventory_lots
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity
	`

	var newQuantity int
	err := tx.QueryRowxContext(ctx, query, id, quantity).Scan(&newQuantity)
	if err == sql.ErrNoRows {
		// Either the lot is gone or it does not hold enough units.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, errors.InsufficientStock(id)
	}
	if err != nil {
		return 0, err
	}

	return newQuantity, nil
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
