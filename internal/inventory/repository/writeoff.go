package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
)

// WriteOff records stock removed without a sale. Reason is constrained to the
// known set by a CHECK on the table.
type WriteOff struct {
	ID           string    `db:"id" json:"id"`
	LotID        *string   `db:"lot_id" json:"lot_id,omitempty"`
	PharmacyID   string    `db:"pharmacy_id" json:"pharmacy_id"`
	MedicationID *string   `db:"medication_id" json:"medication_id,omitempty"`
	Quantity     int       `db:"quantity" json:"quantity"`
	Reason       string    `db:"reason" json:"reason"`
	PerformedBy  *string   `db:"performed_by" json:"performed_by,omitempty"`
	OccurredAt   time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Write-off reasons
const (
	ReasonExpired  = "expired"
	ReasonDamaged  = "damaged"
	ReasonLost     = "lost"
	ReasonRecalled = "recalled"
	ReasonOther    = "other"
)

// WriteOffReasons is the accepted reason set, in display order.
var WriteOffReasons = []string{ReasonExpired, ReasonDamaged, ReasonLost, ReasonRecalled, ReasonOther}

// WriteOffRow is a write-off joined with its medication name for reporting.
type WriteOffRow struct {
	MedicationID   *string   `db:"medication_id"`
	MedicationName *string   `db:"medication_name"`
	PharmacyID     string    `db:"pharmacy_id"`
	Quantity       int       `db:"quantity"`
	Reason         string    `db:"reason"`
	OccurredAt     time.Time `db:"occurred_at"`
}

// WriteOffFilter narrows write-off queries. Nil fields match everything.
type WriteOffFilter struct {
	PharmacyID *string
	Reason     *string
	From       *time.Time
	To         *time.Time
}

// WriteOffRepository handles write-off persistence
type WriteOffRepository struct {
	db *database.DB
}

// NewWriteOffRepository creates a new write-off repository
func NewWriteOffRepository(db *database.DB) *WriteOffRepository {
	return &WriteOffRepository{db: db}
}

// CreateTx inserts a write-off inside an open transaction
func (r *WriteOffRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, wo *WriteOff) error {
	if wo.ID == "" {
		wo.ID = uuid.New().String()
	}
	if wo.OccurredAt.IsZero() {
		wo.OccurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO write_offs (
			id, lot_id, pharmacy_id, medication_id, quantity, reason, performed_by, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query,
		wo.ID, wo.LotID, wo.PharmacyID, wo.MedicationID, wo.Quantity,
		wo.Reason, wo.PerformedBy, wo.OccurredAt,
	).Scan(&wo.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// List lists write-off rows matching the filter, oldest first
func (r *WriteOffRepository) List(ctx context.Context, filter WriteOffFilter) ([]*WriteOffRow, error) {
	query := `
		SELECT w.medication_id, m.name AS medication_name,
		       w.pharmacy_id, w.quantity, w.reason, w.occurred_at
		FROM write_offs w
		LEFT JOIN medications m ON m.id = w.medication_id
		WHERE 1=1`

	args := []interface{}{}
	argIdx := 1

	if filter.PharmacyID != nil {
		query += ` AND w.pharmacy_id = $` + itoa(argIdx)
		args = append(args, *filter.PharmacyID)
		argIdx++
	}
	if filter.Reason != nil {
		query += ` AND w.reason = $` + itoa(argIdx)
		args = append(args, *filter.Reason)
		argIdx++
	}
	if filter.From != nil {
		query += ` AND w.occurred_at >= $` + itoa(argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		query += ` AND w.occurred_at <= $` + itoa(argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	query += ` ORDER BY w.occurred_at`

	var rows []*WriteOffRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
