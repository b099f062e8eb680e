package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry: a sale, a restock or a manual adjustment.
// UnitPrice is captured at the moment of the movement so later price changes
// do not rewrite revenue history.
type Transaction struct {
	ID           string          `db:"id" json:"id"`
	LotID        *string         `db:"lot_id" json:"lot_id,omitempty"`
	PharmacyID   string          `db:"pharmacy_id" json:"pharmacy_id"`
	MedicationID *string         `db:"medication_id" json:"medication_id,omitempty"`
	Type         string          `db:"type" json:"type"`
	Quantity     int             `db:"quantity" json:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	CustomerID   *string         `db:"customer_id" json:"customer_id,omitempty"`
	PerformedBy  *string         `db:"performed_by" json:"performed_by,omitempty"`
	OccurredAt   time.Time       `db:"occurred_at" json:"occurred_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// Transaction types
const (
	TransactionSale       = "sale"
	TransactionRestock    = "restock"
	TransactionAdjustment = "adjustment"
)

// SaleRow is a flat sale joined with its medication and pharmacy, the input
// to the sales report aggregation.
type SaleRow struct {
	MedicationID   *string         `db:"medication_id"`
	MedicationName *string         `db:"medication_name"`
	PharmacyID     string          `db:"pharmacy_id"`
	PharmacyName   *string         `db:"pharmacy_name"`
	Quantity       int             `db:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	OccurredAt     time.Time       `db:"occurred_at"`
}

// HistoryRow is a ledger entry joined with display names for the activity feed.
type HistoryRow struct {
	Transaction
	MedicationName  *string `db:"medication_name" json:"medication_name,omitempty"`
	PharmacyName    *string `db:"pharmacy_name" json:"pharmacy_name,omitempty"`
	CustomerName    *string `db:"customer_name" json:"customer_name,omitempty"`
	PerformedByName *string `db:"performed_by_name" json:"performed_by_name,omitempty"`
}

// SalesFilter narrows sale queries. Nil fields match everything.
type SalesFilter struct {
	PharmacyID   *string
	MedicationID *string
	Category     *string
	From         *time.Time
	To           *time.Time
}

// TransactionRepository handles ledger persistence
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateTx inserts a ledger entry inside an open transaction, so the entry
// commits or rolls back atomically with the stock movement it records.
func (r *TransactionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, txn *Transaction) error {
	if txn.ID == "" {
		txn.ID = uuid.New().String()
	}
	if txn.OccurredAt.IsZero() {
		txn.OccurredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO transactions (
			id, lot_id, pharmacy_id, medication_id, type, quantity, unit_price, customer_id, performed_by, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query,
		txn.ID, txn.LotID, txn.PharmacyID, txn.MedicationID, txn.Type,
		txn.Quantity, txn.UnitPrice, txn.CustomerID, txn.PerformedBy, txn.OccurredAt,
	).Scan(&txn.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ListSales lists sale rows matching the filter, oldest first. The reports
// depend on that ordering: groups keep the order their first sale appeared in.
func (r *TransactionRepository) ListSales(ctx context.Context, filter SalesFilter) ([]*SaleRow, error) {
	query := `
		SELECT t.medication_id, m.name AS medication_name,
		       t.pharmacy_id, p.name AS pharmacy_name,
		       t.quantity, t.unit_price, t.occurred_at
		FROM transactions t
		LEFT JOIN medications m ON m.id = t.medication_id
		LEFT JOIN pharmacies p ON p.id = t.pharmacy_id
		WHERE t.type = 'sale'`

	args := []interface{}{}
	argIdx := 1

	if filter.PharmacyID != nil {
		query += ` AND t.pharmacy_id = $` + itoa(argIdx)
		args = append(args, *filter.PharmacyID)
		argIdx++
	}
	if filter.MedicationID != nil {
		query += ` AND t.medication_id = $` + itoa(argIdx)
		args = append(args, *filter.MedicationID)
		argIdx++
	}
	if filter.Category != nil {
		query += ` AND m.category = $` + itoa(argIdx)
		args = append(args, *filter.Category)
		argIdx++
	}
	if filter.From != nil {
		query += ` AND t.occurred_at >= $` + itoa(argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		query += ` AND t.occurred_at <= $` + itoa(argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	query += ` ORDER BY t.occurred_at`

	var rows []*SaleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListHistory lists the most recent ledger entries for a pharmacy
func (r *TransactionRepository) ListHistory(ctx context.Context, pharmacyID string, limit int) ([]*HistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT t.*, m.name AS medication_name, p.name AS pharmacy_name,
		       c.full_name AS customer_name, u.full_name AS performed_by_name
		FROM transactions t
		LEFT JOIN medications m ON m.id = t.medication_id
		LEFT JOIN pharmacies p ON p.id = t.pharmacy_id
		LEFT JOIN user_cache c ON c.id = t.customer_id
		LEFT JOIN user_cache u ON u.id = t.performed_by
		WHERE t.pharmacy_id = $1
		ORDER BY t.occurred_at DESC
		LIMIT $2
	`

	var rows []*HistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, pharmacyID, limit); err != nil {
		return nil, err
	}
	return rows, nil
}
