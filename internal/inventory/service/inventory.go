package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	catalogrepo "github.com/pharmatrack/pharmatrack-backend/internal/catalog/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/config"
	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Sentinel display names substituted when a lot or ledger row points at a
// catalog entry that no longer exists. Aggregations never abort on a dangling
// reference; they report it under the sentinel and log a warning.
const (
	UnknownMedication = "Unknown medication"
	UnknownPharmacy   = "Unknown pharmacy"
)

// EventPublisher publishes inventory domain events. Nil-safe wiring lives in
// the caller: pass nil to run without messaging.
type EventPublisher interface {
	PublishLotCreated(ctx context.Context, lot *repository.InventoryLot) error
	PublishStockAdjusted(ctx context.Context, lot *repository.InventoryLot, adjustment int, performedBy, reason string) error
	PublishMedicationSold(ctx context.Context, txn *repository.Transaction) error
	PublishMedicationWrittenOff(ctx context.Context, wo *repository.WriteOff) error
}

// Service implements inventory business logic
type Service struct {
	db           *database.DB
	lots         *repository.LotRepository
	transactions *repository.TransactionRepository
	writeOffs    *repository.WriteOffRepository
	conditions   *repository.ConditionRepository
	medications  *catalogrepo.MedicationRepository
	pharmacies   *catalogrepo.PharmacyRepository
	devices      *catalogrepo.DeviceRepository
	publisher    EventPublisher
	logger       *logger.Logger
	cfg          config.InventoryConfig
	now          func() time.Time
}

// NewService creates a new inventory service
func NewService(
	db *database.DB,
	lots *repository.LotRepository,
	transactions *repository.TransactionRepository,
	writeOffs *repository.WriteOffRepository,
	conditions *repository.ConditionRepository,
	medications *catalogrepo.MedicationRepository,
	pharmacies *catalogrepo.PharmacyRepository,
	devices *catalogrepo.DeviceRepository,
	publisher EventPublisher,
	log *logger.Logger,
	cfg config.InventoryConfig,
) *Service {
	return &Service{
		db:           db,
		lots:         lots,
		transactions: transactions,
		writeOffs:    writeOffs,
		conditions:   conditions,
		medications:  medications,
		pharmacies:   pharmacies,
		devices:      devices,
		publisher:    publisher,
		logger:       log,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateLotInput is the input for adding a lot to a pharmacy inventory
type CreateLotInput struct {
	PharmacyID      string          `json:"pharmacy_id" validate:"required,uuid"`
	MedicationID    string          `json:"medication_id" validate:"required,uuid"`
	Price           decimal.Decimal `json:"price" validate:"required"`
	ManufactureDate time.Time       `json:"manufacture_date" validate:"required"`
	Quantity        int             `json:"quantity" validate:"required,gt=0"`
	BatchCode       string          `json:"batch_code" validate:"required,max=64"`
}

// CreateLot adds a lot to a pharmacy inventory and records the restock in the
// ledger
func (s *Service) CreateLot(ctx context.Context, input CreateLotInput, performedBy string) (*repository.InventoryLot, error) {
	if input.Price.IsNegative() {
		return nil, errors.Validation(map[string]string{"price": "must not be negative"})
	}
	if _, err := s.pharmacies.GetByID(ctx, input.PharmacyID); err != nil {
		return nil, err
	}
	if _, err := s.medications.GetByID(ctx, input.MedicationID); err != nil {
		return nil, err
	}

	medicationID := input.MedicationID
	lot := &repository.InventoryLot{
		PharmacyID:      input.PharmacyID,
		MedicationID:    &medicationID,
		Price:           input.Price,
		ManufactureDate: input.ManufactureDate,
		Quantity:        input.Quantity,
		BatchCode:       input.BatchCode,
	}

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.lots.CreateTx(ctx, tx, lot); err != nil {
			return err
		}
		return s.transactions.CreateTx(ctx, tx, &repository.Transaction{
			LotID:        &lot.ID,
			PharmacyID:   lot.PharmacyID,
			MedicationID: lot.MedicationID,
			Type:         repository.TransactionRestock,
			Quantity:     lot.Quantity,
			UnitPrice:    lot.Price,
			PerformedBy:  optional(performedBy),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("pharmacy_id", lot.PharmacyID).
		Int("quantity", lot.Quantity).
		Msg("Lot created")

	if s.publisher != nil {
		if err := s.publisher.PublishLotCreated(ctx, lot); err != nil {
			s.logger.Warn().Err(err).Str("lot_id", lot.ID).Msg("Failed to publish lot created event")
		}
	}

	return lot, nil
}

// SetLotQuantity overwrites a lot quantity (manual stock correction)
func (s *Service) SetLotQuantity(ctx context.Context, lotID string, quantity int, performedBy string) (*repository.InventoryLot, error) {
	if quantity < 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must not be negative"})
	}

	lot, err := s.lots.GetByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	adjustment := quantity - lot.Quantity
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.lots.SetQuantityTx(ctx, tx, lotID, quantity); err != nil {
			return err
		}
		if adjustment == 0 {
			return nil
		}
		return s.transactions.CreateTx(ctx, tx, &repository.Transaction{
			LotID:        &lot.ID,
			PharmacyID:   lot.PharmacyID,
			MedicationID: lot.MedicationID,
			Type:         repository.TransactionAdjustment,
			Quantity:     adjustment,
			UnitPrice:    lot.Price,
			PerformedBy:  optional(performedBy),
		})
	})
	if err != nil {
		return nil, err
	}

	lot.Quantity = quantity

	s.logger.Info().
		Str("lot_id", lot.ID).
		Int("quantity", quantity).
		Int("adjustment", adjustment).
		Msg("Lot quantity set")

	if s.publisher != nil && adjustment != 0 {
		if err := s.publisher.PublishStockAdjusted(ctx, lot, adjustment, performedBy, "manual_adjustment"); err != nil {
			s.logger.Warn().Err(err).Str("lot_id", lot.ID).Msg("Failed to publish stock adjusted event")
		}
	}

	return lot, nil
}

// ListInventory lists lots with catalog names, dangling references replaced
// with sentinels
func (s *Service) ListInventory(ctx context.Context, filter repository.LotFilter) ([]*InventoryItem, error) {
	lots, err := s.lots.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*InventoryItem, 0, len(lots))
	for _, lot := range lots {
		items = append(items, s.toInventoryItem(lot))
	}
	return items, nil
}

// GetLot gets a single lot by ID
func (s *Service) GetLot(ctx context.Context, id string) (*repository.InventoryLot, error) {
	return s.lots.GetByID(ctx, id)
}

// RecordSaleInput is the input for selling from a lot
type RecordSaleInput struct {
	LotID      string  `json:"lot_id" validate:"required,uuid"`
	Quantity   int     `json:"quantity" validate:"required,gt=0"`
	CustomerID *string `json:"customer_id,omitempty" validate:"omitempty,uuid"`
}

// RecordSale sells quantity from a lot. The decrement and the ledger entry
// commit in one database transaction; a lot without enough units fails with
// a conflict and leaves the quantity untouched.
func (s *Service) RecordSale(ctx context.Context, input RecordSaleInput, performedBy string) (*repository.Transaction, error) {
	lot, err := s.lots.GetByID(ctx, input.LotID)
	if err != nil {
		return nil, err
	}

	txn := &repository.Transaction{
		LotID:        &lot.ID,
		PharmacyID:   lot.PharmacyID,
		MedicationID: lot.MedicationID,
		Type:         repository.TransactionSale,
		Quantity:     input.Quantity,
		UnitPrice:    lot.Price,
		CustomerID:   input.CustomerID,
		PerformedBy:  optional(performedBy),
	}

	var newQuantity int
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		newQuantity, err = s.lots.DecrementQuantity(ctx, tx, lot.ID, input.Quantity)
		if err != nil {
			return err
		}
		return s.transactions.CreateTx(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	lot.Quantity = newQuantity

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("transaction_id", txn.ID).
		Int("quantity", input.Quantity).
		Int("remaining", newQuantity).
		Msg("Sale recorded")

	if s.publisher != nil {
		if err := s.publisher.PublishMedicationSold(ctx, txn); err != nil {
			s.logger.Warn().Err(err).Str("transaction_id", txn.ID).Msg("Failed to publish sale event")
		}
		if err := s.publisher.PublishStockAdjusted(ctx, lot, -input.Quantity, performedBy, "sale"); err != nil {
			s.logger.Warn().Err(err).Str("lot_id", lot.ID).Msg("Failed to publish stock adjusted event")
		}
	}

	return txn, nil
}

// WriteOffInput is the input for writing off stock from a lot
type WriteOffInput struct {
	LotID    string `json:"lot_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Reason   string `json:"reason" validate:"required,oneof=expired damaged lost recalled other"`
}

// WriteOff removes quantity from a lot without a sale
func (s *Service) WriteOff(ctx context.Context, input WriteOffInput, performedBy string) (*repository.WriteOff, error) {
	lot, err := s.lots.GetByID(ctx, input.LotID)
	if err != nil {
		return nil, err
	}

	wo := &repository.WriteOff{
		LotID:        &lot.ID,
		PharmacyID:   lot.PharmacyID,
		MedicationID: lot.MedicationID,
		Quantity:     input.Quantity,
		Reason:       input.Reason,
		PerformedBy:  optional(performedBy),
	}

	var newQuantity int
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		newQuantity, err = s.lots.DecrementQuantity(ctx, tx, lot.ID, input.Quantity)
		if err != nil {
			return err
		}
		return s.writeOffs.CreateTx(ctx, tx, wo)
	})
	if err != nil {
		return nil, err
	}

	lot.Quantity = newQuantity

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("write_off_id", wo.ID).
		Str("reason", wo.Reason).
		Int("quantity", input.Quantity).
		Msg("Write-off recorded")

	if s.publisher != nil {
		if err := s.publisher.PublishMedicationWrittenOff(ctx, wo); err != nil {
			s.logger.Warn().Err(err).Str("write_off_id", wo.ID).Msg("Failed to publish write-off event")
		}
		if err := s.publisher.PublishStockAdjusted(ctx, lot, -input.Quantity, performedBy, "write_off"); err != nil {
			s.logger.Warn().Err(err).Str("lot_id", lot.ID).Msg("Failed to publish stock adjusted event")
		}
	}

	return wo, nil
}

// TransactionHistory lists recent ledger entries for a pharmacy with display
// names
func (s *Service) TransactionHistory(ctx context.Context, pharmacyID string, limit int) ([]*repository.HistoryRow, error) {
	if _, err := s.pharmacies.GetByID(ctx, pharmacyID); err != nil {
		return nil, err
	}
	return s.transactions.ListHistory(ctx, pharmacyID, limit)
}

// RecordConditionSample appends a storage condition sample for a pharmacy
func (s *Service) RecordConditionSample(ctx context.Context, sample *repository.ConditionSample) error {
	if _, err := s.pharmacies.GetByID(ctx, sample.PharmacyID); err != nil {
		return err
	}
	if err := s.conditions.Create(ctx, sample); err != nil {
		return err
	}

	s.logger.Debug().
		Str("pharmacy_id", sample.PharmacyID).
		Float64("temperature", sample.Temperature).
		Float64("humidity", sample.Humidity).
		Msg("Condition sample recorded")

	return nil
}

// InventoryItem is a lot with resolved display names
type InventoryItem struct {
	repository.InventoryLot
	PharmacyName   string `json:"pharmacy_name"`
	MedicationName string `json:"medication_name"`
	Category       string `json:"category,omitempty"`
}

func (s *Service) toInventoryItem(lot *repository.LotWithRefs) *InventoryItem {
	item := &InventoryItem{
		InventoryLot:   lot.InventoryLot,
		PharmacyName:   UnknownPharmacy,
		MedicationName: UnknownMedication,
	}
	if lot.PharmacyName != nil {
		item.PharmacyName = *lot.PharmacyName
	} else {
		s.logger.Warn().Str("lot_id", lot.ID).Msg("Lot references missing pharmacy")
	}
	if lot.MedicationName != nil {
		item.MedicationName = *lot.MedicationName
	} else {
		s.logger.Warn().Str("lot_id", lot.ID).Msg("Lot references missing medication")
	}
	if lot.Category != nil {
		item.Category = *lot.Category
	}
	return item
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
