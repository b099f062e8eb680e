package events

import (
	"context"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
	"github.com/pharmatrack/pharmatrack-backend/pkg/messaging"
)

// Publisher publishes inventory domain events to the inventory exchange
type Publisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewPublisher creates a new inventory event publisher
func NewPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*Publisher, error) {
	pub, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}
	return &Publisher{publisher: pub, logger: log}, nil
}

// PublishLotCreated publishes an inventory.lot.created event
func (p *Publisher) PublishLotCreated(ctx context.Context, lot *repository.InventoryLot) error {
	return p.publisher.Publish(ctx, messaging.EventLotCreated, messaging.LotCreatedEvent{
		LotID:           lot.ID,
		PharmacyID:      lot.PharmacyID,
		MedicationID:    deref(lot.MedicationID),
		BatchCode:       lot.BatchCode,
		Quantity:        lot.Quantity,
		ManufactureDate: lot.ManufactureDate,
	})
}

// PublishStockAdjusted publishes an inventory.stock.adjusted event
func (p *Publisher) PublishStockAdjusted(ctx context.Context, lot *repository.InventoryLot, adjustment int, performedBy, reason string) error {
	return p.publisher.Publish(ctx, messaging.EventStockAdjusted, messaging.StockAdjustedEvent{
		LotID:        lot.ID,
		PharmacyID:   lot.PharmacyID,
		MedicationID: deref(lot.MedicationID),
		Adjustment:   adjustment,
		NewQuantity:  lot.Quantity,
		PerformedBy:  performedBy,
		Reason:       reason,
	})
}

// PublishMedicationSold publishes an inventory.medication.sold event
func (p *Publisher) PublishMedicationSold(ctx context.Context, txn *repository.Transaction) error {
	return p.publisher.Publish(ctx, messaging.EventMedicationSold, messaging.MedicationSoldEvent{
		TransactionID: txn.ID,
		LotID:         deref(txn.LotID),
		PharmacyID:    txn.PharmacyID,
		MedicationID:  deref(txn.MedicationID),
		Quantity:      txn.Quantity,
		CustomerID:    deref(txn.CustomerID),
		PharmacistID:  deref(txn.PerformedBy),
	})
}

// PublishMedicationWrittenOff publishes an inventory.medication.written_off event
func (p *Publisher) PublishMedicationWrittenOff(ctx context.Context, wo *repository.WriteOff) error {
	return p.publisher.Publish(ctx, messaging.EventMedicationWrittenOff, messaging.MedicationWrittenOffEvent{
		WriteOffID:   wo.ID,
		LotID:        deref(wo.LotID),
		PharmacyID:   wo.PharmacyID,
		MedicationID: deref(wo.MedicationID),
		Quantity:     wo.Quantity,
		Reason:       wo.Reason,
		PerformedBy:  deref(wo.PerformedBy),
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
