package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// User events (published by the auth/user services, consumed here
	// to keep the local user cache current)
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"

	// Inventory events
	EventLotCreated           = "inventory.lot.created"
	EventStockAdjusted        = "inventory.stock.adjusted"
	EventMedicationSold       = "inventory.medication.sold"
	EventMedicationWrittenOff = "inventory.medication.written_off"

	// Storage condition events
	EventConditionRecorded = "conditions.sample.recorded"
)

// Exchange names
const (
	ExchangeUserEvents      = "user.events"
	ExchangeInventoryEvents = "inventory.events"
	ExchangeConditionEvents = "conditions.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// User Events

// UserCreatedEvent is published when a user is created
type UserCreatedEvent struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleName  string `json:"role_name"`
}

// FullName returns the user's full name
func (e *UserCreatedEvent) FullName() string {
	return e.FirstName + " " + e.LastName
}

// UserUpdatedEvent is published when a user is updated
type UserUpdatedEvent struct {
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"` // Changed fields
}

// UserDeletedEvent is published when a user is deleted
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Inventory Events

// LotCreatedEvent is published when a medication lot is added to a pharmacy
type LotCreatedEvent struct {
	LotID           string    `json:"lot_id"`
	PharmacyID      string    `json:"pharmacy_id"`
	MedicationID    string    `json:"medication_id"`
	BatchCode       string    `json:"batch_code"`
	Quantity        int       `json:"quantity"`
	ManufactureDate time.Time `json:"manufacture_date"`
}

// StockAdjustedEvent is published when a lot quantity changes
type StockAdjustedEvent struct {
	LotID        string `json:"lot_id"`
	PharmacyID   string `json:"pharmacy_id"`
	MedicationID string `json:"medication_id"`
	Adjustment   int    `json:"adjustment"`
	NewQuantity  int    `json:"new_quantity"`
	PerformedBy  string `json:"performed_by"`
	Reason       string `json:"reason,omitempty"`
}

// MedicationSoldEvent is published when a sale completes
type MedicationSoldEvent struct {
	TransactionID string `json:"transaction_id"`
	LotID         string `json:"lot_id"`
	PharmacyID    string `json:"pharmacy_id"`
	MedicationID  string `json:"medication_id"`
	Quantity      int    `json:"quantity"`
	CustomerID    string `json:"customer_id"`
	PharmacistID  string `json:"pharmacist_id"`
}

// MedicationWrittenOffEvent is published when a write-off completes
type MedicationWrittenOffEvent struct {
	WriteOffID   string `json:"write_off_id"`
	LotID        string `json:"lot_id"`
	PharmacyID   string `json:"pharmacy_id"`
	MedicationID string `json:"medication_id"`
	Quantity     int    `json:"quantity"`
	Reason       string `json:"reason"`
	PerformedBy  string `json:"performed_by"`
}

// Storage Condition Events

// ConditionRecordedEvent is published when a storage condition sample is stored
type ConditionRecordedEvent struct {
	SampleID    string    `json:"sample_id"`
	PharmacyID  string    `json:"pharmacy_id"`
	DeviceID    string    `json:"device_id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.New().String()
}
