package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PharmacyFixture represents test pharmacy data
type PharmacyFixture struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	CreatedAt time.Time
}

// MedicationFixture represents test medication data
type MedicationFixture struct {
	ID                 string
	Name               string
	Category           string
	Manufacturer       string
	ExpirationDays     int
	MinTemperature     float64
	MaxTemperature     float64
	MinHumidity        float64
	MaxHumidity        float64
	IsPrescriptionOnly bool
	CreatedAt          time.Time
}

// LotFixture represents test inventory lot data
type LotFixture struct {
	ID              string
	PharmacyID      string
	MedicationID    string
	Price           decimal.Decimal
	ManufactureDate time.Time
	Quantity        int
	BatchCode       string
	CreatedAt       time.Time
}

// DeviceFixture represents test IoT device data
type DeviceFixture struct {
	ID             string
	PharmacyID     string
	SerialNumber   string
	MinTemperature float64
	MaxTemperature float64
	MinHumidity    float64
	MaxHumidity    float64
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

func (f *FixtureFactory) next() int {
	f.sequence++
	return f.sequence
}

// Pharmacy creates a pharmacy fixture
func (f *FixtureFactory) Pharmacy() *PharmacyFixture {
	n := f.next()
	return &PharmacyFixture{
		ID:        uuid.New().String(),
		Name:      fmt.Sprintf("Pharmacy %d", n),
		Address:   fmt.Sprintf("%d Main Street", n),
		Phone:     fmt.Sprintf("+1-555-01%02d", n%100),
		CreatedAt: time.Now().UTC(),
	}
}

// Medication creates a medication fixture
func (f *FixtureFactory) Medication() *MedicationFixture {
	n := f.next()
	return &MedicationFixture{
		ID:             uuid.New().String(),
		Name:           fmt.Sprintf("Medication %d", n),
		Category:       "analgesic",
		Manufacturer:   fmt.Sprintf("Manufacturer %d", n),
		ExpirationDays: 365,
		MinTemperature: 15,
		MaxTemperature: 25,
		MinHumidity:    30,
		MaxHumidity:    60,
		CreatedAt:      time.Now().UTC(),
	}
}

// Lot creates a lot fixture for the given pharmacy and medication
func (f *FixtureFactory) Lot(pharmacyID, medicationID string) *LotFixture {
	n := f.next()
	return &LotFixture{
		ID:              uuid.New().String(),
		PharmacyID:      pharmacyID,
		MedicationID:    medicationID,
		Price:           decimal.NewFromFloat(9.99),
		ManufactureDate: time.Now().UTC().AddDate(0, -1, 0),
		Quantity:        100,
		BatchCode:       fmt.Sprintf("BATCH-%04d", n),
		CreatedAt:       time.Now().UTC(),
	}
}

// Device creates a device fixture for the given pharmacy
func (f *FixtureFactory) Device(pharmacyID string) *DeviceFixture {
	n := f.next()
	return &DeviceFixture{
		ID:             uuid.New().String(),
		PharmacyID:     pharmacyID,
		SerialNumber:   fmt.Sprintf("SN-%06d", n),
		MinTemperature: 15,
		MaxTemperature: 25,
		MinHumidity:    30,
		MaxHumidity:    60,
	}
}
