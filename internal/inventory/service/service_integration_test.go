package service_test

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
	"time"

	catalogrepo "github.com/pharmatrack/pharmatrack-backend/internal/catalog/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/service"
	"github.com/pharmatrack/pharmatrack-backend/pkg/config"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/pharmatrack/pharmatrack-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}
	defer testutil.TerminateContainer(ctx)

	os.Exit(m.Run())
}

func newTestService() *service.Service {
	return service.NewService(
		suite.DB,
		repository.NewLotRepository(suite.DB),
		repository.NewTransactionRepository(suite.DB),
		repository.NewWriteOffRepository(suite.DB),
		repository.NewConditionRepository(suite.DB),
		catalogrepo.NewMedicationRepository(suite.DB),
		catalogrepo.NewPharmacyRepository(suite.DB),
		catalogrepo.NewDeviceRepository(suite.DB),
		nil, // no messaging in tests
		suite.Logger,
		config.InventoryConfig{
			DefaultLowStockThreshold: 10,
			RestockMultiplier:        2,
			NearExpiryFraction:       0.95,
		},
	)
}

func setupPharmacyAndMedication(t *testing.T, ctx context.Context) (*catalogrepo.Pharmacy, *catalogrepo.Medication) {
	t.Helper()

	fixture := suite.Fixtures.Pharmacy()
	pharmacy := &catalogrepo.Pharmacy{Name: fixture.Name, Address: fixture.Address}
	require.NoError(t, catalogrepo.NewPharmacyRepository(suite.DB).Create(ctx, pharmacy))

	medFixture := suite.Fixtures.Medication()
	med := &catalogrepo.Medication{
		Name:           medFixture.Name,
		Category:       medFixture.Category,
		Manufacturer:   medFixture.Manufacturer,
		ExpirationDays: medFixture.ExpirationDays,
		MinTemperature: medFixture.MinTemperature,
		MaxTemperature: medFixture.MaxTemperature,
		MinHumidity:    medFixture.MinHumidity,
		MaxHumidity:    medFixture.MaxHumidity,
	}
	require.NoError(t, catalogrepo.NewMedicationRepository(suite.DB).Create(ctx, med))

	return pharmacy, med
}

func createServiceLot(t *testing.T, ctx context.Context, svc *service.Service, pharmacyID, medicationID string, quantity int) *repository.InventoryLot {
	t.Helper()
	fixture := suite.Fixtures.Lot(pharmacyID, medicationID)
	lot, err := svc.CreateLot(ctx, service.CreateLotInput{
		PharmacyID:      pharmacyID,
		MedicationID:    medicationID,
		Price:           fixture.Price,
		ManufactureDate: fixture.ManufactureDate,
		Quantity:        quantity,
		BatchCode:       fixture.BatchCode,
	}, "")
	require.NoError(t, err)
	return lot
}

func TestService_CreateLot_RecordsRestock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, med := setupPharmacyAndMedication(t, ctx)

	lot := createServiceLot(t, ctx, svc, pharmacy.ID, med.ID, 30)
	assert.NotEmpty(t, lot.ID)

	history, err := svc.TransactionHistory(ctx, pharmacy.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, repository.TransactionRestock, history[0].Type)
	assert.Equal(t, 30, history[0].Quantity)
}

func TestService_CreateLot_UnknownMedication(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, _ := setupPharmacyAndMedication(t, ctx)

	_, err := svc.CreateLot(ctx, service.CreateLotInput{
		PharmacyID:      pharmacy.ID,
		MedicationID:    "00000000-0000-0000-0000-000000000000",
		Price:           decimal.NewFromInt(5),
		ManufactureDate: time.Now().UTC(),
		Quantity:        10,
		BatchCode:       "LOT-UNKNOWN-MED",
	}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestService_RecordSale(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, med := setupPharmacyAndMedication(t, ctx)
	lot := createServiceLot(t, ctx, svc, pharmacy.ID, med.ID, 20)

	txn, err := svc.RecordSale(ctx, service.RecordSaleInput{LotID: lot.ID, Quantity: 8}, "")
	require.NoError(t, err)
	assert.Equal(t, repository.TransactionSale, txn.Type)
	assert.True(t, txn.UnitPrice.Equal(lot.Price))

	got, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Quantity)
}

func TestService_RecordSale_InsufficientStock(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, med := setupPharmacyAndMedication(t, ctx)
	lot := createServiceLot(t, ctx, svc, pharmacy.ID, med.ID, 5)

	_, err := svc.RecordSale(ctx, service.RecordSaleInput{LotID: lot.ID, Quantity: 6}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	// The failed sale leaves no trace: quantity unchanged, no ledger entry.
	got, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)

	history, err := svc.TransactionHistory(ctx, pharmacy.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1) // only the restock
	assert.Equal(t, repository.TransactionRestock, history[0].Type)
}

func TestService_WriteOff(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, med := setupPharmacyAndMedication(t, ctx)
	lot := createServiceLot(t, ctx, svc, pharmacy.ID, med.ID, 10)

	wo, err := svc.WriteOff(ctx, service.WriteOffInput{
		LotID:    lot.ID,
		Quantity: 10,
		Reason:   repository.ReasonExpired,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, repository.ReasonExpired, wo.Reason)

	got, err := svc.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)

	// Written off to zero, then any further write-off conflicts.
	_, err = svc.WriteOff(ctx, service.WriteOffInput{
		LotID:    lot.ID,
		Quantity: 1,
		Reason:   repository.ReasonDamaged,
	}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientStock)

	report, err := svc.WriteOffReport(ctx, service.ReportFilter{PharmacyID: &pharmacy.ID})
	require.NoError(t, err)
	assert.Equal(t, 10, report.TotalQuantity)
	assert.Equal(t, 10, report.ByReason[repository.ReasonExpired])
}

func TestService_SalesReport_EndToEnd(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, med := setupPharmacyAndMedication(t, ctx)
	lot := createServiceLot(t, ctx, svc, pharmacy.ID, med.ID, 100)

	_, err := svc.RecordSale(ctx, service.RecordSaleInput{LotID: lot.ID, Quantity: 3}, "")
	require.NoError(t, err)
	_, err = svc.RecordSale(ctx, service.RecordSaleInput{LotID: lot.ID, Quantity: 4}, "")
	require.NoError(t, err)

	report, err := svc.SalesReport(ctx, service.ReportFilter{PharmacyID: &pharmacy.ID})
	require.NoError(t, err)
	assert.Equal(t, 7, report.TotalQuantity)
	require.Len(t, report.ByMedication, 1)
	assert.Equal(t, med.Name, report.ByMedication[0].MedicationName)
	expected := lot.Price.Mul(decimal.NewFromInt(7)).Round(2)
	assert.True(t, report.TotalRevenue.Equal(expected), "got %s want %s", report.TotalRevenue, expected)
}

func TestService_UsageReport(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, med := setupPharmacyAndMedication(t, ctx)
	lot := createServiceLot(t, ctx, svc, pharmacy.ID, med.ID, 100)

	_, err := svc.RecordSale(ctx, service.RecordSaleInput{LotID: lot.ID, Quantity: 6}, "")
	require.NoError(t, err)
	_, err = svc.WriteOff(ctx, service.WriteOffInput{LotID: lot.ID, Quantity: 2, Reason: repository.ReasonDamaged}, "")
	require.NoError(t, err)

	report, err := svc.UsageReport(ctx, service.ReportFilter{PharmacyID: &pharmacy.ID})
	require.NoError(t, err)
	assert.Equal(t, 8, report.TotalUsage)
	assert.InDelta(t, 75.0, report.UsageRatio, 0.001)
	require.NotEmpty(t, report.CurrentStock)
}

func TestService_CheckConditions(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()
	pharmacy, _ := setupPharmacyAndMedication(t, ctx)

	// No device registered yet.
	_, err := svc.CheckConditions(ctx, pharmacy.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	deviceFixture := suite.Fixtures.Device(pharmacy.ID)
	device := &catalogrepo.IoTDevice{
		PharmacyID:     pharmacy.ID,
		SerialNumber:   deviceFixture.SerialNumber,
		MinTemperature: 15,
		MaxTemperature: 25,
		MinHumidity:    30,
		MaxHumidity:    60,
	}
	require.NoError(t, catalogrepo.NewDeviceRepository(suite.DB).Create(ctx, device))

	// Device registered but no samples yet.
	_, err = svc.CheckConditions(ctx, pharmacy.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, svc.RecordConditionSample(ctx, &repository.ConditionSample{
		PharmacyID:  pharmacy.ID,
		DeviceID:    &device.ID,
		Temperature: 20,
		Humidity:    45,
	}))

	check, err := svc.CheckConditions(ctx, pharmacy.ID)
	require.NoError(t, err)
	assert.True(t, check.Compliant)
	assert.Empty(t, check.Violations)

	// A newer out-of-range sample flips the verdict.
	require.NoError(t, svc.RecordConditionSample(ctx, &repository.ConditionSample{
		PharmacyID:  pharmacy.ID,
		DeviceID:    &device.ID,
		Temperature: 27.5,
		Humidity:    65,
		RecordedAt:  time.Now().UTC().Add(time.Minute),
	}))

	check, err = svc.CheckConditions(ctx, pharmacy.ID)
	require.NoError(t, err)
	assert.False(t, check.Compliant)
	assert.ElementsMatch(t, []string{"temperature", "humidity"}, check.Violations)
}

func TestService_LowStock_InvalidThreshold(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	svc := newTestService()

	_, err := svc.LowStock(ctx, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = svc.RestockRecommendations(ctx, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)
}
