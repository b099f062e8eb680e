package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestSale(t *testing.T, ctx context.Context, repo *repository.TransactionRepository, lot *repository.InventoryLot, quantity int, occurredAt time.Time) *repository.Transaction {
	t.Helper()
	txn := &repository.Transaction{
		LotID:        &lot.ID,
		PharmacyID:   lot.PharmacyID,
		MedicationID: lot.MedicationID,
		Type:         repository.TransactionSale,
		Quantity:     quantity,
		UnitPrice:    lot.Price,
		OccurredAt:   occurredAt,
	}
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return repo.CreateTx(ctx, tx, txn)
	})
	require.NoError(t, err)
	return txn
}

func TestTransactionRepository_CreateTx(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lot := createTestLot(t, ctx, pharmacy.ID, med.ID, 50)

	repo := repository.NewTransactionRepository(suite.DB)
	txn := createTestSale(t, ctx, repo, lot, 5, time.Now().UTC())

	assert.NotEmpty(t, txn.ID)
	assert.False(t, txn.CreatedAt.IsZero())
	assert.True(t, txn.UnitPrice.Equal(lot.Price))
}

func TestTransactionRepository_ListSales_FiltersAndOrder(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacyA := createTestPharmacy(t, ctx)
	pharmacyB := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lotA := createTestLot(t, ctx, pharmacyA.ID, med.ID, 100)
	lotB := createTestLot(t, ctx, pharmacyB.ID, med.ID, 100)

	repo := repository.NewTransactionRepository(suite.DB)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createTestSale(t, ctx, repo, lotA, 2, base.Add(2*time.Hour))
	createTestSale(t, ctx, repo, lotA, 3, base)
	createTestSale(t, ctx, repo, lotB, 7, base.Add(time.Hour))

	rows, err := repo.ListSales(ctx, repository.SalesFilter{PharmacyID: &pharmacyA.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Oldest first.
	assert.Equal(t, 3, rows[0].Quantity)
	assert.Equal(t, 2, rows[1].Quantity)
	require.NotNil(t, rows[0].MedicationName)
	assert.Equal(t, med.Name, *rows[0].MedicationName)

	from := base.Add(30 * time.Minute)
	rows, err = repo.ListSales(ctx, repository.SalesFilter{PharmacyID: &pharmacyA.ID, From: &from})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Quantity)
}

func TestTransactionRepository_ListSales_CategoryFilter(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lot := createTestLot(t, ctx, pharmacy.ID, med.ID, 100)

	repo := repository.NewTransactionRepository(suite.DB)
	createTestSale(t, ctx, repo, lot, 4, time.Now().UTC())

	rows, err := repo.ListSales(ctx, repository.SalesFilter{PharmacyID: &pharmacy.ID, Category: &med.Category})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	other := "antibiotic"
	rows, err = repo.ListSales(ctx, repository.SalesFilter{PharmacyID: &pharmacy.ID, Category: &other})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTransactionRepository_ListHistory(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lot := createTestLot(t, ctx, pharmacy.ID, med.ID, 100)

	users := repository.NewUserCacheRepository(suite.DB)
	pharmacist := &repository.CachedUser{
		ID:       "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		FullName: "Dana Reyes",
		Role:     "pharmacist",
	}
	require.NoError(t, users.Upsert(ctx, pharmacist))

	repo := repository.NewTransactionRepository(suite.DB)
	txn := &repository.Transaction{
		LotID:        &lot.ID,
		PharmacyID:   pharmacy.ID,
		MedicationID: lot.MedicationID,
		Type:         repository.TransactionSale,
		Quantity:     2,
		UnitPrice:    decimal.NewFromFloat(4.20),
		PerformedBy:  &pharmacist.ID,
	}
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return repo.CreateTx(ctx, tx, txn)
	})
	require.NoError(t, err)

	rows, err := repo.ListHistory(ctx, pharmacy.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NotNil(t, rows[0].PerformedByName)
	assert.Equal(t, "Dana Reyes", *rows[0].PerformedByName)
	require.NotNil(t, rows[0].MedicationName)
	assert.Equal(t, med.Name, *rows[0].MedicationName)
}
