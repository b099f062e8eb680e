package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestWriteOff(t *testing.T, ctx context.Context, repo *repository.WriteOffRepository, lot *repository.InventoryLot, quantity int, reason string) *repository.WriteOff {
	t.Helper()
	wo := &repository.WriteOff{
		LotID:        &lot.ID,
		PharmacyID:   lot.PharmacyID,
		MedicationID: lot.MedicationID,
		Quantity:     quantity,
		Reason:       reason,
	}
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return repo.CreateTx(ctx, tx, wo)
	})
	require.NoError(t, err)
	return wo
}

func TestWriteOffRepository_CreateTx(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lot := createTestLot(t, ctx, pharmacy.ID, med.ID, 30)

	repo := repository.NewWriteOffRepository(suite.DB)
	wo := createTestWriteOff(t, ctx, repo, lot, 3, repository.ReasonExpired)

	assert.NotEmpty(t, wo.ID)
	assert.False(t, wo.OccurredAt.IsZero())
}

func TestWriteOffRepository_InvalidReasonRejected(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lot := createTestLot(t, ctx, pharmacy.ID, med.ID, 30)

	repo := repository.NewWriteOffRepository(suite.DB)
	wo := &repository.WriteOff{
		LotID:        &lot.ID,
		PharmacyID:   lot.PharmacyID,
		MedicationID: lot.MedicationID,
		Quantity:     1,
		Reason:       "melted",
	}
	err := suite.DB.Transaction(ctx, func(tx *sqlx.Tx) error {
		return repo.CreateTx(ctx, tx, wo)
	})
	require.Error(t, err)
}

func TestWriteOffRepository_List_Filters(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	med := createTestMedication(t, ctx)
	lot := createTestLot(t, ctx, pharmacy.ID, med.ID, 50)

	repo := repository.NewWriteOffRepository(suite.DB)
	createTestWriteOff(t, ctx, repo, lot, 2, repository.ReasonExpired)
	createTestWriteOff(t, ctx, repo, lot, 5, repository.ReasonDamaged)

	rows, err := repo.List(ctx, repository.WriteOffFilter{PharmacyID: &pharmacy.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	reason := repository.ReasonDamaged
	rows, err = repo.List(ctx, repository.WriteOffFilter{PharmacyID: &pharmacy.ID, Reason: &reason})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Quantity)
	require.NotNil(t, rows[0].MedicationName)
	assert.Equal(t, med.Name, *rows[0].MedicationName)

	future := time.Now().UTC().Add(time.Hour)
	rows, err = repo.List(ctx, repository.WriteOffFilter{PharmacyID: &pharmacy.ID, From: &future})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
