package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/pharmatrack/pharmatrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionRepository_CreateAndLatest(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	repo := repository.NewConditionRepository(suite.DB)

	base := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	older := &repository.ConditionSample{
		PharmacyID:  pharmacy.ID,
		Temperature: 20.5,
		Humidity:    45,
		RecordedAt:  base,
	}
	require.NoError(t, repo.Create(ctx, older))

	newer := &repository.ConditionSample{
		PharmacyID:  pharmacy.ID,
		Temperature: 26.0,
		Humidity:    65,
		RecordedAt:  base.Add(time.Hour),
	}
	require.NoError(t, repo.Create(ctx, newer))

	latest, err := repo.GetLatestByPharmacy(ctx, pharmacy.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, 26.0, latest.Temperature)
}

func TestConditionRepository_GetLatest_NoSamples(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	repo := repository.NewConditionRepository(suite.DB)

	_, err := repo.GetLatestByPharmacy(ctx, pharmacy.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestConditionRepository_ListByPharmacy_Window(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx := context.Background()

	pharmacy := createTestPharmacy(t, ctx)
	repo := repository.NewConditionRepository(suite.DB)

	base := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		sample := &repository.ConditionSample{
			PharmacyID:  pharmacy.ID,
			Temperature: 20 + float64(i),
			Humidity:    40,
			RecordedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Create(ctx, sample))
	}

	from := base.Add(30 * time.Minute)
	samples, err := repo.ListByPharmacy(ctx, pharmacy.ID, &from, nil, 10)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Newest first.
	assert.Equal(t, 22.0, samples[0].Temperature)
	assert.Equal(t, 21.0, samples[1].Temperature)
}
