package service

import (
	"testing"
	"time"

	catalogrepo "github.com/pharmatrack/pharmatrack-backend/internal/catalog/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleRow(medID, medName string, quantity int, price float64, at time.Time) *repository.SaleRow {
	return &repository.SaleRow{
		MedicationID:   &medID,
		MedicationName: &medName,
		PharmacyID:     "pharmacy-1",
		Quantity:       quantity,
		UnitPrice:      decimal.NewFromFloat(price),
		OccurredAt:     at,
	}
}

func TestBuildSalesReport_GroupsAndTotals(t *testing.T) {
	now := time.Now().UTC()
	rows := []*repository.SaleRow{
		saleRow("m1", "Aspirin", 3, 2.50, now),
		saleRow("m2", "Paracetamol", 1, 10.00, now),
		saleRow("m1", "Aspirin", 2, 2.50, now),
	}

	report := buildSalesReport(rows)

	assert.Equal(t, 6, report.TotalQuantity)
	assert.True(t, report.TotalRevenue.Equal(decimal.NewFromFloat(22.50)),
		"got %s", report.TotalRevenue)

	require.Len(t, report.ByMedication, 2)
	// Encounter order: first sale seen first.
	assert.Equal(t, "Aspirin", report.ByMedication[0].MedicationName)
	assert.Equal(t, 5, report.ByMedication[0].Quantity)
	assert.True(t, report.ByMedication[0].Revenue.Equal(decimal.NewFromFloat(12.50)))
	assert.Equal(t, "Paracetamol", report.ByMedication[1].MedicationName)
}

func TestBuildSalesReport_TopFive(t *testing.T) {
	now := time.Now().UTC()
	rows := make([]*repository.SaleRow, 0)
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, name := range names {
		rows = append(rows, saleRow("m-"+name, name, i+1, 1.00, now))
	}

	report := buildSalesReport(rows)
	require.Len(t, report.ByMedication, 7)
	require.Len(t, report.TopMedications, 5)

	assert.Equal(t, "G", report.TopMedications[0].MedicationName)
	assert.Equal(t, 7, report.TopMedications[0].Quantity)
	assert.Equal(t, "C", report.TopMedications[4].MedicationName)

	// Top quantities are a subset of the full total.
	topSum := 0
	for _, g := range report.TopMedications {
		topSum += g.Quantity
	}
	assert.LessOrEqual(t, topSum, report.TotalQuantity)
}

func TestBuildSalesReport_Empty(t *testing.T) {
	report := buildSalesReport(nil)
	assert.Equal(t, 0, report.TotalQuantity)
	assert.True(t, report.TotalRevenue.IsZero())
	assert.Empty(t, report.ByMedication)
	assert.Empty(t, report.TopMedications)
}

func TestBuildSalesReport_DanglingMedicationSentinel(t *testing.T) {
	now := time.Now().UTC()
	rows := []*repository.SaleRow{
		{PharmacyID: "pharmacy-1", Quantity: 2, UnitPrice: decimal.NewFromInt(3), OccurredAt: now},
	}

	report := buildSalesReport(rows)
	require.Len(t, report.ByMedication, 1)
	assert.Equal(t, UnknownMedication, report.ByMedication[0].MedicationName)
	assert.Equal(t, 2, report.TotalQuantity)
}

func writeOffRow(medID, medName, reason string, quantity int) *repository.WriteOffRow {
	return &repository.WriteOffRow{
		MedicationID:   &medID,
		MedicationName: &medName,
		PharmacyID:     "pharmacy-1",
		Quantity:       quantity,
		Reason:         reason,
		OccurredAt:     time.Now().UTC(),
	}
}

func TestBuildWriteOffReport_ReasonTotals(t *testing.T) {
	rows := []*repository.WriteOffRow{
		writeOffRow("m1", "Aspirin", repository.ReasonExpired, 4),
		writeOffRow("m1", "Aspirin", repository.ReasonExpired, 1),
		writeOffRow("m2", "Insulin", repository.ReasonDamaged, 2),
	}

	report := buildWriteOffReport(rows)

	assert.Equal(t, 7, report.TotalQuantity)
	assert.Equal(t, 5, report.ByReason[repository.ReasonExpired])
	assert.Equal(t, 2, report.ByReason[repository.ReasonDamaged])
	// Every known reason has an entry, even at zero.
	assert.Contains(t, report.ByReason, repository.ReasonLost)
	assert.Equal(t, 0, report.ByReason[repository.ReasonLost])
}

func TestBuildWriteOffReport_TopPairs(t *testing.T) {
	rows := []*repository.WriteOffRow{
		writeOffRow("m1", "Aspirin", repository.ReasonExpired, 1),
		writeOffRow("m1", "Aspirin", repository.ReasonDamaged, 6),
		writeOffRow("m2", "Insulin", repository.ReasonExpired, 3),
		writeOffRow("m1", "Aspirin", repository.ReasonExpired, 1),
	}

	report := buildWriteOffReport(rows)
	require.Len(t, report.TopPairs, 3)

	// (medication, reason) pairs accumulate separately.
	assert.Equal(t, "Aspirin", report.TopPairs[0].MedicationName)
	assert.Equal(t, repository.ReasonDamaged, report.TopPairs[0].Reason)
	assert.Equal(t, 6, report.TopPairs[0].Quantity)
	assert.Equal(t, "Insulin", report.TopPairs[1].MedicationName)
	assert.Equal(t, 3, report.TopPairs[1].Quantity)
	assert.Equal(t, 2, report.TopPairs[2].Quantity)
}

func TestUsageRatio(t *testing.T) {
	tests := []struct {
		name  string
		sold  int
		total int
		want  float64
	}{
		{"zero total", 0, 0, 0},
		{"all sales", 10, 10, 100},
		{"no sales", 0, 10, 0},
		{"two thirds", 2, 3, 66.67},
		{"half", 5, 10, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usageRatio(tt.sold, tt.total)
			assert.InDelta(t, tt.want, got, 0.001)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestMonthsSince(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, monthsSince(now, now))
	assert.Equal(t, 1, monthsSince(now.AddDate(0, 0, -1), now))
	assert.Equal(t, 1, monthsSince(now.AddDate(0, 0, -30), now))
	assert.Equal(t, 2, monthsSince(now.AddDate(0, 0, -31), now))
	assert.Equal(t, 2, monthsSince(now.AddDate(0, 0, -60), now))
	assert.Equal(t, 3, monthsSince(now.AddDate(0, 0, -61), now))
	// First sale in the future (clock skew) still yields one month.
	assert.Equal(t, 1, monthsSince(now.AddDate(0, 0, 1), now))
}

func TestBuildStatistics(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	meds := []*catalogrepo.Medication{
		{ID: "m1", Name: "Aspirin", Category: "analgesic"},
		{ID: "m2", Name: "Zyrtec", Category: "antihistamine"},
		{ID: "m3", Name: "Never Stocked", Category: "other"},
	}

	m1, m2 := "m1", "m2"
	lots := []*repository.LotWithRefs{
		{InventoryLot: repository.InventoryLot{ID: "l1", MedicationID: &m1, Quantity: 10, Price: decimal.NewFromInt(4)}},
		{InventoryLot: repository.InventoryLot{ID: "l2", MedicationID: &m1, Quantity: 5, Price: decimal.NewFromInt(6)}},
		{InventoryLot: repository.InventoryLot{ID: "l3", MedicationID: &m2, Quantity: 7, Price: decimal.NewFromInt(3)}},
	}

	aspirin := "Aspirin"
	sales := []*repository.SaleRow{
		{MedicationID: &m1, MedicationName: &aspirin, Quantity: 30, UnitPrice: decimal.NewFromInt(4), OccurredAt: now.AddDate(0, 0, -45)},
		{MedicationID: &m1, MedicationName: &aspirin, Quantity: 15, UnitPrice: decimal.NewFromInt(4), OccurredAt: now.AddDate(0, 0, -10)},
	}

	stats := buildStatistics(meds, lots, sales, now)
	require.Len(t, stats, 3)

	// Sorted by name ascending.
	assert.Equal(t, "Aspirin", stats[0].MedicationName)
	assert.Equal(t, "Never Stocked", stats[1].MedicationName)
	assert.Equal(t, "Zyrtec", stats[2].MedicationName)

	asp := stats[0]
	assert.Equal(t, 15, asp.TotalQuantity)
	assert.Equal(t, 2, asp.LotCount)
	assert.True(t, asp.AveragePrice.Equal(decimal.NewFromInt(5)), "got %s", asp.AveragePrice)
	assert.Equal(t, 45, asp.TotalSold)
	// 45 days since first sale, 30-day months rounded up.
	assert.Equal(t, 2, asp.MonthsOnMarket)
	assert.InDelta(t, 22.5, asp.AverageSalesPerMonth, 0.001)

	never := stats[1]
	assert.Equal(t, 0, never.TotalQuantity)
	assert.Equal(t, 0, never.TotalSold)
	assert.Equal(t, 0, never.MonthsOnMarket)
	assert.Equal(t, 0.0, never.AverageSalesPerMonth)
}

func TestBuildSnapshot(t *testing.T) {
	m1, m2 := "m1", "m2"
	aspirin, insulin := "Aspirin", "Insulin"
	lots := []*repository.LotWithRefs{
		{InventoryLot: repository.InventoryLot{ID: "l1", MedicationID: &m1, Quantity: 10}, MedicationName: &aspirin},
		{InventoryLot: repository.InventoryLot{ID: "l2", MedicationID: &m2, Quantity: 0}, MedicationName: &insulin},
		{InventoryLot: repository.InventoryLot{ID: "l3", MedicationID: &m1, Quantity: 4}, MedicationName: &aspirin},
	}

	items := buildSnapshot(lots)
	require.Len(t, items, 2)

	assert.Equal(t, "Aspirin", items[0].MedicationName)
	assert.Equal(t, 14, items[0].Quantity)
	assert.Equal(t, 2, items[0].LotCount)

	// Zero-quantity lots stay visible.
	assert.Equal(t, "Insulin", items[1].MedicationName)
	assert.Equal(t, 0, items[1].Quantity)
	assert.Equal(t, 1, items[1].LotCount)
}

func TestReportFilter_Validate(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	err := ReportFilter{From: &from, To: &to}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)

	assert.NoError(t, ReportFilter{}.Validate())
	assert.NoError(t, ReportFilter{From: &from}.Validate())
	same := from
	assert.NoError(t, ReportFilter{From: &from, To: &same}.Validate())
}
