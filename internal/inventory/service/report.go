package service

import (
	"context"
	"math"
	"sort"
	"time"

	catalogrepo "github.com/pharmatrack/pharmatrack-backend/internal/catalog/repository"
	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const topMedicationsLimit = 5

// daysPerMonth is the accounting month used for sales-rate figures.
const daysPerMonth = 30

// MedicationSales is sales for one medication within a report window
type MedicationSales struct {
	MedicationID   string          `json:"medication_id,omitempty"`
	MedicationName string          `json:"medication_name"`
	Quantity       int             `json:"quantity"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// SalesReport aggregates sales over a window
type SalesReport struct {
	TotalQuantity  int                `json:"total_quantity"`
	TotalRevenue   decimal.Decimal    `json:"total_revenue"`
	ByMedication   []*MedicationSales `json:"by_medication"`
	TopMedications []*MedicationSales `json:"top_medications"`
}

// WriteOffPair is a (medication, reason) pair with its written-off quantity
type WriteOffPair struct {
	MedicationID   string `json:"medication_id,omitempty"`
	MedicationName string `json:"medication_name"`
	Reason         string `json:"reason"`
	Quantity       int    `json:"quantity"`
}

// WriteOffReport aggregates write-offs over a window
type WriteOffReport struct {
	TotalQuantity int             `json:"total_quantity"`
	ByReason      map[string]int  `json:"by_reason"`
	TopPairs      []*WriteOffPair `json:"top_pairs"`
}

// UsageReport combines sales and write-offs over one window
type UsageReport struct {
	Sales        *SalesReport    `json:"sales"`
	WriteOffs    *WriteOffReport `json:"write_offs"`
	TotalUsage   int             `json:"total_usage"`
	UsageRatio   float64         `json:"usage_ratio"`
	CurrentStock []*SnapshotItem `json:"current_stock"`
}

// SnapshotItem is the current stock of one medication
type SnapshotItem struct {
	MedicationID   string `json:"medication_id,omitempty"`
	MedicationName string `json:"medication_name"`
	Quantity       int    `json:"quantity"`
	LotCount       int    `json:"lot_count"`
}

// MedicationStats is the long-run view of one catalog medication
type MedicationStats struct {
	MedicationID         string          `json:"medication_id"`
	MedicationName       string          `json:"medication_name"`
	Category             string          `json:"category"`
	TotalQuantity        int             `json:"total_quantity"`
	LotCount             int             `json:"lot_count"`
	AveragePrice         decimal.Decimal `json:"average_price"`
	TotalSold            int             `json:"total_sold"`
	MonthsOnMarket       int             `json:"months_on_market"`
	AverageSalesPerMonth float64         `json:"average_sales_per_month"`
}

// ReportFilter narrows a report window. Nil fields match everything.
type ReportFilter struct {
	PharmacyID   *string
	MedicationID *string
	Category     *string
	Reason       *string
	From         *time.Time
	To           *time.Time
}

// Validate rejects inverted windows before any query runs
func (f ReportFilter) Validate() error {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return errors.Validation(map[string]string{"from": "must not be after to"})
	}
	return nil
}

func (f ReportFilter) salesFilter() repository.SalesFilter {
	return repository.SalesFilter{
		PharmacyID:   f.PharmacyID,
		MedicationID: f.MedicationID,
		Category:     f.Category,
		From:         f.From,
		To:           f.To,
	}
}

func (f ReportFilter) writeOffFilter() repository.WriteOffFilter {
	return repository.WriteOffFilter{
		PharmacyID: f.PharmacyID,
		Reason:     f.Reason,
		From:       f.From,
		To:         f.To,
	}
}

// SalesReport aggregates sales matching the filter. Grouping happens here
// rather than in SQL so a dangling medication reference degrades to a sentinel
// row instead of dropping out of the join.
func (s *Service) SalesReport(ctx context.Context, filter ReportFilter) (*SalesReport, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.transactions.ListSales(ctx, filter.salesFilter())
	if err != nil {
		return nil, err
	}

	report := buildSalesReport(rows)
	s.logger.Debug().Int("rows", len(rows)).Int("total_quantity", report.TotalQuantity).Msg("Sales report computed")
	return report, nil
}

// WriteOffReport aggregates write-offs matching the filter
func (s *Service) WriteOffReport(ctx context.Context, filter ReportFilter) (*WriteOffReport, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.writeOffs.List(ctx, filter.writeOffFilter())
	if err != nil {
		return nil, err
	}

	report := buildWriteOffReport(rows)
	s.logger.Debug().Int("rows", len(rows)).Int("total_quantity", report.TotalQuantity).Msg("Write-off report computed")
	return report, nil
}

// UsageReport combines sales, write-offs and the current stock over one window
func (s *Service) UsageReport(ctx context.Context, filter ReportFilter) (*UsageReport, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	sales, err := s.SalesReport(ctx, filter)
	if err != nil {
		return nil, err
	}

	writeOffs, err := s.WriteOffReport(ctx, filter)
	if err != nil {
		return nil, err
	}

	lots, err := s.lots.List(ctx, repository.LotFilter{
		PharmacyID:   filter.PharmacyID,
		MedicationID: filter.MedicationID,
	})
	if err != nil {
		return nil, err
	}

	totalUsage := sales.TotalQuantity + writeOffs.TotalQuantity
	return &UsageReport{
		Sales:        sales,
		WriteOffs:    writeOffs,
		TotalUsage:   totalUsage,
		UsageRatio:   usageRatio(sales.TotalQuantity, totalUsage),
		CurrentStock: buildSnapshot(lots),
	}, nil
}

// InventorySnapshot groups current lot quantities by medication
func (s *Service) InventorySnapshot(ctx context.Context, filter repository.LotFilter) ([]*SnapshotItem, error) {
	lots, err := s.lots.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return buildSnapshot(lots), nil
}

// Statistics computes the long-run per-medication view across all pharmacies.
// Every catalog medication gets a row; ones that were never stocked come back
// as zeros.
func (s *Service) Statistics(ctx context.Context) ([]*MedicationStats, error) {
	medications, err := s.medications.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	lots, err := s.lots.List(ctx, repository.LotFilter{})
	if err != nil {
		return nil, err
	}

	sales, err := s.transactions.ListSales(ctx, repository.SalesFilter{})
	if err != nil {
		return nil, err
	}

	stats := buildStatistics(medications, lots, sales, s.now())
	s.logger.Debug().Int("medications", len(stats)).Msg("Statistics computed")
	return stats, nil
}

func buildSalesReport(rows []*repository.SaleRow) *SalesReport {
	report := &SalesReport{
		TotalRevenue:   decimal.Zero,
		ByMedication:   make([]*MedicationSales, 0),
		TopMedications: make([]*MedicationSales, 0),
	}

	groups := make(map[string]*MedicationSales)
	for _, row := range rows {
		key, name := medicationKey(row.MedicationID, row.MedicationName)
		group, ok := groups[key]
		if !ok {
			group = &MedicationSales{MedicationName: name, Revenue: decimal.Zero}
			if row.MedicationID != nil {
				group.MedicationID = *row.MedicationID
			}
			groups[key] = group
			report.ByMedication = append(report.ByMedication, group)
		}

		revenue := row.UnitPrice.Mul(decimal.NewFromInt(int64(row.Quantity)))
		group.Quantity += row.Quantity
		group.Revenue = group.Revenue.Add(revenue)
		report.TotalQuantity += row.Quantity
		report.TotalRevenue = report.TotalRevenue.Add(revenue)
	}

	report.TotalRevenue = report.TotalRevenue.Round(2)
	for _, group := range report.ByMedication {
		group.Revenue = group.Revenue.Round(2)
	}

	report.TopMedications = topSales(report.ByMedication)
	return report
}

// topSales returns the top groups by quantity. The sort is stable so equal
// quantities keep their encounter order.
func topSales(groups []*MedicationSales) []*MedicationSales {
	top := make([]*MedicationSales, len(groups))
	copy(top, groups)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Quantity > top[j].Quantity
	})
	if len(top) > topMedicationsLimit {
		top = top[:topMedicationsLimit]
	}
	return top
}

func buildWriteOffReport(rows []*repository.WriteOffRow) *WriteOffReport {
	report := &WriteOffReport{
		ByReason: make(map[string]int),
		TopPairs: make([]*WriteOffPair, 0),
	}
	for _, reason := range repository.WriteOffReasons {
		report.ByReason[reason] = 0
	}

	pairs := make(map[string]*WriteOffPair)
	order := make([]*WriteOffPair, 0)
	for _, row := range rows {
		report.TotalQuantity += row.Quantity
		report.ByReason[row.Reason] += row.Quantity

		key, name := medicationKey(row.MedicationID, row.MedicationName)
		key += "|" + row.Reason
		pair, ok := pairs[key]
		if !ok {
			pair = &WriteOffPair{MedicationName: name, Reason: row.Reason}
			if row.MedicationID != nil {
				pair.MedicationID = *row.MedicationID
			}
			pairs[key] = pair
			order = append(order, pair)
		}
		pair.Quantity += row.Quantity
	}

	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Quantity > order[j].Quantity
	})
	if len(order) > topMedicationsLimit {
		order = order[:topMedicationsLimit]
	}
	report.TopPairs = order
	return report
}

func buildSnapshot(lots []*repository.LotWithRefs) []*SnapshotItem {
	groups := make(map[string]*SnapshotItem)
	order := make([]*SnapshotItem, 0)
	for _, lot := range lots {
		key, name := medicationKey(lot.MedicationID, lot.MedicationName)
		item, ok := groups[key]
		if !ok {
			item = &SnapshotItem{MedicationName: name}
			if lot.MedicationID != nil {
				item.MedicationID = *lot.MedicationID
			}
			groups[key] = item
			order = append(order, item)
		}
		item.Quantity += lot.Quantity
		item.LotCount++
	}
	return order
}

func buildStatistics(medications []*catalogrepo.Medication, lots []*repository.LotWithRefs, sales []*repository.SaleRow, now time.Time) []*MedicationStats {
	byID := make(map[string]*MedicationStats)
	stats := make([]*MedicationStats, 0, len(medications))
	for _, med := range medications {
		row := &MedicationStats{
			MedicationID:   med.ID,
			MedicationName: med.Name,
			Category:       med.Category,
			AveragePrice:   decimal.Zero,
		}
		byID[med.ID] = row
		stats = append(stats, row)
	}

	priceSums := make(map[string]decimal.Decimal)
	for _, lot := range lots {
		if lot.MedicationID == nil {
			continue
		}
		row, ok := byID[*lot.MedicationID]
		if !ok {
			continue
		}
		row.TotalQuantity += lot.Quantity
		row.LotCount++
		priceSums[row.MedicationID] = priceSums[row.MedicationID].Add(lot.Price)
	}
	for id, sum := range priceSums {
		row := byID[id]
		row.AveragePrice = sum.Div(decimal.NewFromInt(int64(row.LotCount))).Round(2)
	}

	// Sales arrive oldest first, so the first row seen per medication is its
	// first sale.
	firstSale := make(map[string]time.Time)
	for _, sale := range sales {
		if sale.MedicationID == nil {
			continue
		}
		row, ok := byID[*sale.MedicationID]
		if !ok {
			continue
		}
		row.TotalSold += sale.Quantity
		if _, seen := firstSale[row.MedicationID]; !seen {
			firstSale[row.MedicationID] = sale.OccurredAt
		}
	}

	for id, first := range firstSale {
		row := byID[id]
		row.MonthsOnMarket = monthsSince(first, now)
		if row.MonthsOnMarket > 0 {
			ratio := decimal.NewFromInt(int64(row.TotalSold)).
				Div(decimal.NewFromInt(int64(row.MonthsOnMarket))).
				Round(2)
			row.AverageSalesPerMonth = ratio.InexactFloat64()
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].MedicationName < stats[j].MedicationName
	})
	return stats
}

// monthsSince counts elapsed 30-day months, rounded up, never below 1 once a
// first sale exists.
func monthsSince(first, now time.Time) int {
	elapsed := now.Sub(first)
	if elapsed <= 0 {
		return 1
	}
	months := int(math.Ceil(elapsed.Hours() / (24 * daysPerMonth)))
	if months < 1 {
		months = 1
	}
	return months
}

// usageRatio is the sold share of total usage as a percentage, 2 dp. Always
// within [0,100]: sold never exceeds total by construction.
func usageRatio(sold, total int) float64 {
	if total <= 0 {
		return 0
	}
	ratio := decimal.NewFromInt(int64(sold)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	return ratio.InexactFloat64()
}

func medicationKey(id, name *string) (key, display string) {
	display = UnknownMedication
	if name != nil {
		display = *name
	}
	if id != nil {
		return *id, display
	}
	return "unknown", display
}
