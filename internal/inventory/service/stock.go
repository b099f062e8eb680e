package service

import (
	"context"
	"time"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Restock reasons. Near-expiration wins when a lot qualifies for both.
const (
	RestockReasonLowStock       = "low_stock"
	RestockReasonNearExpiration = "near_expiration"
)

// LowStockItem is a lot flagged below the stock threshold
type LowStockItem struct {
	LotID           string          `json:"lot_id"`
	PharmacyID      string          `json:"pharmacy_id"`
	PharmacyName    string          `json:"pharmacy_name"`
	MedicationName  string          `json:"medication_name"`
	BatchCode       string          `json:"batch_code"`
	Quantity        int             `json:"quantity"`
	Threshold       int             `json:"threshold"`
	Price           decimal.Decimal `json:"price"`
	ManufactureDate time.Time       `json:"manufacture_date"`
}

// RestockRecommendation is a lot that should be reordered, with the reason
// that triggered it
type RestockRecommendation struct {
	LotID               string    `json:"lot_id"`
	PharmacyID          string    `json:"pharmacy_id"`
	PharmacyName        string    `json:"pharmacy_name"`
	MedicationName      string    `json:"medication_name"`
	BatchCode           string    `json:"batch_code"`
	Quantity            int       `json:"quantity"`
	ManufactureDate     time.Time `json:"manufacture_date"`
	ExpirationDays      *int      `json:"expiration_days,omitempty"`
	Reason              string    `json:"reason"`
	RecommendedQuantity int       `json:"recommended_quantity"`
}

// LowStock lists lots with quantity strictly below the threshold
func (s *Service) LowStock(ctx context.Context, threshold int) ([]*LowStockItem, error) {
	if threshold <= 0 {
		return nil, errors.Validation(map[string]string{"threshold": "must be greater than zero"})
	}

	lots, err := s.lots.ListBelowThreshold(ctx, threshold)
	if err != nil {
		return nil, err
	}

	items := make([]*LowStockItem, 0, len(lots))
	for _, lot := range lots {
		item := &LowStockItem{
			LotID:           lot.ID,
			PharmacyID:      lot.PharmacyID,
			PharmacyName:    UnknownPharmacy,
			MedicationName:  UnknownMedication,
			BatchCode:       lot.BatchCode,
			Quantity:        lot.Quantity,
			Threshold:       threshold,
			Price:           lot.Price,
			ManufactureDate: lot.ManufactureDate,
		}
		if lot.PharmacyName != nil {
			item.PharmacyName = *lot.PharmacyName
		}
		if lot.MedicationName != nil {
			item.MedicationName = *lot.MedicationName
		} else {
			s.logger.Warn().Str("lot_id", lot.ID).Msg("Lot references missing medication")
		}
		items = append(items, item)
	}

	s.logger.Debug().Int("threshold", threshold).Int("count", len(items)).Msg("Low stock computed")
	return items, nil
}

// RestockRecommendations flags lots that are running low or close to expiry.
// A lot close to expiry is flagged for that even when it is also below the
// threshold: replacing soon-to-expire stock matters more than topping it up.
func (s *Service) RestockRecommendations(ctx context.Context, threshold int) ([]*RestockRecommendation, error) {
	if threshold <= 0 {
		return nil, errors.Validation(map[string]string{"threshold": "must be greater than zero"})
	}

	lots, err := s.lots.List(ctx, repository.LotFilter{})
	if err != nil {
		return nil, err
	}

	recs := buildRestockRecommendations(lots, s.now(), threshold, s.cfg.RestockMultiplier, s.cfg.NearExpiryFraction)
	for _, lot := range lots {
		if lot.MedicationName == nil {
			s.logger.Warn().Str("lot_id", lot.ID).Msg("Lot references missing medication, expiry check skipped")
		}
	}

	s.logger.Debug().Int("threshold", threshold).Int("count", len(recs)).Msg("Restock recommendations computed")
	return recs, nil
}

// buildRestockRecommendations evaluates every lot against the stock threshold
// and the expiry window. Pure: all inputs explicit, encounter order preserved.
func buildRestockRecommendations(lots []*repository.LotWithRefs, now time.Time, threshold, multiplier int, nearExpiryFraction float64) []*RestockRecommendation {
	recs := make([]*RestockRecommendation, 0)
	for _, lot := range lots {
		reason := ""
		if lot.ExpirationDays != nil && *lot.ExpirationDays > 0 {
			lifetime := time.Duration(*lot.ExpirationDays) * 24 * time.Hour
			elapsed := now.Sub(lot.ManufactureDate)
			if float64(elapsed)/float64(lifetime) >= nearExpiryFraction {
				reason = RestockReasonNearExpiration
			}
		}
		if reason == "" && lot.Quantity < threshold {
			reason = RestockReasonLowStock
		}
		if reason == "" {
			continue
		}

		rec := &RestockRecommendation{
			LotID:               lot.ID,
			PharmacyID:          lot.PharmacyID,
			PharmacyName:        UnknownPharmacy,
			MedicationName:      UnknownMedication,
			BatchCode:           lot.BatchCode,
			Quantity:            lot.Quantity,
			ManufactureDate:     lot.ManufactureDate,
			ExpirationDays:      lot.ExpirationDays,
			Reason:              reason,
			RecommendedQuantity: multiplier * threshold,
		}
		if lot.PharmacyName != nil {
			rec.PharmacyName = *lot.PharmacyName
		}
		if lot.MedicationName != nil {
			rec.MedicationName = *lot.MedicationName
		}
		recs = append(recs, rec)
	}
	return recs
}
