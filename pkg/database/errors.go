package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "quantity_non_negative"):
		return errors.Validation(map[string]string{
			"quantity": "must not be negative",
		})

	case strings.Contains(constraint, "writeoff_reason_valid"):
		return errors.Validation(map[string]string{
			"reason": "must be one of: expired, damaged, other",
		})

	case strings.Contains(constraint, "price_non_negative"):
		return errors.Validation(map[string]string{
			"price": "must not be negative",
		})

	default:
		return errors.BadRequest("check constraint violated: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint
	if constraint == "" {
		return "record already exists"
	}

	switch {
	case strings.Contains(constraint, "batch_code"):
		return "a lot with this batch code already exists for the pharmacy"
	default:
		return "record already exists (" + constraint + ")"
	}
}
