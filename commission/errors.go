/*
errors.go - Centralized error types for the commission engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these onto HTTP statuses.

ERROR CATEGORIES:
  1. Lookup failures   - referenced payment or deal type not found;
                         aborts that single calculation
  2. Persistence failures - upsert rejected; aborts, no automatic retry
  3. Missing parent data  - a rebill's parent has no stored calculation;
                         degrades to independent tier resolution (logged,
                         not an error)
  4. Invariant violations - a malformed tier table is a configuration
                         defect and fails loudly at construction

USAGE:
  if errors.Is(err, commission.ErrPaymentNotFound) { ... }
*/
package commission

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDealTypeNotFound is returned when a payment references a missing deal type.
	ErrDealTypeNotFound = errors.New("deal type not found")

	// ErrCalculationNotFound is returned when a payment has no stored calculation.
	ErrCalculationNotFound = errors.New("commission calculation not found")

	// ErrInvalidMonth is returned for a malformed "YYYY-MM" month string.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrInvalidTierTable is returned when an authored tier table does not
	// partition [0, inf). This is a configuration defect, never runtime input.
	ErrInvalidTierTable = errors.New("invalid tier table")

	// ErrRebillParentType is returned when a rebill references a parent
	// that is not a NewDeal. Chain depth is always exactly one.
	ErrRebillParentType = errors.New("rebill parent must be a new deal")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TierTableError explains which band breaks the partition invariant.
type TierTableError struct {
	Index  int
	Reason string
}

func (e *TierTableError) Error() string {
	return fmt.Sprintf("invalid tier table: band %d: %s", e.Index, e.Reason)
}

func (e *TierTableError) Unwrap() error { return ErrInvalidTierTable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPaymentNotFound) ||
		errors.Is(err, ErrDealTypeNotFound) ||
		errors.Is(err, ErrCalculationNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrRebillParentType)
}
