/*
volume.go - Per-person cumulative deal volume for tier selection

PURPOSE:
  A person's commission tier for a payment is a function of how many
  six-month-deal equivalents they have completed in the payment's month
  up to (and including) the payment's date. This file computes that
  cumulative volume.

RULES:
  - Only COMPLETED payments count. A pending service agreement never
    advances a person's tier.
  - The window is [first of month, asOf] inclusive on both ends, so a
    completed payment counts toward its own tier lookup.
  - Matching is on the single role-relevant assignment column.
  - An unassigned payment has no person to accumulate for: volume is 0,
    not an error.

PRECISION:
  Repeating-decimal conversions (google_ads is 1/3) carry a 16-digit
  truncation, so raw sums drift: three ads deals add to
  0.9999999999999999 and 39 add to just under 13, landing in the wrong
  band. The accumulated total is rounded to 9 places before it is
  returned, which restores the exact sums (three ads = one deal) while
  leaving every intentional fraction (0.5 per quarterly referral)
  untouched.
*/
package commission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VOLUME ACCUMULATOR
// =============================================================================

// VolumeAccumulator sums six-month-deal equivalents from the store.
type VolumeAccumulator struct {
	store Store
	norm  *Normalizer

	// dealTypeNames caches id -> name for the lifetime of one
	// accumulator. Batch recalculation reuses one accumulator so the
	// reference table is read once.
	dealTypeNames map[DealTypeID]string
}

// NewVolumeAccumulator creates an accumulator over the given store.
func NewVolumeAccumulator(store Store, norm *Normalizer) *VolumeAccumulator {
	return &VolumeAccumulator{store: store, norm: norm}
}

// CumulativeSixMonthDeals returns the person's completed six-month-deal
// equivalents in month, counting payments dated in [month start, asOf].
func (v *VolumeAccumulator) CumulativeSixMonthDeals(ctx context.Context, month Month, asOf time.Time, a Assignment) (decimal.Decimal, error) {
	if a.Name == "" || !a.Role.Valid() {
		return decimal.Zero, nil
	}

	payments, err := v.store.ListCompletedAssigned(ctx, a, month.Start(), asOf)
	if err != nil {
		return decimal.Zero, err
	}

	names, err := v.typeNames(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range payments {
		name, ok := names[p.DealTypeID]
		if !ok {
			name = DefaultDealTypeName
		}
		total = total.Add(v.norm.SixMonthEquivalent(name))
	}
	// Collapse repeating-decimal drift so fractional conversions sum
	// exactly at band boundaries (three google_ads deals = 1, not
	// 0.9999999999999999).
	return total.Round(9), nil
}

func (v *VolumeAccumulator) typeNames(ctx context.Context) (map[DealTypeID]string, error) {
	if v.dealTypeNames != nil {
		return v.dealTypeNames, nil
	}
	types, err := v.store.ListDealTypes(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[DealTypeID]string, len(types))
	for _, dt := range types {
		names[dt.ID] = dt.Name
	}
	v.dealTypeNames = names
	return names, nil
}
