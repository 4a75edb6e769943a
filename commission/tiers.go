/*
tiers.go - Commission tier table and volume-band resolution

PURPOSE:
  A TierTable is a closed, hand-authored, ascending sequence of
  deal-count bands, each carrying the closer and setter percentage rates
  earned at that volume. The band a person lands in is a function of
  their cumulative six-month-deal equivalents for the month (volume.go).

PARTITION INVARIANT:
  The bands partition [0, inf): the first band starts at 0, each band's
  min is the previous band's max + 1, and the last band is unbounded.
  Deal counts are fractional (a 3-month referral counts 0.5), so Resolve
  treats band [min, max] as covering [min, nextMin); the value 12.5
  still belongs to the [0,12] band it extends. Exactly one band matches
  any non-negative count.

  A table violating the invariant is a configuration defect: Validate
  fails loudly instead of defaulting silently (this is authored
  constant data, not user input).

DESIGN:
  The table is an immutable, injected value. There is no mutable
  module-level singleton; tests run with alternate tables.
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIER - One volume band
// =============================================================================

// Tier maps a cumulative deal-count band to commission rates.
// Rates are percentages (8 means 8%). MaxDeals nil = unbounded top band.
type Tier struct {
	MinDeals   int
	MaxDeals   *int
	CloserRate decimal.Decimal
	SetterRate decimal.Decimal
}

// Contains reports whether the band holds the given deal count under
// [min, nextMin) semantics. nextMin is the following band's MinDeals;
// the top band passes a negative nextMin meaning unbounded.
func (t Tier) contains(deals decimal.Decimal, nextMin int) bool {
	if deals.LessThan(decimal.NewFromInt(int64(t.MinDeals))) {
		return false
	}
	if t.MaxDeals == nil || nextMin < 0 {
		return true
	}
	return deals.LessThan(decimal.NewFromInt(int64(nextMin)))
}

// Unbounded reports whether this is the open-ended top band.
func (t Tier) Unbounded() bool { return t.MaxDeals == nil }

func (t Tier) String() string {
	if t.MaxDeals == nil {
		return fmt.Sprintf("[%d, inf) closer %s%% setter %s%%", t.MinDeals, t.CloserRate, t.SetterRate)
	}
	return fmt.Sprintf("[%d, %d] closer %s%% setter %s%%", t.MinDeals, *t.MaxDeals, t.CloserRate, t.SetterRate)
}

// =============================================================================
// TIER TABLE
// =============================================================================

// TierTable is an ordered set of bands satisfying the partition invariant.
type TierTable []Tier

// NewTierTable validates an authored band list.
func NewTierTable(tiers []Tier) (TierTable, error) {
	tt := TierTable(tiers)
	if err := tt.Validate(); err != nil {
		return nil, err
	}
	return tt, nil
}

// MustTierTable is for authored constants; an invalid table is a
// programming error, not a runtime condition.
func MustTierTable(tiers []Tier) TierTable {
	tt, err := NewTierTable(tiers)
	if err != nil {
		panic(err)
	}
	return tt
}

// Validate checks the partition invariant and the rate sanity rules:
// bands ascend with no gaps or overlaps, cover [0, inf), and rates are
// non-decreasing with volume.
func (tt TierTable) Validate() error {
	if len(tt) == 0 {
		return &TierTableError{Index: 0, Reason: "table is empty"}
	}
	if tt[0].MinDeals != 0 {
		return &TierTableError{Index: 0, Reason: "first band must start at 0"}
	}
	for i, tier := range tt {
		last := i == len(tt)-1
		if last {
			if tier.MaxDeals != nil {
				return &TierTableError{Index: i, Reason: "last band must be unbounded"}
			}
		} else {
			if tier.MaxDeals == nil {
				return &TierTableError{Index: i, Reason: "only the last band may be unbounded"}
			}
			if *tier.MaxDeals < tier.MinDeals {
				return &TierTableError{Index: i, Reason: "band max below min"}
			}
			if next := tt[i+1]; next.MinDeals != *tier.MaxDeals+1 {
				return &TierTableError{Index: i + 1, Reason: fmt.Sprintf(
					"band must start at %d (previous max %d), starts at %d",
					*tier.MaxDeals+1, *tier.MaxDeals, next.MinDeals)}
			}
		}
		if tier.CloserRate.IsNegative() || tier.SetterRate.IsNegative() {
			return &TierTableError{Index: i, Reason: "negative rate"}
		}
		if i > 0 {
			prev := tt[i-1]
			if tier.CloserRate.LessThan(prev.CloserRate) || tier.SetterRate.LessThan(prev.SetterRate) {
				return &TierTableError{Index: i, Reason: "rates must not decrease with volume"}
			}
		}
	}
	return nil
}

// Resolve returns the band containing the given deal count. On a
// validated table exactly one band matches any count >= 0; negative
// counts (which the volume accumulator never produces) clamp to the
// first band.
func (tt TierTable) Resolve(deals decimal.Decimal) Tier {
	for i, tier := range tt {
		nextMin := -1
		if i < len(tt)-1 {
			nextMin = tt[i+1].MinDeals
		}
		if tier.contains(deals, nextMin) {
			return tier
		}
	}
	return tt[0]
}

// Rates returns the band's rate pair.
func (t Tier) Rates() Rates {
	return Rates{CloserRate: t.CloserRate, SetterRate: t.SetterRate}
}

// =============================================================================
// AUTHORED DEFAULTS
// =============================================================================

// BackendCSMRate is the flat percentage a CSM earns on a backend
// (service upgrade) deal, independent of the tier system.
var BackendCSMRate = decimal.NewFromInt(3)

func intPtr(n int) *int { return &n }

// DefaultTierTable is the production tier schedule.
func DefaultTierTable() TierTable {
	return MustTierTable([]Tier{
		{MinDeals: 0, MaxDeals: intPtr(12), CloserRate: decimal.NewFromInt(8), SetterRate: decimal.NewFromInt(3)},
		{MinDeals: 13, MaxDeals: intPtr(19), CloserRate: decimal.NewFromInt(9), SetterRate: decimal.NewFromInt(4)},
		{MinDeals: 20, MaxDeals: intPtr(25), CloserRate: decimal.NewFromInt(10), SetterRate: decimal.NewFromInt(5)},
		{MinDeals: 26, MaxDeals: intPtr(30), CloserRate: decimal.NewFromInt(11), SetterRate: decimal.NewFromInt(6)},
		{MinDeals: 31, MaxDeals: nil, CloserRate: decimal.NewFromInt(12), SetterRate: decimal.NewFromInt(7)},
	})
}
