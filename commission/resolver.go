/*
resolver.go - The commission split algorithm

PURPOSE:
  Given one payment, its deal type, the person's resolved tier, and
  (for rebills) the parent deal's stored rates, compute the commission
  split across {closer, setter, csm}. This is a pure function: all
  lookups happen in the surrounding service (service.go), which keeps
  the branching logic deterministic and directly testable.

BRANCHES:
  Backend deal (service upgrade):
    Only a CSM assignment produces commission, at a flat 3% of the
    payment amount. Closer and setter are always zero regardless of
    tier or agreement status.

  Frontend (standard) deal:
    Commission is produced only once the service agreement is
    completed. The closer rate applies to a closer, the setter rate to
    a setter, and (edge case) a CSM assigned to a frontend deal earns
    at the tier's setter rate.

  Rebill inheritance:
    A rebill is a continuation of the original deal's commercial terms,
    not a new negotiation. When the parent's stored rates are supplied
    they replace the tier's rates verbatim. A missing parent calculation
    degrades to the rebill's own freshly resolved tier (the service
    logs this; see service.go).

AUDIT TRAIL:
  The returned Calculation records the tier bounds and the rates
  actually applied (inherited ones for rebills) so stored rows explain
  their own amounts. Every stored monetary or ratio figure is rounded
  to 2 decimal places.
*/
package commission

import "github.com/shopspring/decimal"

// =============================================================================
// RESOLVE INPUT
// =============================================================================

// ResolveInput carries everything the split algorithm needs. Deals is
// the person's cumulative six-month-deal count as of the payment date;
// Tier is the band resolved from it. ParentRates is non-nil only for a
// rebill whose parent calculation was found.
type ResolveInput struct {
	Payment     Payment
	DealType    DealType
	Deals       decimal.Decimal
	Tier        Tier
	ParentRates *Rates
}

var oneHundred = decimal.NewFromInt(100)

func commissionAt(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(oneHundred).Round(2)
}

// =============================================================================
// RESOLVER
// =============================================================================

// ResolveCommission computes the commission split for one payment.
// It performs no persistence; the caller upserts the result keyed by
// payment ID.
func ResolveCommission(in ResolveInput) Calculation {
	amount := in.Payment.Amount
	rates := in.Tier.Rates()

	closer := decimal.Zero
	setter := decimal.Zero
	csm := decimal.Zero

	assignment, assigned := in.Payment.Assignment()

	switch {
	case in.DealType.IsBackend:
		// Backend deals pay the CSM a flat rate, tier system bypassed.
		if assigned && assignment.Role == RoleCSM {
			csm = commissionAt(amount, BackendCSMRate)
		}

	case in.Payment.Completed() && assigned:
		if in.Payment.IsRebill() && in.ParentRates != nil {
			rates = *in.ParentRates
		}
		switch assignment.Role {
		case RoleCloser:
			closer = commissionAt(amount, rates.CloserRate)
		case RoleSetter:
			setter = commissionAt(amount, rates.SetterRate)
		case RoleCSM:
			// CSM on a frontend deal earns at the setter rate.
			csm = commissionAt(amount, rates.SetterRate)
		}
	}

	return Calculation{
		PaymentID:          in.Payment.ID,
		Month:              MonthOf(in.Payment.Date),
		DealCountAtTime:    in.Deals.Round(2),
		SixMonthEquivalent: sixMonthEquivalentFor(in.DealType).Round(2),
		TierMinDeals:       in.Tier.MinDeals,
		TierMaxDeals:       in.Tier.MaxDeals,
		CloserRate:         rates.CloserRate.Round(2),
		SetterRate:         rates.SetterRate.Round(2),
		CloserCommission:   closer,
		SetterCommission:   setter,
		CSMCommission:      csm,
		IsPaid:             false,
	}
}

func sixMonthEquivalentFor(dt DealType) decimal.Decimal {
	if dt.IsBackend {
		return decimal.Zero
	}
	if dt.ConversionRate.IsPositive() {
		return dt.ConversionRate
	}
	name := dt.Name
	if name == "" {
		name = DefaultDealTypeName
	}
	return NewNormalizer().SixMonthEquivalent(name)
}
