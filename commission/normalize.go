/*
normalize.go - Deal-type to six-month-deal-equivalent conversion

PURPOSE:
  Deal types are heterogeneous: a semi-annual referral, a quarterly
  referral, and a paid-ads deal represent different amounts of closed
  business. The Normalizer maps each type onto a common unit (what
  fraction of a canonical "six-month deal" one unit of that type counts
  as) so per-person volumes are comparable for tier selection.

CONVERSIONS:
  google_ads                  1/3   three ads deals = one six-month deal
  referral_network_6_months   1     the canonical unit
  referral_network_3_months   0.5
  referral_network_4_months   0.5
  service_upgrade             0     backend deals never advance a tier

  Legacy names from imported rows ("New Deal", "Rebill", "Manual
  Classification Needed") count as full deals. An unrecognized type
  defaults to 1: an explicit, documented fallback treating it as a
  standard deal, not a silent error.

SIDE EFFECTS:
  None. A Normalizer is an immutable lookup; there are no failure modes.
*/
package commission

import "github.com/shopspring/decimal"

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer converts deal-type names to six-month-deal equivalents.
type Normalizer struct {
	conversions map[string]decimal.Decimal
}

// DefaultDealTypeName is assumed when a payment's deal type cannot be
// resolved: a standard full six-month deal.
const DefaultDealTypeName = "referral_network_6_months"

func builtinConversions() map[string]decimal.Decimal {
	third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	half := decimal.NewFromFloat(0.5)
	one := decimal.NewFromInt(1)
	return map[string]decimal.Decimal{
		"google_ads":                third,
		"referral_network_6_months": one,
		"referral_network_3_months": half,
		"referral_network_4_months": half,
		"service_upgrade":           decimal.Zero,

		// Legacy fallbacks for old data
		"New Deal":                     one,
		"Rebill":                       one,
		"Manual Classification Needed": one,
	}
}

// NewNormalizer builds a normalizer from the built-in table, overridden
// by any conversion rates carried on deal-type reference rows.
func NewNormalizer(dealTypes ...DealType) *Normalizer {
	conversions := builtinConversions()
	for _, dt := range dealTypes {
		if dt.Name == "" {
			continue
		}
		switch {
		case dt.IsBackend:
			// Backend deals never count toward volume.
			conversions[dt.Name] = decimal.Zero
		case dt.ConversionRate.IsPositive():
			conversions[dt.Name] = dt.ConversionRate
		}
	}
	return &Normalizer{conversions: conversions}
}

// SixMonthEquivalent returns the six-month-deal equivalence of one unit
// of the named deal type. Unknown types count as 1 (standard deal).
func (n *Normalizer) SixMonthEquivalent(dealTypeName string) decimal.Decimal {
	if rate, ok := n.conversions[dealTypeName]; ok {
		return rate
	}
	return decimal.NewFromInt(1)
}

// WeightedEquivalent scales the equivalence by a unit count. The engine
// itself always counts whole payments (amount = 1); this mirrors the
// normalizer contract's amount parameter for callers that aggregate.
func (n *Normalizer) WeightedEquivalent(dealTypeName string, amount decimal.Decimal) decimal.Decimal {
	return n.SixMonthEquivalent(dealTypeName).Mul(amount)
}
