package commission_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/salesdash/commission-engine/commission"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func firstTier() commission.Tier {
	return commission.DefaultTierTable()[0] // [0,12] 8% / 3%
}

func frontendDeal() commission.DealType {
	return commission.DealType{ID: 1, Name: "referral_network_6_months", ConversionRate: dec("1")}
}

func backendDeal() commission.DealType {
	return commission.DealType{ID: 5, Name: "service_upgrade", IsBackend: true}
}

func completedPayment(amount string) commission.Payment {
	return commission.Payment{
		ID:         101,
		Amount:     dec(amount),
		Date:       commission.Date(2025, time.June, 15),
		Type:       commission.PaymentNewDeal,
		DealTypeID: 1,
		Status:     commission.StatusCompleted,
	}
}

// =============================================================================
// FRONTEND SPLIT TESTS
// =============================================================================

func TestResolveCommission_CompletedCloserDeal_PaysTierCloserRate(t *testing.T) {
	// GIVEN: A completed $5000 deal closed by Alice at the base tier (8%)
	// WHEN: Resolving the commission
	// THEN: Closer earns $400, setter and CSM earn nothing

	p := completedPayment("5000")
	p.CloserAssigned = "Alice"

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("3"), Tier: firstTier(),
	})

	assert.True(t, calc.CloserCommission.Equal(dec("400")), "got %s", calc.CloserCommission)
	assert.True(t, calc.SetterCommission.IsZero())
	assert.True(t, calc.CSMCommission.IsZero())
	assert.True(t, calc.TotalCommission().Equal(dec("400")))
}

func TestResolveCommission_CompletedSetterDeal_PaysTierSetterRate(t *testing.T) {
	p := completedPayment("5000")
	p.SetterAssigned = "Bob"

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("3"), Tier: firstTier(),
	})

	assert.True(t, calc.SetterCommission.Equal(dec("150")), "got %s", calc.SetterCommission)
	assert.True(t, calc.CloserCommission.IsZero())
}

func TestResolveCommission_CSMOnFrontendDeal_EarnsSetterRate(t *testing.T) {
	// GIVEN: A completed $5000 frontend deal credited to a CSM
	// WHEN: Resolving at the base tier (setter rate 3%)
	// THEN: The CSM earns $150, the tier's setter rate, not a flat rate

	p := completedPayment("5000")
	p.AssignedCSM = "Carol"

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("3"), Tier: firstTier(),
	})

	assert.True(t, calc.CSMCommission.Equal(dec("150")), "got %s", calc.CSMCommission)
	assert.True(t, calc.CloserCommission.IsZero())
	assert.True(t, calc.SetterCommission.IsZero())
}

func TestResolveCommission_PendingFrontendDeal_PaysNothing(t *testing.T) {
	// GIVEN: A $5000 closer deal whose service agreement is still pending
	// WHEN: Resolving
	// THEN: All commissions are zero, but the tier snapshot is still recorded

	p := completedPayment("5000")
	p.CloserAssigned = "Alice"
	p.Status = commission.StatusPending

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("3"), Tier: firstTier(),
	})

	assert.True(t, calc.TotalCommission().IsZero())
	assert.Equal(t, 0, calc.TierMinDeals)
	assert.True(t, calc.CloserRate.Equal(dec("8")))
}

func TestResolveCommission_UnassignedPayment_PaysNothing(t *testing.T) {
	p := completedPayment("5000")

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("0"), Tier: firstTier(),
	})

	assert.True(t, calc.TotalCommission().IsZero())
}

// =============================================================================
// BACKEND DEAL TESTS
// =============================================================================

func TestResolveCommission_BackendDeal_CSMFlatRate_IgnoresStatus(t *testing.T) {
	// GIVEN: A $2000 service upgrade assigned to a CSM, agreement PENDING
	// WHEN: Resolving
	// THEN: The CSM earns the flat 3% ($60); backend pay ignores status

	p := completedPayment("2000")
	p.AssignedCSM = "Carol"
	p.Status = commission.StatusPending
	p.DealTypeID = 5

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: backendDeal(), Deals: dec("0"), Tier: firstTier(),
	})

	assert.True(t, calc.CSMCommission.Equal(dec("60")), "got %s", calc.CSMCommission)
	assert.True(t, calc.CloserCommission.IsZero())
	assert.True(t, calc.SetterCommission.IsZero())
}

func TestResolveCommission_BackendDeal_NonCSMAssignment_PaysNothing(t *testing.T) {
	// GIVEN: A completed service upgrade credited to a closer
	// WHEN: Resolving
	// THEN: No one earns; backend deals only pay through the CSM seat

	p := completedPayment("2000")
	p.CloserAssigned = "Alice"
	p.DealTypeID = 5

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: backendDeal(), Deals: dec("10"), Tier: firstTier(),
	})

	assert.True(t, calc.TotalCommission().IsZero())
}

func TestResolveCommission_BackendDeal_ZeroSixMonthEquivalent(t *testing.T) {
	p := completedPayment("2000")
	p.AssignedCSM = "Carol"
	p.DealTypeID = 5

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: backendDeal(), Deals: dec("0"), Tier: firstTier(),
	})

	assert.True(t, calc.SixMonthEquivalent.IsZero())
}

// =============================================================================
// REBILL INHERITANCE TESTS
// =============================================================================

func TestResolveCommission_Rebill_InheritsParentRates(t *testing.T) {
	// GIVEN: A rebill whose closer now sits in a higher tier (12%), but
	//        whose parent deal was calculated at 8%
	// WHEN: Resolving with the parent's stored rates
	// THEN: The rebill pays at the inherited 8%, and the stored rates
	//       reflect what was actually applied

	parentID := commission.PaymentID(42)
	p := completedPayment("1000")
	p.Type = commission.PaymentRebill
	p.ParentPaymentID = &parentID
	p.CloserAssigned = "Alice"

	topTier := commission.DefaultTierTable()[4] // 12% / 7%
	parentRates := commission.Rates{CloserRate: dec("8"), SetterRate: dec("3")}

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("40"), Tier: topTier,
		ParentRates: &parentRates,
	})

	assert.True(t, calc.CloserCommission.Equal(dec("80")), "got %s", calc.CloserCommission)
	assert.True(t, calc.CloserRate.Equal(dec("8")))
	assert.True(t, calc.SetterRate.Equal(dec("3")))
	// Tier bounds still record the band the person actually resolved to.
	assert.Equal(t, 31, calc.TierMinDeals)
}

func TestResolveCommission_Rebill_MissingParentRates_UsesOwnTier(t *testing.T) {
	// GIVEN: A rebill with no parent calculation available
	// WHEN: Resolving without ParentRates
	// THEN: The rebill pays at its own freshly resolved tier

	parentID := commission.PaymentID(42)
	p := completedPayment("1000")
	p.Type = commission.PaymentRebill
	p.ParentPaymentID = &parentID
	p.CloserAssigned = "Alice"

	topTier := commission.DefaultTierTable()[4]

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("40"), Tier: topTier,
	})

	assert.True(t, calc.CloserCommission.Equal(dec("120")), "got %s", calc.CloserCommission)
	assert.True(t, calc.CloserRate.Equal(dec("12")))
}

// =============================================================================
// ROUNDING AND AUDIT TRAIL
// =============================================================================

func TestResolveCommission_RoundsToTwoDecimals(t *testing.T) {
	// 999.99 * 8% = 79.9992 -> 80.00
	p := completedPayment("999.99")
	p.CloserAssigned = "Alice"

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: frontendDeal(), Deals: dec("0"), Tier: firstTier(),
	})

	assert.True(t, calc.CloserCommission.Equal(dec("80")), "got %s", calc.CloserCommission)
	assert.True(t, calc.CloserCommission.Exponent() >= -2)
}

func TestResolveCommission_RecordsAuditSnapshot(t *testing.T) {
	// GIVEN: A google_ads payment with fractional cumulative volume
	// WHEN: Resolving
	// THEN: The calculation stores the rounded deal count, equivalence,
	//       month, and tier bounds it used

	p := completedPayment("300")
	p.CloserAssigned = "Alice"
	ads := commission.DealType{ID: 4, Name: "google_ads", ConversionRate: decimal.NewFromInt(1).Div(decimal.NewFromInt(3))}

	calc := commission.ResolveCommission(commission.ResolveInput{
		Payment: p, DealType: ads, Deals: dec("4.6666"), Tier: firstTier(),
	})

	assert.Equal(t, p.ID, calc.PaymentID)
	assert.Equal(t, commission.Month{Year: 2025, Month: time.June}, calc.Month)
	assert.True(t, calc.DealCountAtTime.Equal(dec("4.67")), "got %s", calc.DealCountAtTime)
	assert.True(t, calc.SixMonthEquivalent.Equal(dec("0.33")), "got %s", calc.SixMonthEquivalent)
	assert.Equal(t, 0, calc.TierMinDeals)
	assert.NotNil(t, calc.TierMaxDeals)
	assert.Equal(t, 12, *calc.TierMaxDeals)
	assert.False(t, calc.IsPaid)
}
