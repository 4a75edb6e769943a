package commission_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/commission-engine/commission"
	"github.com/salesdash/commission-engine/commission/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newSeededMemory builds a memory store with the standard deal types.
// IDs are stable: 1=6mo, 2=4mo, 3=3mo, 4=google_ads, 5=service_upgrade.
func newSeededMemory() *store.Memory {
	m := store.NewMemory()
	m.AddDealType(commission.DealType{Name: "referral_network_6_months", DisplayName: "Referral Network (6 Months)", ConversionRate: dec("1")})
	m.AddDealType(commission.DealType{Name: "referral_network_4_months", DisplayName: "Referral Network (4 Months)", ConversionRate: dec("0.5")})
	m.AddDealType(commission.DealType{Name: "referral_network_3_months", DisplayName: "Referral Network (3 Months)", ConversionRate: dec("0.5")})
	m.AddDealType(commission.DealType{Name: "google_ads", DisplayName: "Google Ads", ConversionRate: decimal.NewFromInt(1).Div(decimal.NewFromInt(3))})
	m.AddDealType(commission.DealType{Name: "service_upgrade", DisplayName: "Service Upgrade", IsBackend: true})
	return m
}

func addPayment(t *testing.T, m *store.Memory, p commission.Payment) commission.Payment {
	t.Helper()
	require.NoError(t, m.CreatePayment(context.Background(), &p))
	return p
}

func closedBy(closer string, day int, dealTypeID commission.DealTypeID) commission.Payment {
	return commission.Payment{
		Amount:         dec("1000"),
		Date:           commission.Date(2025, time.June, day),
		Type:           commission.PaymentNewDeal,
		DealTypeID:     dealTypeID,
		CloserAssigned: closer,
		Status:         commission.StatusCompleted,
	}
}

// =============================================================================
// CUMULATIVE VOLUME TESTS
// =============================================================================

func TestVolume_SumsCompletedEquivalentsForPerson(t *testing.T) {
	// GIVEN: Alice closed one 6-month deal and two 3-month deals in June
	// WHEN: Accumulating her volume as of June 30
	// THEN: 1 + 0.5 + 0.5 = 2 six-month-deal equivalents

	m := newSeededMemory()
	addPayment(t, m, closedBy("Alice", 3, 1))
	addPayment(t, m, closedBy("Alice", 10, 3))
	addPayment(t, m, closedBy("Alice", 20, 3))

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{Role: commission.RoleCloser, Name: "Alice"})

	require.NoError(t, err)
	assert.True(t, deals.Equal(dec("2")), "got %s", deals)
}

func TestVolume_PendingPaymentsDoNotCount(t *testing.T) {
	// GIVEN: Alice has one completed deal and one pending deal
	// WHEN: Accumulating her volume
	// THEN: Only the completed deal counts

	m := newSeededMemory()
	addPayment(t, m, closedBy("Alice", 3, 1))
	pending := closedBy("Alice", 5, 1)
	pending.Status = commission.StatusPending
	addPayment(t, m, pending)

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{Role: commission.RoleCloser, Name: "Alice"})

	require.NoError(t, err)
	assert.True(t, deals.Equal(dec("1")), "got %s", deals)
}

func TestVolume_WindowIsInclusiveOfAsOfDate(t *testing.T) {
	// GIVEN: A deal dated exactly on the asOf date
	// WHEN: Accumulating as of that date
	// THEN: The deal counts toward its own tier lookup

	m := newSeededMemory()
	addPayment(t, m, closedBy("Alice", 15, 1))
	addPayment(t, m, closedBy("Alice", 16, 1)) // after asOf, excluded

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 15),
		commission.Assignment{Role: commission.RoleCloser, Name: "Alice"})

	require.NoError(t, err)
	assert.True(t, deals.Equal(dec("1")), "got %s", deals)
}

func TestVolume_OtherMonthsExcluded(t *testing.T) {
	m := newSeededMemory()
	may := closedBy("Alice", 1, 1)
	may.Date = commission.Date(2025, time.May, 31)
	addPayment(t, m, may)
	addPayment(t, m, closedBy("Alice", 10, 1))

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{Role: commission.RoleCloser, Name: "Alice"})

	require.NoError(t, err)
	assert.True(t, deals.Equal(dec("1")), "May volume leaked into June: %s", deals)
}

func TestVolume_MatchesOnRoleColumn(t *testing.T) {
	// GIVEN: "Alice" appears as closer on one payment and setter on another
	// WHEN: Accumulating her CLOSER volume
	// THEN: Only the closer-credited payment counts

	m := newSeededMemory()
	addPayment(t, m, closedBy("Alice", 3, 1))
	asSetter := commission.Payment{
		Amount:         dec("1000"),
		Date:           commission.Date(2025, time.June, 5),
		Type:           commission.PaymentNewDeal,
		DealTypeID:     1,
		SetterAssigned: "Alice",
		Status:         commission.StatusCompleted,
	}
	addPayment(t, m, asSetter)

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{Role: commission.RoleCloser, Name: "Alice"})

	require.NoError(t, err)
	assert.True(t, deals.Equal(dec("1")), "got %s", deals)
}

func TestVolume_UnassignedIsZeroNotError(t *testing.T) {
	m := newSeededMemory()
	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}

	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{})

	require.NoError(t, err)
	assert.True(t, deals.IsZero())
}

func TestVolume_GoogleAdsSumsExactlyAtBandBoundaries(t *testing.T) {
	// GIVEN: Alice completed 39 Google Ads deals in June
	// WHEN: Accumulating her volume
	// THEN: Exactly 13 six-month equivalents (39/3), not the raw
	//       truncated sum of 12.9999999999999987, so band resolution
	//       lands in [13,19] and not [0,12]

	m := newSeededMemory()
	for i := 0; i < 39; i++ {
		addPayment(t, m, closedBy("Alice", i%28+1, 4))
	}

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{Role: commission.RoleCloser, Name: "Alice"})

	require.NoError(t, err)
	assert.True(t, deals.Equal(dec("13")), "got %s", deals)

	tier := commission.DefaultTierTable().Resolve(deals)
	assert.Equal(t, 13, tier.MinDeals, "39 ads deals must resolve the second band")
}

func TestVolume_BackendDealsNeverAdvanceTier(t *testing.T) {
	// GIVEN: Carol completed a service upgrade
	// WHEN: Accumulating her CSM volume
	// THEN: Zero, since backend deals have no six-month equivalence

	m := newSeededMemory()
	upgrade := commission.Payment{
		Amount:      dec("1000"),
		Date:        commission.Date(2025, time.June, 5),
		Type:        commission.PaymentNewDeal,
		DealTypeID:  5,
		AssignedCSM: "Carol",
		Status:      commission.StatusCompleted,
	}
	addPayment(t, m, upgrade)

	acc := commission.NewVolumeAccumulator(m, commission.NewNormalizer())
	june := commission.Month{Year: 2025, Month: time.June}
	deals, err := acc.CumulativeSixMonthDeals(context.Background(), june, commission.Date(2025, time.June, 30),
		commission.Assignment{Role: commission.RoleCSM, Name: "Carol"})

	require.NoError(t, err)
	assert.True(t, deals.IsZero(), "got %s", deals)
}
