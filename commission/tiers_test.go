package commission_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/commission-engine/commission"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func intPtr(n int) *int { return &n }

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// TABLE VALIDATION TESTS
// =============================================================================

func TestTierTable_DefaultTable_IsValid(t *testing.T) {
	// GIVEN: The production tier schedule
	// WHEN: Validating it
	// THEN: No error

	table := commission.DefaultTierTable()
	assert.NoError(t, table.Validate())
	assert.Len(t, table, 5)
}

func TestTierTable_Validate_RejectsEmpty(t *testing.T) {
	_, err := commission.NewTierTable(nil)
	assert.Error(t, err)
}

func TestTierTable_Validate_RejectsFirstBandNotStartingAtZero(t *testing.T) {
	// GIVEN: A table whose first band starts at 1
	// WHEN: Validating
	// THEN: Rejected with a TierTableError

	_, err := commission.NewTierTable([]commission.Tier{
		{MinDeals: 1, MaxDeals: nil, CloserRate: dec("8"), SetterRate: dec("3")},
	})
	require.Error(t, err)
	var tierErr *commission.TierTableError
	assert.ErrorAs(t, err, &tierErr)
}

func TestTierTable_Validate_RejectsGapBetweenBands(t *testing.T) {
	// GIVEN: Bands [0,12] then [14, inf), leaving 13 uncovered
	// WHEN: Validating
	// THEN: Rejected

	_, err := commission.NewTierTable([]commission.Tier{
		{MinDeals: 0, MaxDeals: intPtr(12), CloserRate: dec("8"), SetterRate: dec("3")},
		{MinDeals: 14, MaxDeals: nil, CloserRate: dec("9"), SetterRate: dec("4")},
	})
	assert.Error(t, err)
}

func TestTierTable_Validate_RejectsOverlappingBands(t *testing.T) {
	_, err := commission.NewTierTable([]commission.Tier{
		{MinDeals: 0, MaxDeals: intPtr(12), CloserRate: dec("8"), SetterRate: dec("3")},
		{MinDeals: 12, MaxDeals: nil, CloserRate: dec("9"), SetterRate: dec("4")},
	})
	assert.Error(t, err)
}

func TestTierTable_Validate_RejectsBoundedLastBand(t *testing.T) {
	// GIVEN: A table that stops at 30 instead of covering [0, inf)
	// WHEN: Validating
	// THEN: Rejected

	_, err := commission.NewTierTable([]commission.Tier{
		{MinDeals: 0, MaxDeals: intPtr(30), CloserRate: dec("8"), SetterRate: dec("3")},
	})
	assert.Error(t, err)
}

func TestTierTable_Validate_RejectsDecreasingRates(t *testing.T) {
	// GIVEN: A second band paying LESS than the first
	// WHEN: Validating
	// THEN: Rejected, since rates must not decrease with volume

	_, err := commission.NewTierTable([]commission.Tier{
		{MinDeals: 0, MaxDeals: intPtr(12), CloserRate: dec("8"), SetterRate: dec("3")},
		{MinDeals: 13, MaxDeals: nil, CloserRate: dec("7"), SetterRate: dec("4")},
	})
	assert.Error(t, err)
}

func TestMustTierTable_PanicsOnInvalidTable(t *testing.T) {
	assert.Panics(t, func() {
		commission.MustTierTable([]commission.Tier{
			{MinDeals: 5, MaxDeals: nil, CloserRate: dec("8"), SetterRate: dec("3")},
		})
	})
}

// =============================================================================
// RESOLUTION TESTS
// =============================================================================

func TestTierTable_Resolve_Boundaries(t *testing.T) {
	table := commission.DefaultTierTable()

	tests := []struct {
		name       string
		deals      string
		wantCloser string
		wantSetter string
	}{
		{"zero deals lands in first band", "0", "8", "3"},
		{"top of first band", "12", "8", "3"},
		{"fractional count stays in extended first band", "12.5", "8", "3"},
		{"first deal of second band", "13", "9", "4"},
		{"third band", "20", "10", "5"},
		{"fourth band", "27.5", "11", "6"},
		{"first deal of top band", "31", "12", "7"},
		{"deep in unbounded top band", "250", "12", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := table.Resolve(dec(tt.deals))
			assert.True(t, tier.CloserRate.Equal(dec(tt.wantCloser)),
				"closer rate: want %s, got %s", tt.wantCloser, tier.CloserRate)
			assert.True(t, tier.SetterRate.Equal(dec(tt.wantSetter)),
				"setter rate: want %s, got %s", tt.wantSetter, tier.SetterRate)
		})
	}
}

func TestTierTable_Resolve_NegativeClampsToFirstBand(t *testing.T) {
	table := commission.DefaultTierTable()
	tier := table.Resolve(dec("-1"))
	assert.Equal(t, 0, tier.MinDeals)
}

func TestTier_Unbounded(t *testing.T) {
	table := commission.DefaultTierTable()
	assert.False(t, table[0].Unbounded())
	assert.True(t, table[len(table)-1].Unbounded())
}
