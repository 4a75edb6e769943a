package commission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash/commission-engine/commission"
)

func TestParseMonth(t *testing.T) {
	m, err := commission.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, time.March, m.Month)
	assert.Equal(t, "2025-03", m.String())
}

func TestParseMonth_Invalid(t *testing.T) {
	for _, input := range []string{"", "2025", "2025-13", "03-2025", "2025-03-01"} {
		_, err := commission.ParseMonth(input)
		assert.ErrorIs(t, err, commission.ErrInvalidMonth, "input %q", input)
	}
}

func TestMonth_End_ShortMonths(t *testing.T) {
	// GIVEN: Months of different lengths, including a leap February
	// WHEN: Computing the month end
	// THEN: The end is the actual last day, not a fixed day 31

	tests := []struct {
		month   string
		wantDay int
	}{
		{"2025-01", 31},
		{"2025-02", 28},
		{"2024-02", 29},
		{"2025-04", 30},
	}
	for _, tt := range tests {
		m, err := commission.ParseMonth(tt.month)
		require.NoError(t, err)
		assert.Equal(t, tt.wantDay, m.End().Day(), "month %s", tt.month)
	}
}

func TestMonth_Contains(t *testing.T) {
	m := commission.Month{Year: 2025, Month: time.June}
	assert.True(t, m.Contains(commission.Date(2025, time.June, 1)))
	assert.True(t, m.Contains(commission.Date(2025, time.June, 30)))
	assert.False(t, m.Contains(commission.Date(2025, time.July, 1)))
	assert.False(t, m.Contains(commission.Date(2024, time.June, 15)))
}

func TestMonthOf(t *testing.T) {
	m := commission.MonthOf(commission.Date(2025, time.August, 17))
	assert.Equal(t, commission.Month{Year: 2025, Month: time.August}, m)
}
