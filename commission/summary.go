package commission

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONTHLY SUMMARY - Aggregate commission report for one month
// =============================================================================

// MonthlySummary aggregates a month's payments and their stored
// commissions for reporting. Commission totals only count completed
// payments; pending amounts appear in the payment totals.
type MonthlySummary struct {
	Month                 Month
	TotalPayments         int
	TotalAmount           decimal.Decimal
	CompletedPayments     int
	CompletedAmount       decimal.Decimal
	SixMonthDeals         decimal.Decimal
	TotalCloserCommission decimal.Decimal
	TotalSetterCommission decimal.Decimal
	TotalCSMCommission    decimal.Decimal
}

// TotalCommissions is the sum of the three commission buckets.
func (s *MonthlySummary) TotalCommissions() decimal.Decimal {
	return s.TotalCloserCommission.Add(s.TotalSetterCommission).Add(s.TotalCSMCommission)
}

// MonthlySummary builds the aggregate report for one month.
func (c *Calculator) MonthlySummary(ctx context.Context, month Month) (*MonthlySummary, error) {
	payments, err := c.store.ListPaymentsInMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", month, err)
	}

	types, err := c.store.ListDealTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deal types: %w", err)
	}
	typeNames := make(map[DealTypeID]string, len(types))
	for _, dt := range types {
		typeNames[dt.ID] = dt.Name
	}
	norm := NewNormalizer(types...)

	summary := &MonthlySummary{
		Month:                 month,
		TotalAmount:           decimal.Zero,
		CompletedAmount:       decimal.Zero,
		SixMonthDeals:         decimal.Zero,
		TotalCloserCommission: decimal.Zero,
		TotalSetterCommission: decimal.Zero,
		TotalCSMCommission:    decimal.Zero,
	}

	for _, p := range payments {
		summary.TotalPayments++
		summary.TotalAmount = summary.TotalAmount.Add(p.Amount)

		name, ok := typeNames[p.DealTypeID]
		if !ok {
			name = DefaultDealTypeName
		}
		summary.SixMonthDeals = summary.SixMonthDeals.Add(norm.SixMonthEquivalent(name))

		if !p.Completed() {
			continue
		}
		summary.CompletedPayments++
		summary.CompletedAmount = summary.CompletedAmount.Add(p.Amount)

		calc, err := c.store.GetCalculationByPayment(ctx, p.ID)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("calculation for payment %d: %w", p.ID, err)
		}
		summary.TotalCloserCommission = summary.TotalCloserCommission.Add(calc.CloserCommission)
		summary.TotalSetterCommission = summary.TotalSetterCommission.Add(calc.SetterCommission)
		summary.TotalCSMCommission = summary.TotalCSMCommission.Add(calc.CSMCommission)
	}

	return summary, nil
}
