/*
service.go - Calculator: the engine's orchestrating service

PURPOSE:
  Wires the pure pieces (normalizer, volume accumulator, tier table,
  resolver) to the persistence gateway. This is the layer the API
  consumes:

    CalculateAndSave(paymentID)  compute + upsert one payment's commission
    RecalculateMonth(month)      ordered, best-effort month reprocessing
    MonthlySummary(month)        aggregate commission report
    Tiers()                      read-only tier table export

ERROR HANDLING:
  Lookup failures (payment, deal type) and persistence failures abort
  the single calculation with a wrapped sentinel error. A rebill whose
  parent calculation is missing is NOT an error: the rebill degrades to
  its own freshly resolved tier and the condition is logged as a
  warning so it stays visible.

CONCURRENCY:
  Calculation is single-flow and synchronous. Month recalculation is
  serialized per month by an internal mutex so two concurrent triggers
  cannot interleave and break the order-sensitive volume accumulation.
*/
package commission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes and persists commission calculations.
type Calculator struct {
	store Store
	tiers TierTable
	log   *logrus.Logger

	mu         sync.Mutex
	monthLocks map[Month]*sync.Mutex
}

// NewCalculator creates a calculator over the given store. The tier
// table is an injected value; pass nil for the production defaults.
func NewCalculator(store Store, tiers TierTable, log *logrus.Logger) *Calculator {
	if tiers == nil {
		tiers = DefaultTierTable()
	}
	if log == nil {
		log = logrus.New()
	}
	return &Calculator{
		store:      store,
		tiers:      tiers,
		log:        log,
		monthLocks: make(map[Month]*sync.Mutex),
	}
}

// normalizer builds the conversion table from the live deal-type
// catalog, so admin-configured conversion rates shape volume
// accumulation the same way they shape the stored equivalents.
func (c *Calculator) normalizer(ctx context.Context) (*Normalizer, error) {
	types, err := c.store.ListDealTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deal types: %w", err)
	}
	return NewNormalizer(types...), nil
}

// Tiers returns the tier table for display. The slice is copied so
// callers cannot mutate the injected configuration.
func (c *Calculator) Tiers() TierTable {
	out := make(TierTable, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// =============================================================================
// SINGLE-PAYMENT CALCULATION
// =============================================================================

// CalculateAndSave computes the commission for one payment and upserts
// the result keyed by payment ID.
func (c *Calculator) CalculateAndSave(ctx context.Context, id PaymentID) (*Calculation, error) {
	norm, err := c.normalizer(ctx)
	if err != nil {
		return nil, err
	}
	acc := NewVolumeAccumulator(c.store, norm)
	return c.calculateAndSave(ctx, acc, id)
}

func (c *Calculator) calculateAndSave(ctx context.Context, acc *VolumeAccumulator, id PaymentID) (*Calculation, error) {
	payment, err := c.store.GetPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payment %d: %w", id, err)
	}

	dealType, err := c.store.GetDealType(ctx, payment.DealTypeID)
	if err != nil {
		return nil, fmt.Errorf("payment %d deal type %d: %w", id, payment.DealTypeID, err)
	}

	calc, err := c.resolve(ctx, acc, *payment, *dealType)
	if err != nil {
		return nil, err
	}

	if err := c.store.UpsertCalculation(ctx, &calc); err != nil {
		return nil, fmt.Errorf("persist calculation for payment %d: %w", id, err)
	}
	return &calc, nil
}

// resolve gathers the order-sensitive inputs and runs the pure resolver.
func (c *Calculator) resolve(ctx context.Context, acc *VolumeAccumulator, payment Payment, dealType DealType) (Calculation, error) {
	assignment, _ := payment.Assignment()
	month := MonthOf(payment.Date)

	deals, err := acc.CumulativeSixMonthDeals(ctx, month, payment.Date, assignment)
	if err != nil {
		return Calculation{}, fmt.Errorf("volume for payment %d: %w", payment.ID, err)
	}
	tier := c.tiers.Resolve(deals)

	var parentRates *Rates
	if payment.IsRebill() && !dealType.IsBackend && payment.Completed() {
		parentCalc, err := c.store.GetCalculationByPayment(ctx, *payment.ParentPaymentID)
		switch {
		case err == nil:
			r := parentCalc.Rates()
			parentRates = &r
		case errors.Is(err, ErrCalculationNotFound):
			// Deliberately lossy degrade: use the rebill's own tier.
			c.log.WithFields(logrus.Fields{
				"payment_id": payment.ID,
				"parent_id":  *payment.ParentPaymentID,
			}).Warn("rebill parent has no stored calculation, using own tier rates")
		default:
			return Calculation{}, fmt.Errorf("parent rates for payment %d: %w", payment.ID, err)
		}
	}

	return ResolveCommission(ResolveInput{
		Payment:     payment,
		DealType:    dealType,
		Deals:       deals,
		Tier:        tier,
		ParentRates: parentRates,
	}), nil
}

// =============================================================================
// MONTH RECALCULATION
// =============================================================================

// RecalculateMonth reprocesses every payment dated within the month in
// dependency order, persisting each result before computing the next.
// Per-payment failures are logged and non-fatal; the result carries the
// aggregate outcome. Cancellation is checked between payments.
func (c *Calculator) RecalculateMonth(ctx context.Context, month Month) (*RecalcResult, error) {
	lock := c.lockFor(month)
	lock.Lock()
	defer lock.Unlock()

	payments, err := c.store.ListPaymentsInMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", month, err)
	}
	ordered := orderForRecalculation(payments)

	norm, err := c.normalizer(ctx)
	if err != nil {
		return nil, err
	}

	result := &RecalcResult{Month: month}
	acc := NewVolumeAccumulator(c.store, norm)

	for _, payment := range ordered {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := c.calculateAndSave(ctx, acc, payment.ID); err != nil {
			result.Failed = append(result.Failed, payment.ID)
			c.log.WithFields(logrus.Fields{
				"month":      month.String(),
				"payment_id": payment.ID,
			}).WithError(err).Error("recalculation failed for payment, continuing")
			continue
		}
		result.Processed++
	}

	c.log.WithFields(logrus.Fields{
		"month":     month.String(),
		"processed": result.Processed,
		"failed":    len(result.Failed),
	}).Info("month recalculation finished")

	return result, nil
}

// lockFor returns the mutex serializing recalculation of one month.
func (c *Calculator) lockFor(month Month) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.monthLocks[month]
	if !ok {
		lock = &sync.Mutex{}
		c.monthLocks[month] = lock
	}
	return lock
}
