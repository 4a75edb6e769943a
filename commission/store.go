/*
store.go - Persistence interface for payments and commission records

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never talks SQL; it reads payments and reference data and upserts one
  Calculation per payment. Different implementations can use SQLite,
  PostgreSQL, or in-memory storage.

UPSERT CONTRACT:
  commission_calculations is one-to-one with payments, keyed by
  payment_id. Recomputation overwrites, never appends: UpsertCalculation
  updates the existing row if one exists and inserts otherwise.

ORDERING CONTRACT:
  ListPaymentsInMonth returns rows ordered by payment_date ascending,
  ties broken by insertion order (id ascending). Month recalculation
  depends on this ordering; see batch.go.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - commission/store: in-memory for testing
*/
package commission

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface the engine calculates against
// =============================================================================

// Store is the persistence gateway the engine depends on.
type Store interface {
	// GetPayment returns one payment or ErrPaymentNotFound.
	GetPayment(ctx context.Context, id PaymentID) (*Payment, error)

	// ListPaymentsInMonth returns every payment dated within the month,
	// ordered by payment_date ascending, id ascending.
	ListPaymentsInMonth(ctx context.Context, month Month) ([]Payment, error)

	// ListCompletedAssigned returns completed payments credited to the
	// assignment's person (matched on the single role-relevant column)
	// with payment_date in [from, to] inclusive.
	ListCompletedAssigned(ctx context.Context, a Assignment, from, to time.Time) ([]Payment, error)

	// GetDealType returns reference data or ErrDealTypeNotFound.
	GetDealType(ctx context.Context, id DealTypeID) (*DealType, error)

	// ListDealTypes returns all deal-type reference rows.
	ListDealTypes(ctx context.Context) ([]DealType, error)

	// GetDealTypeByName returns the deal type with the given machine
	// name or ErrDealTypeNotFound.
	GetDealTypeByName(ctx context.Context, name string) (*DealType, error)

	// GetCalculationByPayment returns the stored calculation for a
	// payment or ErrCalculationNotFound.
	GetCalculationByPayment(ctx context.Context, paymentID PaymentID) (*Calculation, error)

	// UpsertCalculation persists a calculation keyed by PaymentID,
	// overwriting any existing row. Implementations fill ID and
	// timestamps on the passed record.
	UpsertCalculation(ctx context.Context, calc *Calculation) error
}

// PaymentWriter extends Store with the mutations the API layer uses.
// The engine itself never writes payments.
type PaymentWriter interface {
	Store

	// CreatePayment inserts a payment and fills its ID and CreatedAt.
	CreatePayment(ctx context.Context, p *Payment) error

	// UpdatePayment overwrites a payment's mutable fields by ID.
	UpdatePayment(ctx context.Context, p *Payment) error

	// DeletePayment removes a payment and cascade-deletes its calculation.
	DeletePayment(ctx context.Context, id PaymentID) error

	// ListPayments returns payments with date in [from, to] inclusive,
	// newest first (display order).
	ListPayments(ctx context.Context, from, to time.Time) ([]Payment, error)
}
