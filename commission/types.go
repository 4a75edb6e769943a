/*
Package commission provides the commission calculation engine.

PURPOSE:
  This package contains the domain types and algorithms for computing
  sales commissions from payment records: tier resolution from cumulative
  deal volume, six-month-deal-equivalence normalization across deal
  types, backend/frontend commission branching, rebill rate inheritance
  from a parent deal, and ordered month-level recalculation.

KEY CONCEPTS IN THIS FILE (types.go):
  - Payment: An immutable business event (amount, date, type, assignment)
  - DealType: Reference data mapping a deal to its six-month equivalence
  - Assignment: A tagged {role, name} variant; exactly one team member
    earns on a payment, enforced by the type instead of three nullable
    columns
  - Calculation: The derived commission record, one-to-one with a Payment

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for money, rates, and deal counts
  2. Purity: Resolution is a pure function; persistence lives behind Store
  3. Type Safety: Typed IDs and enums prevent mixing payment/deal-type IDs
  4. Auditability: A Calculation stores the tier bounds and rates actually
     used, including inherited rebill rates

SEE ALSO:
  - tiers.go: Tier table and volume-band resolution
  - normalize.go: Deal-type to six-month-equivalent conversion
  - resolver.go: The commission split algorithm
  - batch.go: Ordered month recalculation
  - store.go: Persistence interface
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PaymentID int64
type DealTypeID int64
type CalculationID int64

// =============================================================================
// ROLES AND ASSIGNMENT
// =============================================================================

// Role identifies which seat a team member occupies on a deal.
type Role string

const (
	RoleSetter Role = "setter"
	RoleCloser Role = "closer"
	RoleCSM    Role = "csm"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	return r == RoleSetter || r == RoleCloser || r == RoleCSM
}

// Assignment is the single team member credited on a payment.
// The engine works exclusively with this tagged variant; the three
// nullable columns on Payment exist only to mirror the stored record.
type Assignment struct {
	Role Role
	Name string
}

// =============================================================================
// PAYMENT - Immutable business event
// =============================================================================

type PaymentType string

const (
	PaymentNewDeal PaymentType = "new_deal"
	PaymentRebill  PaymentType = "rebill"
)

type AgreementStatus string

const (
	StatusPending   AgreementStatus = "pending"
	StatusCompleted AgreementStatus = "completed"
)

// Payment is one payment record. Rebills reference their originating
// NewDeal via ParentPaymentID (chain depth is always exactly one).
type Payment struct {
	ID              PaymentID
	Amount          decimal.Decimal
	Date            time.Time // day granularity, UTC
	Type            PaymentType
	DealTypeID      DealTypeID
	SetterAssigned  string
	CloserAssigned  string
	AssignedCSM     string
	Status          AgreementStatus
	ParentPaymentID *PaymentID
	CreatedAt       time.Time
}

// Legacy placeholder values that mean "no one assigned" in imported rows.
const (
	unassignedSetter = "Unassigned"
	unassignedCSM    = "N/A"
)

// Assignment derives the tagged assignment variant from the stored
// columns. Setter wins over closer, closer over CSM; with the
// exactly-one invariant enforced upstream the precedence never fires,
// but imported legacy rows can carry placeholders in several columns.
func (p Payment) Assignment() (Assignment, bool) {
	if name := p.SetterAssigned; name != "" && name != unassignedSetter {
		return Assignment{Role: RoleSetter, Name: name}, true
	}
	if name := p.CloserAssigned; name != "" && name != unassignedSetter {
		return Assignment{Role: RoleCloser, Name: name}, true
	}
	if name := p.AssignedCSM; name != "" && name != unassignedCSM {
		return Assignment{Role: RoleCSM, Name: name}, true
	}
	return Assignment{}, false
}

// Completed reports whether the service agreement is signed.
func (p Payment) Completed() bool { return p.Status == StatusCompleted }

// IsRebill reports whether this payment continues an existing deal.
func (p Payment) IsRebill() bool {
	return p.Type == PaymentRebill && p.ParentPaymentID != nil
}

// =============================================================================
// DEAL TYPE - Reference data
// =============================================================================

// DealType describes how one category of deal counts toward volume.
// IsBackend marks service-upgrade deals compensated only via CSM
// commission, outside the setter/closer tier system.
type DealType struct {
	ID             DealTypeID
	Name           string
	DisplayName    string
	ConversionRate decimal.Decimal // units of this type per one six-month deal equivalent
	IsBackend      bool
	CreatedAt      time.Time
}

// =============================================================================
// CALCULATION - Derived commission record (one-to-one with Payment)
// =============================================================================

// Calculation stores the commission split for a payment along with the
// inputs in effect at calculation time: the person's deal count, this
// payment's six-month equivalence, and the tier bounds and rates that
// were actually applied (post rebill inheritance, when it applies).
type Calculation struct {
	ID                 CalculationID
	PaymentID          PaymentID
	Month              Month
	DealCountAtTime    decimal.Decimal
	SixMonthEquivalent decimal.Decimal
	TierMinDeals       int
	TierMaxDeals       *int // nil = unbounded top tier
	CloserRate         decimal.Decimal
	SetterRate         decimal.Decimal
	CloserCommission   decimal.Decimal
	SetterCommission   decimal.Decimal
	CSMCommission      decimal.Decimal
	IsPaid             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Rates is the pair of percentage rates a calculation applied.
// Rebills inherit these from their parent's stored Calculation.
type Rates struct {
	CloserRate decimal.Decimal
	SetterRate decimal.Decimal
}

// Rates returns the rates this calculation applied.
func (c Calculation) Rates() Rates {
	return Rates{CloserRate: c.CloserRate, SetterRate: c.SetterRate}
}

// TotalCommission is the sum of the three commission buckets.
func (c Calculation) TotalCommission() decimal.Decimal {
	return c.CloserCommission.Add(c.SetterCommission).Add(c.CSMCommission)
}
