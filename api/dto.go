/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary and ratio figures are JSON strings ("5000", "8",
  "400") produced by decimal.Decimal.String(), never floats. Clients
  parse them with their own decimal types.

VALIDATION:
  Request structs carry go-playground/validator tags. Cross-field rules
  (exactly one assignment, rebill parent constraints) live in
  handlers.go because they need store lookups.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/salesdash/commission-engine/commission"
	"github.com/salesdash/commission-engine/factory"
)

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// PaymentDTO represents a payment in API responses.
type PaymentDTO struct {
	ID                     int64           `json:"id"`
	Amount                 string          `json:"amount"`
	PaymentDate            string          `json:"payment_date"`
	PaymentType            string          `json:"payment_type"`
	DealTypeID             int64           `json:"deal_type_id"`
	SetterAssigned         string          `json:"setter_assigned,omitempty"`
	CloserAssigned         string          `json:"closer_assigned,omitempty"`
	AssignedCSM            string          `json:"assigned_csm,omitempty"`
	ServiceAgreementStatus string          `json:"service_agreement_status"`
	ParentPaymentID        *int64          `json:"parent_payment_id,omitempty"`
	CreatedAt              string          `json:"created_at,omitempty"`
	Calculation            *CalculationDTO `json:"calculation,omitempty"`
}

// PaymentRequest is the request body to create or update a payment.
// Exactly one of the three assignment fields must be set.
type PaymentRequest struct {
	Amount                 string `json:"amount" validate:"required"`
	PaymentDate            string `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PaymentType            string `json:"payment_type" validate:"required,oneof=new_deal rebill"`
	DealTypeID             int64  `json:"deal_type_id" validate:"required,gt=0"`
	SetterAssigned         string `json:"setter_assigned,omitempty"`
	CloserAssigned         string `json:"closer_assigned,omitempty"`
	AssignedCSM            string `json:"assigned_csm,omitempty"`
	ServiceAgreementStatus string `json:"service_agreement_status" validate:"omitempty,oneof=pending completed"`
	ParentPaymentID        *int64 `json:"parent_payment_id,omitempty"`
}

// =============================================================================
// COMMISSION TYPES
// =============================================================================

// CalculationDTO represents a stored commission calculation.
type CalculationDTO struct {
	ID                 int64  `json:"id"`
	PaymentID          int64  `json:"payment_id"`
	Month              string `json:"month"`
	DealCountAtTime    string `json:"deal_count_at_time"`
	SixMonthEquivalent string `json:"six_month_equivalent"`
	TierMinDeals       int    `json:"tier_min_deals"`
	TierMaxDeals       *int   `json:"tier_max_deals,omitempty"`
	CloserRate         string `json:"closer_rate"`
	SetterRate         string `json:"setter_rate"`
	CloserCommission   string `json:"closer_commission"`
	SetterCommission   string `json:"setter_commission"`
	CSMCommission      string `json:"csm_commission"`
	IsPaid             bool   `json:"is_paid"`
	CreatedAt          string `json:"created_at,omitempty"`
	UpdatedAt          string `json:"updated_at,omitempty"`
}

// RecalculateRequest triggers a month recalculation.
type RecalculateRequest struct {
	Month string `json:"month" validate:"required"`
}

// RecalculateResponse reports the aggregate outcome of a month run.
type RecalculateResponse struct {
	Month            string  `json:"month"`
	Success          bool    `json:"success"`
	Processed        int     `json:"processed"`
	FailedPaymentIDs []int64 `json:"failed_payment_ids,omitempty"`
}

// MonthlySummaryDTO is the aggregate commission report for one month.
type MonthlySummaryDTO struct {
	Month                 string `json:"month"`
	TotalPayments         int    `json:"total_payments"`
	TotalAmount           string `json:"total_amount"`
	CompletedPayments     int    `json:"completed_payments"`
	CompletedAmount       string `json:"completed_amount"`
	SixMonthDeals         string `json:"six_month_deals"`
	TotalCloserCommission string `json:"total_closer_commission"`
	TotalSetterCommission string `json:"total_setter_commission"`
	TotalCSMCommission    string `json:"total_csm_commission"`
	TotalCommissions      string `json:"total_commissions"`
}

// =============================================================================
// REFERENCE DATA TYPES
// =============================================================================

// DealTypeDTO represents deal-type reference data.
type DealTypeDTO struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	ConversionRate string `json:"conversion_rate"`
	IsBackend      bool   `json:"is_backend"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toPaymentDTO(p commission.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:                     int64(p.ID),
		Amount:                 p.Amount.String(),
		PaymentDate:            p.Date.Format("2006-01-02"),
		PaymentType:            string(p.Type),
		DealTypeID:             int64(p.DealTypeID),
		SetterAssigned:         p.SetterAssigned,
		CloserAssigned:         p.CloserAssigned,
		AssignedCSM:            p.AssignedCSM,
		ServiceAgreementStatus: string(p.Status),
	}
	if p.ParentPaymentID != nil {
		id := int64(*p.ParentPaymentID)
		dto.ParentPaymentID = &id
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toCalculationDTO(c commission.Calculation) CalculationDTO {
	dto := CalculationDTO{
		ID:                 int64(c.ID),
		PaymentID:          int64(c.PaymentID),
		Month:              c.Month.String(),
		DealCountAtTime:    c.DealCountAtTime.String(),
		SixMonthEquivalent: c.SixMonthEquivalent.String(),
		TierMinDeals:       c.TierMinDeals,
		TierMaxDeals:       c.TierMaxDeals,
		CloserRate:         c.CloserRate.String(),
		SetterRate:         c.SetterRate.String(),
		CloserCommission:   c.CloserCommission.String(),
		SetterCommission:   c.SetterCommission.String(),
		CSMCommission:      c.CSMCommission.String(),
		IsPaid:             c.IsPaid,
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	if !c.UpdatedAt.IsZero() {
		dto.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toDealTypeDTO(dt commission.DealType) DealTypeDTO {
	return DealTypeDTO{
		ID:             int64(dt.ID),
		Name:           dt.Name,
		DisplayName:    dt.DisplayName,
		ConversionRate: dt.ConversionRate.String(),
		IsBackend:      dt.IsBackend,
	}
}

func toSummaryDTO(s *commission.MonthlySummary) MonthlySummaryDTO {
	return MonthlySummaryDTO{
		Month:                 s.Month.String(),
		TotalPayments:         s.TotalPayments,
		TotalAmount:           s.TotalAmount.String(),
		CompletedPayments:     s.CompletedPayments,
		CompletedAmount:       s.CompletedAmount.String(),
		SixMonthDeals:         s.SixMonthDeals.Round(2).String(),
		TotalCloserCommission: s.TotalCloserCommission.String(),
		TotalSetterCommission: s.TotalSetterCommission.String(),
		TotalCSMCommission:    s.TotalCSMCommission.String(),
		TotalCommissions:      s.TotalCommissions().String(),
	}
}

func toTierTableDTO(table commission.TierTable) factory.TierTableJSON {
	return factory.TierTableToJSON(table)
}
