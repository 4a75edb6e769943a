/*
handlers.go - HTTP API handlers for the commission engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, input validation, and delegates to the Calculator and
  the persistence gateway.

ENDPOINTS:
  Payments:
    GET    /api/payments                   List payments (optional range)
    POST   /api/payments                   Create payment (+ immediate calc)
    GET    /api/payments/{id}              Get payment
    PUT    /api/payments/{id}              Update payment (+ recalc)
    DELETE /api/payments/{id}              Delete payment (cascade calc)
    POST   /api/payments/{id}/commission   Calculate and save commission
    GET    /api/payments/{id}/commission   Read stored calculation

  Commissions:
    POST   /api/commissions/recalculate    Recalculate a month
    GET    /api/commissions/summary        Monthly aggregate report
    GET    /api/commissions/tiers          Read-only tier table

  Reference:
    GET    /api/deal-types                 Deal-type reference data

VALIDATION:
  Structural validation via go-playground/validator tags on request
  DTOs. The "exactly one assignment" form invariant and the rebill
  parent rules (parent exists, parent is a NewDeal) are enforced here;
  the engine itself assumes them, per the layering contract.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Payment/deal type/calculation not found
  - 500: Internal errors
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/salesdash/commission-engine/commission"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      commission.PaymentWriter
	Calculator *commission.Calculator

	validate *validator.Validate
	log      *logrus.Logger
}

// NewHandler creates a new handler over the store and calculator.
func NewHandler(store commission.PaymentWriter, calc *commission.Calculator, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:      store,
		Calculator: calc,
		validate:   validator.New(),
		log:        log,
	}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns payments, optionally bounded by ?from=&to= dates.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	payments, err := h.Store.ListPayments(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPayment returns a single payment with its calculation, if any.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}

	payment, err := h.Store.GetPayment(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get payment", err)
		return
	}

	dto := toPaymentDTO(*payment)
	if calc, err := h.Store.GetCalculationByPayment(r.Context(), id); err == nil {
		c := toCalculationDTO(*calc)
		dto.Calculation = &c
	}
	writeJSON(w, http.StatusOK, dto)
}

// CreatePayment creates a payment and computes its commission.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payment, err := h.paymentFromRequest(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return
	}

	if err := h.Store.CreatePayment(r.Context(), payment); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create payment", err)
		return
	}

	dto := toPaymentDTO(*payment)
	if calc, err := h.Calculator.CalculateAndSave(r.Context(), payment.ID); err != nil {
		// The payment exists; the calculation can be retried later.
		h.log.WithField("payment_id", payment.ID).WithError(err).
			Error("commission calculation failed on create")
	} else {
		c := toCalculationDTO(*calc)
		dto.Calculation = &c
	}

	writeJSON(w, http.StatusCreated, dto)
}

// UpdatePayment overwrites a payment and recomputes its commission.
// Status and assignment edits change commission outcomes, so every
// edit recalculates.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	payment, err := h.paymentFromRequest(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment", err)
		return
	}
	payment.ID = id

	if err := h.Store.UpdatePayment(r.Context(), payment); err != nil {
		writeStoreError(w, "Failed to update payment", err)
		return
	}

	dto := toPaymentDTO(*payment)
	if calc, err := h.Calculator.CalculateAndSave(r.Context(), id); err != nil {
		h.log.WithField("payment_id", id).WithError(err).
			Error("commission recalculation failed on update")
	} else {
		c := toCalculationDTO(*calc)
		dto.Calculation = &c
	}

	writeJSON(w, http.StatusOK, dto)
}

// DeletePayment removes a payment; its calculation cascades.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Store.DeletePayment(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// paymentFromRequest validates a request and builds the domain payment.
func (h *Handler) paymentFromRequest(r *http.Request, req *PaymentRequest) (*commission.Payment, error) {
	if err := h.validate.Struct(req); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount must be a decimal number: %w", err)
	}
	if !amount.IsPositive() {
		return nil, errors.New("amount must be positive")
	}

	date, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("invalid payment_date: %w", err)
	}

	assigned := 0
	for _, name := range []string{req.SetterAssigned, req.CloserAssigned, req.AssignedCSM} {
		if name != "" {
			assigned++
		}
	}
	if assigned != 1 {
		return nil, errors.New("exactly one of setter_assigned, closer_assigned, assigned_csm must be set")
	}

	status := commission.AgreementStatus(req.ServiceAgreementStatus)
	if status == "" {
		status = commission.StatusPending
	}

	payment := &commission.Payment{
		Amount:         amount,
		Date:           date,
		Type:           commission.PaymentType(req.PaymentType),
		DealTypeID:     commission.DealTypeID(req.DealTypeID),
		SetterAssigned: req.SetterAssigned,
		CloserAssigned: req.CloserAssigned,
		AssignedCSM:    req.AssignedCSM,
		Status:         status,
	}

	if payment.Type == commission.PaymentRebill {
		if req.ParentPaymentID == nil {
			return nil, errors.New("rebills require parent_payment_id")
		}
		parentID := commission.PaymentID(*req.ParentPaymentID)
		parent, err := h.Store.GetPayment(r.Context(), parentID)
		if err != nil {
			return nil, fmt.Errorf("parent payment %d: %w", parentID, err)
		}
		if parent.Type != commission.PaymentNewDeal {
			return nil, commission.ErrRebillParentType
		}
		payment.ParentPaymentID = &parentID
	} else if req.ParentPaymentID != nil {
		return nil, errors.New("parent_payment_id is only valid for rebills")
	}

	if _, err := h.Store.GetDealType(r.Context(), payment.DealTypeID); err != nil {
		return nil, fmt.Errorf("deal type %d: %w", payment.DealTypeID, err)
	}

	return payment, nil
}

// =============================================================================
// COMMISSION HANDLERS
// =============================================================================

// CalculateCommission computes and saves the commission for one payment.
func (h *Handler) CalculateCommission(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}

	calc, err := h.Calculator.CalculateAndSave(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to calculate commission", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// GetCommission returns the stored calculation for one payment.
func (h *Handler) GetCommission(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}

	calc, err := h.Store.GetCalculationByPayment(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get commission calculation", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTO(*calc))
}

// RecalculateMonth reprocesses every payment in a month.
func (h *Handler) RecalculateMonth(w http.ResponseWriter, r *http.Request) {
	var req RecalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}

	month, err := commission.ParseMonth(req.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	result, err := h.Calculator.RecalculateMonth(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to recalculate month", err)
		return
	}

	resp := RecalculateResponse{
		Month:     month.String(),
		Success:   result.Success(),
		Processed: result.Processed,
	}
	for _, id := range result.Failed {
		resp.FailedPaymentIDs = append(resp.FailedPaymentIDs, int64(id))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMonthlySummary returns the aggregate commission report.
func (h *Handler) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	month, err := commission.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use ?month=YYYY-MM)", err)
		return
	}

	summary, err := h.Calculator.MonthlySummary(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

// ListTiers returns the tier table for display.
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toTierTableDTO(h.Calculator.Tiers()))
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

// ListDealTypes returns all deal-type reference rows.
func (h *Handler) ListDealTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListDealTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deal types", err)
		return
	}
	dtos := make([]DealTypeDTO, len(types))
	for i, dt := range types {
		dtos[i] = toDealTypeDTO(dt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetDealTypeByName resolves one deal type by its stable machine name.
func (h *Handler) GetDealTypeByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	dt, err := h.Store.GetDealTypeByName(r.Context(), name)
	if err != nil {
		writeStoreError(w, "Failed to get deal type", err)
		return
	}
	writeJSON(w, http.StatusOK, toDealTypeDTO(*dt))
}

// =============================================================================
// HELPERS
// =============================================================================

func paymentIDParam(w http.ResponseWriter, r *http.Request) (commission.PaymentID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid payment id", err)
		return 0, false
	}
	return commission.PaymentID(id), true
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date: %w", err)
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date: %w", err)
		}
		to = parsed
	}
	return from, to, nil
}

func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case commission.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case commission.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
