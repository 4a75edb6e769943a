// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/salesdash/commission-engine/commission"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	payments  map[commission.PaymentID]commission.Payment
	dealTypes map[commission.DealTypeID]commission.DealType
	calcs     map[commission.PaymentID]commission.Calculation

	nextPaymentID  commission.PaymentID
	nextDealTypeID commission.DealTypeID
	nextCalcID     commission.CalculationID
}

// Compile-time interface checks.
var (
	_ commission.Store         = (*Memory)(nil)
	_ commission.PaymentWriter = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		payments:  make(map[commission.PaymentID]commission.Payment),
		dealTypes: make(map[commission.DealTypeID]commission.DealType),
		calcs:     make(map[commission.PaymentID]commission.Calculation),
	}
}

// AddDealType registers reference data, filling the ID when unset.
func (m *Memory) AddDealType(dt commission.DealType) commission.DealType {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dt.ID == 0 {
		m.nextDealTypeID++
		dt.ID = m.nextDealTypeID
	} else if dt.ID > m.nextDealTypeID {
		m.nextDealTypeID = dt.ID
	}
	m.dealTypes[dt.ID] = dt
	return dt
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

func (m *Memory) GetPayment(_ context.Context, id commission.PaymentID) (*commission.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, commission.ErrPaymentNotFound
	}
	return &p, nil
}

func (m *Memory) ListPaymentsInMonth(_ context.Context, month commission.Month) ([]commission.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []commission.Payment
	for _, p := range m.payments {
		if month.Contains(p.Date) {
			out = append(out, p)
		}
	}
	sortByDateAsc(out)
	return out, nil
}

func (m *Memory) ListCompletedAssigned(_ context.Context, a commission.Assignment, from, to time.Time) ([]commission.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []commission.Payment
	for _, p := range m.payments {
		if p.Status != commission.StatusCompleted {
			continue
		}
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		if assignedName(p, a.Role) != a.Name {
			continue
		}
		out = append(out, p)
	}
	sortByDateAsc(out)
	return out, nil
}

func assignedName(p commission.Payment, role commission.Role) string {
	switch role {
	case commission.RoleSetter:
		return p.SetterAssigned
	case commission.RoleCloser:
		return p.CloserAssigned
	case commission.RoleCSM:
		return p.AssignedCSM
	}
	return ""
}

func (m *Memory) GetDealType(_ context.Context, id commission.DealTypeID) (*commission.DealType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dt, ok := m.dealTypes[id]
	if !ok {
		return nil, commission.ErrDealTypeNotFound
	}
	return &dt, nil
}

func (m *Memory) GetDealTypeByName(_ context.Context, name string) (*commission.DealType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, dt := range m.dealTypes {
		if dt.Name == name {
			dt := dt
			return &dt, nil
		}
	}
	return nil, commission.ErrDealTypeNotFound
}

func (m *Memory) ListDealTypes(_ context.Context) ([]commission.DealType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]commission.DealType, 0, len(m.dealTypes))
	for _, dt := range m.dealTypes {
		out = append(out, dt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetCalculationByPayment(_ context.Context, paymentID commission.PaymentID) (*commission.Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calc, ok := m.calcs[paymentID]
	if !ok {
		return nil, commission.ErrCalculationNotFound
	}
	return &calc, nil
}

func (m *Memory) UpsertCalculation(_ context.Context, calc *commission.Calculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := m.calcs[calc.PaymentID]; ok {
		calc.ID = existing.ID
		calc.CreatedAt = existing.CreatedAt
	} else {
		m.nextCalcID++
		calc.ID = m.nextCalcID
		calc.CreatedAt = now
	}
	calc.UpdatedAt = now
	m.calcs[calc.PaymentID] = *calc
	return nil
}

// =============================================================================
// PAYMENT WRITER INTERFACE
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p *commission.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPaymentID++
	p.ID = m.nextPaymentID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.payments[p.ID] = *p
	return nil
}

func (m *Memory) UpdatePayment(_ context.Context, p *commission.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.payments[p.ID]
	if !ok {
		return commission.ErrPaymentNotFound
	}
	p.CreatedAt = existing.CreatedAt
	m.payments[p.ID] = *p
	return nil
}

func (m *Memory) DeletePayment(_ context.Context, id commission.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[id]; !ok {
		return commission.ErrPaymentNotFound
	}
	delete(m.payments, id)
	delete(m.calcs, id) // cascade
	return nil
}

func (m *Memory) ListPayments(_ context.Context, from, to time.Time) ([]commission.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []commission.Payment
	for _, p := range m.payments {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	// Display order: newest first.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func sortByDateAsc(payments []commission.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].Date.Equal(payments[j].Date) {
			return payments[i].Date.Before(payments[j].Date)
		}
		return payments[i].ID < payments[j].ID
	})
}
