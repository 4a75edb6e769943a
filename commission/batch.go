/*
batch.go - Recalculation ordering and batch results

PURPOSE:
  Month recalculation is order-sensitive twice over:
  1. Volume accumulation: a later payment's tier depends on whether
     earlier same-month payments are already reflected as completed.
  2. Rebill inheritance: a rebill must be recomputed after its parent
     so the inherited rates are the parent's fresh ones.

ORDERING:
  Payments are processed by payment_date ascending with ties broken by
  insertion order (id ascending), and a dependency pass moves any
  rebill after its in-batch parent. Rebill chains are depth one (a
  parent is always a NewDeal), so the dependency walk cannot cycle.

  The original system relied on date order alone plus a fixed
  inter-payment sleep; the sleep served no correctness purpose and is
  not replicated.
*/
package commission

import "sort"

// =============================================================================
// ORDERING
// =============================================================================

// orderForRecalculation returns payments in recalculation order:
// stable date order with every rebill placed after its in-batch parent.
func orderForRecalculation(payments []Payment) []Payment {
	ordered := make([]Payment, len(payments))
	copy(ordered, payments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].ID < ordered[j].ID
	})

	index := make(map[PaymentID]int, len(ordered))
	for i, p := range ordered {
		index[p.ID] = i
	}

	out := make([]Payment, 0, len(ordered))
	visited := make([]bool, len(ordered))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		if p := ordered[i]; p.IsRebill() {
			if parentIdx, ok := index[*p.ParentPaymentID]; ok {
				visit(parentIdx)
			}
		}
		out = append(out, ordered[i])
	}
	for i := range ordered {
		visit(i)
	}
	return out
}

// =============================================================================
// RESULT
// =============================================================================

// RecalcResult reports the outcome of one month recalculation.
type RecalcResult struct {
	Month     Month
	Processed int
	Failed    []PaymentID
}

// Success reports whether every payment in the month was recomputed
// and persisted. Callers use this for reporting; failures never roll
// back already-persisted calculations.
func (r *RecalcResult) Success() bool { return len(r.Failed) == 0 }
