package core

import "tirecore/pkg/domain"

// CancellationNote annotates every audit trail entry.
const CancellationNote = "cancelled - excluded from result aggregation"

// ProjectAuditTrail lists the currently cancelled orders in sequence order.
// It is recomputed from state on every call and stores nothing.
func ProjectAuditTrail(view TransactionView) []domain.AuditTrailEntry {
	entries := make([]domain.AuditTrailEntry, 0)
	for _, order := range view.ListOrders() {
		if order.Status != domain.OrderStatusCancelled {
			continue
		}
		label := "-"
		if combo, ok := view.FindCombination(order.CombinationID); ok {
			label = combo.Label
		}
		entries = append(entries, domain.AuditTrailEntry{
			OrderID:          order.ID,
			CombinationLabel: label,
			Note:             CancellationNote,
			Timestamp:        order.StatusChangedAt,
		})
	}
	return entries
}

// AggregateProgress counts orders per status. Total is never below one so
// an empty ledger reports a zero completion rate.
func AggregateProgress(orders []domain.TestOrder) domain.Progress {
	var p domain.Progress
	for _, o := range orders {
		switch o.Status {
		case domain.OrderStatusCompleted:
			p.Completed++
		case domain.OrderStatusInProgress:
			p.InProgress++
		case domain.OrderStatusPlanned:
			p.Planned++
		case domain.OrderStatusCancelled:
			p.Cancelled++
		}
	}
	p.Total = max(len(orders), 1)
	// round half up of 100*completed/total
	p.CompletionRate = (200*p.Completed + p.Total) / (2 * p.Total)
	return p
}
