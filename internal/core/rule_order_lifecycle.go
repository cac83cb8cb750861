package core

import (
	"context"
	"fmt"

	"tirecore/pkg/domain"
)

const orderLifecycleRuleName = "order_lifecycle"

// NewOrderLifecycleRule blocks invalid statuses and illegal status transitions.
func NewOrderLifecycleRule() Rule {
	return orderLifecycleRule{}
}

type orderLifecycleRule struct{}

// allowedTransitions lists the non-cancelling moves. Any active status may
// move to cancelled.
var allowedTransitions = map[domain.OrderStatus]domain.OrderStatus{
	domain.OrderStatusPlanned:    domain.OrderStatusInProgress,
	domain.OrderStatusInProgress: domain.OrderStatusCompleted,
	domain.OrderStatusCancelled:  domain.OrderStatusPlanned,
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	if from == to {
		return true
	}
	if to == domain.OrderStatusCancelled {
		return true
	}
	return allowedTransitions[from] == to
}

func (orderLifecycleRule) Name() string { return orderLifecycleRuleName }

func (orderLifecycleRule) Evaluate(_ context.Context, _ TransactionView, changes []Change) (Result, error) {
	var res Result
	block := func(id, msg string) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     orderLifecycleRuleName,
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityTestOrder,
			EntityID: id,
		})
	}
	for _, change := range changes {
		if change.Entity != domain.EntityTestOrder || change.Action == domain.ActionMove {
			continue
		}
		after, ok := domain.DecodeChangePayload[domain.TestOrder](change.After)
		if !ok {
			continue
		}
		if !after.Status.Valid() {
			block(after.ID, fmt.Sprintf("order %s has invalid status %q", after.ID, after.Status))
			continue
		}
		if change.Action == domain.ActionCreate {
			if after.Status != domain.OrderStatusPlanned {
				block(after.ID, fmt.Sprintf("order %s must be created planned, got %s", after.ID, after.Status))
			}
			continue
		}
		before, ok := domain.DecodeChangePayload[domain.TestOrder](change.Before)
		if !ok {
			continue
		}
		if !transitionAllowed(before.Status, after.Status) {
			block(after.ID, fmt.Sprintf("order %s cannot move from %s to %s", after.ID, before.Status, after.Status))
		}
	}
	return res, nil
}
