package core

import (
	"context"
	"fmt"

	"tirecore/pkg/domain"
)

// AddCombination registers a front/rear pair from the catalog.
func (s *Service) AddCombination(ctx context.Context, in CombinationInput) (domain.SpecCombination, Result, error) {
	var created domain.SpecCombination
	res, err := s.run(ctx, "add_combination", func(tx Transaction) (string, error) {
		front, rear, err := s.catalog.Pair(in.FrontCode, in.RearCode)
		if err != nil {
			return "", err
		}
		var notes *string
		if in.Notes != nil {
			n := *in.Notes
			notes = &n
		}
		created, err = tx.CreateCombination(domain.SpecCombination{
			Front:    front,
			Rear:     rear,
			Quantity: in.Quantity,
			Purpose:  in.Purpose,
			Notes:    notes,
		})
		return created.ID, err
	})
	return created, res, err
}

// AddOrder appends a planned order for an existing combination.
func (s *Service) AddOrder(ctx context.Context, in OrderInput) (domain.TestOrder, Result, error) {
	var created domain.TestOrder
	res, err := s.run(ctx, "add_order", func(tx Transaction) (string, error) {
		combo, ok := tx.FindCombination(in.CombinationID)
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrUnknownCombination, in.CombinationID)
		}
		order := domain.TestOrder{
			CombinationID: combo.ID,
			Objective:     in.Objective,
			Vehicle:       in.Vehicle,
			Schedule:      in.Schedule,
			Quantity:      in.Quantity,
		}
		if order.Objective == "" {
			order.Objective = combo.Purpose
		}
		if order.Vehicle == "" {
			order.Vehicle = domain.UnassignedVehicle
		}
		if order.Schedule == "" {
			order.Schedule = domain.PendingSchedule
		}
		var err error
		created, err = tx.AppendOrder(order)
		return created.ID, err
	})
	return created, res, err
}

// Reposition swaps an order with its neighbour. It reports false without
// error when the order already sits at the requested boundary.
func (s *Service) Reposition(ctx context.Context, orderID string, direction domain.Direction) (bool, Result, error) {
	var moved bool
	res, err := s.run(ctx, "reposition_order", func(tx Transaction) (string, error) {
		var err error
		moved, err = tx.RepositionOrder(orderID, direction)
		return orderID, err
	})
	return moved, res, err
}

// ToggleCancellation flips an order between cancelled and planned. Any
// non-cancelled status moves to cancelled; restoring always yields planned.
func (s *Service) ToggleCancellation(ctx context.Context, orderID string) (domain.TestOrder, Result, error) {
	var updated domain.TestOrder
	res, err := s.run(ctx, "toggle_cancellation", func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateOrder(orderID, func(o *domain.TestOrder) error {
			if o.Status == domain.OrderStatusCancelled {
				o.Status = domain.OrderStatusPlanned
			} else {
				o.Status = domain.OrderStatusCancelled
			}
			return nil
		})
		return orderID, err
	})
	return updated, res, err
}

// AdvanceOrder moves an order forward: planned to in-progress, in-progress to completed.
func (s *Service) AdvanceOrder(ctx context.Context, orderID string, status domain.OrderStatus) (domain.TestOrder, Result, error) {
	var updated domain.TestOrder
	res, err := s.run(ctx, "advance_order", func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateOrder(orderID, func(o *domain.TestOrder) error {
			if !forwardTransition(o.Status, status) {
				return fmt.Errorf("%w: %s %s -> %s", domain.ErrInvalidTransition, o.ID, o.Status, status)
			}
			o.Status = status
			return nil
		})
		return orderID, err
	})
	return updated, res, err
}

func forwardTransition(from, to domain.OrderStatus) bool {
	switch from {
	case domain.OrderStatusPlanned:
		return to == domain.OrderStatusInProgress
	case domain.OrderStatusInProgress:
		return to == domain.OrderStatusCompleted
	default:
		return false
	}
}

// ToggleField flips the enabled flag of a sheet field.
func (s *Service) ToggleField(ctx context.Context, key string) (domain.SheetField, Result, error) {
	var field domain.SheetField
	res, err := s.run(ctx, "toggle_field", func(tx Transaction) (string, error) {
		var err error
		field, err = tx.ToggleSheetField(key)
		return key, err
	})
	return field, res, err
}

// RecordSheet stores an evaluation sheet for an order. An empty spec code
// defaults to the order's combination label.
func (s *Service) RecordSheet(ctx context.Context, sheet domain.EvaluationSheet) (domain.EvaluationSheet, Result, error) {
	var created domain.EvaluationSheet
	res, err := s.run(ctx, "record_sheet", func(tx Transaction) (string, error) {
		order, ok := tx.FindOrder(sheet.TestOrderID)
		if !ok {
			return "", fmt.Errorf("%w: %s", domain.ErrUnknownOrder, sheet.TestOrderID)
		}
		if sheet.SpecCode == "" {
			if combo, ok := tx.FindCombination(order.CombinationID); ok {
				sheet.SpecCode = combo.Label
			}
		}
		var err error
		created, err = tx.CreateSheet(sheet)
		return created.ID, err
	})
	return created, res, err
}

// Ingest maps uploaded file descriptors onto active orders round-robin and
// prepends the resulting records. An empty batch is a no-op.
func (s *Service) Ingest(ctx context.Context, files []domain.FileDescriptor) ([]domain.ResultRecord, Result, error) {
	if len(files) == 0 {
		return nil, Result{}, nil
	}
	var created []domain.ResultRecord
	res, err := s.run(ctx, "ingest_results", func(tx Transaction) (string, error) {
		pool := ActiveOrders(tx.Snapshot().ListOrders())
		records, err := AssignRoundRobin(files, pool, s.batchID(), tx.Now())
		if err != nil {
			return "", err
		}
		created, err = tx.PrependResults(records)
		if err != nil {
			return "", err
		}
		return created[0].Batch, nil
	})
	if err != nil {
		return nil, res, err
	}
	return created, res, nil
}
