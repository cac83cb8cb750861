package core

import (
	"context"
	"fmt"

	"tirecore/internal/catalog"
	"tirecore/pkg/domain"
)

// Catalog returns the spec matrix combinations are validated against.
func (s *Service) Catalog() catalog.Catalog {
	return s.catalog
}

// ListCombinations returns combinations in insertion order.
func (s *Service) ListCombinations(ctx context.Context) ([]domain.SpecCombination, error) {
	var out []domain.SpecCombination
	err := s.view(ctx, "list_combinations", func(v TransactionView) error {
		out = v.ListCombinations()
		return nil
	})
	return out, err
}

// ListOrders returns orders in sequence order.
func (s *Service) ListOrders(ctx context.Context) ([]domain.TestOrder, error) {
	var out []domain.TestOrder
	err := s.view(ctx, "list_orders", func(v TransactionView) error {
		out = v.ListOrders()
		return nil
	})
	return out, err
}

// ListSheets returns the sheets recorded for orderID, or every sheet when
// orderID is empty. An order without sheets yields an empty slice.
func (s *Service) ListSheets(ctx context.Context, orderID string) ([]domain.EvaluationSheet, error) {
	var out []domain.EvaluationSheet
	err := s.view(ctx, "list_sheets", func(v TransactionView) error {
		if orderID == "" {
			out = v.ListSheets()
			return nil
		}
		out = v.SheetsForOrder(orderID)
		return nil
	})
	return out, err
}

// ListResults returns result records, most recent batch first.
func (s *Service) ListResults(ctx context.Context) ([]domain.ResultRecord, error) {
	var out []domain.ResultRecord
	err := s.view(ctx, "list_results", func(v TransactionView) error {
		out = v.ListResults()
		return nil
	})
	return out, err
}

// SheetFieldConfig returns the process-wide field configuration.
func (s *Service) SheetFieldConfig(ctx context.Context) ([]domain.SheetField, error) {
	var out []domain.SheetField
	err := s.view(ctx, "sheet_field_config", func(v TransactionView) error {
		out = v.ListSheetFields()
		return nil
	})
	return out, err
}

// AuditTrail projects the currently cancelled orders.
func (s *Service) AuditTrail(ctx context.Context) ([]domain.AuditTrailEntry, error) {
	var out []domain.AuditTrailEntry
	err := s.view(ctx, "audit_trail", func(v TransactionView) error {
		out = ProjectAuditTrail(v)
		return nil
	})
	return out, err
}

// Progress aggregates order status counts.
func (s *Service) Progress(ctx context.Context) (domain.Progress, error) {
	var out domain.Progress
	err := s.view(ctx, "progress", func(v TransactionView) error {
		out = AggregateProgress(v.ListOrders())
		return nil
	})
	return out, err
}

// SheetTemplate drafts an evaluation sheet for orderID from the current field configuration.
func (s *Service) SheetTemplate(ctx context.Context, orderID string) (domain.SheetTemplate, error) {
	var out domain.SheetTemplate
	err := s.view(ctx, "sheet_template", func(v TransactionView) error {
		order, ok := v.FindOrder(orderID)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
		}
		combo, _ := v.FindCombination(order.CombinationID)
		out = BuildSheetTemplate(order, combo, v.ListSheetFields())
		return nil
	})
	return out, err
}
