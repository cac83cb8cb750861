package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tirecore/pkg/domain"
)

func TestAddCombinationDerivesLabelAndIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	first := mustCombination(t, svc, "FR-A", "RR-b")
	second := mustCombination(t, svc, "FR-D", "RR-c")
	if first.ID != "T1" || second.ID != "T2" {
		t.Fatalf("unexpected ids %s %s", first.ID, second.ID)
	}
	if first.Label != "A-b" || second.Label != "D-c" {
		t.Fatalf("unexpected labels %s %s", first.Label, second.Label)
	}
	if first.Front.Code != "FR-A" || first.Rear.Code != "RR-b" {
		t.Fatalf("specs not resolved from catalog: %+v", first)
	}
	list, err := svc.ListCombinations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "T1" || list[1].ID != "T2" {
		t.Fatalf("combinations not in insertion order: %+v", list)
	}
}

func TestAddCombinationNotesAreCopied(t *testing.T) {
	svc := newTestService(t)
	note := "first pass"
	combo, _, err := svc.AddCombination(context.Background(), CombinationInput{FrontCode: "FR-B", RearCode: "RR-a", Quantity: 2, Purpose: "p", Notes: &note})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	note = "changed"
	if combo.Notes == nil || *combo.Notes != "first pass" {
		t.Fatalf("notes aliased caller memory: %v", combo.Notes)
	}
}

func TestAddCombinationRejectsUnknownCodes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	cases := []CombinationInput{
		{FrontCode: "FR-Z", RearCode: "RR-a"},
		{FrontCode: "FR-A", RearCode: "RR-z"},
		{FrontCode: "RR-a", RearCode: "FR-A"},
	}
	for _, in := range cases {
		if _, _, err := svc.AddCombination(ctx, in); !errors.Is(err, domain.ErrUnknownSpecCode) {
			t.Fatalf("%+v: expected ErrUnknownSpecCode, got %v", in, err)
		}
	}
	list, _ := svc.ListCombinations(ctx)
	if len(list) != 0 {
		t.Fatalf("registry changed after rejected adds: %+v", list)
	}
	if combo := mustCombination(t, svc, "FR-A", "RR-a"); combo.ID != "T1" {
		t.Fatalf("rejected adds consumed ids: %s", combo.ID)
	}
}

func TestAddOrderDefaults(t *testing.T) {
	svc := newTestService(t)
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	order := mustOrder(t, svc, combo.ID)
	if order.ID != "ORD-001" || order.Status != domain.OrderStatusPlanned {
		t.Fatalf("unexpected order %+v", order)
	}
	if order.Objective != combo.Purpose {
		t.Fatalf("objective should default to purpose, got %q", order.Objective)
	}
	if order.Vehicle != domain.UnassignedVehicle || order.Schedule != domain.PendingSchedule {
		t.Fatalf("placeholders not applied: %+v", order)
	}
	if order.CreatedAt.IsZero() || !order.CreatedAt.Equal(order.StatusChangedAt) {
		t.Fatalf("timestamps not stamped: %+v", order)
	}

	explicit, _, err := svc.AddOrder(context.Background(), OrderInput{CombinationID: combo.ID, Objective: "wet grip", Vehicle: "K5", Schedule: "2024-12-01", Quantity: 2})
	if err != nil {
		t.Fatalf("add explicit: %v", err)
	}
	if explicit.ID != "ORD-002" || explicit.Objective != "wet grip" || explicit.Vehicle != "K5" || explicit.Schedule != "2024-12-01" {
		t.Fatalf("explicit values lost: %+v", explicit)
	}
}

func TestAddOrderUnknownCombination(t *testing.T) {
	svc := newTestService(t)
	if _, _, err := svc.AddOrder(context.Background(), OrderInput{CombinationID: "T9"}); !errors.Is(err, domain.ErrUnknownCombination) {
		t.Fatalf("expected ErrUnknownCombination, got %v", err)
	}
	if ids := orderIDs(t, svc); len(ids) != 0 {
		t.Fatalf("ledger changed: %v", ids)
	}
}

func TestRepositionSwapsNeighbours(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	for range 3 {
		mustOrder(t, svc, combo.ID)
	}

	moved, _, err := svc.Reposition(ctx, "ORD-003", domain.DirectionEarlier)
	if err != nil || !moved {
		t.Fatalf("reposition: moved=%v err=%v", moved, err)
	}
	if diff := cmp.Diff([]string{"ORD-001", "ORD-003", "ORD-002"}, orderIDs(t, svc)); diff != "" {
		t.Fatalf("sequence mismatch (-want +got):\n%s", diff)
	}

	moved, _, err = svc.Reposition(ctx, "ORD-003", domain.DirectionLater)
	if err != nil || !moved {
		t.Fatalf("inverse reposition: moved=%v err=%v", moved, err)
	}
	if diff := cmp.Diff([]string{"ORD-001", "ORD-002", "ORD-003"}, orderIDs(t, svc)); diff != "" {
		t.Fatalf("inverse did not restore sequence (-want +got):\n%s", diff)
	}
}

func TestRepositionBoundariesAreNoOps(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	mustOrder(t, svc, combo.ID)
	mustOrder(t, svc, combo.ID)

	for _, tc := range []struct {
		id  string
		dir domain.Direction
	}{{"ORD-001", domain.DirectionEarlier}, {"ORD-002", domain.DirectionLater}} {
		moved, _, err := svc.Reposition(ctx, tc.id, tc.dir)
		if err != nil || moved {
			t.Fatalf("%s %s: moved=%v err=%v", tc.id, tc.dir, moved, err)
		}
	}
	if diff := cmp.Diff([]string{"ORD-001", "ORD-002"}, orderIDs(t, svc)); diff != "" {
		t.Fatalf("boundary move changed ledger (-want +got):\n%s", diff)
	}
}

func TestRepositionErrors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	mustOrder(t, svc, combo.ID)
	if _, _, err := svc.Reposition(ctx, "ORD-404", domain.DirectionEarlier); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
	if _, _, err := svc.Reposition(ctx, "ORD-001", domain.Direction("sideways")); !errors.Is(err, domain.ErrInvalidDirection) {
		t.Fatalf("expected ErrInvalidDirection, got %v", err)
	}
}

func TestRepositionPreservesOrderSet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-C", "RR-d")
	for range 5 {
		mustOrder(t, svc, combo.ID)
	}
	moves := []struct {
		id  string
		dir domain.Direction
	}{
		{"ORD-004", domain.DirectionEarlier},
		{"ORD-004", domain.DirectionEarlier},
		{"ORD-001", domain.DirectionLater},
		{"ORD-005", domain.DirectionLater},
		{"ORD-002", domain.DirectionEarlier},
	}
	for _, m := range moves {
		if _, _, err := svc.Reposition(ctx, m.id, m.dir); err != nil {
			t.Fatalf("move %s: %v", m.id, err)
		}
	}
	got := orderIDs(t, svc)
	seen := make(map[string]int)
	for _, id := range got {
		seen[id]++
	}
	for _, id := range []string{"ORD-001", "ORD-002", "ORD-003", "ORD-004", "ORD-005"} {
		if seen[id] != 1 {
			t.Fatalf("order %s appears %d times in %v", id, seen[id], got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("sequence length changed: %v", got)
	}
}

func TestToggleCancellationRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	order := mustOrder(t, svc, combo.ID)
	setStatus(t, svc, order.ID, domain.OrderStatusCompleted)

	cancelled, _, err := svc.ToggleCancellation(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	restored, _, err := svc.ToggleCancellation(ctx, order.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Status != domain.OrderStatusPlanned {
		t.Fatalf("restore should yield planned, got %s", restored.Status)
	}
	if !restored.StatusChangedAt.After(cancelled.StatusChangedAt) {
		t.Fatalf("status timestamp not advanced: %v then %v", cancelled.StatusChangedAt, restored.StatusChangedAt)
	}
	if _, _, err := svc.ToggleCancellation(ctx, "ORD-404"); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
}

func TestToggleCancellationLeavesOtherOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	mustOrder(t, svc, combo.ID)
	mustOrder(t, svc, combo.ID)
	before, _ := svc.ListOrders(ctx)
	if _, _, err := svc.ToggleCancellation(ctx, "ORD-002"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	after, _ := svc.ListOrders(ctx)
	if diff := cmp.Diff(before[0], after[0]); diff != "" {
		t.Fatalf("untouched order changed (-before +after):\n%s", diff)
	}
}

func TestAdvanceOrderTransitions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	order := mustOrder(t, svc, combo.ID)

	if _, _, err := svc.AdvanceOrder(ctx, order.ID, domain.OrderStatusCompleted); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("planned->completed should fail, got %v", err)
	}
	setStatus(t, svc, order.ID, domain.OrderStatusCompleted)
	if _, _, err := svc.AdvanceOrder(ctx, order.ID, domain.OrderStatusInProgress); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("completed->in-progress should fail, got %v", err)
	}
	if _, _, err := svc.AdvanceOrder(ctx, order.ID, domain.OrderStatusCancelled); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("advance must not cancel, got %v", err)
	}
	if _, _, err := svc.AdvanceOrder(ctx, "ORD-404", domain.OrderStatusInProgress); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
	orders, _ := svc.ListOrders(ctx)
	if orders[0].Status != domain.OrderStatusCompleted {
		t.Fatalf("unexpected status %s", orders[0].Status)
	}
}

func TestToggleField(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	field, _, err := svc.ToggleField(ctx, domain.FieldBuffing)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !field.Enabled {
		t.Fatalf("buffing should be enabled after toggle")
	}
	field, _, err = svc.ToggleField(ctx, domain.FieldBuffing)
	if err != nil || field.Enabled {
		t.Fatalf("second toggle: enabled=%v err=%v", field.Enabled, err)
	}
	if _, _, err := svc.ToggleField(ctx, "viscosity"); !errors.Is(err, domain.ErrUnknownFieldKey) {
		t.Fatalf("expected ErrUnknownFieldKey, got %v", err)
	}
	fields, _ := svc.SheetFieldConfig(ctx)
	if diff := cmp.Diff(domain.DefaultSheetFields(), fields); diff != "" {
		t.Fatalf("double toggle should restore defaults (-want +got):\n%s", diff)
	}
}

func TestRecordSheet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-B", "RR-c")
	order := mustOrder(t, svc, combo.ID)
	other := mustOrder(t, svc, combo.ID)

	sheet, _, err := svc.RecordSheet(ctx, domain.EvaluationSheet{TestOrderID: order.ID, MCode: "M-1"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if sheet.ID != "ES-01" || sheet.SpecCode != "B-c" || sheet.RecordedAt.IsZero() {
		t.Fatalf("unexpected sheet %+v", sheet)
	}
	if _, _, err := svc.RecordSheet(ctx, domain.EvaluationSheet{TestOrderID: "ORD-404"}); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}

	sheets, _ := svc.ListSheets(ctx, order.ID)
	if len(sheets) != 1 || sheets[0].ID != "ES-01" {
		t.Fatalf("sheets for order: %+v", sheets)
	}
	empty, err := svc.ListSheets(ctx, other.ID)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("order without sheets should list empty, got %v %v", empty, err)
	}
	unknown, err := svc.ListSheets(ctx, "ORD-404")
	if err != nil || len(unknown) != 0 {
		t.Fatalf("unknown order should list empty, got %v %v", unknown, err)
	}
}

func TestSheetCardinalityWarnsButCommits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	order := mustOrder(t, svc, combo.ID)
	if _, res, err := svc.RecordSheet(ctx, domain.EvaluationSheet{TestOrderID: order.ID}); err != nil || len(res.Violations) != 0 {
		t.Fatalf("first sheet: res=%+v err=%v", res, err)
	}
	_, res, err := svc.RecordSheet(ctx, domain.EvaluationSheet{TestOrderID: order.ID})
	if err != nil {
		t.Fatalf("second sheet: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Rule != sheetCardinalityRuleName || res.Violations[0].Severity != domain.SeverityWarn {
		t.Fatalf("expected cardinality warning, got %+v", res.Violations)
	}
	sheets, _ := svc.ListSheets(ctx, order.ID)
	if len(sheets) != 2 {
		t.Fatalf("warning should not block commit, got %d sheets", len(sheets))
	}
}

func TestSheetTemplate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-b")
	order := mustOrder(t, svc, combo.ID)

	tpl, err := svc.SheetTemplate(ctx, order.ID)
	if err != nil {
		t.Fatalf("template: %v", err)
	}
	if tpl.SpecCode != "A-b" || tpl.TestOrderID != order.ID {
		t.Fatalf("unexpected template header %+v", tpl)
	}
	want := map[string]string{
		domain.FieldMCode:         "",
		domain.FieldManufacturing: "금호 울산",
		domain.FieldCuring:        "170°C / 12min",
		domain.FieldCarving:       "7421",
		domain.FieldRemarks:       "",
	}
	if diff := cmp.Diff(want, tpl.Values); diff != "" {
		t.Fatalf("template values (-want +got):\n%s", diff)
	}

	if _, _, err := svc.ToggleField(ctx, domain.FieldCuring); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	tpl, _ = svc.SheetTemplate(ctx, order.ID)
	if _, ok := tpl.Values[domain.FieldCuring]; ok {
		t.Fatalf("disabled field still present: %+v", tpl.Values)
	}
	for _, f := range tpl.Fields {
		if !f.Enabled {
			t.Fatalf("template exposes disabled field %s", f.Key)
		}
	}

	if _, err := svc.SheetTemplate(ctx, "ORD-404"); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
}
