package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tirecore/pkg/domain"
)

func files(names ...string) []domain.FileDescriptor {
	out := make([]domain.FileDescriptor, 0, len(names))
	for _, n := range names {
		out = append(out, domain.FileDescriptor{Name: n})
	}
	return out
}

func TestIngestRoundRobinOverActiveOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	a := mustOrder(t, svc, combo.ID)
	cancelled := mustOrder(t, svc, combo.ID)
	b := mustOrder(t, svc, combo.ID)
	setStatus(t, svc, cancelled.ID, domain.OrderStatusCancelled)
	setStatus(t, svc, b.ID, domain.OrderStatusCompleted)

	created, res, err := svc.Ingest(ctx, files("f0.csv", "f1.csv", "f2.csv"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations %+v", res.Violations)
	}
	var targets, ids []string
	for _, r := range created {
		targets = append(targets, r.TestOrderID)
		ids = append(ids, r.ID)
		if r.Batch != "batch-1" {
			t.Fatalf("record %s has batch %q", r.ID, r.Batch)
		}
	}
	if diff := cmp.Diff([]string{a.ID, b.ID, a.ID}, targets); diff != "" {
		t.Fatalf("round robin targets (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"R-001", "R-002", "R-003"}, ids); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
	wantStatus := []domain.ResultStatus{domain.ResultStatusPending, domain.ResultStatusMatched, domain.ResultStatusPending}
	for i, r := range created {
		if r.Status != wantStatus[i] {
			t.Fatalf("record %d status %s, want %s", i, r.Status, wantStatus[i])
		}
	}
}

func TestIngestPrependsBatchAsBlock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	mustOrder(t, svc, combo.ID)
	if _, _, err := svc.Ingest(ctx, files("old.csv")); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, _, err := svc.Ingest(ctx, files("new-0.csv", "new-1.csv")); err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	results, err := svc.ListResults(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, r := range results {
		names = append(names, r.FileName)
	}
	if diff := cmp.Diff([]string{"new-0.csv", "new-1.csv", "old.csv"}, names); diff != "" {
		t.Fatalf("result order (-want +got):\n%s", diff)
	}
	if results[0].Batch != results[1].Batch || results[0].Batch == results[2].Batch {
		t.Fatalf("batch ids not grouped: %+v", results)
	}
}

func TestIngestWithoutActiveOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, _, err := svc.Ingest(ctx, files("lonely.csv")); !errors.Is(err, domain.ErrNoEligibleOrder) {
		t.Fatalf("empty ledger: expected ErrNoEligibleOrder, got %v", err)
	}
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	order := mustOrder(t, svc, combo.ID)
	setStatus(t, svc, order.ID, domain.OrderStatusCancelled)
	if _, _, err := svc.Ingest(ctx, files("a.csv", "b.csv")); !errors.Is(err, domain.ErrNoEligibleOrder) {
		t.Fatalf("all cancelled: expected ErrNoEligibleOrder, got %v", err)
	}
	results, _ := svc.ListResults(ctx)
	if len(results) != 0 {
		t.Fatalf("rejected batch left results: %+v", results)
	}
}

func TestIngestEmptyBatchIsNoOp(t *testing.T) {
	recorder := &captureRecorder{}
	svc := newTestService(t, WithOperationRecorder(recorder))
	created, res, err := svc.Ingest(context.Background(), nil)
	if err != nil || created != nil || len(res.Violations) != 0 {
		t.Fatalf("empty ingest: created=%v res=%+v err=%v", created, res, err)
	}
	if len(recorder.entries) != 0 {
		t.Fatalf("empty ingest should not run a transaction: %+v", recorder.entries)
	}
}

func TestIngestNormalizesFileNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	mustOrder(t, svc, combo.ID)
	decomposed := "\u1100\u1161\u11a8.csv"
	created, _, err := svc.Ingest(ctx, files(decomposed))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if created[0].FileName != "\uac01.csv" {
		t.Fatalf("file name not NFC: %q", created[0].FileName)
	}
}

func TestAssignRoundRobinStandalone(t *testing.T) {
	pool := []domain.TestOrder{{ID: "A", Status: domain.OrderStatusPlanned}, {ID: "B", Status: domain.OrderStatusInProgress}}
	records, err := AssignRoundRobin(files("1", "2", "3", "4", "5"), pool, "b", fixedNow)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	var got []string
	for _, r := range records {
		got = append(got, r.TestOrderID)
		if !r.UploadedAt.Equal(fixedNow) || r.ID != "" {
			t.Fatalf("unexpected record %+v", r)
		}
	}
	if diff := cmp.Diff([]string{"A", "B", "A", "B", "A"}, got); diff != "" {
		t.Fatalf("assignment (-want +got):\n%s", diff)
	}
	if _, err := AssignRoundRobin(files("x"), nil, "b", fixedNow); !errors.Is(err, domain.ErrNoEligibleOrder) {
		t.Fatalf("expected ErrNoEligibleOrder, got %v", err)
	}
}

func TestResultsSurviveLaterCancellation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	combo := mustCombination(t, svc, "FR-A", "RR-a")
	order := mustOrder(t, svc, combo.ID)
	if _, _, err := svc.Ingest(ctx, files("x.csv")); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	setStatus(t, svc, order.ID, domain.OrderStatusCancelled)
	results, _ := svc.ListResults(ctx)
	if len(results) != 1 || results[0].TestOrderID != order.ID {
		t.Fatalf("result should still reference the cancelled order: %+v", results)
	}
}
