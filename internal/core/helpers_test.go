package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tirecore/pkg/domain"
)

var fixedNow = time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Minute)
	return c.now
}

type capturedLog struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []capturedLog
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, capturedLog{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []OperationEntry
}

func (r *captureRecorder) Record(_ context.Context, entry OperationEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	var seq int
	base := []ServiceOption{
		WithClock(&stepClock{now: fixedNow}),
		WithBatchIDGenerator(func() string {
			seq++
			return fmt.Sprintf("batch-%d", seq)
		}),
	}
	return NewInMemoryService(nil, append(base, opts...)...)
}

func mustCombination(t *testing.T, svc *Service, front, rear string) domain.SpecCombination {
	t.Helper()
	combo, _, err := svc.AddCombination(context.Background(), CombinationInput{FrontCode: front, RearCode: rear, Quantity: 4, Purpose: "baseline " + front + rear})
	if err != nil {
		t.Fatalf("add combination %s/%s: %v", front, rear, err)
	}
	return combo
}

func mustOrder(t *testing.T, svc *Service, combinationID string) domain.TestOrder {
	t.Helper()
	order, _, err := svc.AddOrder(context.Background(), OrderInput{CombinationID: combinationID, Quantity: 4})
	if err != nil {
		t.Fatalf("add order: %v", err)
	}
	return order
}

func orderIDs(t *testing.T, svc *Service) []string {
	t.Helper()
	orders, err := svc.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}

func setStatus(t *testing.T, svc *Service, id string, status domain.OrderStatus) {
	t.Helper()
	ctx := context.Background()
	switch status {
	case domain.OrderStatusInProgress:
		if _, _, err := svc.AdvanceOrder(ctx, id, domain.OrderStatusInProgress); err != nil {
			t.Fatalf("advance %s: %v", id, err)
		}
	case domain.OrderStatusCompleted:
		setStatus(t, svc, id, domain.OrderStatusInProgress)
		if _, _, err := svc.AdvanceOrder(ctx, id, domain.OrderStatusCompleted); err != nil {
			t.Fatalf("complete %s: %v", id, err)
		}
	case domain.OrderStatusCancelled:
		if _, _, err := svc.ToggleCancellation(ctx, id); err != nil {
			t.Fatalf("cancel %s: %v", id, err)
		}
	}
}
