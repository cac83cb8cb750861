package domain

import (
	"context"
	"time"
)

// Transaction exposes the ledger mutations a persistence implementation must
// support within an atomic scope. Nothing is visible to other callers until
// the enclosing RunInTransaction commits.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time
	CreateCombination(SpecCombination) (SpecCombination, error)
	AppendOrder(TestOrder) (TestOrder, error)
	UpdateOrder(id string, mutator func(*TestOrder) error) (TestOrder, error)
	RepositionOrder(id string, direction Direction) (bool, error)
	CreateSheet(EvaluationSheet) (EvaluationSheet, error)
	ToggleSheetField(key string) (SheetField, error)
	PrependResults(records []ResultRecord) ([]ResultRecord, error)
	FindCombination(id string) (SpecCombination, bool)
	FindOrder(id string) (TestOrder, bool)
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	ListCombinations() []SpecCombination
	ListOrders() []TestOrder
	ListSheets() []EvaluationSheet
	ListSheetFields() []SheetField
	ListResults() []ResultRecord
	FindCombination(id string) (SpecCombination, bool)
	FindOrder(id string) (TestOrder, bool)
	SheetsForOrder(orderID string) []EvaluationSheet
}

// PersistentStore is the abstraction shared by memory and snapshotting backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
