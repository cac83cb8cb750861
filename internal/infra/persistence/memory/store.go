// Package memory provides the in-memory ledger store used directly for
// ephemeral deployments and embedded by the snapshotting backends.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tirecore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// SpecCombination aliases domain.SpecCombination.
	SpecCombination = domain.SpecCombination
	// TestOrder aliases domain.TestOrder.
	TestOrder = domain.TestOrder
	// EvaluationSheet aliases domain.EvaluationSheet.
	EvaluationSheet = domain.EvaluationSheet
	// SheetField aliases domain.SheetField.
	SheetField = domain.SheetField
	// ResultRecord aliases domain.ResultRecord.
	ResultRecord = domain.ResultRecord
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
)

// Counters hold the last allocated sequence number per collection. They only
// grow, so ids are never recycled even if a backend later prunes records.
type Counters struct {
	Combinations int `json:"combinations"`
	Orders       int `json:"orders"`
	Sheets       int `json:"sheets"`
	Results      int `json:"results"`
}

type memoryState struct {
	combinations     map[string]SpecCombination
	combinationOrder []string
	orders           map[string]TestOrder
	sequence         []string
	sheets           map[string]EvaluationSheet
	sheetOrder       []string
	fields           []SheetField
	results          []ResultRecord
	counters         Counters
}

// Snapshot captures a point-in-time clone of the store state. Slices are in
// ledger order: combinations by insertion, orders by sequence position,
// results most recent first.
type Snapshot struct {
	Combinations []SpecCombination `json:"combinations"`
	Orders       []TestOrder       `json:"orders"`
	Sheets       []EvaluationSheet `json:"sheets"`
	Fields       []SheetField      `json:"fields"`
	Results      []ResultRecord    `json:"results"`
	Counters     Counters          `json:"counters"`
}

func newMemoryState() memoryState {
	return memoryState{
		combinations: make(map[string]SpecCombination),
		orders:       make(map[string]TestOrder),
		sheets:       make(map[string]EvaluationSheet),
		fields:       domain.DefaultSheetFields(),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		combinations:     make(map[string]SpecCombination, len(s.combinations)),
		combinationOrder: append([]string(nil), s.combinationOrder...),
		orders:           make(map[string]TestOrder, len(s.orders)),
		sequence:         append([]string(nil), s.sequence...),
		sheets:           make(map[string]EvaluationSheet, len(s.sheets)),
		sheetOrder:       append([]string(nil), s.sheetOrder...),
		fields:           append([]SheetField(nil), s.fields...),
		results:          append([]ResultRecord(nil), s.results...),
		counters:         s.counters,
	}
	for k, v := range s.combinations {
		cloned.combinations[k] = cloneCombination(v)
	}
	for k, v := range s.orders {
		cloned.orders[k] = v
	}
	for k, v := range s.sheets {
		cloned.sheets[k] = v
	}
	return cloned
}

func cloneCombination(c SpecCombination) SpecCombination {
	cp := c
	if c.Notes != nil {
		notes := *c.Notes
		cp.Notes = &notes
	}
	return cp
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	view := newTransactionView(&state)
	return Snapshot{
		Combinations: view.ListCombinations(),
		Orders:       view.ListOrders(),
		Sheets:       view.ListSheets(),
		Fields:       view.ListSheetFields(),
		Results:      view.ListResults(),
		Counters:     state.counters,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, c := range s.Combinations {
		state.combinations[c.ID] = cloneCombination(c)
		state.combinationOrder = append(state.combinationOrder, c.ID)
	}
	for _, o := range s.Orders {
		state.orders[o.ID] = o
		state.sequence = append(state.sequence, o.ID)
	}
	for _, sh := range s.Sheets {
		state.sheets[sh.ID] = sh
		state.sheetOrder = append(state.sheetOrder, sh.ID)
	}
	if len(s.Fields) > 0 {
		state.fields = append([]SheetField(nil), s.Fields...)
	}
	state.results = append([]ResultRecord(nil), s.Results...)
	state.counters = s.Counters
	state.counters.Combinations = max(state.counters.Combinations, len(s.Combinations))
	state.counters.Orders = max(state.counters.Orders, len(s.Orders))
	state.counters.Sheets = max(state.counters.Sheets, len(s.Sheets))
	state.counters.Results = max(state.counters.Results, len(s.Results))
	return state
}

// Store provides an in-memory transactional store for the ledger. A single
// mutex serialises every transaction so commands never interleave.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock used to stamp records. A nil fn is ignored.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.nowFn = fn
	s.mu.Unlock()
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// ExportState returns a deep copy snapshot of the current store state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state.clone())
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// CommitFunc persists the snapshot a transaction is about to publish. An
// error keeps the live state untouched.
type CommitFunc func(ctx context.Context, snapshot Snapshot) error

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces the live state only when fn succeeds and no
// blocking rule violation is reported.
func (s *Store) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	return s.RunInTransactionWithCommit(ctx, fn, nil)
}

// RunInTransactionWithCommit behaves like RunInTransaction and calls commit
// with the new state before it becomes visible. Transactions that recorded no
// changes skip commit.
func (s *Store) RunInTransactionWithCommit(ctx context.Context, fn func(Transaction) error, commit CommitFunc) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if commit != nil && len(tx.changes) > 0 {
		if err := commit(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) Now() time.Time {
	return tx.now
}

func (tx *transaction) FindCombination(id string) (SpecCombination, bool) {
	return tx.Snapshot().FindCombination(id)
}

func (tx *transaction) FindOrder(id string) (TestOrder, bool) {
	return tx.Snapshot().FindOrder(id)
}

func (tx *transaction) CreateCombination(c SpecCombination) (SpecCombination, error) {
	tx.state.counters.Combinations++
	c.ID = fmt.Sprintf("T%d", tx.state.counters.Combinations)
	if _, exists := tx.state.combinations[c.ID]; exists {
		return SpecCombination{}, fmt.Errorf("combination %q already exists", c.ID)
	}
	c.Label = domain.CombinationLabel(c.Front, c.Rear)
	tx.state.combinations[c.ID] = cloneCombination(c)
	tx.state.combinationOrder = append(tx.state.combinationOrder, c.ID)
	tx.recordChange(Change{Entity: domain.EntityCombination, Action: domain.ActionCreate, After: domain.MustChangePayload(c)})
	return cloneCombination(c), nil
}

func (tx *transaction) AppendOrder(o TestOrder) (TestOrder, error) {
	tx.state.counters.Orders++
	o.ID = fmt.Sprintf("ORD-%03d", tx.state.counters.Orders)
	if _, exists := tx.state.orders[o.ID]; exists {
		return TestOrder{}, fmt.Errorf("test order %q already exists", o.ID)
	}
	o.Status = domain.OrderStatusPlanned
	o.CreatedAt = tx.now
	o.StatusChangedAt = tx.now
	tx.state.orders[o.ID] = o
	tx.state.sequence = append(tx.state.sequence, o.ID)
	tx.recordChange(Change{Entity: domain.EntityTestOrder, Action: domain.ActionCreate, After: domain.MustChangePayload(o)})
	return o, nil
}

func (tx *transaction) UpdateOrder(id string, mutator func(*TestOrder) error) (TestOrder, error) {
	current, ok := tx.state.orders[id]
	if !ok {
		return TestOrder{}, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return TestOrder{}, err
	}
	current.ID = before.ID
	current.CombinationID = before.CombinationID
	current.CreatedAt = before.CreatedAt
	if current.Status != before.Status {
		current.StatusChangedAt = tx.now
	} else {
		current.StatusChangedAt = before.StatusChangedAt
	}
	tx.state.orders[id] = current
	tx.recordChange(Change{
		Entity: domain.EntityTestOrder,
		Action: domain.ActionUpdate,
		Before: domain.MustChangePayload(before),
		After:  domain.MustChangePayload(current),
	})
	return current, nil
}

func (tx *transaction) RepositionOrder(id string, direction domain.Direction) (bool, error) {
	if !direction.Valid() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, direction)
	}
	index := -1
	for i, orderID := range tx.state.sequence {
		if orderID == id {
			index = i
			break
		}
	}
	if index == -1 {
		return false, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, id)
	}
	target := index + 1
	if direction == domain.DirectionEarlier {
		target = index - 1
	}
	if target < 0 || target >= len(tx.state.sequence) {
		return false, nil
	}
	seq := tx.state.sequence
	seq[index], seq[target] = seq[target], seq[index]
	tx.recordChange(Change{
		Entity: domain.EntityTestOrder,
		Action: domain.ActionMove,
		Before: domain.MustChangePayload(map[string]int{id: index}),
		After:  domain.MustChangePayload(map[string]int{id: target}),
	})
	return true, nil
}

func (tx *transaction) CreateSheet(sheet EvaluationSheet) (EvaluationSheet, error) {
	if _, ok := tx.state.orders[sheet.TestOrderID]; !ok {
		return EvaluationSheet{}, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, sheet.TestOrderID)
	}
	tx.state.counters.Sheets++
	sheet.ID = fmt.Sprintf("ES-%02d", tx.state.counters.Sheets)
	if sheet.RecordedAt.IsZero() {
		sheet.RecordedAt = tx.now
	}
	tx.state.sheets[sheet.ID] = sheet
	tx.state.sheetOrder = append(tx.state.sheetOrder, sheet.ID)
	tx.recordChange(Change{Entity: domain.EntityEvaluationSheet, Action: domain.ActionCreate, After: domain.MustChangePayload(sheet)})
	return sheet, nil
}

func (tx *transaction) ToggleSheetField(key string) (SheetField, error) {
	for i, field := range tx.state.fields {
		if field.Key != key {
			continue
		}
		before := field
		field.Enabled = !field.Enabled
		tx.state.fields[i] = field
		tx.recordChange(Change{
			Entity: domain.EntitySheetField,
			Action: domain.ActionUpdate,
			Before: domain.MustChangePayload(before),
			After:  domain.MustChangePayload(field),
		})
		return field, nil
	}
	return SheetField{}, fmt.Errorf("%w: %s", domain.ErrUnknownFieldKey, key)
}

// PrependResults allocates ids in batch order and places the whole batch
// ahead of the existing records, keeping the batch's internal order.
func (tx *transaction) PrependResults(records []ResultRecord) ([]ResultRecord, error) {
	created := make([]ResultRecord, 0, len(records))
	for _, rec := range records {
		tx.state.counters.Results++
		rec.ID = fmt.Sprintf("R-%03d", tx.state.counters.Results)
		if rec.UploadedAt.IsZero() {
			rec.UploadedAt = tx.now
		}
		created = append(created, rec)
		tx.recordChange(Change{Entity: domain.EntityResult, Action: domain.ActionCreate, After: domain.MustChangePayload(rec)})
	}
	tx.state.results = append(append([]ResultRecord(nil), created...), tx.state.results...)
	return append([]ResultRecord(nil), created...), nil
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) transactionView {
	return transactionView{state: state}
}

func (v transactionView) ListCombinations() []SpecCombination {
	out := make([]SpecCombination, 0, len(v.state.combinationOrder))
	for _, id := range v.state.combinationOrder {
		out = append(out, cloneCombination(v.state.combinations[id]))
	}
	return out
}

func (v transactionView) ListOrders() []TestOrder {
	out := make([]TestOrder, 0, len(v.state.sequence))
	for _, id := range v.state.sequence {
		out = append(out, v.state.orders[id])
	}
	return out
}

func (v transactionView) ListSheets() []EvaluationSheet {
	out := make([]EvaluationSheet, 0, len(v.state.sheetOrder))
	for _, id := range v.state.sheetOrder {
		out = append(out, v.state.sheets[id])
	}
	return out
}

func (v transactionView) ListSheetFields() []SheetField {
	return append(make([]SheetField, 0, len(v.state.fields)), v.state.fields...)
}

func (v transactionView) ListResults() []ResultRecord {
	return append(make([]ResultRecord, 0, len(v.state.results)), v.state.results...)
}

func (v transactionView) FindCombination(id string) (SpecCombination, bool) {
	c, ok := v.state.combinations[id]
	if !ok {
		return SpecCombination{}, false
	}
	return cloneCombination(c), true
}

func (v transactionView) FindOrder(id string) (TestOrder, bool) {
	o, ok := v.state.orders[id]
	return o, ok
}

func (v transactionView) SheetsForOrder(orderID string) []EvaluationSheet {
	out := make([]EvaluationSheet, 0)
	for _, id := range v.state.sheetOrder {
		if sheet := v.state.sheets[id]; sheet.TestOrderID == orderID {
			out = append(out, sheet)
		}
	}
	return out
}
