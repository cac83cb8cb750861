// Package domain defines the tire test ledger entities, value types, and
// rule evaluation primitives used by tirecore.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the ledger.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCombination identifies a spec combination record.
	EntityCombination EntityType = "spec_combination"
	// EntityTestOrder identifies a test order record.
	EntityTestOrder EntityType = "test_order"
	// EntityEvaluationSheet identifies an evaluation sheet record.
	EntityEvaluationSheet EntityType = "evaluation_sheet"
	// EntitySheetField identifies a sheet field configuration entry.
	EntitySheetField EntityType = "sheet_field"
	// EntityResult identifies an ingested result record.
	EntityResult EntityType = "result_record"
)

// OrderStatus enumerates the test order workflow states.
type OrderStatus string

// Canonical test order statuses.
const (
	OrderStatusPlanned    OrderStatus = "planned"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether the status is one of the canonical values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlanned, OrderStatusInProgress, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ResultStatus describes how an ingested result relates to its order.
type ResultStatus string

// Result record statuses. ResultStatusCancelled is part of the record
// vocabulary but ingestion never assigns it.
const (
	ResultStatusMatched   ResultStatus = "matched"
	ResultStatusPending   ResultStatus = "pending"
	ResultStatusCancelled ResultStatus = "cancelled"
)

// Direction selects the neighbour an order swaps with when repositioned.
type Direction string

// Reposition directions.
const (
	DirectionEarlier Direction = "earlier"
	DirectionLater   Direction = "later"
)

// Valid reports whether the direction is supported.
func (d Direction) Valid() bool {
	return d == DirectionEarlier || d == DirectionLater
}

// Placeholders used when an order is created without vehicle or schedule.
const (
	UnassignedVehicle = "unassigned"
	PendingSchedule   = "pending-scheduling"
)

// MatrixSpec is a catalog-owned front or rear specification definition.
type MatrixSpec struct {
	Code         string `json:"code" yaml:"code"`
	ShortCode    string `json:"short_code" yaml:"short_code"`
	Label        string `json:"label" yaml:"label"`
	Manufacturer string `json:"manufacturer" yaml:"manufacturer"`
	Curing       string `json:"curing" yaml:"curing"`
	Carving      string `json:"carving" yaml:"carving"`
	Buffing      string `json:"buffing" yaml:"buffing"`
}

// SpecCombination pairs a front and rear spec with a quantity and test purpose.
type SpecCombination struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Front    MatrixSpec `json:"front"`
	Rear     MatrixSpec `json:"rear"`
	Quantity int        `json:"quantity"`
	Purpose  string     `json:"purpose"`
	Notes    *string    `json:"notes,omitempty"`
}

// CombinationLabel derives the display label of a front/rear pair.
func CombinationLabel(front, rear MatrixSpec) string {
	return front.ShortCode + "-" + rear.ShortCode
}

// TestOrder is a scheduled request to run a test against a spec combination.
// Its ID is stable; ledger position is tracked separately by the store.
type TestOrder struct {
	ID              string      `json:"id"`
	CombinationID   string      `json:"combination_id"`
	Objective       string      `json:"objective"`
	Vehicle         string      `json:"vehicle"`
	Schedule        string      `json:"schedule"`
	Quantity        int         `json:"quantity"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	StatusChangedAt time.Time   `json:"status_changed_at"`
}

// Active reports whether the order is eligible to receive results.
func (o TestOrder) Active() bool {
	return o.Status != OrderStatusCancelled
}

// EvaluationSheet records manufacturing and process metadata for one order.
type EvaluationSheet struct {
	ID            string    `json:"id"`
	TestOrderID   string    `json:"test_order_id"`
	SpecCode      string    `json:"spec_code"`
	MCode         string    `json:"m_code"`
	Manufacturing string    `json:"manufacturing"`
	Curing        string    `json:"curing"`
	Carving       string    `json:"carving"`
	Buffing       string    `json:"buffing"`
	Remarks       string    `json:"remarks,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Sheet field keys recognised by the default field configuration.
const (
	FieldMCode         = "mCode"
	FieldManufacturing = "manufacturing"
	FieldCuring        = "curing"
	FieldCarving       = "carving"
	FieldBuffing       = "buffing"
	FieldRemarks       = "remarks"
)

// SheetField toggles which extended fields a sheet template exposes.
type SheetField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// DefaultSheetFields returns the process-wide field configuration used on a fresh ledger.
func DefaultSheetFields() []SheetField {
	return []SheetField{
		{Key: FieldMCode, Label: "M-Code", Description: "manufacturing lot traceability, required", Enabled: true},
		{Key: FieldManufacturing, Label: "Manufacturing", Description: "plant and production week", Enabled: true},
		{Key: FieldCuring, Label: "Curing", Description: "temperature and time", Enabled: true},
		{Key: FieldCarving, Label: "Carving", Description: "mold identification code", Enabled: true},
		{Key: FieldBuffing, Label: "Buffing", Description: "whether buffing was applied", Enabled: false},
		{Key: FieldRemarks, Label: "Remarks", Description: "on-site notes", Enabled: true},
	}
}

// ResultRecord is metadata about an uploaded result file mapped to an order.
type ResultRecord struct {
	ID          string       `json:"id"`
	TestOrderID string       `json:"test_order_id"`
	FileName    string       `json:"file_name"`
	UploadedAt  time.Time    `json:"uploaded_at"`
	Status      ResultStatus `json:"status"`
	Batch       string       `json:"batch,omitempty"`
}

// FileDescriptor is the only upload information the ledger receives.
type FileDescriptor struct {
	Name string `json:"name"`
}

// AuditTrailEntry is one cancelled order in the derived audit trail.
type AuditTrailEntry struct {
	OrderID          string    `json:"order_id"`
	CombinationLabel string    `json:"combination_label"`
	Note             string    `json:"note"`
	Timestamp        time.Time `json:"timestamp"`
}

// Progress summarises order statuses across the ledger.
type Progress struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"in_progress"`
	Planned        int `json:"planned"`
	Cancelled      int `json:"cancelled"`
	CompletionRate int `json:"completion_rate"`
}

// SheetTemplate is a draft evaluation sheet exposing only enabled field keys.
type SheetTemplate struct {
	TestOrderID string            `json:"test_order_id"`
	SpecCode    string            `json:"spec_code"`
	Fields      []SheetField      `json:"fields"`
	Values      map[string]string `json:"values"`
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the mutations captured by transactions.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionMove indicates an order changed ledger position.
	ActionMove Action = "move"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
