// Package core implements the tire test ledger service: combination
// registry, test-order ledger, evaluation sheets, result ingestion and the
// derived audit and progress projections.
package core

import (
	"context"
	"errors"
	"time"

	"tirecore/internal/catalog"
	"tirecore/internal/infra/persistence/memory"
	"tirecore/pkg/domain"
)

// Service exposes the ledger command and query surface over a PersistentStore.
type Service struct {
	store    PersistentStore
	catalog  catalog.Catalog
	clock    Clock
	logger   Logger
	recorder OperationRecorder
	metrics  MetricsRecorder
	tracer   Tracer
	batchID  func() string
}

type nowSetter interface {
	SetNowFunc(func() time.Time)
}

// NewService constructs a service backed by the supplied store. When the
// store accepts a clock, the service clock is installed so record timestamps
// and operation timestamps agree.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if setter, ok := store.(nowSetter); ok {
		setter.SetNowFunc(cfg.clock.Now)
	}
	return &Service{
		store:    store,
		catalog:  cfg.catalog,
		clock:    cfg.clock,
		logger:   cfg.logger,
		recorder: cfg.recorder,
		metrics:  cfg.metrics,
		tracer:   cfg.tracer,
		batchID:  cfg.batchID,
	}
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewDefaultRulesEngine.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

type operationMeta struct {
	entity EntityType
	action Action
}

var operationMetadata = map[string]operationMeta{
	"add_combination":     {entity: domain.EntityCombination, action: domain.ActionCreate},
	"add_order":           {entity: domain.EntityTestOrder, action: domain.ActionCreate},
	"reposition_order":    {entity: domain.EntityTestOrder, action: domain.ActionMove},
	"toggle_cancellation": {entity: domain.EntityTestOrder, action: domain.ActionUpdate},
	"advance_order":       {entity: domain.EntityTestOrder, action: domain.ActionUpdate},
	"record_sheet":        {entity: domain.EntityEvaluationSheet, action: domain.ActionCreate},
	"toggle_field":        {entity: domain.EntitySheetField, action: domain.ActionUpdate},
	"ingest_results":      {entity: domain.EntityResult, action: domain.ActionCreate},
	"seed_demo":           {entity: domain.EntityTestOrder, action: domain.ActionCreate},
}

// run executes fn in a store transaction and reports the outcome to the
// tracer, metrics, logger and operation recorder. fn returns the id of the
// entity it touched.
func (s *Service) run(ctx context.Context, op string, fn func(Transaction) (string, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	s.logOutcome(op, entityID, res, err, duration)
	s.recordOperation(ctx, op, entityID, err, duration)
	return res, err
}

// view executes a read-only query with tracing and metrics.
func (s *Service) view(ctx context.Context, op string, fn func(TransactionView) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	started := time.Now()
	err := s.store.View(ctx, fn)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	switch {
	case err == nil:
		s.logger.Debug("query served", "operation", op)
	case isValidationError(err):
		s.logger.Warn("query rejected", "operation", op, "error", err)
	default:
		s.logger.Error("query failed", "operation", op, "error", err)
	}
	return err
}

func (s *Service) logOutcome(op, entityID string, res Result, err error, duration time.Duration) {
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "operation", op, "rule", v.Rule, "severity", string(v.Severity), "entity_id", v.EntityID, "message", v.Message)
	}
	var violation domain.RuleViolationError
	switch {
	case err == nil:
		s.logger.Info("operation committed", "operation", op, "entity_id", entityID, "duration_ms", duration.Milliseconds())
	case errors.As(err, &violation):
		s.logger.Warn("operation blocked by rules", "operation", op, "violations", len(violation.Result.Violations))
	case isValidationError(err):
		s.logger.Warn("operation rejected", "operation", op, "entity_id", entityID, "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "error", err)
	}
}

func (s *Service) recordOperation(ctx context.Context, op, entityID string, err error, duration time.Duration) {
	meta, ok := operationMetadata[op]
	if !ok {
		return
	}
	entry := OperationEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    OperationSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = OperationError
		entry.Error = err.Error()
	}
	s.recorder.Record(ctx, entry)
}

var validationErrors = []error{
	domain.ErrUnknownSpecCode,
	domain.ErrUnknownCombination,
	domain.ErrUnknownOrder,
	domain.ErrUnknownFieldKey,
	domain.ErrNoEligibleOrder,
	domain.ErrInvalidTransition,
	domain.ErrInvalidDirection,
}

func isValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
